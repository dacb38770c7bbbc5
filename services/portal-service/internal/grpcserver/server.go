package grpcserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/availability"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/booking"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/medapi"
)

const ServiceName = "medibook.portal.v1.SlotService"

// SlotQuerier is the read side of the booking flow, normally *booking.Service.
type SlotQuerier interface {
	Dates(ctx context.Context, doctorID string) ([]availability.CandidateDate, error)
	Slots(ctx context.Context, doctorID, date string) (booking.DaySlots, error)
	Quote(ctx context.Context, doctorID, date, startTime string) (booking.Quote, error)
}

// SlotServiceServer is implemented by *Server. Messages are google.protobuf.Struct.
type SlotServiceServer interface {
	ListDates(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListSlots(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Quote(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SlotServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListDates", Handler: unaryHandler("ListDates", SlotServiceServer.ListDates)},
		{MethodName: "ListSlots", Handler: unaryHandler("ListSlots", SlotServiceServer.ListSlots)},
		{MethodName: "Quote", Handler: unaryHandler("Quote", SlotServiceServer.Quote)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "medibook/portal/v1/slots.proto",
}

type method func(SlotServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, m method) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return m(srv.(SlotServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return m(srv.(SlotServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type Server struct {
	slots SlotQuerier
}

func Register(grpcServer *grpc.Server, slots SlotQuerier) {
	grpcServer.RegisterService(&serviceDesc, &Server{slots: slots})
}

func (s *Server) ListDates(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	doctorID := field(req, "doctor_id")
	if doctorID == "" {
		return nil, status.Error(codes.InvalidArgument, "doctor_id is required")
	}
	dates, err := s.slots.Dates(withToken(ctx), doctorID)
	if err != nil {
		return nil, toStatus(err)
	}
	items := make([]any, 0, len(dates))
	for _, d := range dates {
		items = append(items, map[string]any{"value": d.Value, "label": d.Label})
	}
	return structpb.NewStruct(map[string]any{"doctor_id": doctorID, "dates": items})
}

func (s *Server) ListSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	doctorID, date := field(req, "doctor_id"), field(req, "date")
	if doctorID == "" || date == "" {
		return nil, status.Error(codes.InvalidArgument, "doctor_id and date are required")
	}
	day, err := s.slots.Slots(withToken(ctx), doctorID, date)
	if err != nil {
		return nil, toStatus(err)
	}
	slots := make([]any, 0, len(day.Slots))
	for _, sl := range day.Slots {
		slots = append(slots, sl)
	}
	out := map[string]any{
		"date":         day.Date,
		"slots":        slots,
		"fully_booked": day.FullyBooked,
	}
	if day.FullyBooked {
		out["message"] = FullyBookedMessage
	}
	return structpb.NewStruct(out)
}

func (s *Server) Quote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	doctorID, date, start := field(req, "doctor_id"), field(req, "date"), field(req, "start_time")
	if doctorID == "" || date == "" || start == "" {
		return nil, status.Error(codes.InvalidArgument, "doctor_id, date and start_time are required")
	}
	q, err := s.slots.Quote(withToken(ctx), doctorID, date, start)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{
		"date":            q.Date,
		"start_time":      q.StartTime,
		"end_time":        q.EndTime,
		"fee":             q.Fee,
		"availability_id": q.AvailabilityID,
		"matched":         q.Matched,
	})
}

const FullyBookedMessage = "Doctor is fully booked for this day."

func field(req *structpb.Struct, name string) string {
	if req == nil {
		return ""
	}
	v, ok := req.GetFields()[name]
	if !ok {
		return ""
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return strings.TrimSpace(k.StringValue)
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
	}
	return ""
}

// withToken forwards a bearer token from the "authorization" metadata to medapi calls.
func withToken(ctx context.Context) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}
	for _, v := range md.Get("authorization") {
		if token, found := strings.CutPrefix(v, "Bearer "); found {
			return medapi.WithToken(ctx, token)
		}
	}
	return ctx
}

func toStatus(err error) error {
	var verr *booking.ValidationError
	if errors.As(err, &verr) {
		switch verr {
		case booking.ErrNotAuthenticated:
			return status.Error(codes.Unauthenticated, verr.Message)
		case booking.ErrNoMatchingWindow:
			return status.Error(codes.FailedPrecondition, verr.Message)
		}
		return status.Error(codes.InvalidArgument, verr.Message)
	}
	var apiErr *medapi.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusNotFound:
			return status.Error(codes.NotFound, apiErr.Message)
		case apiErr.StatusCode == http.StatusUnauthorized:
			return status.Error(codes.Unauthenticated, apiErr.Message)
		case apiErr.StatusCode == http.StatusForbidden:
			return status.Error(codes.PermissionDenied, apiErr.Message)
		case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
			return status.Error(codes.InvalidArgument, apiErr.Message)
		}
		return status.Error(codes.Unavailable, apiErr.Message)
	}
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, "internal error")
}
