package grpcserver

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/md-rashed-zaman/medibook/libs/grpcx"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/availability"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/booking"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/medapi"
)

type fakeSlots struct {
	token string
	err   error
}

func (f *fakeSlots) Dates(ctx context.Context, doctorID string) ([]availability.CandidateDate, error) {
	f.token = medapi.TokenFromContext(ctx)
	if f.err != nil {
		return nil, f.err
	}
	return []availability.CandidateDate{{Value: "2024-06-03", Label: "Monday, Jun 3, 2024"}}, nil
}

func (f *fakeSlots) Slots(_ context.Context, _ string, date string) (booking.DaySlots, error) {
	if f.err != nil {
		return booking.DaySlots{}, f.err
	}
	if date == "2024-06-10" {
		return booking.DaySlots{Date: date, Slots: []string{}, FullyBooked: true}, nil
	}
	return booking.DaySlots{Date: date, Slots: []string{"09:00", "11:00"}}, nil
}

func (f *fakeSlots) Quote(_ context.Context, _ string, date, start string) (booking.Quote, error) {
	if f.err != nil {
		return booking.Quote{}, f.err
	}
	return booking.Quote{Date: date, StartTime: start, EndTime: "10:00", Fee: 50, AvailabilityID: "7", Matched: true}, nil
}

func startServer(t *testing.T, slots SlotQuerier) *grpc.ClientConn {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := grpc.NewServer(grpcx.ServerOptions(logger)...)
	Register(srv, slots)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpcx.Dial(context.Background(), lis.Addr().String(), grpcx.DialOptions{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func invoke(t *testing.T, conn *grpc.ClientConn, ctx context.Context, method string, req map[string]any) (*structpb.Struct, error) {
	t.Helper()
	in, err := structpb.NewStruct(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	out := new(structpb.Struct)
	err = conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out)
	return out, err
}

func TestListDatesForwardsToken(t *testing.T) {
	fake := &fakeSlots{}
	conn := startServer(t, fake)
	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer tok-1")

	out, err := invoke(t, conn, ctx, "ListDates", map[string]any{"doctor_id": "3"})
	if err != nil {
		t.Fatalf("ListDates: %v", err)
	}
	dates := out.GetFields()["dates"].GetListValue().GetValues()
	if len(dates) != 1 {
		t.Fatalf("expected 1 date, got %d", len(dates))
	}
	if got := dates[0].GetStructValue().GetFields()["value"].GetStringValue(); got != "2024-06-03" {
		t.Fatalf("unexpected date %q", got)
	}
	if fake.token != "tok-1" {
		t.Fatalf("expected token forwarded, got %q", fake.token)
	}
}

func TestListDatesAcceptsNumericDoctorID(t *testing.T) {
	conn := startServer(t, &fakeSlots{})
	out, err := invoke(t, conn, context.Background(), "ListDates", map[string]any{"doctor_id": 3})
	if err != nil {
		t.Fatalf("ListDates: %v", err)
	}
	if got := out.GetFields()["doctor_id"].GetStringValue(); got != "3" {
		t.Fatalf("unexpected doctor id %q", got)
	}
}

func TestListSlotsFullyBooked(t *testing.T) {
	conn := startServer(t, &fakeSlots{})
	out, err := invoke(t, conn, context.Background(), "ListSlots", map[string]any{"doctor_id": "3", "date": "2024-06-10"})
	if err != nil {
		t.Fatalf("ListSlots: %v", err)
	}
	f := out.GetFields()
	if !f["fully_booked"].GetBoolValue() {
		t.Fatalf("expected fully_booked")
	}
	if f["message"].GetStringValue() != FullyBookedMessage {
		t.Fatalf("unexpected message %q", f["message"].GetStringValue())
	}
}

func TestQuote(t *testing.T) {
	conn := startServer(t, &fakeSlots{})
	out, err := invoke(t, conn, context.Background(), "Quote", map[string]any{"doctor_id": "3", "date": "2024-06-03", "start_time": "09:00"})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	f := out.GetFields()
	if f["fee"].GetNumberValue() != 50 || f["end_time"].GetStringValue() != "10:00" || !f["matched"].GetBoolValue() {
		t.Fatalf("unexpected quote %v", f)
	}
}

func TestMissingFields(t *testing.T) {
	conn := startServer(t, &fakeSlots{})
	_, err := invoke(t, conn, context.Background(), "Quote", map[string]any{"doctor_id": "3"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{booking.ErrUnknownDate, codes.InvalidArgument},
		{booking.ErrNotAuthenticated, codes.Unauthenticated},
		{booking.ErrNoMatchingWindow, codes.FailedPrecondition},
		{&medapi.APIError{StatusCode: 404, Message: "Doctor not found"}, codes.NotFound},
		{&medapi.APIError{StatusCode: 422, Message: "bad"}, codes.InvalidArgument},
		{&medapi.APIError{StatusCode: 502, Message: "Failed to load data."}, codes.Unavailable},
		{io.ErrUnexpectedEOF, codes.Internal},
	}
	for _, tc := range cases {
		if got := status.Code(toStatus(tc.err)); got != tc.want {
			t.Fatalf("%v: expected %v, got %v", tc.err, tc.want, got)
		}
	}

	conn := startServer(t, &fakeSlots{err: &medapi.APIError{StatusCode: 404, Message: "Doctor not found"}})
	_, err := invoke(t, conn, context.Background(), "ListDates", map[string]any{"doctor_id": "9"})
	st, _ := status.FromError(err)
	if st.Code() != codes.NotFound || st.Message() != "Doctor not found" {
		t.Fatalf("unexpected status %v", err)
	}
}
