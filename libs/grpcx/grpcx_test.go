package grpcx

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/md-rashed-zaman/medibook/libs/httpx"
)

var info = &grpc.UnaryServerInfo{FullMethod: "/medibook.portal.v1.SlotService/Quote"}

func TestRecoveryInterceptor(t *testing.T) {
	_, err := UnaryServerRecoveryInterceptor(nil)(context.Background(), nil, info, func(context.Context, any) (any, error) {
		panic("boom")
	})
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal, got %v", err)
	}

	resp, err := UnaryServerRecoveryInterceptor(nil)(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return "ok", nil
	})
	if err != nil || resp != "ok" {
		t.Fatalf("unexpected result %v %v", resp, err)
	}
}

func TestServerRequestIDFromMetadata(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(RequestIDMetadataKey, "req-1"))
	var seen, seenHTTP string
	_, err := UnaryServerRequestIDInterceptor()(ctx, nil, info, func(ctx context.Context, _ any) (any, error) {
		seen = RequestIDFromContext(ctx)
		seenHTTP = httpx.RequestIDFromContext(ctx)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if seen != "req-1" || seenHTTP != "req-1" {
		t.Fatalf("expected request id on both keys, got %q %q", seen, seenHTTP)
	}
}

func TestClientRequestIDPrefersHTTP(t *testing.T) {
	ctx := WithRequestID(httpx.ContextWithRequestID(context.Background(), "from-http"), "from-grpc")
	var got []string
	invoker := func(ctx context.Context, _ string, _, _ any, _ *grpc.ClientConn, _ ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		got = md.Get(RequestIDMetadataKey)
		return nil
	}
	if err := UnaryClientRequestIDInterceptor()(ctx, "/m", nil, nil, nil, invoker); err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if len(got) != 1 || got[0] != "from-http" {
		t.Fatalf("unexpected outgoing ids %v", got)
	}
}
