package kafkax

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka-1:9092, ,kafka-2:9092 ")
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers %v", got)
	}
}

func TestExtractEventMetaFallsBackToKeyAndTopic(t *testing.T) {
	meta := ExtractEventMeta(kafka.Message{Topic: "directory.doctor.changed.v1", Key: []byte("doc-7")})
	if meta.EventID != "doc-7" || meta.EventType != "directory.doctor.changed.v1" {
		t.Fatalf("unexpected meta %+v", meta)
	}
	if meta.AggregateID != "doc-7" {
		t.Fatalf("aggregate id should fall back to key, got %q", meta.AggregateID)
	}
	headers := EventMeta{EventID: "e1", EventType: "t1", AggregateType: "booking_submission", AggregateID: "s1"}.Headers()
	meta = ExtractEventMeta(kafka.Message{Headers: headers})
	if meta.EventID != "e1" || meta.EventType != "t1" || meta.AggregateType != "booking_submission" || meta.AggregateID != "s1" {
		t.Fatalf("unexpected meta from headers %+v", meta)
	}
	if got := len(EventMeta{EventID: "e1", EventType: "t1"}.Headers()); got != 2 {
		t.Fatalf("empty aggregate fields should be omitted, got %d headers", got)
	}
}

func TestTraceHeadersRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := InjectTraceHeaders(ctx, []kafka.Header{{Key: "event_id", Value: []byte("e1")}})
	if HeaderValue(headers, "traceparent") == "" {
		t.Fatalf("traceparent not injected: %+v", headers)
	}
	got := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), kafka.Message{Headers: headers}))
	if got.TraceID() != traceID {
		t.Fatalf("trace id mismatch: %s", got.TraceID())
	}
}

func TestReadyCheckWithoutBrokers(t *testing.T) {
	if err := ReadyCheck("")(context.Background()); err == nil {
		t.Fatal("expected error without brokers")
	}
}

func TestReadyCheckReportsEveryBroker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := ReadyCheck("127.0.0.1:1,127.0.0.1:2")(ctx)
	if err == nil {
		t.Fatal("expected error for unreachable brokers")
	}
	if !strings.Contains(err.Error(), "127.0.0.1:1") || !strings.Contains(err.Error(), "127.0.0.1:2") {
		t.Fatalf("expected both brokers in error, got %v", err)
	}
}
