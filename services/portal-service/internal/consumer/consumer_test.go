package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/medibook/libs/kafkax"
)

type sliceReader struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	errs   int
	closed bool
}

func (r *sliceReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.errs > 0 {
		r.errs--
		r.mu.Unlock()
		return kafka.Message{}, errors.New("transient")
	}
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *sliceReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

type countingInvalidator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingInvalidator) InvalidateDoctors(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.err
}

func (c *countingInvalidator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestConsumer_InvalidatesOnDoctorEvents(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	meta := kafkax.EventMeta{EventID: "evt-1", EventType: "directory.doctor.changed.v1"}
	reader := &sliceReader{
		errs: 1,
		msgs: []kafka.Message{
			{Topic: meta.EventType, Value: []byte(`{"doctor_id":7,"action":"availability_updated"}`), Headers: meta.Headers()},
			{Topic: meta.EventType, Value: []byte(`not json`)},
		},
	}
	inv := &countingInvalidator{}
	c := NewWithReader(reader, logger, DoctorChangedHandler(inv, logger))
	c.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for inv.count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected 2 invalidations, got %d", inv.count())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
	if !reader.closed {
		t.Fatalf("expected reader to be closed")
	}
}

func TestDoctorChangedHandler_PropagatesError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	inv := &countingInvalidator{err: errors.New("redis down")}
	h := DoctorChangedHandler(inv, logger)
	if err := h(context.Background(), kafka.Message{Value: []byte(`{}`)}); err == nil {
		t.Fatalf("expected invalidation error")
	}
}
