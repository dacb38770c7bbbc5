package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/medibook/libs/kafkax"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func outboxColumns() []string {
	return []string{"id", "event_id", "aggregate_type", "aggregate_id", "event_type", "payload", "traceparent", "tracestate", "created_at"}
}

func TestPublishBatch_RelaysAndMarks(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, event_id").WithArgs(10).WillReturnRows(
		pgxmock.NewRows(outboxColumns()).
			AddRow(int64(1), "evt-1", AggregateSubmission, "sub-1", EventAppointmentSubmitted, []byte(`{"outcome":"created"}`), "", "", now).
			AddRow(int64(2), "evt-2", AggregateSubmission, "sub-2", EventAppointmentSubmitted, []byte(`{"outcome":"failed"}`), "", "", now),
	)
	mock.ExpectExec("UPDATE outbox_events").WithArgs([]int64{1, 2}).WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectCommit()

	p := NewPublisher(mock, NewRepository(), slog.New(slog.NewTextHandler(io.Discard, nil)), PublisherConfig{Brokers: "localhost:9092", BatchSize: 10})
	w := &fakeWriter{}
	n, err := p.PublishBatch(context.Background(), w)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if n != 2 || len(w.msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d/%d", n, len(w.msgs))
	}
	msg := w.msgs[0]
	if msg.Topic != EventAppointmentSubmitted || string(msg.Key) != "sub-1" {
		t.Fatalf("unexpected message: %s %s", msg.Topic, msg.Key)
	}
	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventID != "evt-1" || meta.EventType != EventAppointmentSubmitted || meta.AggregateType != AggregateSubmission {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPublishBatch_WriterFailureLeavesRowsUnpublished(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, event_id").WithArgs(50).WillReturnRows(
		pgxmock.NewRows(outboxColumns()).
			AddRow(int64(7), "evt-7", AggregateSubmission, "sub-7", EventAppointmentSubmitted, []byte(`{}`), "", "", time.Now()),
	)
	mock.ExpectRollback()

	p := NewPublisher(mock, NewRepository(), slog.New(slog.NewTextHandler(io.Discard, nil)), PublisherConfig{Brokers: "localhost:9092"})
	if _, err := p.PublishBatch(context.Background(), &fakeWriter{err: errors.New("broker down")}); err == nil {
		t.Fatalf("expected writer error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPublishBatch_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, event_id").WithArgs(50).WillReturnRows(pgxmock.NewRows(outboxColumns()))
	mock.ExpectCommit()

	p := NewPublisher(mock, NewRepository(), slog.New(slog.NewTextHandler(io.Discard, nil)), PublisherConfig{Brokers: "localhost:9092"})
	n, err := p.PublishBatch(context.Background(), &fakeWriter{})
	if err != nil || n != 0 {
		t.Fatalf("expected empty batch, got %d %v", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRun_DisabledWithoutBrokers(t *testing.T) {
	p := NewPublisher(nil, NewRepository(), slog.New(slog.NewTextHandler(io.Discard, nil)), PublisherConfig{})
	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("run should return immediately without brokers")
	}
}
