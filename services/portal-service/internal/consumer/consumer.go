package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/medibook/libs/kafkax"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	reader  MessageReader
	logger  *slog.Logger
	handler Handler
	backoff time.Duration
}

type Config struct {
	Brokers string
	GroupID string
	Topic   string
}

func New(logger *slog.Logger, cfg Config, handler Handler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  kafkax.SplitBrokers(cfg.Brokers),
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return NewWithReader(reader, logger, handler)
}

func NewWithReader(reader MessageReader, logger *slog.Logger, handler Handler) *Consumer {
	return &Consumer{
		reader:  reader,
		logger:  logger,
		handler: handler,
		backoff: time.Second,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.backoff):
			}
			continue
		}
		c.handle(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	if err := c.handler(ctxSpan, msg); err != nil {
		c.logger.Error("handler error", "err", err, "event_id", meta.EventID, "event_type", meta.EventType)
		span.RecordError(err)
	}
}

// Invalidator drops cached doctor listings, normally *directory.Service.
type Invalidator interface {
	InvalidateDoctors(ctx context.Context) error
}

type doctorChanged struct {
	DoctorID json.RawMessage `json:"doctor_id"`
	Action   string          `json:"action"`
}

// DoctorChangedHandler invalidates the directory cache on every doctor change event.
// Listings are cached per page, so a single doctor cannot be evicted on its own.
func DoctorChangedHandler(inv Invalidator, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt doctorChanged
		if len(msg.Value) > 0 {
			if err := json.Unmarshal(msg.Value, &evt); err != nil {
				logger.Warn("malformed doctor event, invalidating anyway", "err", err, "offset", msg.Offset)
			}
		}
		if err := inv.InvalidateDoctors(ctx); err != nil {
			return err
		}
		logger.Info("directory cache invalidated",
			"event_id", kafkax.ExtractEventMeta(msg).EventID,
			"doctor_id", string(evt.DoctorID),
			"action", evt.Action,
		)
		return nil
	}
}
