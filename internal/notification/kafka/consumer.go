package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/restaurant-order-system/pkg/outbox"
	"github.com/dmehra2102/restaurant-order-system/pkg/tracing"
)

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, eventType string, data json.RawMessage)
}

// Deduper reports whether key was already handled and records it otherwise.
type Deduper interface {
	Seen(ctx context.Context, key string) (bool, error)
	Key(topic string, partition int, offset int64) string
	EventKey(outboxID string) string
}

// Consumer reads relayed outbox events and hands each one to the webhook
// dispatcher once.
type Consumer struct {
	log        *slog.Logger
	reader     Reader
	dispatcher Dispatcher
	idem       Deduper
	tracer     trace.Tracer
}

func NewConsumer(log *slog.Logger, reader Reader, dispatcher Dispatcher, idem Deduper) *Consumer {
	return &Consumer{
		log:        log,
		reader:     reader,
		dispatcher: dispatcher,
		idem:       idem,
		tracer:     otel.Tracer("notification-consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		c.handle(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit failed", "offset", msg.Offset, "err", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	key := c.dedupKey(msg)
	seen, err := c.idem.Seen(ctx, key)
	if err != nil {
		// Dispatch anyway: a duplicate webhook is better than a lost one.
		c.log.Error("idempotency check failed", "key", key, "err", err)
	}
	if seen {
		c.log.Info("duplicate event skipped", "key", key)
		return
	}

	eventType := tracing.HeaderValue(msg.Headers, outbox.HeaderEventType)
	if eventType == "" {
		c.log.Warn("event without type skipped", "offset", msg.Offset)
		return
	}
	if !json.Valid(msg.Value) {
		c.log.Error("event payload is not json", "event", eventType, "offset", msg.Offset)
		return
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "DispatchWebhook", trace.WithAttributes(
		attribute.String("event.type", eventType),
		attribute.String("event.aggregate_id", string(msg.Key)),
	))
	defer span.End()

	c.dispatcher.Dispatch(msgCtx, eventType, json.RawMessage(msg.Value))
}

// dedupKey prefers the outbox row id, which survives redelivery at a new
// offset after a relay retry.
func (c *Consumer) dedupKey(msg kafka.Message) string {
	if id := tracing.HeaderValue(msg.Headers, outbox.HeaderOutboxID); id != "" {
		return c.idem.EventKey(id)
	}
	return c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
}
