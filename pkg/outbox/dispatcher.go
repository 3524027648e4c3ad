package outbox

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/segmentio/kafka-go"
)

var ErrPermanent = errors.New("permanent")

// Headers every relayed message carries besides the row's own headers.
const (
	HeaderEventType = "event_type"
	HeaderOutboxID  = "outbox_id"
)

// Publisher delivers one relayed event to a downstream transport.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, event Event) error
}

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher writes events to a single topic keyed by aggregate id, so all
// events of one order land on one partition in commit order.
type KafkaPublisher struct {
	log      *slog.Logger
	producer Producer
	topic    string
}

func NewKafkaPublisher(log *slog.Logger, producer Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{log: log, producer: producer, topic: topic}
}

func (d *KafkaPublisher) Name() string { return "kafka" }

func (d *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	headers := make([]kafka.Header, 0, len(event.Headers)+3)

	for k, v := range event.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	headers = append(headers,
		kafka.Header{Key: HeaderEventType, Value: []byte(event.Type)},
		kafka.Header{Key: HeaderOutboxID, Value: []byte(strconv.FormatInt(event.ID, 10))},
	)
	if event.Traceparent != "" {
		headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(event.Traceparent)})
	}

	msg := kafka.Message{
		Topic:   d.topic,
		Key:     []byte(event.AggregateID),
		Value:   event.Payload,
		Headers: headers,
	}
	if err := d.producer.WriteMessages(ctx, msg); err != nil {
		d.log.Error("outbox dispatch failed", "event_id", event.ID, "err", err)
		return err
	}
	d.log.Debug("outbox dispatched", "event_id", event.ID, "type", event.Type)
	return nil
}
