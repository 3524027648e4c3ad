package kafka

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// NewWriter returns a producer that waits for every in-sync replica. The
// outbox relay keys messages by aggregate id, so the hash balancer keeps one
// order's events on one partition.
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

// NewReader joins group on topic. Offsets are committed explicitly after
// each message is handled.
func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        group,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
	})
}
