package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

type Event struct {
	ID            int64
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Headers       map[string]string
	Traceparent   string
	CreatedAt     time.Time
	Status        Status
	RelayID       string
	RetryCount    int
	LastError     *string
}

// Message is an event that has not been written yet.
type Message struct {
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Headers       map[string]string
	Traceparent   string
}

func NewMessage(aggregateType, aggregateID, eventType string, data any, traceparent string) (Message, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Message{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Type:          eventType,
		Payload:       payload,
		Headers:       map[string]string{"source": "restaurant-service"},
		Traceparent:   traceparent,
	}, nil
}

// Execer is satisfied by pgx.Tx, so messages are written inside the caller's
// transaction together with the state change they describe.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func Insert(ctx context.Context, tx Execer, msgs ...Message) error {
	for _, m := range msgs {
		_, err := tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
			VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
			m.AggregateType, m.AggregateID, m.Type, m.Payload, m.Headers, m.Traceparent)
		if err != nil {
			return fmt.Errorf("insert outbox %s: %w", m.Type, err)
		}
	}
	return nil
}
