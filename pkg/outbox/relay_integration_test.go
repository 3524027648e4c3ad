package outbox

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmehra2102/restaurant-order-system/internal/platform/kafka"
	"github.com/dmehra2102/restaurant-order-system/internal/platform/postgres"
	"github.com/dmehra2102/restaurant-order-system/internal/platform/testenv"
	"github.com/dmehra2102/restaurant-order-system/pkg/tracing"
)

func TestRelayToKafka_Integration(t *testing.T) {
	pool := testenv.Postgres(t)
	brokers := testenv.Kafka(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	msg, err := NewMessage("order", "order-1", "orderCreated", map[string]string{"orderId": "order-1"}, "")
	if err != nil {
		t.Fatal(err)
	}
	err = postgres.WithTx(ctx, pool, func(tx pgx.Tx) error { return Insert(ctx, tx, msg) })
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	const topic = "restaurant.events.test"
	writer := kafka.NewWriter(brokers)
	defer writer.Close()
	relay := NewRelay(discardLogger(), NewPostgresStore(discardLogger(), pool), "relay-it", nil,
		NewKafkaPublisher(discardLogger(), writer, topic))

	// The first write may race topic auto-creation.
	deadline := time.Now().Add(30 * time.Second)
	for {
		if err := relay.Drain(ctx); err != nil {
			t.Fatalf("Drain: %v", err)
		}
		var status string
		if err := pool.QueryRow(ctx, `SELECT status FROM outbox ORDER BY id LIMIT 1`).Scan(&status); err != nil {
			t.Fatal(err)
		}
		if status == string(StatusSent) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("outbox row still %s", status)
		}
		time.Sleep(500 * time.Millisecond)
	}

	reader := kafka.NewReader(brokers, topic, "relay-it")
	defer reader.Close()
	got, err := reader.FetchMessage(ctx)
	if err != nil {
		t.Fatalf("FetchMessage: %v", err)
	}
	if string(got.Key) != "order-1" {
		t.Fatalf("key = %q", got.Key)
	}
	if v := tracing.HeaderValue(got.Headers, HeaderEventType); v != "orderCreated" {
		t.Fatalf("event type header = %q", v)
	}
	if _, err := strconv.ParseInt(tracing.HeaderValue(got.Headers, HeaderOutboxID), 10, 64); err != nil {
		t.Fatalf("outbox id header: %v", err)
	}
}
