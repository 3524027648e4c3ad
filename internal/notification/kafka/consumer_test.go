package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/dmehra2102/restaurant-order-system/pkg/outbox"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.msgs) == 0 {
		return kafka.Message{}, context.Canceled
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

type call struct {
	event string
	data  string
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []call
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, eventType string, data json.RawMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{event: eventType, data: string(data)})
}

type memDedup struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (m *memDedup) Seen(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.seen[key] {
		return true, nil
	}
	m.seen[key] = true
	return false, nil
}

func (m *memDedup) Key(topic string, partition int, offset int64) string {
	return fmt.Sprintf("%s:%d:%d", topic, partition, offset)
}

func (m *memDedup) EventKey(outboxID string) string { return "outbox:" + outboxID }

func event(offset int64, outboxID, eventType, payload string) kafka.Message {
	headers := []kafka.Header{{Key: outbox.HeaderEventType, Value: []byte(eventType)}}
	if outboxID != "" {
		headers = append(headers, kafka.Header{Key: outbox.HeaderOutboxID, Value: []byte(outboxID)})
	}
	return kafka.Message{Topic: "restaurant.events", Offset: offset, Headers: headers, Value: []byte(payload)}
}

func run(t *testing.T, dedup *memDedup, msgs ...kafka.Message) (*fakeReader, *fakeDispatcher) {
	t.Helper()
	r := &fakeReader{msgs: msgs}
	d := &fakeDispatcher{}
	c := NewConsumer(slog.New(slog.NewTextHandler(io.Discard, nil)), r, d, dedup)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return r, d
}

func TestRun_DispatchesOncePerOutboxRow(t *testing.T) {
	dedup := &memDedup{seen: map[string]bool{}}
	r, d := run(t, dedup,
		event(1, "10", "orderCreated", `{"orderId":"o1"}`),
		event(2, "10", "orderCreated", `{"orderId":"o1"}`),
		event(3, "11", "paymentConfirmed", `{"paymentId":"p1"}`),
	)

	if len(d.calls) != 2 {
		t.Fatalf("dispatch calls = %d, want 2", len(d.calls))
	}
	if d.calls[0].event != "orderCreated" || d.calls[0].data != `{"orderId":"o1"}` {
		t.Fatalf("first call = %+v", d.calls[0])
	}
	if d.calls[1].event != "paymentConfirmed" {
		t.Fatalf("second call = %+v", d.calls[1])
	}
	if len(r.committed) != 3 {
		t.Fatalf("committed = %v, every message must be committed", r.committed)
	}
}

func TestRun_SkipsMalformed(t *testing.T) {
	dedup := &memDedup{seen: map[string]bool{}}
	_, d := run(t, dedup,
		event(1, "1", "", `{}`),
		event(2, "2", "orderCreated", `not json`),
		event(3, "", "orderCancelled", `{"orderId":"o2"}`),
	)
	if len(d.calls) != 1 || d.calls[0].event != "orderCancelled" {
		t.Fatalf("calls = %+v", d.calls)
	}
}

func TestRun_DedupFailureStillDispatches(t *testing.T) {
	dedup := &memDedup{seen: map[string]bool{}, err: errors.New("redis down")}
	_, d := run(t, dedup, event(1, "5", "orderCreated", `{}`))
	if len(d.calls) != 1 {
		t.Fatalf("calls = %d", len(d.calls))
	}
}
