package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	orderdomain "github.com/dmehra2102/restaurant-order-system/internal/order/domain"
	"github.com/dmehra2102/restaurant-order-system/internal/payment/domain"
	"github.com/dmehra2102/restaurant-order-system/pkg/apperr"
	"github.com/dmehra2102/restaurant-order-system/pkg/outbox"
)

// memStore backs both ports so Confirm can update the order like the real
// transaction does.
type memStore struct {
	mu       sync.Mutex
	payments map[string]domain.Payment
	orders   map[string]orderdomain.Order
	outbox   []outbox.Message
}

func newMemStore() *memStore {
	return &memStore{payments: map[string]domain.Payment{}, orders: map[string]orderdomain.Order{}}
}

func (m *memStore) Create(ctx context.Context, p domain.Payment, msgs ...outbox.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.ID] = p
	m.outbox = append(m.outbox, msgs...)
	return nil
}

func (m *memStore) Get(ctx context.Context, id string) (domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return p, nil
}

func (m *memStore) List(ctx context.Context, f ListFilter) ([]domain.Payment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Payment
	for _, p := range m.payments {
		if f.Status == "" || p.Status == f.Status {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (m *memStore) ByOrder(ctx context.Context, orderID string) ([]domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Payment
	for _, p := range m.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) Confirm(ctx context.Context, p domain.Payment, o orderdomain.Order, prev orderdomain.Status, msgs ...outbox.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur := m.payments[p.ID]; cur.Status != domain.StatusPending {
		return &domain.StateError{ID: p.ID, Status: cur.Status}
	}
	if m.orders[o.ID].Status != prev {
		return orderdomain.ErrStaleStatus
	}
	m.payments[p.ID] = p
	m.orders[o.ID] = o
	m.outbox = append(m.outbox, msgs...)
	return nil
}

func (m *memStore) Fail(ctx context.Context, p domain.Payment, msgs ...outbox.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur := m.payments[p.ID]; cur.Status != domain.StatusPending {
		return &domain.StateError{ID: p.ID, Status: cur.Status}
	}
	m.payments[p.ID] = p
	m.outbox = append(m.outbox, msgs...)
	return nil
}

func (m *memStore) Summary(ctx context.Context, start, end time.Time) (domain.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := domain.Summary{Start: start, End: end, ByMethod: map[domain.Method]int64{}}
	for _, p := range m.payments {
		if p.Status == domain.StatusCompleted {
			s.Count++
			s.TotalAmount += p.AmountCents
			s.ByMethod[p.Method] += p.AmountCents
		}
	}
	return s, nil
}

type orderReader struct{ *memStore }

func (r orderReader) Get(ctx context.Context, id string) (orderdomain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return orderdomain.Order{}, orderdomain.ErrOrderNotFound
	}
	return o, nil
}

type recLive struct {
	mu     sync.Mutex
	events []string
}

func (r *recLive) OrderStatusChanged(order any, oldStatus, newStatus string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "order:status-changed:"+oldStatus+"->"+newStatus)
}

func (r *recLive) OrderCompleted(order any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "order:completed")
}

func setup(status orderdomain.Status) (*Service, *memStore, *recLive) {
	store := newMemStore()
	store.orders["o1"] = orderdomain.Order{
		ID:     "o1",
		Status: status,
		Items: []orderdomain.OrderItem{
			{MenuItemID: "a", Quantity: 2, UnitPriceCents: 1500},
			{MenuItemID: "b", Quantity: 1, UnitPriceCents: 1500},
		},
	}
	live := &recLive{}
	svc := NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), store, orderReader{store}, live, nil)
	return svc, store, live
}

func TestCreate_AmountBoundary(t *testing.T) {
	svc, store, _ := setup(orderdomain.StatusPreparing)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "o1", 4501, "CASH", ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("total+1: expected validation, got %v", err)
	}
	if n := len(store.outbox); n != 0 {
		t.Fatalf("rejected payment wrote %d outbox rows", n)
	}
	p, err := svc.Create(ctx, "o1", 4500, "CASH", "")
	if err != nil {
		t.Fatalf("amount == total: %v", err)
	}
	if p.Status != domain.StatusPending {
		t.Fatalf("status = %s", p.Status)
	}
	if store.outbox[0].Type != domain.EventPaymentCreated {
		t.Fatalf("event = %s", store.outbox[0].Type)
	}
}

func TestCreate_Rejections(t *testing.T) {
	svc, _, _ := setup(orderdomain.StatusPending)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "missing", 100, "CASH", ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unknown order: %v", err)
	}
	if _, err := svc.Create(ctx, "o1", 100, "CHEQUE", ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("bad method: %v", err)
	}
	if _, err := svc.Create(ctx, "o1", 0, "PIX", ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("zero amount: %v", err)
	}
}

func TestConfirm_ForcesOrderCompleted(t *testing.T) {
	svc, store, live := setup(orderdomain.StatusPreparing)
	ctx := context.Background()
	p, _ := svc.Create(ctx, "o1", 4500, "CREDIT_CARD", "")

	confirmed, err := svc.Confirm(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if confirmed.Status != domain.StatusCompleted || confirmed.PaidAt == nil {
		t.Fatalf("unexpected payment %+v", confirmed)
	}
	o := store.orders["o1"]
	if o.Status != orderdomain.StatusCompleted || o.CompletedAt == nil {
		t.Fatalf("order not completed: %+v", o)
	}

	types := []string{}
	for _, m := range store.outbox {
		types = append(types, m.Type)
	}
	want := []string{domain.EventPaymentCreated, domain.EventPaymentConfirmed, orderdomain.EventOrderStatusUpdated}
	if len(types) != len(want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("events = %v, want %v", types, want)
		}
	}
	if live.events[0] != "order:status-changed:PREPARING->COMPLETED" || live.events[1] != "order:completed" {
		t.Fatalf("live events = %v", live.events)
	}

	if _, err := svc.Confirm(ctx, p.ID); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("second confirm: %v", err)
	}
}

func TestConfirm_FromPendingOrder(t *testing.T) {
	svc, store, _ := setup(orderdomain.StatusPending)
	ctx := context.Background()
	p, _ := svc.Create(ctx, "o1", 1000, "PIX", "")
	if _, err := svc.Confirm(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	if store.orders["o1"].Status != orderdomain.StatusCompleted {
		t.Fatal("order must be completed even from PENDING")
	}
}

func TestCancel_LeavesOrderUntouched(t *testing.T) {
	svc, store, live := setup(orderdomain.StatusReady)
	ctx := context.Background()
	p, _ := svc.Create(ctx, "o1", 1000, "DEBIT_CARD", "")

	failed, err := svc.Cancel(ctx, p.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if failed.Status != domain.StatusFailed {
		t.Fatalf("status = %s", failed.Status)
	}
	if store.orders["o1"].Status != orderdomain.StatusReady {
		t.Fatal("order changed on payment cancel")
	}
	if len(live.events) != 0 {
		t.Fatalf("unexpected live events %v", live.events)
	}
	if _, err := svc.Cancel(ctx, p.ID, "again"); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("second cancel: %v", err)
	}
	if _, err := svc.Confirm(ctx, p.ID); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("confirm after cancel: %v", err)
	}
}

func TestSummary_RejectsEmptyRange(t *testing.T) {
	svc, _, _ := setup(orderdomain.StatusPending)
	now := time.Now()
	if _, err := svc.Summary(context.Background(), now, now); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation, got %v", err)
	}
}
