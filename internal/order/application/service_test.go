package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmehra2102/restaurant-order-system/internal/order/domain"
	"github.com/dmehra2102/restaurant-order-system/pkg/apperr"
	"github.com/dmehra2102/restaurant-order-system/pkg/outbox"
)

type memRepo struct {
	mu     sync.Mutex
	orders map[string]domain.Order
	outbox []outbox.Message
	// stale makes the next UpdateStatus behave as if another writer won.
	stale bool
}

func newMemRepo() *memRepo {
	return &memRepo{orders: map[string]domain.Order{}}
}

func (m *memRepo) Create(ctx context.Context, o domain.Order, msgs ...outbox.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	m.outbox = append(m.outbox, msgs...)
	return nil
}

func (m *memRepo) Get(ctx context.Context, id string) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return o, nil
}

func (m *memRepo) List(ctx context.Context, f ListFilter) ([]domain.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, o)
	}
	return out, len(out), nil
}

func (m *memRepo) UpdateStatus(ctx context.Context, o domain.Order, expected domain.Status, msgs ...outbox.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.orders[o.ID]
	if m.stale || cur.Status != expected {
		return domain.ErrStaleStatus
	}
	cur.Status = o.Status
	cur.StartedAt = o.StartedAt
	cur.CompletedAt = o.CompletedAt
	cur.UpdatedAt = o.UpdatedAt
	m.orders[o.ID] = cur
	m.outbox = append(m.outbox, msgs...)
	return nil
}

func (m *memRepo) AddItem(ctx context.Context, item domain.OrderItem) (domain.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.orders[item.OrderID]
	for i, it := range o.Items {
		if it.MenuItemID == item.MenuItemID {
			o.Items[i].Quantity += item.Quantity
			m.orders[o.ID] = o
			return o.Items[i], nil
		}
	}
	o.Items = append(o.Items, item)
	m.orders[o.ID] = o
	return item, nil
}

func (m *memRepo) RemoveItem(ctx context.Context, orderID, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.orders[orderID]
	for i, it := range o.Items {
		if it.ID == itemID {
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			m.orders[orderID] = o
			return nil
		}
	}
	return domain.ErrItemNotFound
}

func (m *memRepo) messages() []outbox.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]outbox.Message(nil), m.outbox...)
}

type fakeMenu map[string]MenuItem

func (f fakeMenu) MenuItem(ctx context.Context, id string) (MenuItem, error) {
	mi, ok := f[id]
	if !ok {
		return MenuItem{}, apperr.ErrNotFound
	}
	return mi, nil
}

type fakeTables map[string]bool

func (f fakeTables) TableExists(ctx context.Context, id string) (bool, error) {
	return f[id], nil
}

type liveEvent struct {
	name     string
	from, to string
}

type fakeLive struct {
	mu     sync.Mutex
	events []liveEvent
}

func (f *fakeLive) OrderCreated(order any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, liveEvent{name: "order:created"})
}

func (f *fakeLive) OrderStatusChanged(order any, oldStatus, newStatus string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, liveEvent{name: "order:status-changed", from: oldStatus, to: newStatus})
}

func (f *fakeLive) OrderCompleted(order any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, liveEvent{name: "order:completed"})
}

func (f *fakeLive) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.name)
	}
	return out
}

type fixture struct {
	svc  *Service
	repo *memRepo
	live *fakeLive
}

func newFixture() fixture {
	repo := newMemRepo()
	live := &fakeLive{}
	menu := fakeMenu{
		"burger": {ID: "burger", Name: "Burger", PriceCents: 1550, Available: true},
		"soda":   {ID: "soda", Name: "Soda", PriceCents: 500, Available: true},
		"soup":   {ID: "soup", Name: "Soup", PriceCents: 900, Available: false},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(log, repo, menu, fakeTables{"t1": true}, live, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return fixture{svc: svc, repo: repo, live: live}
}

func TestCreate_WritesOutboxAndBroadcasts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	o, err := f.svc.Create(ctx, "t1", "u1", "window seat")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if o.Status != domain.StatusPending {
		t.Fatalf("status = %s", o.Status)
	}
	msgs := f.repo.messages()
	if len(msgs) != 1 || msgs[0].Type != domain.EventOrderCreated {
		t.Fatalf("unexpected outbox messages %+v", msgs)
	}
	if got := f.live.names(); len(got) != 1 || got[0] != "order:created" {
		t.Fatalf("unexpected live events %v", got)
	}
}

func TestCreate_UnknownTable(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), "missing", "u1", "")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddItem_IncrementsExistingLine(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o, _ := f.svc.Create(ctx, "t1", "u1", "")

	if _, err := f.svc.AddItem(ctx, o.ID, "burger", 1, ""); err != nil {
		t.Fatal(err)
	}
	item, err := f.svc.AddItem(ctx, o.ID, "burger", 2, "")
	if err != nil {
		t.Fatal(err)
	}
	if item.Quantity != 3 {
		t.Fatalf("quantity = %d, want 3", item.Quantity)
	}
	total, err := f.svc.Total(ctx, o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3*1550 {
		t.Fatalf("total = %d", total)
	}
}

func TestAddItem_Rejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o, _ := f.svc.Create(ctx, "t1", "u1", "")

	if _, err := f.svc.AddItem(ctx, o.ID, "soup", 1, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("unavailable item: expected validation, got %v", err)
	}
	if _, err := f.svc.AddItem(ctx, o.ID, "burger", 0, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("zero quantity: expected validation, got %v", err)
	}
	if _, err := f.svc.Cancel(ctx, o.ID, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.AddItem(ctx, o.ID, "burger", 1, ""); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("closed order: expected conflict, got %v", err)
	}
}

func TestUpdateStatus_HappyPathToCompleted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o, _ := f.svc.Create(ctx, "t1", "u1", "")

	for _, s := range []string{"CONFIRMED", "PREPARING", "READY", "DELIVERED", "COMPLETED"} {
		if _, _, err := f.svc.UpdateStatus(ctx, o.ID, s); err != nil {
			t.Fatalf("to %s: %v", s, err)
		}
	}
	got, _ := f.svc.Get(ctx, o.ID)
	if got.StartedAt == nil || got.CompletedAt == nil {
		t.Fatalf("timestamps not set: %+v", got)
	}
	names := f.live.names()
	if names[len(names)-1] != "order:completed" {
		t.Fatalf("last live event = %s, want order:completed", names[len(names)-1])
	}
	if n := len(f.repo.messages()); n != 6 {
		t.Fatalf("outbox messages = %d, want 6", n)
	}
}

func TestUpdateStatus_InvalidTransitionWritesNothing(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o, _ := f.svc.Create(ctx, "t1", "u1", "")

	_, _, err := f.svc.UpdateStatus(ctx, o.ID, "READY")
	if !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	got, _ := f.svc.Get(ctx, o.ID)
	if got.Status != domain.StatusPending {
		t.Fatalf("status = %s", got.Status)
	}
	if n := len(f.repo.messages()); n != 1 {
		t.Fatalf("outbox messages = %d, want only orderCreated", n)
	}
}

func TestUpdateStatus_UnknownStatusAndOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o, _ := f.svc.Create(ctx, "t1", "u1", "")

	if _, _, err := f.svc.UpdateStatus(ctx, o.ID, "EATEN"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation, got %v", err)
	}
	if _, _, err := f.svc.UpdateStatus(ctx, "nope", "CONFIRMED"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateStatus_LostRaceIsConflict(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o, _ := f.svc.Create(ctx, "t1", "u1", "")

	f.repo.stale = true
	_, _, err := f.svc.UpdateStatus(ctx, o.ID, "CONFIRMED")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestKitchenUpdateStatus_Shortcuts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o, _ := f.svc.Create(ctx, "t1", "u1", "")

	_, prev, err := f.svc.KitchenUpdateStatus(ctx, o.ID, "PREPARING")
	if err != nil {
		t.Fatal(err)
	}
	if prev != domain.StatusPending {
		t.Fatalf("previous = %s", prev)
	}
	if _, _, err := f.svc.KitchenUpdateStatus(ctx, o.ID, "READY"); err != nil {
		t.Fatal(err)
	}
	done, _, err := f.svc.KitchenUpdateStatus(ctx, o.ID, "COMPLETED")
	if err != nil {
		t.Fatal(err)
	}
	if done.CompletedAt == nil || done.StartedAt == nil {
		t.Fatalf("timestamps missing: %+v", done)
	}
	if _, _, err := f.svc.KitchenUpdateStatus(ctx, o.ID, "PREPARING"); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("completed order: expected invalid transition, got %v", err)
	}
}

func TestCancel_ReasonFallsBackToNotes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o, _ := f.svc.Create(ctx, "t1", "u1", "customer left")

	if _, err := f.svc.Cancel(ctx, o.ID, ""); err != nil {
		t.Fatal(err)
	}
	msgs := f.repo.messages()
	last := msgs[len(msgs)-1]
	if last.Type != domain.EventOrderCancelled {
		t.Fatalf("last event = %s", last.Type)
	}
	if want := `"reason":"customer left"`; !strings.Contains(string(last.Payload), want) {
		t.Fatalf("payload %s missing %s", last.Payload, want)
	}

	if _, err := f.svc.Cancel(ctx, o.ID, "again"); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("second cancel: expected invalid transition, got %v", err)
	}
}

func TestConcurrentTransitionsOnlyOneWins(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o, _ := f.svc.Create(ctx, "t1", "u1", "")

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := f.svc.UpdateStatus(ctx, o.ID, "CONFIRMED"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("wins = %d, want 1", wins)
	}
}
