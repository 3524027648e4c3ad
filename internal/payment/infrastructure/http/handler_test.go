package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	authdomain "github.com/dmehra2102/restaurant-order-system/internal/auth/domain"
	authhttp "github.com/dmehra2102/restaurant-order-system/internal/auth/infrastructure/http"
	orderdomain "github.com/dmehra2102/restaurant-order-system/internal/order/domain"
	"github.com/dmehra2102/restaurant-order-system/internal/payment/application"
	"github.com/dmehra2102/restaurant-order-system/internal/payment/domain"
	"github.com/dmehra2102/restaurant-order-system/pkg/apperr"
	"github.com/dmehra2102/restaurant-order-system/pkg/outbox"
)

type stubStore struct {
	mu       sync.Mutex
	payments map[string]domain.Payment
	orders   map[string]orderdomain.Order
}

func newStubStore() *stubStore {
	return &stubStore{
		payments: map[string]domain.Payment{},
		orders: map[string]orderdomain.Order{
			"o1": {ID: "o1", Status: orderdomain.StatusDelivered, Items: []orderdomain.OrderItem{
				{MenuItemID: "burger", Quantity: 2, UnitPriceCents: 1000},
				{MenuItemID: "soda", Quantity: 1, UnitPriceCents: 1000},
			}},
		},
	}
}

func (s *stubStore) Create(ctx context.Context, p domain.Payment, msgs ...outbox.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ID] = p
	return nil
}

func (s *stubStore) Get(ctx context.Context, id string) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return p, nil
}

func (s *stubStore) List(ctx context.Context, f application.ListFilter) ([]domain.Payment, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Payment{}
	for _, p := range s.payments {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (s *stubStore) ByOrder(ctx context.Context, orderID string) ([]domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Payment{}
	for _, p := range s.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubStore) Confirm(ctx context.Context, p domain.Payment, o orderdomain.Order, prev orderdomain.Status, msgs ...outbox.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ID] = p
	s.orders[o.ID] = o
	return nil
}

func (s *stubStore) Fail(ctx context.Context, p domain.Payment, msgs ...outbox.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ID] = p
	return nil
}

func (s *stubStore) Summary(ctx context.Context, start, end time.Time) (domain.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := domain.Summary{Start: start, End: end, ByMethod: map[domain.Method]int64{}}
	for _, p := range s.payments {
		if p.Status == domain.StatusCompleted {
			sum.Count++
			sum.TotalAmount += p.AmountCents
			sum.ByMethod[p.Method] += p.AmountCents
		}
	}
	return sum, nil
}

type stubOrders struct{ *stubStore }

func (o stubOrders) Get(ctx context.Context, id string) (orderdomain.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	order, ok := o.orders[id]
	if !ok {
		return orderdomain.Order{}, orderdomain.ErrOrderNotFound
	}
	return order, nil
}

type nopLive struct{}

func (nopLive) OrderStatusChanged(any, string, string) {}
func (nopLive) OrderCompleted(any)                     {}

func newServer(t *testing.T, store *stubStore, role authdomain.Role) http.Handler {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := application.NewService(log, store, stubOrders{store}, nopLive{}, nil)
	h := NewHandler(log, svc, nil,
		authhttp.RequireRoles(log, authdomain.FloorStaff...),
		authhttp.RequireRoles(log, authdomain.Managers...),
	)
	routes := h.Routes()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := authhttp.WithIdentity(r.Context(), authdomain.Identity{UserID: "user-1", Role: role})
		routes.ServeHTTP(w, r.WithContext(ctx))
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodePayment(t *testing.T, rec *httptest.ResponseRecorder) domain.Payment {
	t.Helper()
	var p domain.Payment
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestPaymentLifecycleOverHTTP(t *testing.T) {
	store := newStubStore()
	h := newServer(t, store, authdomain.RoleManager)

	if rec := do(t, h, http.MethodPost, "/", `{"orderId":"o1","amount":3001,"method":"PIX"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("overpay = %d, want 400", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/", `{"orderId":"o1","amount":0,"method":"PIX"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("zero amount = %d, want 400", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/", `{"orderId":"o1","amount":100,"method":"CHEQUE"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown method = %d, want 400", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/", `{"orderId":"o9","amount":100,"method":"CASH"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown order = %d, want 404", rec.Code)
	}

	rec := do(t, h, http.MethodPost, "/", `{"orderId":"o1","amount":3000,"method":"PIX"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}
	p := decodePayment(t, rec)
	if p.Status != domain.StatusPending || p.AmountCents != 3000 {
		t.Fatalf("created = %+v", p)
	}

	rec = do(t, h, http.MethodPut, "/"+p.ID+"/confirm", ``)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodePayment(t, rec); got.Status != domain.StatusCompleted || got.PaidAt == nil {
		t.Fatalf("confirmed = %+v", got)
	}
	if store.orders["o1"].Status != orderdomain.StatusCompleted {
		t.Fatalf("order status = %s, want COMPLETED", store.orders["o1"].Status)
	}
	if rec := do(t, h, http.MethodPut, "/"+p.ID+"/confirm", ``); rec.Code != http.StatusConflict {
		t.Fatalf("second confirm = %d, want 409", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/", `{"orderId":"o1","amount":500,"method":"CASH"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("second create = %d: %s", rec.Code, rec.Body.String())
	}
	second := decodePayment(t, rec)
	rec = do(t, h, http.MethodPut, "/"+second.ID+"/cancel", `{"reason":"card declined"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodePayment(t, rec); got.Status != domain.StatusFailed {
		t.Fatalf("cancelled = %+v", got)
	}
	if rec := do(t, h, http.MethodPut, "/"+second.ID+"/cancel", ``); rec.Code != http.StatusConflict {
		t.Fatalf("second cancel = %d, want 409", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary = %d", rec.Code)
	}
	var sum domain.Summary
	if err := json.NewDecoder(rec.Body).Decode(&sum); err != nil {
		t.Fatal(err)
	}
	if sum.Count != 1 || sum.TotalAmount != 3000 || sum.ByMethod[domain.MethodPix] != 3000 {
		t.Fatalf("summary = %+v", sum)
	}
	if rec := do(t, h, http.MethodGet, "/summary?startDate=yesterday", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad summary date = %d, want 400", rec.Code)
	}
}

func TestPaymentGuards(t *testing.T) {
	store := newStubStore()
	customer := newServer(t, store, authdomain.RoleCustomer)

	denied := []struct{ method, path, body string }{
		{http.MethodPost, "/", `{"orderId":"o1","amount":100,"method":"CASH"}`},
		{http.MethodGet, "/", ""},
		{http.MethodPut, "/p1/confirm", ""},
		{http.MethodPut, "/p1/cancel", ""},
		{http.MethodGet, "/summary", ""},
	}
	for _, d := range denied {
		if rec := do(t, customer, d.method, d.path, d.body); rec.Code != http.StatusForbidden {
			t.Fatalf("customer %s %s = %d, want 403", d.method, d.path, rec.Code)
		}
	}
	if len(store.payments) != 0 {
		t.Fatalf("customer create stored %d payments", len(store.payments))
	}
	if rec := do(t, customer, http.MethodGet, "/order/o1", ""); rec.Code != http.StatusOK {
		t.Fatalf("customer by order = %d, want 200", rec.Code)
	}

	// Guards run before the lookup, so an unknown id shows which roles got through.
	waiter := newServer(t, store, authdomain.RoleWaiter)
	if rec := do(t, waiter, http.MethodPut, "/missing/confirm", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("waiter confirm = %d, want 404", rec.Code)
	}
	if rec := do(t, waiter, http.MethodPut, "/missing/cancel", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("waiter cancel = %d, want 403", rec.Code)
	}
	if rec := do(t, waiter, http.MethodGet, "/summary", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("waiter summary = %d, want 403", rec.Code)
	}
}

func TestParseBound(t *testing.T) {
	today := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	start, err := parseBound("", today, false)
	if err != nil || !start.Equal(today) {
		t.Fatalf("default start = %v, %v", start, err)
	}
	end, err := parseBound("", today, true)
	if err != nil || !end.Equal(today.AddDate(0, 0, 1)) {
		t.Fatalf("default end = %v, %v", end, err)
	}
	end, err = parseBound("2024-04-30", today, true)
	if err != nil || !end.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date-only end = %v, %v", end, err)
	}
	exact, err := parseBound("2024-04-30T10:00:00Z", today, true)
	if err != nil || exact.Hour() != 10 {
		t.Fatalf("rfc3339 end = %v, %v", exact, err)
	}
	if _, err := parseBound("yesterday", today, false); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation, got %v", err)
	}
}
