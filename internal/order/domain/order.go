package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/restaurant-order-system/pkg/apperr"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusPreparing Status = "PREPARING"
	StatusReady     Status = "READY"
	StatusDelivered Status = "DELIVERED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

var (
	ErrOrderNotFound = fmt.Errorf("order %w", apperr.ErrNotFound)
	ErrItemNotFound  = fmt.Errorf("order item %w", apperr.ErrNotFound)
	ErrOrderClosed   = fmt.Errorf("order is closed: %w", apperr.ErrConflict)
	// ErrStaleStatus is returned when another writer changed the status between
	// our read and our conditional update.
	ErrStaleStatus = fmt.Errorf("order status changed concurrently: %w", apperr.ErrConflict)
)

// transitions is the fixed order lifecycle. Terminal states map to nothing.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusDelivered, StatusCancelled},
	StatusDelivered: {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// The kitchen display only moves tickets between these statuses. It may accept
// a ticket straight from PENDING and close it straight from READY.
var (
	kitchenTargets = map[Status]bool{
		StatusPending:   true,
		StatusPreparing: true,
		StatusReady:     true,
		StatusCompleted: true,
	}
	kitchenShortcuts = map[Status][]Status{
		StatusPending: {StatusPreparing},
		StatusReady:   {StatusCompleted},
	}
)

// KitchenStatuses are the statuses shown on the kitchen queue, oldest first.
var KitchenStatuses = []Status{StatusPending, StatusPreparing, StatusReady}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := transitions[st]; !ok {
		return "", fmt.Errorf("unknown order status %q: %w", s, apperr.ErrValidation)
	}
	return st, nil
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func CanTransition(from, to Status) bool {
	return contains(transitions[from], to)
}

func CanKitchenTransition(from, to Status) bool {
	if !kitchenTargets[to] {
		return false
	}
	return CanTransition(from, to) || contains(kitchenShortcuts[from], to)
}

func contains(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return apperr.ErrInvalidTransition }

type Order struct {
	ID          string      `json:"id"`
	OrderNumber string      `json:"orderNumber"`
	TableID     string      `json:"tableId"`
	UserID      string      `json:"userId"`
	Status      Status      `json:"status"`
	Notes       string      `json:"notes"`
	Items       []OrderItem `json:"items"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
	StartedAt   *time.Time  `json:"startedAt,omitempty"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
}

type OrderItem struct {
	ID             string `json:"id"`
	OrderID        string `json:"orderId"`
	MenuItemID     string `json:"menuItemId"`
	MenuItemName   string `json:"menuItemName,omitempty"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPrice"`
	Notes          string `json:"notes,omitempty"`
}

func (i OrderItem) TotalCents() int64 {
	return int64(i.Quantity) * i.UnitPriceCents
}

func NewOrder(tableID, userID, notes string, now time.Time) Order {
	now = now.UTC()
	return Order{
		ID:          uuid.NewString(),
		OrderNumber: NewOrderNumber(now),
		TableID:     tableID,
		UserID:      userID,
		Status:      StatusPending,
		Notes:       notes,
		Items:       []OrderItem{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewOrderNumber returns ORD-YYYYMMDD-XXXXXXXX; the suffix is random so that
// concurrent creators never need to coordinate a daily sequence.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}

func (o Order) TotalCents() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.TotalCents()
	}
	return total
}

func (o Order) TotalItems() int {
	return len(o.Items)
}

// TransitionTo moves the order along the lifecycle table.
func (o *Order) TransitionTo(to Status, now time.Time) error {
	if !CanTransition(o.Status, to) {
		return &TransitionError{From: o.Status, To: to}
	}
	o.apply(to, now)
	return nil
}

// KitchenTransitionTo is the kitchen display's narrower entry point.
func (o *Order) KitchenTransitionTo(to Status, now time.Time) error {
	if !kitchenTargets[to] {
		return fmt.Errorf("kitchen cannot set status %s: %w", to, apperr.ErrValidation)
	}
	if !CanKitchenTransition(o.Status, to) {
		return &TransitionError{From: o.Status, To: to}
	}
	o.apply(to, now)
	return nil
}

// ForceComplete closes the order regardless of its current status, terminal
// ones included. Only a confirmed payment does this.
func (o *Order) ForceComplete(now time.Time) {
	o.apply(StatusCompleted, now)
}

func (o *Order) apply(to Status, now time.Time) {
	now = now.UTC()
	switch to {
	case StatusPreparing, StatusReady:
		if o.StartedAt == nil {
			o.StartedAt = &now
		}
	case StatusCompleted:
		if o.CompletedAt == nil {
			o.CompletedAt = &now
		}
	}
	o.Status = to
	o.UpdatedAt = now
}
