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
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

type Method string

const (
	MethodCash       Method = "CASH"
	MethodCreditCard Method = "CREDIT_CARD"
	MethodDebitCard  Method = "DEBIT_CARD"
	MethodPix        Method = "PIX"
)

var Methods = []Method{MethodCash, MethodCreditCard, MethodDebitCard, MethodPix}

var ErrPaymentNotFound = fmt.Errorf("payment %w", apperr.ErrNotFound)

func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Methods {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown payment method %q: %w", s, apperr.ErrValidation)
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusCompleted, StatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown payment status %q: %w", s, apperr.ErrValidation)
}

// AmountError reports an amount outside (0, total].
type AmountError struct {
	Amount int64
	Total  int64
}

func (e *AmountError) Error() string {
	if e.Amount <= 0 {
		return fmt.Sprintf("payment amount must be positive, got %d", e.Amount)
	}
	return fmt.Sprintf("payment amount %d exceeds order total %d", e.Amount, e.Total)
}

func (e *AmountError) Unwrap() error { return apperr.ErrValidation }

// StateError is returned when a payment is confirmed or cancelled after it
// already left PENDING.
type StateError struct {
	ID     string
	Status Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("payment %s is %s, only PENDING payments can change", e.ID, e.Status)
}

func (e *StateError) Unwrap() error { return apperr.ErrInvalidTransition }

type Payment struct {
	ID          string     `json:"id"`
	OrderID     string     `json:"orderId"`
	AmountCents int64      `json:"amount"`
	Method      Method     `json:"method"`
	Status      Status     `json:"status"`
	Notes       string     `json:"notes,omitempty"`
	PaidAt      *time.Time `json:"paidAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NewPayment validates amount against the order total and returns a PENDING
// payment.
func NewPayment(orderID string, amount, orderTotal int64, method Method, notes string, now time.Time) (Payment, error) {
	if amount <= 0 || amount > orderTotal {
		return Payment{}, &AmountError{Amount: amount, Total: orderTotal}
	}
	now = now.UTC()
	return Payment{
		ID:          uuid.NewString(),
		OrderID:     orderID,
		AmountCents: amount,
		Method:      method,
		Status:      StatusPending,
		Notes:       notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (p *Payment) Confirm(now time.Time) error {
	if p.Status != StatusPending {
		return &StateError{ID: p.ID, Status: p.Status}
	}
	now = now.UTC()
	p.Status = StatusCompleted
	p.PaidAt = &now
	p.UpdatedAt = now
	return nil
}

func (p *Payment) Fail(now time.Time) error {
	if p.Status != StatusPending {
		return &StateError{ID: p.ID, Status: p.Status}
	}
	p.Status = StatusFailed
	p.UpdatedAt = now.UTC()
	return nil
}

type Summary struct {
	Start       time.Time        `json:"start"`
	End         time.Time        `json:"end"`
	TotalAmount int64            `json:"totalAmount"`
	Count       int              `json:"count"`
	ByMethod    map[Method]int64 `json:"byMethod"`
}
