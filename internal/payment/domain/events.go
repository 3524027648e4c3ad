package domain

import "time"

const (
	EventPaymentCreated   = "paymentCreated"
	EventPaymentConfirmed = "paymentConfirmed"
	EventPaymentFailed    = "paymentFailed"
)

const AggregateType = "payment"

type PaymentCreated struct {
	PaymentID string    `json:"paymentId"`
	OrderID   string    `json:"orderId"`
	Amount    int64     `json:"amount"`
	Method    Method    `json:"method"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type PaymentConfirmed struct {
	PaymentID   string    `json:"paymentId"`
	OrderID     string    `json:"orderId"`
	Amount      int64     `json:"amount"`
	Method      Method    `json:"method"`
	Status      Status    `json:"status"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}

type PaymentFailed struct {
	PaymentID string    `json:"paymentId"`
	OrderID   string    `json:"orderId"`
	Amount    int64     `json:"amount"`
	Method    Method    `json:"method"`
	Reason    string    `json:"reason"`
	FailedAt  time.Time `json:"failedAt"`
}
