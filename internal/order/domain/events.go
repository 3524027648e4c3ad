package domain

import "time"

// Webhook event types raised by the order lifecycle.
const (
	EventOrderCreated       = "orderCreated"
	EventOrderStatusUpdated = "orderStatusUpdated"
	EventOrderCancelled     = "orderCancelled"
)

const AggregateType = "order"

type OrderCreated struct {
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	TableID     string    `json:"tableId"`
	UserID      string    `json:"userId"`
	TotalItems  int       `json:"totalItems"`
	TotalAmount int64     `json:"totalAmount"`
	CreatedAt   time.Time `json:"createdAt"`
}

type OrderStatusUpdated struct {
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	OldStatus   Status    `json:"oldStatus"`
	NewStatus   Status    `json:"newStatus"`
	TableID     string    `json:"tableId"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type OrderCancelled struct {
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	TableID     string    `json:"tableId"`
	CancelledAt time.Time `json:"cancelledAt"`
	Reason      string    `json:"reason"`
}

func NewOrderCreated(o Order) OrderCreated {
	return OrderCreated{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		TableID:     o.TableID,
		UserID:      o.UserID,
		TotalItems:  o.TotalItems(),
		TotalAmount: o.TotalCents(),
		CreatedAt:   o.CreatedAt,
	}
}

func NewOrderStatusUpdated(o Order, old Status) OrderStatusUpdated {
	return OrderStatusUpdated{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		OldStatus:   old,
		NewStatus:   o.Status,
		TableID:     o.TableID,
		UpdatedAt:   o.UpdatedAt,
	}
}
