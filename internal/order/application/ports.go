package application

import (
	"context"

	"github.com/dmehra2102/restaurant-order-system/internal/order/domain"
	"github.com/dmehra2102/restaurant-order-system/pkg/outbox"
)

type ListFilter struct {
	Status  domain.Status
	TableID string
	Skip    int
	Take    int
}

// OrderRepository persists orders. Every write that carries outbox messages
// stores them in the same transaction as the row change.
type OrderRepository interface {
	Create(ctx context.Context, o domain.Order, msgs ...outbox.Message) error
	Get(ctx context.Context, id string) (domain.Order, error)
	List(ctx context.Context, f ListFilter) ([]domain.Order, int, error)
	// UpdateStatus writes o.Status and its timestamps only while the stored
	// status still equals expected; otherwise it returns domain.ErrStaleStatus.
	UpdateStatus(ctx context.Context, o domain.Order, expected domain.Status, msgs ...outbox.Message) error
	// AddItem inserts the line or, when the menu item is already on the order,
	// adds to its quantity and keeps the price captured first.
	AddItem(ctx context.Context, item domain.OrderItem) (domain.OrderItem, error)
	RemoveItem(ctx context.Context, orderID, itemID string) error
}

type MenuItem struct {
	ID         string
	Name       string
	PriceCents int64
	Available  bool
}

type MenuCatalog interface {
	MenuItem(ctx context.Context, id string) (MenuItem, error)
}

type TableDirectory interface {
	TableExists(ctx context.Context, id string) (bool, error)
}

// Broadcaster pushes live updates to connected dashboards. Implementations
// must not block.
type Broadcaster interface {
	OrderCreated(order any)
	OrderStatusChanged(order any, oldStatus, newStatus string)
	OrderCompleted(order any)
}
