package application

import (
	"context"
	"time"

	orderdomain "github.com/dmehra2102/restaurant-order-system/internal/order/domain"
	"github.com/dmehra2102/restaurant-order-system/internal/payment/domain"
	"github.com/dmehra2102/restaurant-order-system/pkg/outbox"
)

type ListFilter struct {
	Status domain.Status
	Skip   int
	Take   int
}

type PaymentRepository interface {
	Create(ctx context.Context, p domain.Payment, msgs ...outbox.Message) error
	Get(ctx context.Context, id string) (domain.Payment, error)
	List(ctx context.Context, f ListFilter) ([]domain.Payment, int, error)
	ByOrder(ctx context.Context, orderID string) ([]domain.Payment, error)
	// Confirm stores the completed payment and the force-completed order in
	// one transaction. Both writes are conditional on the statuses read
	// before: the payment must still be PENDING and the order still in
	// prevOrderStatus.
	Confirm(ctx context.Context, p domain.Payment, o orderdomain.Order, prevOrderStatus orderdomain.Status, msgs ...outbox.Message) error
	// Fail stores the failed payment while it is still PENDING.
	Fail(ctx context.Context, p domain.Payment, msgs ...outbox.Message) error
	Summary(ctx context.Context, start, end time.Time) (domain.Summary, error)
}

type OrderReader interface {
	Get(ctx context.Context, id string) (orderdomain.Order, error)
}

type Broadcaster interface {
	OrderStatusChanged(order any, oldStatus, newStatus string)
	OrderCompleted(order any)
}
