package application

import (
	"context"
	"time"

	"github.com/dmehra2102/restaurant-order-system/internal/admin/domain"
	orderdomain "github.com/dmehra2102/restaurant-order-system/internal/order/domain"
	tabledomain "github.com/dmehra2102/restaurant-order-system/internal/table/domain"
)

type Sort int

const (
	SortCreatedAsc Sort = iota
	SortCreatedDesc
	SortCompletedDesc
)

// OrderQuery selects orders with their items. Zero fields do not filter.
type OrderQuery struct {
	Statuses       []orderdomain.Status
	TableID        string
	CreatedSince   time.Time
	CompletedSince time.Time
	Sort           Sort
	Limit          int
}

// Store is the read side the dashboards aggregate over.
type Store interface {
	Orders(ctx context.Context, q OrderQuery) ([]orderdomain.Order, error)
	TableCounts(ctx context.Context) (total, occupied int, err error)
	// TopItems ranks menu items by quantity ordered, ties broken by menu
	// item id ascending.
	TopItems(ctx context.Context, limit int) ([]domain.TopItem, error)
}

type Kitchen interface {
	KitchenUpdateStatus(ctx context.Context, orderID, target string) (orderdomain.Order, orderdomain.Status, error)
}

type Floor interface {
	Get(ctx context.Context, id string) (tabledomain.Table, error)
	Board(ctx context.Context) ([]tabledomain.Board, error)
}

type Broadcaster interface {
	ClientCount() int
	DashboardMetrics(metrics any)
	KDSUpdate(orders any)
}
