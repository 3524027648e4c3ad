package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dmehra2102/restaurant-order-system/internal/admin/domain"
	orderdomain "github.com/dmehra2102/restaurant-order-system/internal/order/domain"
	tabledomain "github.com/dmehra2102/restaurant-order-system/internal/table/domain"
	"github.com/dmehra2102/restaurant-order-system/pkg/apperr"
)

const (
	DefaultRevenueDays = 7
	MaxRevenueDays     = 366
	DefaultTopItems    = 10
	MaxTopItems        = 100
	HistoryLimit       = 20
)

type Service struct {
	log     *slog.Logger
	store   Store
	kitchen Kitchen
	floor   Floor
	live    Broadcaster
	now     func() time.Time
}

func NewService(log *slog.Logger, store Store, kitchen Kitchen, floor Floor, live Broadcaster) *Service {
	return &Service{log: log, store: store, kitchen: kitchen, floor: floor, live: live, now: time.Now}
}

func (s *Service) Metrics(ctx context.Context) (domain.DashboardMetrics, error) {
	today, err := s.store.Orders(ctx, OrderQuery{CreatedSince: domain.StartOfDay(s.now())})
	if err != nil {
		return domain.DashboardMetrics{}, fmt.Errorf("today's orders: %w", err)
	}
	total, occupied, err := s.store.TableCounts(ctx)
	if err != nil {
		return domain.DashboardMetrics{}, fmt.Errorf("table counts: %w", err)
	}
	return domain.NewDashboardMetrics(today, total, occupied), nil
}

// Revenue reports completed order totals since midnight days ago, bucketed by
// day or hour.
func (s *Service) Revenue(ctx context.Context, days int, period string) ([]domain.RevenuePoint, error) {
	p, err := domain.ParsePeriod(period)
	if err != nil {
		return nil, err
	}
	if days == 0 {
		days = DefaultRevenueDays
	}
	if days < 0 || days > MaxRevenueDays {
		return nil, fmt.Errorf("days must be between 1 and %d: %w", MaxRevenueDays, apperr.ErrValidation)
	}
	since := domain.StartOfDay(s.now()).AddDate(0, 0, -days)
	orders, err := s.store.Orders(ctx, OrderQuery{
		Statuses:     []orderdomain.Status{orderdomain.StatusCompleted},
		CreatedSince: since,
	})
	if err != nil {
		return nil, fmt.Errorf("completed orders: %w", err)
	}
	return domain.Revenue(orders, p), nil
}

func (s *Service) TopItems(ctx context.Context, limit int) ([]domain.TopItem, error) {
	if limit == 0 {
		limit = DefaultTopItems
	}
	if limit < 0 || limit > MaxTopItems {
		return nil, fmt.Errorf("limit must be between 1 and %d: %w", MaxTopItems, apperr.ErrValidation)
	}
	return s.store.TopItems(ctx, limit)
}

// KDSOrders is the kitchen queue, oldest first. An empty status lists every
// kitchen status.
func (s *Service) KDSOrders(ctx context.Context, status string) ([]orderdomain.Order, error) {
	statuses := orderdomain.KitchenStatuses
	if status != "" {
		st, err := orderdomain.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(orderdomain.KitchenStatuses, st) {
			return nil, fmt.Errorf("status %s is not on the kitchen queue: %w", st, apperr.ErrValidation)
		}
		statuses = []orderdomain.Status{st}
	}
	return s.store.Orders(ctx, OrderQuery{Statuses: statuses, Sort: SortCreatedAsc})
}

// KDSHistory lists the orders completed today, most recent first.
func (s *Service) KDSHistory(ctx context.Context) ([]orderdomain.Order, error) {
	return s.store.Orders(ctx, OrderQuery{
		Statuses:       []orderdomain.Status{orderdomain.StatusCompleted},
		CompletedSince: domain.StartOfDay(s.now()),
		Sort:           SortCompletedDesc,
		Limit:          HistoryLimit,
	})
}

// UpdateOrderStatus moves an order through the kitchen entry point and pushes
// the refreshed queue to live clients.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID, status string) (orderdomain.Order, error) {
	o, _, err := s.kitchen.KitchenUpdateStatus(ctx, orderID, status)
	if err != nil {
		return orderdomain.Order{}, err
	}
	queue, err := s.KDSOrders(ctx, "")
	if err != nil {
		s.log.Warn("kds queue refresh failed", "order_id", orderID, "err", err)
		return o, nil
	}
	s.live.KDSUpdate(queue)
	return o, nil
}

func (s *Service) Tables(ctx context.Context) ([]tabledomain.Board, error) {
	return s.floor.Board(ctx)
}

func (s *Service) Table(ctx context.Context, id string) (domain.TableDetail, error) {
	t, err := s.floor.Get(ctx, id)
	if err != nil {
		return domain.TableDetail{}, err
	}
	orders, err := s.store.Orders(ctx, OrderQuery{TableID: id, Sort: SortCreatedDesc})
	if err != nil {
		return domain.TableDetail{}, fmt.Errorf("orders for table %s: %w", id, err)
	}
	return domain.TableDetail{Table: t, Orders: orders}, nil
}

// BroadcastMetrics publishes dashboard metrics every interval while at least
// one live client is connected. It returns when ctx is done.
func (s *Service) BroadcastMetrics(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.publishMetrics(ctx)
		}
	}
}

func (s *Service) publishMetrics(ctx context.Context) {
	if s.live.ClientCount() == 0 {
		return
	}
	m, err := s.Metrics(ctx)
	if err != nil {
		s.log.Warn("dashboard metrics failed", "err", err)
		return
	}
	s.live.DashboardMetrics(m)
}
