package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/restaurant-order-system/internal/order/domain"
	"github.com/dmehra2102/restaurant-order-system/pkg/apperr"
	"github.com/dmehra2102/restaurant-order-system/pkg/metrics"
	"github.com/dmehra2102/restaurant-order-system/pkg/outbox"
	"github.com/dmehra2102/restaurant-order-system/pkg/tracing"
)

const (
	defaultTake = 20
	maxTake     = 100

	noCancelReason = "no reason specified"
)

type Service struct {
	log     *slog.Logger
	repo    OrderRepository
	menu    MenuCatalog
	tables  TableDirectory
	live    Broadcaster
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(log *slog.Logger, repo OrderRepository, menu MenuCatalog, tables TableDirectory, live Broadcaster, m *metrics.Metrics) *Service {
	return &Service{
		log:     log,
		repo:    repo,
		menu:    menu,
		tables:  tables,
		live:    live,
		metrics: m,
		now:     time.Now,
	}
}

func (s *Service) Create(ctx context.Context, tableID, userID, notes string) (domain.Order, error) {
	if strings.TrimSpace(tableID) == "" {
		return domain.Order{}, fmt.Errorf("table id is required: %w", apperr.ErrValidation)
	}
	ok, err := s.tables.TableExists(ctx, tableID)
	if err != nil {
		return domain.Order{}, err
	}
	if !ok {
		return domain.Order{}, fmt.Errorf("table %s %w", tableID, apperr.ErrNotFound)
	}

	o := domain.NewOrder(tableID, userID, notes, s.now())
	msg, err := outbox.NewMessage(domain.AggregateType, o.ID, domain.EventOrderCreated, domain.NewOrderCreated(o), tracing.Traceparent(ctx))
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.repo.Create(ctx, o, msg); err != nil {
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	s.log.Info("order created", "order_id", o.ID, "order_number", o.OrderNumber, "table_id", tableID)
	s.live.OrderCreated(o)
	return o, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Order, int, error) {
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Take <= 0 {
		f.Take = defaultTake
	}
	if f.Take > maxTake {
		f.Take = maxTake
	}
	return s.repo.List(ctx, f)
}

func (s *Service) AddItem(ctx context.Context, orderID, menuItemID string, quantity int, notes string) (domain.OrderItem, error) {
	if quantity <= 0 {
		return domain.OrderItem{}, fmt.Errorf("quantity must be positive: %w", apperr.ErrValidation)
	}
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return domain.OrderItem{}, err
	}
	if o.Status.Terminal() {
		return domain.OrderItem{}, domain.ErrOrderClosed
	}
	mi, err := s.menu.MenuItem(ctx, menuItemID)
	if err != nil {
		return domain.OrderItem{}, err
	}
	if !mi.Available {
		return domain.OrderItem{}, fmt.Errorf("menu item %s is not available: %w", mi.Name, apperr.ErrValidation)
	}

	item, err := s.repo.AddItem(ctx, domain.OrderItem{
		ID:             uuid.NewString(),
		OrderID:        orderID,
		MenuItemID:     mi.ID,
		MenuItemName:   mi.Name,
		Quantity:       quantity,
		UnitPriceCents: mi.PriceCents,
		Notes:          notes,
	})
	if err != nil {
		return domain.OrderItem{}, fmt.Errorf("add item to order %s: %w", orderID, err)
	}
	return item, nil
}

func (s *Service) RemoveItem(ctx context.Context, orderID, itemID string) error {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status.Terminal() {
		return domain.ErrOrderClosed
	}
	return s.repo.RemoveItem(ctx, orderID, itemID)
}

func (s *Service) Total(ctx context.Context, orderID string) (int64, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return 0, err
	}
	return o.TotalCents(), nil
}

// UpdateStatus applies the general lifecycle table and returns the updated
// order together with the status it left.
func (s *Service) UpdateStatus(ctx context.Context, orderID, target string) (domain.Order, domain.Status, error) {
	to, err := domain.ParseStatus(target)
	if err != nil {
		return domain.Order{}, "", err
	}
	return s.transition(ctx, orderID, to, "", (*domain.Order).TransitionTo)
}

// KitchenUpdateStatus is used by the kitchen display.
func (s *Service) KitchenUpdateStatus(ctx context.Context, orderID, target string) (domain.Order, domain.Status, error) {
	to, err := domain.ParseStatus(target)
	if err != nil {
		return domain.Order{}, "", err
	}
	return s.transition(ctx, orderID, to, "", (*domain.Order).KitchenTransitionTo)
}

func (s *Service) Cancel(ctx context.Context, orderID, reason string) (domain.Order, error) {
	o, _, err := s.transition(ctx, orderID, domain.StatusCancelled, reason, (*domain.Order).TransitionTo)
	return o, err
}

type transitionFunc func(o *domain.Order, to domain.Status, now time.Time) error

func (s *Service) transition(ctx context.Context, orderID string, to domain.Status, reason string, apply transitionFunc) (domain.Order, domain.Status, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, "", err
	}
	prev := o.Status
	if err := apply(&o, to, s.now()); err != nil {
		return domain.Order{}, "", err
	}

	msgs, err := s.transitionMessages(ctx, o, prev, reason)
	if err != nil {
		return domain.Order{}, "", err
	}
	if err := s.repo.UpdateStatus(ctx, o, prev, msgs...); err != nil {
		return domain.Order{}, "", fmt.Errorf("update order %s status: %w", orderID, err)
	}

	s.metrics.OrderTransition(string(prev), string(o.Status))
	s.log.Info("order status changed", "order_id", o.ID, "from", prev, "to", o.Status)

	s.live.OrderStatusChanged(o, string(prev), string(o.Status))
	if o.Status == domain.StatusCompleted {
		s.live.OrderCompleted(o)
	}
	return o, prev, nil
}

func (s *Service) transitionMessages(ctx context.Context, o domain.Order, prev domain.Status, reason string) ([]outbox.Message, error) {
	tp := tracing.Traceparent(ctx)
	if o.Status != domain.StatusCancelled {
		msg, err := outbox.NewMessage(domain.AggregateType, o.ID, domain.EventOrderStatusUpdated, domain.NewOrderStatusUpdated(o, prev), tp)
		if err != nil {
			return nil, err
		}
		return []outbox.Message{msg}, nil
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = strings.TrimSpace(o.Notes)
	}
	if reason == "" {
		reason = noCancelReason
	}
	msg, err := outbox.NewMessage(domain.AggregateType, o.ID, domain.EventOrderCancelled, domain.OrderCancelled{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		TableID:     o.TableID,
		CancelledAt: o.UpdatedAt,
		Reason:      reason,
	}, tp)
	if err != nil {
		return nil, err
	}
	return []outbox.Message{msg}, nil
}
