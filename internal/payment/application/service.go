package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	orderdomain "github.com/dmehra2102/restaurant-order-system/internal/order/domain"
	"github.com/dmehra2102/restaurant-order-system/internal/payment/domain"
	"github.com/dmehra2102/restaurant-order-system/pkg/apperr"
	"github.com/dmehra2102/restaurant-order-system/pkg/metrics"
	"github.com/dmehra2102/restaurant-order-system/pkg/outbox"
	"github.com/dmehra2102/restaurant-order-system/pkg/tracing"
)

const (
	defaultTake    = 20
	maxTake        = 100
	noCancelReason = "Payment cancelled"
)

type Service struct {
	log     *slog.Logger
	repo    PaymentRepository
	orders  OrderReader
	live    Broadcaster
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(log *slog.Logger, repo PaymentRepository, orders OrderReader, live Broadcaster, m *metrics.Metrics) *Service {
	return &Service{log: log, repo: repo, orders: orders, live: live, metrics: m, now: time.Now}
}

func (s *Service) Create(ctx context.Context, orderID string, amount int64, method, notes string) (domain.Payment, error) {
	m, err := domain.ParseMethod(method)
	if err != nil {
		return domain.Payment{}, err
	}
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Payment{}, err
	}
	p, err := domain.NewPayment(o.ID, amount, o.TotalCents(), m, notes, s.now())
	if err != nil {
		return domain.Payment{}, err
	}

	msg, err := outbox.NewMessage(domain.AggregateType, p.ID, domain.EventPaymentCreated, domain.PaymentCreated{
		PaymentID: p.ID,
		OrderID:   p.OrderID,
		Amount:    p.AmountCents,
		Method:    p.Method,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
	}, tracing.Traceparent(ctx))
	if err != nil {
		return domain.Payment{}, err
	}
	if err := s.repo.Create(ctx, p, msg); err != nil {
		return domain.Payment{}, fmt.Errorf("create payment: %w", err)
	}
	s.log.Info("payment created", "payment_id", p.ID, "order_id", p.OrderID, "amount", p.AmountCents, "method", p.Method)
	return p, nil
}

// Confirm completes the payment and forces its order to COMPLETED.
func (s *Service) Confirm(ctx context.Context, id string) (domain.Payment, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Payment{}, err
	}
	now := s.now()
	if err := p.Confirm(now); err != nil {
		return domain.Payment{}, err
	}
	o, err := s.orders.Get(ctx, p.OrderID)
	if err != nil {
		return domain.Payment{}, err
	}
	prev := o.Status
	o.ForceComplete(now)

	tp := tracing.Traceparent(ctx)
	confirmed, err := outbox.NewMessage(domain.AggregateType, p.ID, domain.EventPaymentConfirmed, domain.PaymentConfirmed{
		PaymentID:   p.ID,
		OrderID:     p.OrderID,
		Amount:      p.AmountCents,
		Method:      p.Method,
		Status:      p.Status,
		ConfirmedAt: *p.PaidAt,
	}, tp)
	if err != nil {
		return domain.Payment{}, err
	}
	orderChanged, err := outbox.NewMessage(orderdomain.AggregateType, o.ID, orderdomain.EventOrderStatusUpdated,
		orderdomain.NewOrderStatusUpdated(o, prev), tp)
	if err != nil {
		return domain.Payment{}, err
	}

	if err := s.repo.Confirm(ctx, p, o, prev, confirmed, orderChanged); err != nil {
		return domain.Payment{}, fmt.Errorf("confirm payment %s: %w", id, err)
	}

	s.metrics.OrderTransition(string(prev), string(o.Status))
	s.log.Info("payment confirmed", "payment_id", p.ID, "order_id", o.ID, "order_previous_status", prev)
	s.live.OrderStatusChanged(o, string(prev), string(o.Status))
	s.live.OrderCompleted(o)
	return p, nil
}

func (s *Service) Cancel(ctx context.Context, id, reason string) (domain.Payment, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Payment{}, err
	}
	if err := p.Fail(s.now()); err != nil {
		return domain.Payment{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = noCancelReason
	}
	msg, err := outbox.NewMessage(domain.AggregateType, p.ID, domain.EventPaymentFailed, domain.PaymentFailed{
		PaymentID: p.ID,
		OrderID:   p.OrderID,
		Amount:    p.AmountCents,
		Method:    p.Method,
		Reason:    reason,
		FailedAt:  p.UpdatedAt,
	}, tracing.Traceparent(ctx))
	if err != nil {
		return domain.Payment{}, err
	}
	if err := s.repo.Fail(ctx, p, msg); err != nil {
		return domain.Payment{}, fmt.Errorf("cancel payment %s: %w", id, err)
	}
	s.log.Info("payment cancelled", "payment_id", p.ID, "order_id", p.OrderID, "reason", reason)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Payment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Payment, int, error) {
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

func (s *Service) ByOrder(ctx context.Context, orderID string) ([]domain.Payment, error) {
	if _, err := s.orders.Get(ctx, orderID); err != nil {
		return nil, err
	}
	return s.repo.ByOrder(ctx, orderID)
}

// Summary totals COMPLETED payments paid in [start, end).
func (s *Service) Summary(ctx context.Context, start, end time.Time) (domain.Summary, error) {
	if !end.After(start) {
		return domain.Summary{}, fmt.Errorf("summary end must be after start: %w", apperr.ErrValidation)
	}
	return s.repo.Summary(ctx, start.UTC(), end.UTC())
}
