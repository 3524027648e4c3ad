package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmehra2102/restaurant-order-system/pkg/metrics"
)

type Store interface {
	LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error)
	MarkSent(ctx context.Context, ids []int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string, retry bool) error
	ExtendLease(ctx context.Context, relayID string, ids []int64, lease time.Duration) error
}

type Relay struct {
	log        *slog.Logger
	store      Store
	publishers []Publisher
	metrics    *metrics.Metrics
	relayID    string
	batchSize  int
	interval   time.Duration
	lease      time.Duration
	maxRetries int
}

func NewRelay(log *slog.Logger, store Store, relayID string, m *metrics.Metrics, publishers ...Publisher) *Relay {
	return &Relay{
		log:        log,
		store:      store,
		publishers: publishers,
		metrics:    m,
		relayID:    relayID,
		batchSize:  100,
		interval:   500 * time.Millisecond,
		lease:      5 * time.Second,
		maxRetries: 5,
	}
}

func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("relay stopping", "relay_id", r.relayID)
			return nil
		case <-t.C:
			if err := r.Drain(ctx); err != nil {
				r.log.Error("relay drain error", "err", err)
			}
		}
	}
}

// Drain publishes one batch. Events that every publisher accepted are marked
// sent; the rest go back to pending until maxRetries is reached.
func (r *Relay) Drain(ctx context.Context) error {
	events, err := r.store.LockBatch(ctx, r.relayID, r.batchSize, r.lease)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(events))
	leased := time.Now()
	for i, e := range events {
		if time.Since(leased) > r.lease/2 {
			if err := r.store.ExtendLease(ctx, r.relayID, pendingIDs(events[i:]), r.lease); err != nil {
				r.log.Warn("relay extend lease error", "err", err)
			}
			leased = time.Now()
		}
		if err := r.publish(ctx, e); err != nil {
			retry := !errors.Is(err, ErrPermanent) && e.RetryCount+1 < r.maxRetries
			if mErr := r.store.MarkFailed(ctx, e.ID, err.Error(), retry); mErr != nil {
				r.log.Error("relay mark failed error", "event_id", e.ID, "err", mErr)
			}
			continue
		}
		ids = append(ids, e.ID)
	}
	if len(ids) > 0 {
		if err := r.store.MarkSent(ctx, ids); err != nil {
			return err
		}
	}
	return nil
}

func (r *Relay) publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range r.publishers {
		if err := p.Publish(ctx, e); err != nil {
			r.metrics.OutboxEvent(p.Name(), "failed")
			errs = append(errs, err)
			continue
		}
		r.metrics.OutboxEvent(p.Name(), "sent")
	}
	return errors.Join(errs...)
}

func pendingIDs(events []Event) []int64 {
	ids := make([]int64, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return ids
}
