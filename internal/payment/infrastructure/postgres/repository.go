package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	orderdomain "github.com/dmehra2102/restaurant-order-system/internal/order/domain"
	orderpg "github.com/dmehra2102/restaurant-order-system/internal/order/infrastructure/postgres"
	"github.com/dmehra2102/restaurant-order-system/internal/payment/application"
	"github.com/dmehra2102/restaurant-order-system/internal/payment/domain"
	"github.com/dmehra2102/restaurant-order-system/internal/platform/postgres"
	"github.com/dmehra2102/restaurant-order-system/pkg/outbox"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

const paymentColumns = `id, order_id, amount_cents, method, status, notes, paid_at, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, p domain.Payment, msgs ...outbox.Message) error {
	return postgres.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO payments (`+paymentColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			p.ID, p.OrderID, p.AmountCents, p.Method, p.Status, p.Notes, p.PaidAt, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return postgres.MapError(err, "payment")
		}
		return outbox.Insert(ctx, tx, msgs...)
	})
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return p, err
}

func (r *Repository) List(ctx context.Context, f application.ListFilter) ([]domain.Payment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM payments WHERE ($1 = '' OR status = $1)`, string(f.Status)).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+paymentColumns+` FROM payments
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, string(f.Status), f.Take, f.Skip)
	if err != nil {
		return nil, 0, err
	}
	payments, err := collectPayments(rows)
	return payments, total, err
}

func (r *Repository) ByOrder(ctx context.Context, orderID string) ([]domain.Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id=$1 ORDER BY created_at DESC`, orderID)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

func (r *Repository) Confirm(ctx context.Context, p domain.Payment, o orderdomain.Order, prevOrderStatus orderdomain.Status, msgs ...outbox.Message) error {
	return postgres.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := r.leavePending(ctx, tx, p); err != nil {
			return err
		}
		return orderpg.UpdateStatusTx(ctx, tx, o, prevOrderStatus, msgs...)
	})
}

func (r *Repository) Fail(ctx context.Context, p domain.Payment, msgs ...outbox.Message) error {
	return postgres.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := r.leavePending(ctx, tx, p); err != nil {
			return err
		}
		return outbox.Insert(ctx, tx, msgs...)
	})
}

// leavePending moves a payment out of PENDING. A concurrent confirm or cancel
// that got there first turns this into a StateError.
func (r *Repository) leavePending(ctx context.Context, tx pgx.Tx, p domain.Payment) error {
	ct, err := tx.Exec(ctx, `UPDATE payments SET status=$2, paid_at=$3, updated_at=$4 WHERE id=$1 AND status='PENDING'`,
		p.ID, p.Status, p.PaidAt, p.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() > 0 {
		return nil
	}
	var current domain.Status
	if err := tx.QueryRow(ctx, `SELECT status FROM payments WHERE id=$1`, p.ID).Scan(&current); err != nil {
		return postgres.MapError(err, "payment")
	}
	return &domain.StateError{ID: p.ID, Status: current}
}

func (r *Repository) Summary(ctx context.Context, start, end time.Time) (domain.Summary, error) {
	s := domain.Summary{Start: start, End: end, ByMethod: map[domain.Method]int64{}}
	rows, err := r.pool.Query(ctx, `SELECT method, count(*), COALESCE(sum(amount_cents), 0)
		FROM payments
		WHERE status='COMPLETED' AND paid_at >= $1 AND paid_at < $2
		GROUP BY method`, start, end)
	if err != nil {
		return domain.Summary{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			method domain.Method
			count  int
			amount int64
		)
		if err := rows.Scan(&method, &count, &amount); err != nil {
			return domain.Summary{}, fmt.Errorf("scan payment summary: %w", err)
		}
		s.ByMethod[method] = amount
		s.Count += count
		s.TotalAmount += amount
	}
	return s, rows.Err()
}

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.AmountCents, &p.Method, &p.Status, &p.Notes, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collectPayments(rows pgx.Rows) ([]domain.Payment, error) {
	defer rows.Close()
	payments := []domain.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
