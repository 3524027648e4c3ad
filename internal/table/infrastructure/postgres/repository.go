package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/restaurant-order-system/internal/platform/postgres"
	"github.com/dmehra2102/restaurant-order-system/internal/table/application"
	"github.com/dmehra2102/restaurant-order-system/internal/table/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

const tableColumns = `id, number, capacity, location, status, created_at, updated_at`

// activeOrder matches orders that still hold a table.
const activeOrder = `status NOT IN ('COMPLETED','CANCELLED')`

func (r *Repository) Create(ctx context.Context, t domain.Table) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO restaurant_tables (`+tableColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		t.ID, t.Number, t.Capacity, t.Location, t.Status, t.CreatedAt, t.UpdatedAt)
	return postgres.MapError(err, "table")
}

func (r *Repository) List(ctx context.Context, f application.ListFilter) ([]domain.Table, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+tableColumns+` FROM restaurant_tables
		WHERE ($1 = '' OR status = $1)
		ORDER BY number LIMIT $2 OFFSET $3`, string(f.Status), f.Take, f.Skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Table{}
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Table, error) {
	t, err := scanTable(r.pool.QueryRow(ctx, `SELECT `+tableColumns+` FROM restaurant_tables WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Table{}, domain.ErrTableNotFound
	}
	return t, err
}

func (r *Repository) Update(ctx context.Context, t domain.Table) error {
	ct, err := r.pool.Exec(ctx, `UPDATE restaurant_tables SET number=$2, capacity=$3, location=$4, status=$5, updated_at=$6 WHERE id=$1`,
		t.ID, t.Number, t.Capacity, t.Location, t.Status, t.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, "table")
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrTableNotFound
	}
	return nil
}

// Delete checks for active orders and deletes in one transaction; the row
// lock keeps a new order from slipping in between.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return postgres.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked string
		if err := tx.QueryRow(ctx, `SELECT id FROM restaurant_tables WHERE id=$1 FOR UPDATE`, id).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrTableNotFound
			}
			return err
		}
		var active bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE table_id=$1 AND `+activeOrder+`)`, id).Scan(&active); err != nil {
			return err
		}
		if active {
			return domain.ErrTableInUse
		}
		if _, err := tx.Exec(ctx, `DELETE FROM restaurant_tables WHERE id=$1`, id); err != nil {
			// Closed orders still reference the table.
			return postgres.MapError(err, "table")
		}
		return nil
	})
}

func (r *Repository) Board(ctx context.Context) ([]domain.Board, error) {
	rows, err := r.pool.Query(ctx, `SELECT t.id, t.number, t.capacity, t.location, t.status, t.created_at, t.updated_at,
			EXISTS (SELECT 1 FROM orders o WHERE o.table_id = t.id AND o.`+activeOrder+`)
		FROM restaurant_tables t
		ORDER BY t.location, t.number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Board{}
	for rows.Next() {
		var b domain.Board
		if err := rows.Scan(&b.ID, &b.Number, &b.Capacity, &b.Location, &b.Status, &b.CreatedAt, &b.UpdatedAt, &b.HasActiveOrder); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanTable(row pgx.Row) (domain.Table, error) {
	var t domain.Table
	err := row.Scan(&t.ID, &t.Number, &t.Capacity, &t.Location, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}
