package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/restaurant-order-system/internal/admin/application"
	"github.com/dmehra2102/restaurant-order-system/internal/admin/domain"
	orderdomain "github.com/dmehra2102/restaurant-order-system/internal/order/domain"
	orderpg "github.com/dmehra2102/restaurant-order-system/internal/order/infrastructure/postgres"
)

// Store answers the dashboard queries. Order reads go through the order
// repository so items and names are loaded the same way everywhere.
type Store struct {
	log    *slog.Logger
	pool   *pgxpool.Pool
	orders *orderpg.Repository
}

func NewStore(log *slog.Logger, pool *pgxpool.Pool, orders *orderpg.Repository) *Store {
	return &Store{log: log, pool: pool, orders: orders}
}

var sorts = map[application.Sort]string{
	application.SortCreatedAsc:    orderpg.CreatedAsc,
	application.SortCreatedDesc:   orderpg.CreatedDesc,
	application.SortCompletedDesc: orderpg.CompletedDesc,
}

func (s *Store) Orders(ctx context.Context, q application.OrderQuery) ([]orderdomain.Order, error) {
	return s.orders.Find(ctx, orderpg.Query{
		Statuses:       q.Statuses,
		TableID:        q.TableID,
		CreatedSince:   q.CreatedSince,
		CompletedSince: q.CompletedSince,
		OrderBy:        sorts[q.Sort],
		Limit:          q.Limit,
	})
}

func (s *Store) TableCounts(ctx context.Context) (total, occupied int, err error) {
	err = s.pool.QueryRow(ctx, `SELECT count(*), count(*) FILTER (WHERE status = 'OCCUPIED')
		FROM restaurant_tables`).Scan(&total, &occupied)
	return total, occupied, err
}

func (s *Store) TopItems(ctx context.Context, limit int) ([]domain.TopItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.id, m.name, m.price_cents, SUM(oi.quantity)::int AS qty,
		       SUM(oi.quantity * oi.unit_price_cents)::bigint AS revenue
		FROM order_items oi
		JOIN menu_items m ON m.id = oi.menu_item_id
		GROUP BY m.id, m.name, m.price_cents
		ORDER BY qty DESC, m.id ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.TopItem{}
	for rows.Next() {
		var it domain.TopItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Price, &it.Quantity, &it.Revenue); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
