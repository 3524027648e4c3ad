package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/restaurant-order-system/internal/order/application"
	"github.com/dmehra2102/restaurant-order-system/internal/order/domain"
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

const orderColumns = `id, order_number, table_id, user_id, status, notes, created_at, updated_at, started_at, completed_at`

func (r *Repository) Create(ctx context.Context, o domain.Order, msgs ...outbox.Message) error {
	return postgres.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO orders (`+orderColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			o.ID, o.OrderNumber, o.TableID, o.UserID, o.Status, o.Notes, o.CreatedAt, o.UpdatedAt, o.StartedAt, o.CompletedAt)
		if err != nil {
			return postgres.MapError(err, "order")
		}
		return outbox.Insert(ctx, tx, msgs...)
	})
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}
	items, err := r.items(ctx, []string{o.ID})
	if err != nil {
		return domain.Order{}, err
	}
	o.Items = items[o.ID]
	if o.Items == nil {
		o.Items = []domain.OrderItem{}
	}
	return o, nil
}

func (r *Repository) List(ctx context.Context, f application.ListFilter) ([]domain.Order, int, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	if f.TableID != "" {
		args = append(args, f.TableID)
		where = append(where, fmt.Sprintf("table_id=$%d", len(args)))
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Take, f.Skip)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderColumns, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Sort orders for Find.
const (
	CreatedAsc    = "created_at ASC"
	CreatedDesc   = "created_at DESC"
	CompletedDesc = "completed_at DESC NULLS LAST"
)

// Query selects orders for the reporting views. Zero fields do not filter.
type Query struct {
	Statuses     []domain.Status
	TableID      string
	CreatedSince time.Time
	// CompletedSince also excludes orders without a completion stamp.
	CompletedSince time.Time
	OrderBy        string
	Limit          int
}

// Find returns the orders matching q with their items.
func (r *Repository) Find(ctx context.Context, q Query) ([]domain.Order, error) {
	var (
		where []string
		args  []any
	)
	if len(q.Statuses) > 0 {
		names := make([]string, 0, len(q.Statuses))
		for _, s := range q.Statuses {
			names = append(names, string(s))
		}
		args = append(args, names)
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if q.TableID != "" {
		args = append(args, q.TableID)
		where = append(where, fmt.Sprintf("table_id=$%d", len(args)))
	}
	if !q.CreatedSince.IsZero() {
		args = append(args, q.CreatedSince)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !q.CompletedSince.IsZero() {
		args = append(args, q.CompletedSince)
		where = append(where, fmt.Sprintf("completed_at >= $%d", len(args)))
	}

	sql := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	switch q.OrderBy {
	case CreatedDesc, CompletedDesc:
		sql += " ORDER BY " + q.OrderBy
	default:
		sql += " ORDER BY " + CreatedAsc
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}
	return orders, r.attachItems(ctx, orders)
}

func (r *Repository) UpdateStatus(ctx context.Context, o domain.Order, expected domain.Status, msgs ...outbox.Message) error {
	return postgres.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return UpdateStatusTx(ctx, tx, o, expected, msgs...)
	})
}

// UpdateStatusTx performs the conditional status write inside tx. The payment
// confirmation uses it to close the order in its own transaction.
func UpdateStatusTx(ctx context.Context, tx pgx.Tx, o domain.Order, expected domain.Status, msgs ...outbox.Message) error {
	ct, err := tx.Exec(ctx, `UPDATE orders SET status=$3, started_at=$4, completed_at=$5, updated_at=$6
		WHERE id=$1 AND status=$2`,
		o.ID, expected, o.Status, o.StartedAt, o.CompletedAt, o.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrStaleStatus
	}
	return outbox.Insert(ctx, tx, msgs...)
}

func (r *Repository) AddItem(ctx context.Context, item domain.OrderItem) (domain.OrderItem, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO order_items (id, order_id, menu_item_id, quantity, unit_price_cents, notes)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (order_id, menu_item_id) DO UPDATE SET quantity = order_items.quantity + EXCLUDED.quantity
		RETURNING id, quantity, unit_price_cents, notes`,
		item.ID, item.OrderID, item.MenuItemID, item.Quantity, item.UnitPriceCents, item.Notes).
		Scan(&item.ID, &item.Quantity, &item.UnitPriceCents, &item.Notes)
	if err != nil {
		return domain.OrderItem{}, postgres.MapError(err, "order item")
	}
	return item, nil
}

func (r *Repository) RemoveItem(ctx context.Context, orderID, itemID string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM order_items WHERE id=$1 AND order_id=$2`, itemID, orderID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *Repository) MenuItem(ctx context.Context, id string) (application.MenuItem, error) {
	var mi application.MenuItem
	err := r.pool.QueryRow(ctx, `SELECT id, name, price_cents, available FROM menu_items WHERE id=$1`, id).
		Scan(&mi.ID, &mi.Name, &mi.PriceCents, &mi.Available)
	if err != nil {
		return application.MenuItem{}, postgres.MapError(err, "menu item")
	}
	return mi, nil
}

func (r *Repository) TableExists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM restaurant_tables WHERE id=$1)`, id).Scan(&ok)
	return ok, err
}

func (r *Repository) attachItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	items, err := r.items(ctx, ids)
	if err != nil {
		return err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []domain.OrderItem{}
		}
	}
	return nil
}

func (r *Repository) items(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT oi.id, oi.order_id, oi.menu_item_id, mi.name, oi.quantity, oi.unit_price_cents, oi.notes
		FROM order_items oi JOIN menu_items mi ON mi.id = oi.menu_item_id
		WHERE oi.order_id = ANY($1)
		ORDER BY mi.name`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.MenuItemName, &it.Quantity, &it.UnitPriceCents, &it.Notes); err != nil {
			return nil, err
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.TableID, &o.UserID, &o.Status, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt, &o.StartedAt, &o.CompletedAt)
	return o, err
}

func collectOrders(rows pgx.Rows) ([]domain.Order, error) {
	defer rows.Close()
	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
