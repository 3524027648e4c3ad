package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/restaurant-order-system/internal/catalog/domain"
	"github.com/dmehra2102/restaurant-order-system/internal/platform/postgres"
	"github.com/dmehra2102/restaurant-order-system/pkg/apperr"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

const (
	categoryColumns = `id, name, description, created_at, updated_at`
	menuItemColumns = `id, category_id, name, description, price_cents, available, created_at, updated_at`
)

func (r *Repository) CreateCategory(ctx context.Context, c domain.Category) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO categories (`+categoryColumns+`) VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.Name, c.Description, c.CreatedAt, c.UpdatedAt)
	return postgres.MapError(err, "category")
}

func (r *Repository) Categories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) Category(ctx context.Context, id string) (domain.Category, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	return c, err
}

func (r *Repository) UpdateCategory(ctx context.Context, c domain.Category) error {
	ct, err := r.pool.Exec(ctx, `UPDATE categories SET name=$2, description=$3, updated_at=$4 WHERE id=$1`,
		c.ID, c.Name, c.Description, c.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, "category")
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if err != nil {
		if errors.Is(postgres.MapError(err, "category"), apperr.ErrConflict) {
			return domain.ErrCategoryInUse
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

func (r *Repository) CreateMenuItem(ctx context.Context, m domain.MenuItem) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO menu_items (`+menuItemColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		m.ID, m.CategoryID, m.Name, m.Description, m.PriceCents, m.Available, m.CreatedAt, m.UpdatedAt)
	return postgres.MapError(err, "menu item")
}

func (r *Repository) MenuItems(ctx context.Context, categoryID string) ([]domain.MenuItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+menuItemColumns+` FROM menu_items
		WHERE ($1 = '' OR category_id::text = $1)
		ORDER BY name`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.MenuItem{}
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repository) MenuItem(ctx context.Context, id string) (domain.MenuItem, error) {
	m, err := scanMenuItem(r.pool.QueryRow(ctx, `SELECT `+menuItemColumns+` FROM menu_items WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.MenuItem{}, domain.ErrMenuItemNotFound
	}
	return m, err
}

func (r *Repository) UpdateMenuItem(ctx context.Context, m domain.MenuItem) error {
	ct, err := r.pool.Exec(ctx, `UPDATE menu_items
		SET category_id=$2, name=$3, description=$4, price_cents=$5, available=$6, updated_at=$7
		WHERE id=$1`,
		m.ID, m.CategoryID, m.Name, m.Description, m.PriceCents, m.Available, m.UpdatedAt)
	if err != nil {
		return postgres.MapError(err, "menu item")
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrMenuItemNotFound
	}
	return nil
}

func (r *Repository) DeleteMenuItem(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM menu_items WHERE id=$1`, id)
	if err != nil {
		if errors.Is(postgres.MapError(err, "menu item"), apperr.ErrConflict) {
			return domain.ErrMenuItemInUse
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrMenuItemNotFound
	}
	return nil
}

func scanCategory(row pgx.Row) (domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanMenuItem(row pgx.Row) (domain.MenuItem, error) {
	var m domain.MenuItem
	err := row.Scan(&m.ID, &m.CategoryID, &m.Name, &m.Description, &m.PriceCents, &m.Available, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}
