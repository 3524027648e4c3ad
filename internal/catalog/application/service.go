package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/restaurant-order-system/internal/catalog/domain"
	"github.com/dmehra2102/restaurant-order-system/pkg/apperr"
)

type Repository interface {
	CreateCategory(ctx context.Context, c domain.Category) error
	Categories(ctx context.Context) ([]domain.Category, error)
	Category(ctx context.Context, id string) (domain.Category, error)
	UpdateCategory(ctx context.Context, c domain.Category) error
	// DeleteCategory fails with domain.ErrCategoryInUse while menu items
	// point at the category.
	DeleteCategory(ctx context.Context, id string) error

	CreateMenuItem(ctx context.Context, m domain.MenuItem) error
	MenuItems(ctx context.Context, categoryID string) ([]domain.MenuItem, error)
	MenuItem(ctx context.Context, id string) (domain.MenuItem, error)
	UpdateMenuItem(ctx context.Context, m domain.MenuItem) error
	DeleteMenuItem(ctx context.Context, id string) error
}

type Service struct {
	log  *slog.Logger
	repo Repository
	now  func() time.Time
}

func NewService(log *slog.Logger, repo Repository) *Service {
	return &Service{log: log, repo: repo, now: time.Now}
}

func (s *Service) CreateCategory(ctx context.Context, name, description string) (domain.Category, error) {
	now := s.now().UTC()
	c := domain.Category{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(name),
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.Validate(); err != nil {
		return domain.Category{}, err
	}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return domain.Category{}, categoryConflict(err)
	}
	s.log.Info("category created", "category_id", c.ID, "name", c.Name)
	return c, nil
}

func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.Categories(ctx)
}

func (s *Service) Category(ctx context.Context, id string) (domain.Category, error) {
	return s.repo.Category(ctx, id)
}

func (s *Service) UpdateCategory(ctx context.Context, id string, patch domain.CategoryPatch) (domain.Category, error) {
	c, err := s.repo.Category(ctx, id)
	if err != nil {
		return domain.Category{}, err
	}
	patch.Apply(&c)
	if err := c.Validate(); err != nil {
		return domain.Category{}, err
	}
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return domain.Category{}, categoryConflict(err)
	}
	return c, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.log.Info("category deleted", "category_id", id)
	return nil
}

func (s *Service) CreateMenuItem(ctx context.Context, m domain.MenuItem) (domain.MenuItem, error) {
	now := s.now().UTC()
	m.ID = uuid.NewString()
	m.Name = strings.TrimSpace(m.Name)
	m.CreatedAt, m.UpdatedAt = now, now
	if err := m.Validate(); err != nil {
		return domain.MenuItem{}, err
	}
	if _, err := s.repo.Category(ctx, m.CategoryID); err != nil {
		return domain.MenuItem{}, err
	}
	if err := s.repo.CreateMenuItem(ctx, m); err != nil {
		return domain.MenuItem{}, err
	}
	s.log.Info("menu item created", "menu_item_id", m.ID, "category_id", m.CategoryID)
	return m, nil
}

func (s *Service) MenuItems(ctx context.Context, categoryID string) ([]domain.MenuItem, error) {
	return s.repo.MenuItems(ctx, categoryID)
}

func (s *Service) MenuItem(ctx context.Context, id string) (domain.MenuItem, error) {
	return s.repo.MenuItem(ctx, id)
}

func (s *Service) UpdateMenuItem(ctx context.Context, id string, patch domain.MenuItemPatch) (domain.MenuItem, error) {
	m, err := s.repo.MenuItem(ctx, id)
	if err != nil {
		return domain.MenuItem{}, err
	}
	moved := patch.CategoryID != nil && *patch.CategoryID != m.CategoryID
	patch.Apply(&m)
	if err := m.Validate(); err != nil {
		return domain.MenuItem{}, err
	}
	if moved {
		if _, err := s.repo.Category(ctx, m.CategoryID); err != nil {
			return domain.MenuItem{}, err
		}
	}
	m.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateMenuItem(ctx, m); err != nil {
		return domain.MenuItem{}, err
	}
	return m, nil
}

func (s *Service) DeleteMenuItem(ctx context.Context, id string) error {
	return s.repo.DeleteMenuItem(ctx, id)
}

func categoryConflict(err error) error {
	if errors.Is(err, apperr.ErrConflict) {
		return domain.ErrCategoryExists
	}
	return err
}
