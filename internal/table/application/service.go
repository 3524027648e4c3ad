package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/restaurant-order-system/internal/table/domain"
	"github.com/dmehra2102/restaurant-order-system/pkg/apperr"
)

type ListFilter struct {
	Status domain.Status
	Skip   int
	Take   int
}

type Repository interface {
	Create(ctx context.Context, t domain.Table) error
	List(ctx context.Context, f ListFilter) ([]domain.Table, error)
	Get(ctx context.Context, id string) (domain.Table, error)
	Update(ctx context.Context, t domain.Table) error
	// Delete fails with domain.ErrTableInUse while a non-terminal order
	// references the table.
	Delete(ctx context.Context, id string) error
	// Board lists every table with whether it has a non-terminal order.
	Board(ctx context.Context) ([]domain.Board, error)
}

type Service struct {
	log  *slog.Logger
	repo Repository
	now  func() time.Time
}

func NewService(log *slog.Logger, repo Repository) *Service {
	return &Service{log: log, repo: repo, now: time.Now}
}

func (s *Service) Create(ctx context.Context, number, capacity int, location string) (domain.Table, error) {
	now := s.now().UTC()
	t := domain.Table{
		ID:        uuid.NewString(),
		Number:    number,
		Capacity:  capacity,
		Location:  location,
		Status:    domain.StatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.Validate(); err != nil {
		return domain.Table{}, err
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return domain.Table{}, numberConflict(err)
	}
	s.log.Info("table created", "table_id", t.ID, "number", t.Number)
	return t, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Table, error) {
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Take <= 0 || f.Take > 100 {
		f.Take = 100
	}
	return s.repo.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, id string) (domain.Table, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id string, patch domain.Patch) (domain.Table, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Table{}, err
	}
	if err := patch.Apply(&t); err != nil {
		return domain.Table{}, err
	}
	t.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, t); err != nil {
		return domain.Table{}, numberConflict(err)
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("table deleted", "table_id", id)
	return nil
}

func (s *Service) MarkOccupied(ctx context.Context, id string) (domain.Table, error) {
	return s.setStatus(ctx, id, domain.StatusOccupied)
}

func (s *Service) MarkAvailable(ctx context.Context, id string) (domain.Table, error) {
	return s.setStatus(ctx, id, domain.StatusAvailable)
}

func (s *Service) Board(ctx context.Context) ([]domain.Board, error) {
	return s.repo.Board(ctx)
}

func (s *Service) setStatus(ctx context.Context, id string, st domain.Status) (domain.Table, error) {
	status := string(st)
	return s.Update(ctx, id, domain.Patch{Status: &status})
}

func numberConflict(err error) error {
	if errors.Is(err, apperr.ErrConflict) {
		return domain.ErrNumberTaken
	}
	return err
}
