package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmehra2102/restaurant-order-system/internal/auth/domain"
	"github.com/dmehra2102/restaurant-order-system/pkg/apperr"
)

type Tokens struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken,omitempty"`
	User         domain.User `json:"user"`
}

type Service struct {
	log    *slog.Logger
	users  UserRepository
	tokens TokenIssuer
	cost   int
	now    func() time.Time
}

func NewService(log *slog.Logger, users UserRepository, tokens TokenIssuer) *Service {
	return &Service{log: log, users: users, tokens: tokens, cost: bcrypt.DefaultCost, now: time.Now}
}

func (s *Service) Register(ctx context.Context, email, name, password string) (Tokens, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := domain.ValidateRegistration(email, name, password); err != nil {
		return Tokens{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Tokens{}, err
	}

	now := s.now().UTC()
	u := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		Role:         domain.RoleCustomer,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return Tokens{}, domain.ErrEmailTaken
		}
		return Tokens{}, err
	}
	s.log.Info("user registered", "user_id", u.ID)
	return s.issue(u, true)
}

func (s *Service) Login(ctx context.Context, email, password string) (Tokens, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, apperr.ErrNotFound) {
		return Tokens{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return Tokens{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return Tokens{}, domain.ErrInvalidCredentials
	}
	return s.issue(u, true)
}

// Refresh exchanges a refresh token for a new access token. The role is read
// again so that role changes apply from the next refresh.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	id, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return Tokens{}, err
	}
	u, err := s.users.Get(ctx, id.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		return Tokens{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return Tokens{}, err
	}
	return s.issue(u, false)
}

func (s *Service) Users(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

func (s *Service) User(ctx context.Context, id string) (domain.User, error) {
	return s.users.Get(ctx, id)
}

func (s *Service) ChangeRole(ctx context.Context, id, role string) (domain.User, error) {
	r, err := domain.ParseRole(role)
	if err != nil {
		return domain.User{}, err
	}
	u, err := s.users.UpdateRole(ctx, id, r)
	if err != nil {
		return domain.User{}, err
	}
	s.log.Info("user role changed", "user_id", id, "role", r)
	return u, nil
}

func (s *Service) issue(u domain.User, withRefresh bool) (Tokens, error) {
	access, err := s.tokens.IssueAccess(u)
	if err != nil {
		return Tokens{}, err
	}
	t := Tokens{AccessToken: access, User: u}
	if withRefresh {
		if t.RefreshToken, err = s.tokens.IssueRefresh(u); err != nil {
			return Tokens{}, err
		}
	}
	return t, nil
}
