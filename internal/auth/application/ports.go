package application

import (
	"context"

	"github.com/dmehra2102/restaurant-order-system/internal/auth/domain"
)

type UserRepository interface {
	Create(ctx context.Context, u domain.User) error
	Get(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) (domain.User, error)
}

type TokenIssuer interface {
	IssueAccess(u domain.User) (string, error)
	IssueRefresh(u domain.User) (string, error)
	VerifyRefresh(token string) (domain.Identity, error)
}
