package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmehra2102/restaurant-order-system/pkg/apperr"
)

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleWaiter   Role = "WAITER"
	RoleKitchen  Role = "KITCHEN"
	RoleBar      Role = "BAR"
	RoleCustomer Role = "CUSTOMER"
)

const MinPasswordLength = 6

var (
	ErrUserNotFound       = fmt.Errorf("user %w", apperr.ErrNotFound)
	ErrEmailTaken         = fmt.Errorf("email already registered: %w", apperr.ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", apperr.ErrUnauthorized)
)

var roles = map[Role]bool{
	RoleAdmin: true, RoleManager: true, RoleWaiter: true,
	RoleKitchen: true, RoleBar: true, RoleCustomer: true,
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !roles[r] {
		return "", fmt.Errorf("unknown role %q: %w", s, apperr.ErrValidation)
	}
	return r, nil
}

// Allow reports whether role is one of allowed.
func Allow(role Role, allowed ...Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// Role groups used by the route guards.
var (
	Managers     = []Role{RoleAdmin, RoleManager}
	KitchenStaff = []Role{RoleAdmin, RoleManager, RoleKitchen}
	FloorStaff   = []Role{RoleAdmin, RoleManager, RoleWaiter}
	// PrepStaff may move orders through the preparation statuses.
	PrepStaff = []Role{RoleAdmin, RoleManager, RoleKitchen, RoleBar}
	// Staff is every role except CUSTOMER.
	Staff = []Role{RoleAdmin, RoleManager, RoleWaiter, RoleKitchen, RoleBar}
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity is what an access token proves about its bearer.
type Identity struct {
	UserID string
	Email  string
	Role   Role
}

func ValidateRegistration(email, name, password string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email %q: %w", email, apperr.ErrValidation)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required: %w", apperr.ErrValidation)
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters: %w", MinPasswordLength, apperr.ErrValidation)
	}
	return nil
}
