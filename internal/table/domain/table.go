package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/restaurant-order-system/pkg/apperr"
)

type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusOccupied  Status = "OCCUPIED"
	StatusReserved  Status = "RESERVED"
)

var (
	ErrTableNotFound = fmt.Errorf("table %w", apperr.ErrNotFound)
	ErrNumberTaken   = fmt.Errorf("table number already used: %w", apperr.ErrConflict)
	ErrTableInUse    = fmt.Errorf("table has active orders: %w", apperr.ErrConflict)
)

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusAvailable, StatusOccupied, StatusReserved:
		return st, nil
	}
	return "", fmt.Errorf("unknown table status %q: %w", s, apperr.ErrValidation)
}

type Table struct {
	ID        string    `json:"id"`
	Number    int       `json:"number"`
	Capacity  int       `json:"capacity"`
	Location  string    `json:"location"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t Table) Validate() error {
	if t.Number <= 0 {
		return fmt.Errorf("table number must be positive: %w", apperr.ErrValidation)
	}
	if t.Capacity <= 0 {
		return fmt.Errorf("table capacity must be positive: %w", apperr.ErrValidation)
	}
	return nil
}

type Patch struct {
	Number   *int    `json:"number"`
	Capacity *int    `json:"capacity"`
	Location *string `json:"location"`
	Status   *string `json:"status"`
}

func (p Patch) Apply(t *Table) error {
	if p.Number != nil {
		t.Number = *p.Number
	}
	if p.Capacity != nil {
		t.Capacity = *p.Capacity
	}
	if p.Location != nil {
		t.Location = *p.Location
	}
	if p.Status != nil {
		st, err := ParseStatus(*p.Status)
		if err != nil {
			return err
		}
		t.Status = st
	}
	return t.Validate()
}

// Board is a table as shown on the floor overview.
type Board struct {
	Table
	HasActiveOrder bool `json:"hasActiveOrder"`
}
