package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/restaurant-order-system/pkg/apperr"
)

var (
	ErrCategoryNotFound = fmt.Errorf("category %w", apperr.ErrNotFound)
	ErrMenuItemNotFound = fmt.Errorf("menu item %w", apperr.ErrNotFound)
	ErrCategoryExists   = fmt.Errorf("category name already used: %w", apperr.ErrConflict)
	ErrCategoryInUse    = fmt.Errorf("category still has menu items: %w", apperr.ErrConflict)
	ErrMenuItemInUse    = fmt.Errorf("menu item is referenced by orders: %w", apperr.ErrConflict)
)

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type MenuItem struct {
	ID          string    `json:"id"`
	CategoryID  string    `json:"categoryId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("category name is required: %w", apperr.ErrValidation)
	}
	return nil
}

func (m MenuItem) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("menu item name is required: %w", apperr.ErrValidation)
	}
	if m.CategoryID == "" {
		return fmt.Errorf("menu item category is required: %w", apperr.ErrValidation)
	}
	if m.PriceCents < 0 {
		return fmt.Errorf("menu item price cannot be negative: %w", apperr.ErrValidation)
	}
	return nil
}

// CategoryPatch and MenuItemPatch carry only the fields a caller set.
type CategoryPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (p CategoryPatch) Apply(c *Category) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
}

type MenuItemPatch struct {
	CategoryID  *string `json:"categoryId"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	PriceCents  *int64  `json:"price"`
	Available   *bool   `json:"available"`
}

func (p MenuItemPatch) Apply(m *MenuItem) {
	if p.CategoryID != nil {
		m.CategoryID = *p.CategoryID
	}
	if p.Name != nil {
		m.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.PriceCents != nil {
		m.PriceCents = *p.PriceCents
	}
	if p.Available != nil {
		m.Available = *p.Available
	}
}
