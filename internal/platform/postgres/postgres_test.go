package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmehra2102/restaurant-order-system/pkg/apperr"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, apperr.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), apperr.ErrNotFound},
		{"unique", &pgconn.PgError{Code: uniqueViolation}, apperr.ErrConflict},
		{"foreign key", &pgconn.PgError{Code: foreignKeyViolation}, apperr.ErrConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MapError(tc.err, "thing"); !errors.Is(got, tc.want) {
				t.Fatalf("MapError = %v, want %v in chain", got, tc.want)
			}
		})
	}

	if MapError(nil, "thing") != nil {
		t.Fatal("nil must stay nil")
	}
	other := errors.New("boom")
	if got := MapError(other, "thing"); got != other {
		t.Fatalf("unrelated error changed: %v", got)
	}
}
