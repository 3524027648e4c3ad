package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("order 1: %w", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("amount: %w", ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("PENDING -> DELIVERED: %w", ErrInvalidTransition), http.StatusConflict},
		{fmt.Errorf("table 4: %w", ErrConflict), http.StatusConflict},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatus(c.err); got != c.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}
