// Package httpx has the JSON response helpers shared by the HTTP handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dmehra2102/restaurant-order-system/pkg/apperr"
)

const maxBody = 1 << 20

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err through apperr.HTTPStatus. Internal errors are logged
// and their text is not sent to the client.
func WriteError(w http.ResponseWriter, log *slog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed", "err", err)
		msg = "internal server error"
	}
	WriteJSON(w, status, errorBody{Error: http.StatusText(status), Message: msg})
}

// Decode reads a JSON body into v. Malformed input is a validation error.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty: %w", apperr.ErrValidation)
		}
		return fmt.Errorf("invalid request body: %v: %w", err, apperr.ErrValidation)
	}
	return nil
}

// IntQuery returns the integer query parameter name or def when it is absent.
func IntQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("query parameter %s must be an integer: %w", name, apperr.ErrValidation)
	}
	return n, nil
}

type Page[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
	Skip  int `json:"skip"`
	Take  int `json:"take"`
}
