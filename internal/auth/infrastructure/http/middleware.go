package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmehra2102/restaurant-order-system/internal/auth/domain"
	"github.com/dmehra2102/restaurant-order-system/pkg/apperr"
	"github.com/dmehra2102/restaurant-order-system/pkg/httpx"
)

type ctxKey struct{}

type Verifier interface {
	VerifyAccess(token string) (domain.Identity, error)
}

func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(domain.Identity)
	return id, ok
}

// Authenticate requires a valid bearer access token. The WebSocket endpoint
// may pass the token as the "token" query parameter instead.
func Authenticate(log *slog.Logger, v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearer(r)
			if token == "" {
				httpx.WriteError(w, log, fmt.Errorf("missing bearer token: %w", apperr.ErrUnauthorized))
				return
			}
			id, err := v.VerifyAccess(token)
			if err != nil {
				httpx.WriteError(w, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func RequireRoles(log *slog.Logger, roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				httpx.WriteError(w, log, fmt.Errorf("not authenticated: %w", apperr.ErrUnauthorized))
				return
			}
			if !domain.Allow(id.Role, roles...) {
				httpx.WriteError(w, log, fmt.Errorf("role %s may not %s %s: %w", id.Role, r.Method, r.URL.Path, apperr.ErrForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CallerScope keys idempotency records by the authenticated user.
func CallerScope(r *http.Request) string {
	if id, ok := IdentityFrom(r.Context()); ok {
		return id.UserID
	}
	return "anonymous"
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[len("bearer "):])
	}
	return r.URL.Query().Get("token")
}
