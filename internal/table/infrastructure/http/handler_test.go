package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	authdomain "github.com/dmehra2102/restaurant-order-system/internal/auth/domain"
	authhttp "github.com/dmehra2102/restaurant-order-system/internal/auth/infrastructure/http"
	"github.com/dmehra2102/restaurant-order-system/internal/table/application"
	"github.com/dmehra2102/restaurant-order-system/internal/table/domain"
)

type stubRepo struct {
	mu     sync.Mutex
	tables map[string]domain.Table
}

func (s *stubRepo) Create(ctx context.Context, t domain.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.ID] = t
	return nil
}

func (s *stubRepo) List(ctx context.Context, f application.ListFilter) ([]domain.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Table{}
	for _, t := range s.tables {
		out = append(out, t)
	}
	return out, nil
}

func (s *stubRepo) Get(ctx context.Context, id string) (domain.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return domain.Table{}, domain.ErrTableNotFound
	}
	return t, nil
}

func (s *stubRepo) Update(ctx context.Context, t domain.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.ID] = t
	return nil
}

func (s *stubRepo) Delete(ctx context.Context, id string) error {
	return domain.ErrTableInUse
}

func (s *stubRepo) Board(ctx context.Context) ([]domain.Board, error) {
	return nil, nil
}

// withRole fakes an authenticated caller.
func withRole(role authdomain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := authhttp.WithIdentity(r.Context(), authdomain.Identity{UserID: "u1", Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newServer(role authdomain.Role) *httptest.Server {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := application.NewService(log, &stubRepo{tables: map[string]domain.Table{}})
	h := NewHandler(log, svc,
		authhttp.RequireRoles(log, authdomain.Managers...),
		authhttp.RequireRoles(log, authdomain.FloorStaff...),
	)
	mux := http.NewServeMux()
	mux.Handle("/", withRole(role)(h.Routes()))
	return httptest.NewServer(mux)
}

func call(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestTableLifecycle(t *testing.T) {
	srv := newServer(authdomain.RoleManager)
	defer srv.Close()

	resp := call(t, http.MethodPost, srv.URL+"/", `{"number":4,"capacity":2,"location":"terrace"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var created domain.Table
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if created.Status != domain.StatusAvailable || created.Location != "terrace" {
		t.Fatalf("created = %+v", created)
	}

	resp = call(t, http.MethodPut, srv.URL+"/"+created.ID+"/occupy", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("occupy status = %d", resp.StatusCode)
	}
	var occupied domain.Table
	if err := json.NewDecoder(resp.Body).Decode(&occupied); err != nil {
		t.Fatal(err)
	}
	if occupied.Status != domain.StatusOccupied {
		t.Fatalf("status = %s, want OCCUPIED", occupied.Status)
	}

	if resp := call(t, http.MethodDelete, srv.URL+"/"+created.ID, ""); resp.StatusCode != http.StatusConflict {
		t.Fatalf("delete in use: status = %d, want 409", resp.StatusCode)
	}
	if resp := call(t, http.MethodPost, srv.URL+"/", `{"number":0,"capacity":2}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid number: status = %d, want 400", resp.StatusCode)
	}
	if resp := call(t, http.MethodGet, srv.URL+"/missing", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing: status = %d, want 404", resp.StatusCode)
	}
}

func TestTableGuards(t *testing.T) {
	srv := newServer(authdomain.RoleKitchen)
	defer srv.Close()

	if resp := call(t, http.MethodGet, srv.URL+"/", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("list: status = %d, want 200", resp.StatusCode)
	}
	if resp := call(t, http.MethodPost, srv.URL+"/", `{"number":1,"capacity":2}`); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("kitchen create: status = %d, want 403", resp.StatusCode)
	}
	if resp := call(t, http.MethodPut, srv.URL+"/t1/occupy", ""); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("kitchen occupy: status = %d, want 403", resp.StatusCode)
	}
}
