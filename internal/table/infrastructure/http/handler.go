package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmehra2102/restaurant-order-system/internal/table/application"
	"github.com/dmehra2102/restaurant-order-system/internal/table/domain"
	"github.com/dmehra2102/restaurant-order-system/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	manage  func(http.Handler) http.Handler
	floor   func(http.Handler) http.Handler
}

// NewHandler: manage guards create, update and delete; floor guards the
// occupied/available toggles.
func NewHandler(log *slog.Logger, service *application.Service, manage, floor func(http.Handler) http.Handler) *Handler {
	pass := func(next http.Handler) http.Handler { return next }
	if manage == nil {
		manage = pass
	}
	if floor == nil {
		floor = pass
	}
	return &Handler{log: log, service: service, manage: manage, floor: floor}
}

type createTableReq struct {
	Number   int    `json:"number"`
	Capacity int    `json:"capacity"`
	Location string `json:"location"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Group(func(r chi.Router) {
		r.Use(h.manage)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.floor)
		r.Put("/{id}/occupy", h.occupy)
		r.Put("/{id}/release", h.release)
	})
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var f application.ListFilter
	if s := r.URL.Query().Get("status"); s != "" {
		st, err := domain.ParseStatus(s)
		if err != nil {
			httpx.WriteError(w, h.log, err)
			return
		}
		f.Status = st
	}
	var err error
	if f.Skip, err = httpx.IntQuery(r, "skip", 0); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	if f.Take, err = httpx.IntQuery(r, "take", 0); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	tables, err := h.service.List(r.Context(), f)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tables)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTableReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	t, err := h.service.Create(r.Context(), req.Number, req.Capacity, req.Location)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var patch domain.Patch
	if err := httpx.Decode(r, &patch); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	t, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) occupy(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.MarkOccupied(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.MarkAvailable(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}
