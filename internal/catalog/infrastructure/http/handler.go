package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmehra2102/restaurant-order-system/internal/catalog/application"
	"github.com/dmehra2102/restaurant-order-system/internal/catalog/domain"
	"github.com/dmehra2102/restaurant-order-system/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	// write guards every mutating route.
	write func(http.Handler) http.Handler
}

func NewHandler(log *slog.Logger, service *application.Service, write func(http.Handler) http.Handler) *Handler {
	if write == nil {
		write = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{log: log, service: service, write: write}
}

type categoryReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type menuItemReq struct {
	CategoryID  string `json:"categoryId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Available   *bool  `json:"available"`
}

func (h *Handler) CategoryRoutes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.listCategories)
	r.Get("/{id}", h.getCategory)
	r.Group(func(r chi.Router) {
		r.Use(h.write)
		r.Post("/", h.createCategory)
		r.Put("/{id}", h.updateCategory)
		r.Delete("/{id}", h.deleteCategory)
	})
	return r
}

func (h *Handler) MenuItemRoutes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.listMenuItems)
	r.Get("/{id}", h.getMenuItem)
	r.Group(func(r chi.Router) {
		r.Use(h.write)
		r.Post("/", h.createMenuItem)
		r.Put("/{id}", h.updateMenuItem)
		r.Delete("/{id}", h.deleteMenuItem)
	})
	return r
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cs, err := h.service.Categories(r.Context())
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cs)
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Category(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	c, err := h.service.CreateCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	var patch domain.CategoryPatch
	if err := httpx.Decode(r, &patch); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	c, err := h.service.UpdateCategory(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listMenuItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.MenuItems(r.Context(), r.URL.Query().Get("categoryId"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) getMenuItem(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.MenuItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) createMenuItem(w http.ResponseWriter, r *http.Request) {
	var req menuItemReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	available := true
	if req.Available != nil {
		available = *req.Available
	}
	m, err := h.service.CreateMenuItem(r.Context(), domain.MenuItem{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.Price,
		Available:   available,
	})
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, m)
}

func (h *Handler) updateMenuItem(w http.ResponseWriter, r *http.Request) {
	var patch domain.MenuItemPatch
	if err := httpx.Decode(r, &patch); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	m, err := h.service.UpdateMenuItem(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) deleteMenuItem(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteMenuItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
