package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/restaurant-order-system/internal/admin/application"
	"github.com/dmehra2102/restaurant-order-system/pkg/httpx"
)

type Handler struct {
	log      *slog.Logger
	service  *application.Service
	tracer   trace.Tracer
	managers func(http.Handler) http.Handler
	kitchen  func(http.Handler) http.Handler
}

// NewHandler: managers guards the dashboard and floor views, kitchen guards
// the KDS routes.
func NewHandler(log *slog.Logger, service *application.Service, managers, kitchen func(http.Handler) http.Handler) *Handler {
	pass := func(next http.Handler) http.Handler { return next }
	if managers == nil {
		managers = pass
	}
	if kitchen == nil {
		kitchen = pass
	}
	return &Handler{
		log:      log,
		service:  service,
		tracer:   otel.Tracer("admin-http"),
		managers: managers,
		kitchen:  kitchen,
	}
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(h.managers)
		r.Get("/dashboard/metrics", h.metrics)
		r.Get("/dashboard/revenue", h.revenue)
		r.Get("/dashboard/top-items", h.topItems)
		r.Get("/tables", h.tables)
		r.Get("/tables/{id}", h.table)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.kitchen)
		r.Get("/kds/orders", h.kdsOrders)
		r.Get("/kds/history", h.kdsHistory)
		r.Put("/orders/{id}/status", h.updateStatus)
	})
	return r
}

func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DashboardMetrics")
	defer span.End()

	m, err := h.service.Metrics(ctx)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) revenue(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Revenue")
	defer span.End()

	days, err := httpx.IntQuery(r, "days", application.DefaultRevenueDays)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	points, err := h.service.Revenue(ctx, days, r.URL.Query().Get("period"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, points)
}

func (h *Handler) topItems(w http.ResponseWriter, r *http.Request) {
	limit, err := httpx.IntQuery(r, "limit", application.DefaultTopItems)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	items, err := h.service.TopItems(r.Context(), limit)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) kdsOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.KDSOrders(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orders)
}

func (h *Handler) kdsHistory(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.KDSHistory(r.Context())
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orders)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "KitchenUpdateStatus")
	defer span.End()

	var req statusReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	o, err := h.service.UpdateOrderStatus(ctx, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) tables(w http.ResponseWriter, r *http.Request) {
	board, err := h.service.Tables(r.Context())
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, board)
}

func (h *Handler) table(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Table(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}
