package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	authhttp "github.com/dmehra2102/restaurant-order-system/internal/auth/infrastructure/http"
	"github.com/dmehra2102/restaurant-order-system/internal/order/application"
	"github.com/dmehra2102/restaurant-order-system/internal/order/domain"
	"github.com/dmehra2102/restaurant-order-system/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
	// create wraps POST / so repeated Idempotency-Keys replay the first response.
	create func(http.Handler) http.Handler
	status func(http.Handler) http.Handler
	manage func(http.Handler) http.Handler
}

// NewHandler wires the order routes. prep guards status changes and managers
// guards cancellation; nil guards let every caller through.
func NewHandler(log *slog.Logger, service *application.Service, idempotent, prep, managers func(http.Handler) http.Handler) *Handler {
	pass := func(next http.Handler) http.Handler { return next }
	if idempotent == nil {
		idempotent = pass
	}
	if prep == nil {
		prep = pass
	}
	if managers == nil {
		managers = pass
	}
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("order-http"),
		create:  idempotent,
		status:  prep,
		manage:  managers,
	}
}

type createOrderReq struct {
	TableID string `json:"tableId"`
	Notes   string `json:"notes"`
}

type addItemReq struct {
	MenuItemID string `json:"menuItemId"`
	Quantity   int    `json:"quantity"`
	Notes      string `json:"notes"`
}

type statusReq struct {
	Status string `json:"status"`
}

type cancelReq struct {
	Reason string `json:"reason"`
}

type totalResp struct {
	OrderID string `json:"orderId"`
	Total   int64  `json:"total"`
}

// Routes must be mounted behind authhttp.Authenticate.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.With(h.create).Post("/", h.createOrder)
	r.Get("/", h.listOrders)
	r.Get("/{id}", h.getOrder)
	r.Get("/{id}/total", h.total)
	r.Post("/{id}/items", h.addItem)
	r.Delete("/{id}/items/{itemId}", h.removeItem)
	r.With(h.status).Put("/{id}/status", h.updateStatus)
	r.With(h.manage).Put("/{id}/cancel", h.cancel)
	return r
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createOrderReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	id, _ := authhttp.IdentityFrom(ctx)

	o, err := h.service.Create(ctx, req.TableID, id.UserID, req.Notes)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, o)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	f := application.ListFilter{TableID: r.URL.Query().Get("tableId")}
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

	orders, total, err := h.service.List(r.Context(), f)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.Page[domain.Order]{Data: orders, Total: total, Skip: f.Skip, Take: f.Take})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) total(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	total, err := h.service.Total(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, totalResp{OrderID: id, Total: total})
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddOrderItem")
	defer span.End()

	var req addItemReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	item, err := h.service.AddItem(ctx, chi.URLParam(r, "id"), req.MenuItemID, req.Quantity, req.Notes)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemId")); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateOrderStatus")
	defer span.End()

	var req statusReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	o, _, err := h.service.UpdateStatus(ctx, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CancelOrder")
	defer span.End()

	var req cancelReq
	if r.ContentLength != 0 {
		if err := httpx.Decode(r, &req); err != nil {
			httpx.WriteError(w, h.log, err)
			return
		}
	}
	o, err := h.service.Cancel(ctx, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}
