package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/restaurant-order-system/internal/payment/application"
	"github.com/dmehra2102/restaurant-order-system/internal/payment/domain"
	"github.com/dmehra2102/restaurant-order-system/pkg/apperr"
	"github.com/dmehra2102/restaurant-order-system/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
	create  func(http.Handler) http.Handler
	floor   func(http.Handler) http.Handler
	manage  func(http.Handler) http.Handler
	now     func() time.Time
}

// NewHandler wires the payment routes. idempotent wraps payment creation,
// floor guards create, list and confirm, and managers guards cancel and the
// summary.
func NewHandler(log *slog.Logger, service *application.Service, idempotent, floor, managers func(http.Handler) http.Handler) *Handler {
	pass := func(next http.Handler) http.Handler { return next }
	if idempotent == nil {
		idempotent = pass
	}
	if floor == nil {
		floor = pass
	}
	if managers == nil {
		managers = pass
	}
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("payment-http"),
		create:  idempotent,
		floor:   floor,
		manage:  managers,
		now:     time.Now,
	}
}

type createPaymentReq struct {
	OrderID string `json:"orderId"`
	Amount  int64  `json:"amount"`
	Method  string `json:"method"`
	Notes   string `json:"notes"`
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/order/{orderId}", h.byOrder)
	r.Get("/{id}", h.getPayment)
	r.Group(func(r chi.Router) {
		r.Use(h.floor)
		r.With(h.create).Post("/", h.createPayment)
		r.Get("/", h.listPayments)
		r.Put("/{id}/confirm", h.confirm)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.manage)
		r.Get("/summary", h.summary)
		r.Put("/{id}/cancel", h.cancel)
	})
	return r
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreatePayment")
	defer span.End()

	var req createPaymentReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	p, err := h.service.Create(ctx, req.OrderID, req.Amount, req.Method, req.Notes)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
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
	payments, total, err := h.service.List(r.Context(), f)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.Page[domain.Payment]{Data: payments, Total: total, Skip: f.Skip, Take: f.Take})
}

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) byOrder(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.ByOrder(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, payments)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ConfirmPayment")
	defer span.End()

	p, err := h.service.Confirm(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CancelPayment")
	defer span.End()

	var req cancelReq
	if r.ContentLength != 0 {
		if err := httpx.Decode(r, &req); err != nil {
			httpx.WriteError(w, h.log, err)
			return
		}
	}
	p, err := h.service.Cancel(ctx, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

// summary reads startDate and endDate as YYYY-MM-DD or RFC3339. Both default
// to today; a date-only end includes the whole day.
func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	today := h.now().UTC().Truncate(24 * time.Hour)
	start, err := parseBound(r.URL.Query().Get("startDate"), today, false)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	end, err := parseBound(r.URL.Query().Get("endDate"), today, true)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	s, err := h.service.Summary(r.Context(), start, end)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s)
}

func parseBound(raw string, def time.Time, end bool) (time.Time, error) {
	if raw == "" {
		if end {
			return def.AddDate(0, 0, 1), nil
		}
		return def, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, apperr.ErrValidation)
	}
	if end {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}
