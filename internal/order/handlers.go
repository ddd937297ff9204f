package order

import (
	"encoding/json"
	"errors"
	"net/http"

	"restaurant-ops/internal/auth"
	"restaurant-ops/internal/domain"
	"restaurant-ops/internal/httpx"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/orders", h.Create)
	mux.HandleFunc("GET /api/v1/orders", h.List)
	mux.HandleFunc("GET /api/v1/orders/{order_id}", h.Get)
	mux.HandleFunc("POST /api/v1/orders/{order_id}/status", h.Transition)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.IdentityFrom(r.Context())
	if !ok {
		httpx.WriteProblem(w, http.StatusUnauthorized, "authentication_failed", "no identity")
		return
	}
	var in CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	o, err := h.svc.Create(r.Context(), actor, in)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, o)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.IdentityFrom(r.Context())
	if !ok {
		httpx.WriteProblem(w, http.StatusUnauthorized, "authentication_failed", "no identity")
		return
	}
	o, err := h.svc.Get(r.Context(), actor, r.PathValue("order_id"))
	if err != nil {
		writeOrderError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.IdentityFrom(r.Context())
	if !ok {
		httpx.WriteProblem(w, http.StatusUnauthorized, "authentication_failed", "no identity")
		return
	}
	limit := httpx.AtoiDefault(r.URL.Query().Get("limit"), 50)
	offset := httpx.AtoiDefault(r.URL.Query().Get("offset"), 0)
	orders, err := h.svc.List(r.Context(), actor, limit, offset)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

type transitionRequest struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.IdentityFrom(r.Context())
	if !ok {
		httpx.WriteProblem(w, http.StatusUnauthorized, "authentication_failed", "no identity")
		return
	}
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	to := domain.OrderStatus(req.Status)
	if !to.Valid() {
		httpx.WriteProblem(w, http.StatusBadRequest, "bad_request", "unknown status "+req.Status)
		return
	}
	o, err := h.svc.Transition(r.Context(), actor, r.PathValue("order_id"), to, req.Note)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

// writeOrderError maps the domain error kinds onto HTTP problem responses,
// keeping enough detail (from/to, product, shortfall) for the caller to
// render a clear message.
func writeOrderError(w http.ResponseWriter, err error) {
	var (
		invalid   *InvalidTransitionError
		terminal  *TerminalError
		forbidden *ForbiddenError
		stock     *InsufficientStockError
		discount  *InvalidDiscountError
	)
	switch {
	case errors.As(err, &invalid):
		httpx.WriteProblem(w, http.StatusConflict, "invalid_transition", invalid.Error())
	case errors.As(err, &terminal):
		httpx.WriteProblem(w, http.StatusConflict, "order_terminal", terminal.Error())
	case errors.As(err, &forbidden):
		httpx.WriteProblem(w, http.StatusForbidden, "forbidden", forbidden.Error())
	case errors.As(err, &stock):
		httpx.WriteProblem(w, http.StatusConflict, "insufficient_stock", stock.Error())
	case errors.As(err, &discount):
		httpx.WriteProblem(w, http.StatusUnprocessableEntity, "invalid_discount", discount.Error())
	case errors.Is(err, ErrOrderNotFound):
		httpx.WriteProblem(w, http.StatusNotFound, "not_found", "order not found")
	case errors.Is(err, ErrProductNotFound):
		httpx.WriteProblem(w, http.StatusUnprocessableEntity, "product_not_found", err.Error())
	default:
		httpx.WriteProblem(w, http.StatusBadRequest, "bad_request", err.Error())
	}
}
