package chat

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
	mux.HandleFunc("POST /api/v1/chat/{channel}/messages", h.Post)
	mux.HandleFunc("GET /api/v1/chat/{channel}/messages", h.History)
}

type postRequest struct {
	Content string `json:"content"`
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.IdentityFrom(r.Context())
	if !ok {
		httpx.WriteProblem(w, http.StatusUnauthorized, "authentication_failed", "no identity")
		return
	}
	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	m, err := h.svc.Post(r.Context(), actor, r.PathValue("channel"), req.Content)
	if err != nil {
		writeChatError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, m)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.IdentityFrom(r.Context())
	if !ok {
		httpx.WriteProblem(w, http.StatusUnauthorized, "authentication_failed", "no identity")
		return
	}
	limit := httpx.AtoiDefault(r.URL.Query().Get("limit"), 50)
	offset := httpx.AtoiDefault(r.URL.Query().Get("offset"), 0)
	msgs, err := h.svc.History(r.Context(), actor, r.PathValue("channel"), limit, offset)
	if err != nil {
		writeChatError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func writeChatError(w http.ResponseWriter, err error) {
	var (
		unknown      *domain.UnknownChannelError
		unauthorized *domain.UnauthorizedChannelError
	)
	switch {
	case errors.As(err, &unknown):
		httpx.WriteProblem(w, http.StatusNotFound, "unknown_channel", unknown.Error())
	case errors.As(err, &unauthorized):
		httpx.WriteProblem(w, http.StatusForbidden, "unauthorized_channel", unauthorized.Error())
	default:
		httpx.WriteProblem(w, http.StatusBadRequest, "bad_request", err.Error())
	}
}
