package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"restaurant-ops/internal/domain"
	"restaurant-ops/internal/httpx"
)

var ErrUserNotFound = errors.New("user not found")

type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
}

// LoginHandler exchanges username/password for a bearer token.
type LoginHandler struct {
	Users    UserStore
	Verifier *Verifier
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	CompanyID string `json:"company_id"`
	Role      string `json:"role"`
}

func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteProblem(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		httpx.WriteProblem(w, http.StatusBadRequest, "bad_request", "username and password are required")
		return
	}

	u, err := h.Users.GetUserByUsername(r.Context(), req.Username)
	if err != nil || !u.IsActive {
		httpx.WriteProblem(w, http.StatusUnauthorized, "authentication_failed", "invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		httpx.WriteProblem(w, http.StatusUnauthorized, "authentication_failed", "invalid credentials")
		return
	}

	id := domain.Identity{UserID: u.ID, CompanyID: u.CompanyID, Role: u.Role, Username: u.Username}
	token, err := h.Verifier.Issue(id)
	if err != nil {
		httpx.WriteProblem(w, http.StatusInternalServerError, "server_error", "could not issue token")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		UserID:    u.ID,
		Username:  u.Username,
		CompanyID: u.CompanyID,
		Role:      string(u.Role),
	})
}
