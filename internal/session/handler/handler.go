// Package handler exposes authentication over HTTP: full login, quick login,
// refresh, logout, and the per-device saved-accounts listing.
package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"mobile-workforce/backend/internal/server/middleware"
	"mobile-workforce/backend/internal/session/service"
)

// Handler serves /v1/auth endpoints.
type Handler struct {
	svc *service.Service
}

// NewHandler returns a session handler backed by svc.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// LoginRequest is the body for POST /v1/auth/login. Identifier may be an
// email or a username.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	DeviceID   string `json:"device_id"`
}

// TokenPair is the issued access/refresh pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// UserView is the client-facing account summary returned with tokens.
type UserView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

// SessionView is the client-facing session summary.
type SessionView struct {
	ID                  string `json:"id"`
	DeviceID            string `json:"device_id"`
	ExpiresAt           string `json:"expires_at"`
	QuickLoginExpiresAt string `json:"quick_login_expires_at,omitempty"`
}

// LoginResponse is the success body for login, quick login, and refresh.
type LoginResponse struct {
	Success bool      `json:"success"`
	Data    LoginData `json:"data"`
}

// LoginData groups the user, tokens, and session views.
type LoginData struct {
	User    UserView    `json:"user"`
	Tokens  TokenPair   `json:"tokens"`
	Session SessionView `json:"session"`
}

// Login handles POST /v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_payload", "invalid request body")
		return
	}
	res, err := h.svc.Login(r.Context(), req.Identifier, req.Password, req.DeviceID)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, loginResponse(res))
}

// QuickLoginRequest is the body for POST /v1/auth/quick-login.
type QuickLoginRequest struct {
	AccountID string `json:"account_id"`
	DeviceID  string `json:"device_id"`
}

// QuickLogin handles POST /v1/auth/quick-login.
func (h *Handler) QuickLogin(w http.ResponseWriter, r *http.Request) {
	var req QuickLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_payload", "invalid request body")
		return
	}
	res, err := h.svc.QuickLogin(r.Context(), req.AccountID, req.DeviceID)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, loginResponse(res))
}

// RefreshRequest is the body for POST /v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /v1/auth/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_payload", "invalid request body")
		return
	}
	res, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, loginResponse(res))
}

// Logout handles POST /v1/auth/logout. Requires bearer auth; the identity
// comes from the access token, not the body.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())
	sessionID := middleware.GetSessionID(r.Context())
	if accountID == "" || sessionID == "" {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}
	if err := h.svc.Logout(r.Context(), accountID, sessionID); err != nil {
		h.serviceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// SavedAccountView is one saved-accounts entry.
type SavedAccountView struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	HasQuickAccess bool   `json:"has_quick_access"`
	LastLoginAt    string `json:"last_login_at,omitempty"`
}

// SavedAccounts handles GET /v1/auth/saved-accounts?device_id=.
func (h *Handler) SavedAccounts(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_payload", "device_id is required")
		return
	}
	saved, err := h.svc.SavedAccounts(r.Context(), deviceID)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	out := make([]SavedAccountView, 0, len(saved))
	for _, sa := range saved {
		v := SavedAccountView{
			ID:             sa.AccountID,
			Username:       sa.Username,
			Email:          sa.Email,
			Name:           sa.Name,
			HasQuickAccess: sa.HasQuickAccess,
		}
		if sa.LastLoginAt != nil {
			v.LastLoginAt = sa.LastLoginAt.Format(time.RFC3339)
		}
		out = append(out, v)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"accounts": out,
	})
}

func loginResponse(res *service.LoginResult) LoginResponse {
	data := LoginData{
		User: UserView{
			ID:       res.Account.ID,
			Username: res.Account.Username,
			Email:    res.Account.Email,
			Name:     res.Account.Name,
		},
		Tokens: TokenPair{
			AccessToken:  res.AccessToken,
			RefreshToken: res.RefreshToken,
			ExpiresIn:    int64(time.Until(res.ExpiresAt).Seconds()),
		},
		Session: SessionView{
			ID:        res.Session.ID,
			DeviceID:  res.Session.DeviceID,
			ExpiresAt: res.Session.ExpiresAt.Format(time.RFC3339),
		},
	}
	if res.Session.QuickLoginExpiresAt != nil {
		data.Session.QuickLoginExpiresAt = res.Session.QuickLoginExpiresAt.Format(time.RFC3339)
	}
	return LoginResponse{Success: true, Data: data}
}

func (h *Handler) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		h.writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
	case errors.Is(err, service.ErrAccountDisabled):
		h.writeError(w, http.StatusForbidden, "account_disabled", "account is disabled")
	case errors.Is(err, service.ErrNotRegistered):
		h.writeError(w, http.StatusUnauthorized, "invalid_credentials", "registration is incomplete")
	case errors.Is(err, service.ErrQuickLoginUnavailable):
		h.writeError(w, http.StatusUnauthorized, "quick_login_unavailable", "quick login is not available for this device; full login required")
	case errors.Is(err, service.ErrReauthenticationRequired):
		h.writeError(w, http.StatusUnauthorized, "reauthentication_required", "re-authentication required; enter your password")
	case errors.Is(err, service.ErrInvalidRefreshToken):
		h.writeError(w, http.StatusUnauthorized, "invalid_refresh_token", "refresh token is invalid or expired")
	case errors.Is(err, service.ErrRefreshTokenReuse):
		h.writeError(w, http.StatusUnauthorized, "refresh_token_reuse", "refresh token reuse detected; all sessions revoked")
	case errors.Is(err, service.ErrSessionNotFound):
		h.writeError(w, http.StatusNotFound, "account_not_found", "no such session")
	default:
		log.Printf("session handler: %v", err)
		h.writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]any{
		"success": false,
		"code":    code,
		"message": message,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
