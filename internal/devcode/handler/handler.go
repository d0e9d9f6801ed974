// Package handler serves verification codes back to the client in dev mode.
// Mounted only when CODE_RETURN_TO_CLIENT is set; never in production.
package handler

import (
	"encoding/json"
	"net/http"

	"mobile-workforce/backend/internal/devcode"
)

// Handler serves GET /v1/dev/verification-code.
type Handler struct {
	store devcode.Store
}

// NewHandler returns a dev code handler backed by store.
func NewHandler(store devcode.Store) *Handler {
	return &Handler{store: store}
}

// Get handles GET /v1/dev/verification-code?email=.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false, "code": "invalid_payload", "message": "email is required",
		})
		return
	}
	code, ok := h.store.Get(r.Context(), email)
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]any{
			"success": false, "code": "account_not_found", "message": "no pending code for that email",
		})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"email":             email,
		"verification_code": code,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
