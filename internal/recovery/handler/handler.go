// Package handler exposes the recovery advisor over HTTP.
package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"mobile-workforce/backend/internal/recovery"
)

// Handler serves POST /v1/recovery/advise.
type Handler struct {
	advisor *recovery.Advisor
}

// NewHandler returns a recovery handler backed by advisor.
func NewHandler(advisor *recovery.Advisor) *Handler {
	return &Handler{advisor: advisor}
}

// AdviseRequest is the body for POST /v1/recovery/advise. DeviceID is
// accepted for client symmetry with quick login but the advice depends only
// on account state.
type AdviseRequest struct {
	AccountID string `json:"account_id"`
	DeviceID  string `json:"device_id"`
}

// AdviseResponse tells the client which flow gets it back in.
type AdviseResponse struct {
	Success bool   `json:"success"`
	Action  string `json:"action"`
	Reason  string `json:"reason"`
}

// Advise handles POST /v1/recovery/advise.
func (h *Handler) Advise(w http.ResponseWriter, r *http.Request) {
	var req AdviseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false, "code": "invalid_payload", "message": "invalid request body",
		})
		return
	}
	advice, err := h.advisor.Advise(r.Context(), req.AccountID)
	if err != nil {
		log.Printf("recovery handler: %v", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false, "code": "internal", "message": "internal error",
		})
		return
	}
	h.writeJSON(w, http.StatusOK, AdviseResponse{
		Success: true,
		Action:  string(advice.Action),
		Reason:  advice.Reason,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
