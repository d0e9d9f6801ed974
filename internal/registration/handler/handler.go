// Package handler exposes the registration pipeline over HTTP: QR scan,
// email verification, password set, and code resend.
package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"mobile-workforce/backend/internal/registration/service"
)

// Handler serves /v1/registration endpoints.
type Handler struct {
	svc *service.Service
}

// NewHandler returns a registration handler backed by svc.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// ScanRequest is the body for POST /v1/registration/scan.
type ScanRequest struct {
	QRPayload string `json:"qr_payload"`
}

// ScanResponse reports the scan outcome and the client's next step.
type ScanResponse struct {
	Success          bool   `json:"success"`
	Outcome          string `json:"outcome"`
	NextStep         string `json:"next_step"`
	Email            string `json:"email"`
	SkipVerification bool   `json:"skip_verification,omitempty"`
	CodeExpiresAt    string `json:"code_expires_at,omitempty"`
}

// Scan handles POST /v1/registration/scan.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_payload", "invalid request body")
		return
	}
	res, err := h.svc.ScanQR(r.Context(), req.QRPayload)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	nextStep := "verify_email"
	if res.SkipVerification {
		nextStep = "set_password"
	}
	out := ScanResponse{
		Success:          true,
		Outcome:          string(res.Outcome),
		NextStep:         nextStep,
		Email:            res.Account.Email,
		SkipVerification: res.SkipVerification,
	}
	if !res.CodeExpiresAt.IsZero() {
		out.CodeExpiresAt = res.CodeExpiresAt.Format(time.RFC3339)
	}
	h.writeJSON(w, http.StatusOK, out)
}

// VerifyEmailRequest is the body for POST /v1/registration/verify-email.
type VerifyEmailRequest struct {
	Email            string `json:"email"`
	VerificationCode string `json:"verification_code"`
}

// VerifyEmail handles POST /v1/registration/verify-email.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_payload", "invalid request body")
		return
	}
	if err := h.svc.VerifyEmail(r.Context(), req.Email, req.VerificationCode); err != nil {
		h.serviceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"next_step": "set_password",
	})
}

// SetPasswordRequest is the body for POST /v1/registration/set-password.
type SetPasswordRequest struct {
	Email           string `json:"email"`
	MobilePassword  string `json:"mobile_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// SetPasswordResponse carries the completed account summary.
type SetPasswordResponse struct {
	Success bool           `json:"success"`
	Account AccountSummary `json:"account"`
}

// AccountSummary is the client-facing view of an account.
type AccountSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

// SetPassword handles POST /v1/registration/set-password.
func (h *Handler) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req SetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_payload", "invalid request body")
		return
	}
	acct, err := h.svc.SetPassword(r.Context(), req.Email, req.MobilePassword, req.ConfirmPassword)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, SetPasswordResponse{
		Success: true,
		Account: AccountSummary{
			ID:       acct.ID,
			Username: acct.Username,
			Email:    acct.Email,
			Name:     acct.Name,
		},
	})
}

// ResendCodeRequest is the body for POST /v1/registration/resend-code.
type ResendCodeRequest struct {
	Email string `json:"email"`
}

// ResendCode handles POST /v1/registration/resend-code.
func (h *Handler) ResendCode(w http.ResponseWriter, r *http.Request) {
	var req ResendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_payload", "invalid request body")
		return
	}
	if err := h.svc.ResendCode(r.Context(), req.Email); err != nil {
		h.serviceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidQRPayload):
		h.writeError(w, http.StatusBadRequest, "invalid_payload", "QR payload is malformed")
	case errors.Is(err, service.ErrAlreadyRegistered):
		h.writeError(w, http.StatusConflict, "already_registered", "account is already registered and logged in")
	case errors.Is(err, service.ErrAccountDisabled):
		h.writeError(w, http.StatusForbidden, "account_disabled", "account is disabled")
	case errors.Is(err, service.ErrAccountNotFound):
		h.writeError(w, http.StatusNotFound, "account_not_found", "no account for that email")
	case errors.Is(err, service.ErrInvalidVerificationCode):
		h.writeError(w, http.StatusBadRequest, "invalid_verification_code", "verification code is invalid or expired")
	case errors.Is(err, service.ErrPasswordMismatch):
		h.writeError(w, http.StatusBadRequest, "password_mismatch", "passwords do not match")
	case errors.Is(err, service.ErrWeakPassword):
		h.writeError(w, http.StatusBadRequest, "weak_password", "password must be at least 6 characters")
	case errors.Is(err, service.ErrNotEmailVerified):
		h.writeError(w, http.StatusBadRequest, "not_email_verified", "email address has not been verified")
	default:
		log.Printf("registration handler: %v", err)
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
