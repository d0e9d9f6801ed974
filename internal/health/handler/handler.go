// Package handler serves the liveness/readiness endpoint.
package handler

import (
	"encoding/json"
	"net/http"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping() error
}

// Handler serves GET /v1/health. db may be nil when the service runs without
// a database (tests, dry runs).
type Handler struct {
	db Pinger
}

// NewHandler returns a health handler that pings db on each check.
func NewHandler(db Pinger) *Handler {
	return &Handler{db: db}
}

// Check handles GET /v1/health.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{"status": "ok"}
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "database": "unreachable"}
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
