// Package server wires the HTTP surface: routes, middleware, and the
// listener lifecycle.
package server

import (
	"context"
	"net/http"
	"time"

	devcodehandler "mobile-workforce/backend/internal/devcode/handler"
	healthhandler "mobile-workforce/backend/internal/health/handler"
	recoveryhandler "mobile-workforce/backend/internal/recovery/handler"
	registrationhandler "mobile-workforce/backend/internal/registration/handler"
	"mobile-workforce/backend/internal/security"
	"mobile-workforce/backend/internal/server/middleware"
	sessionhandler "mobile-workforce/backend/internal/session/handler"
	"mobile-workforce/backend/internal/telemetry"
)

// Handlers groups everything the router mounts. DevCode may be nil; its
// endpoint is then not registered.
type Handlers struct {
	Registration *registrationhandler.Handler
	Session      *sessionhandler.Handler
	Recovery     *recoveryhandler.Handler
	Health       *healthhandler.Handler
	DevCode      *devcodehandler.Handler
}

// NewRouter mounts all routes with logging and auth middleware. emitter may
// be nil.
func NewRouter(h Handlers, tokens *security.TokenProvider, emitter telemetry.EventEmitter) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", h.Health.Check)

	mux.HandleFunc("POST /v1/registration/scan", h.Registration.Scan)
	mux.HandleFunc("POST /v1/registration/verify-email", h.Registration.VerifyEmail)
	mux.HandleFunc("POST /v1/registration/set-password", h.Registration.SetPassword)
	mux.HandleFunc("POST /v1/registration/resend-code", h.Registration.ResendCode)

	mux.HandleFunc("POST /v1/auth/login", h.Session.Login)
	mux.HandleFunc("POST /v1/auth/quick-login", h.Session.QuickLogin)
	mux.HandleFunc("POST /v1/auth/refresh", h.Session.Refresh)
	mux.HandleFunc("GET /v1/auth/saved-accounts", h.Session.SavedAccounts)

	requireAuth := middleware.RequireAuth(tokens)
	mux.Handle("POST /v1/auth/logout", requireAuth(http.HandlerFunc(h.Session.Logout)))

	mux.HandleFunc("POST /v1/recovery/advise", h.Recovery.Advise)

	if h.DevCode != nil {
		mux.HandleFunc("GET /v1/dev/verification-code", h.DevCode.Get)
	}

	return middleware.Logging(emitter)(mux)
}

// New returns an http.Server for the given address and handler with sane
// timeouts for a mobile-facing API.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Shutdown drains the server with a deadline.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
