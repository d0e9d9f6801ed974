// Package middleware contains HTTP middleware for the auth server: bearer
// token validation, identity propagation, and request logging.
package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type contextKey string

const (
	accountIDKey contextKey = "account_id"
	sessionIDKey contextKey = "session_id"
	deviceIDKey  contextKey = "device_id"
	clientIPKey  contextKey = "client_ip"
)

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, accountID, sessionID, deviceID string) context.Context {
	ctx = context.WithValue(ctx, accountIDKey, accountID)
	ctx = context.WithValue(ctx, sessionIDKey, sessionID)
	return context.WithValue(ctx, deviceIDKey, deviceID)
}

// GetAccountID returns the authenticated account id, or "" when unauthenticated.
func GetAccountID(ctx context.Context) string {
	s, _ := ctx.Value(accountIDKey).(string)
	return s
}

// GetSessionID returns the authenticated session id, or "".
func GetSessionID(ctx context.Context) string {
	s, _ := ctx.Value(sessionIDKey).(string)
	return s
}

// GetDeviceID returns the device id bound to the access token, or "".
func GetDeviceID(ctx context.Context) string {
	s, _ := ctx.Value(deviceIDKey).(string)
	return s
}

// WithClientIP stores the request's client IP on the context.
func WithClientIP(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, clientIPKey, clientIP(r))
}

// GetClientIP returns the request's client IP, or "".
func GetClientIP(ctx context.Context) string {
	s, _ := ctx.Value(clientIPKey).(string)
	return s
}

func clientIP(r *http.Request) string {
	// First hop in X-Forwarded-For wins when a proxy is in front.
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
