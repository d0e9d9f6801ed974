package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"mobile-workforce/backend/internal/security"
)

// RequireAuth validates the bearer access token and puts the identity on the
// request context. Missing or invalid tokens get a 401 with the standard
// error envelope.
func RequireAuth(tokens *security.TokenProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				unauthorized(w, "missing bearer token")
				return
			}
			sessionID, accountID, deviceID, err := tokens.ValidateAccess(raw)
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}
			ctx := WithIdentity(r.Context(), accountID, sessionID, deviceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"code":    "unauthorized",
		"message": message,
	})
}
