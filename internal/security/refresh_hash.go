package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashRefreshToken derives the hex-encoded SHA-256 digest stored on the
// session row as its current refresh-token binding. The raw token exists only
// in the client's hands; a leaked sessions table yields nothing replayable.
func HashRefreshToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// RefreshTokenHashEqual checks a presented refresh token against the
// session's stored binding in constant time. A mismatch on a live session is
// what rotation treats as token reuse.
func RefreshTokenHashEqual(providedToken, storedHash string) bool {
	providedHash := HashRefreshToken(providedToken)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
