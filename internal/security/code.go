package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

const codeDigits = 6

// GenerateVerificationCode returns a 6-digit numeric email verification code
// (e.g. "123456"). Uses crypto/rand for randomness.
func GenerateVerificationCode() (string, error) {
	b := make([]byte, codeDigits)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := make([]byte, codeDigits)
	for i := 0; i < codeDigits; i++ {
		s[i] = '0' + (b[i] % 10)
	}
	return string(s), nil
}

// HashVerificationCode returns a SHA-256 hash of the code string, hex-encoded.
// Codes are stored hashed; only the hash ever reaches the database.
func HashVerificationCode(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}

// VerificationCodeEqual performs constant-time comparison of the provided code's
// hash with the stored hash.
func VerificationCodeEqual(providedCode, storedHash string) bool {
	providedHash := HashVerificationCode(providedCode)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
