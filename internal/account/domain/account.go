package domain

import (
	"errors"
	"time"
)

// Account is the persistent identity record for one employee. Identity fields
// come from the employer-issued QR payload; registration progress and
// lifecycle flags are owned by this service.
type Account struct {
	ID         string
	ExternalID string // employer-assigned employee id, unique
	Username   string
	Email      string
	Name       string
	Phone      string

	EmailVerified    bool
	PasswordVerified bool
	IsRegistered     bool // true only once a password has been set

	IsActive    bool // administratively disabled when false
	IsLoggedOut bool // set by explicit logout, cleared by any successful login

	PasswordHash string // empty until set

	// Single-use email verification state. Code is stored hashed.
	VerificationCodeHash  string
	VerificationExpiresAt *time.Time

	LastLoginAt         *time.Time
	LastLogoutAt        *time.Time
	LastPasswordCheckAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// RegistrationState is the explicit state machine derived from the account's
// persisted flags. The booleans remain the storage contract; the enum exists
// so transitions are named rather than inferred from flag combinations.
type RegistrationState string

const (
	StateUnregistered        RegistrationState = "unregistered"
	StatePendingVerification RegistrationState = "pending_verification"
	StatePendingPassword     RegistrationState = "pending_password"
	StateActive              RegistrationState = "active"
	StateLoggedOut           RegistrationState = "logged_out"
)

// State derives the registration state from the persisted flags.
// Logout takes precedence: a logged-out account is re-registrable regardless
// of how far its previous registration progressed.
func (a *Account) State() RegistrationState {
	if a.IsLoggedOut {
		return StateLoggedOut
	}
	if a.IsRegistered {
		return StateActive
	}
	if !a.EmailVerified {
		return StatePendingVerification
	}
	return StatePendingPassword
}

// Validate validates the account for persistence and checks the monotonic
// progression invariant: isRegistered ⇒ passwordVerified ⇒ emailVerified.
func (a *Account) Validate() error {
	if a.ExternalID == "" {
		return errors.New("external id is required")
	}
	if a.Email == "" {
		return errors.New("email is required")
	}
	if a.Username == "" {
		return errors.New("username is required")
	}
	if a.PasswordVerified && !a.EmailVerified {
		return errors.New("password verified without email verified")
	}
	if a.IsRegistered && !a.PasswordVerified {
		return errors.New("registered without password verified")
	}
	return nil
}

// CodeValid reports whether the stored verification code hash is present and
// not expired at the given time.
func (a *Account) CodeValid(now time.Time) bool {
	if a.VerificationCodeHash == "" || a.VerificationExpiresAt == nil {
		return false
	}
	return a.VerificationExpiresAt.After(now)
}
