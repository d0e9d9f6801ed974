package domain

import "time"

// Session is the server-side record of one authenticated (account, device)
// pairing. It bounds two independent lifetimes: the access-token expiry and a
// longer quick-login eligibility window that lets the device skip password
// entry.
type Session struct {
	ID        string
	AccountID string
	DeviceID  string

	ExpiresAt time.Time  // access-token lifetime
	RevokedAt *time.Time // nil while the session is active

	QuickLoginEnabled   bool
	QuickLoginExpiresAt *time.Time // 30 days from last full login
	LastActivityAt      *time.Time

	// Current refresh token binding for rotation. The raw token is never
	// stored; reuse of a rotated-out jti is treated as theft.
	RefreshJti       string
	RefreshTokenHash string
	RefreshExpiresAt *time.Time

	CreatedAt time.Time
}

// Active reports whether the session has not been revoked.
func (s *Session) Active() bool {
	return s.RevokedAt == nil
}

// Expired reports whether the access lifetime has passed at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// QuickLoginOffered reports whether the session can serve quick login at all:
// it is live and the capability was granted at full login. Time-based expiry is
// deliberately not part of this check; a stale-but-offered session asks for
// credentials again, not for re-registration.
func (s *Session) QuickLoginOffered() bool {
	return s.Active() && s.QuickLoginEnabled
}

// QuickLoginOpen reports whether the 30-day quick-login window is still open.
// A revoked session is never quick-login-eligible.
func (s *Session) QuickLoginOpen(now time.Time) bool {
	if !s.QuickLoginOffered() {
		return false
	}
	return s.QuickLoginExpiresAt != nil && s.QuickLoginExpiresAt.After(now)
}

// QuickLoginEligible layers the short activity staleness check on top of the
// quick-login window: the device must have been seen within activityWindow.
// The boundary is exclusive; activity exactly activityWindow ago still passes.
func (s *Session) QuickLoginEligible(now time.Time, activityWindow time.Duration) bool {
	if !s.QuickLoginOpen(now) {
		return false
	}
	last := s.CreatedAt
	if s.LastActivityAt != nil {
		last = *s.LastActivityAt
	}
	return now.Sub(last) <= activityWindow
}
