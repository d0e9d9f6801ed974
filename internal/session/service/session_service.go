package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	accountdomain "mobile-workforce/backend/internal/account/domain"
	accountrepo "mobile-workforce/backend/internal/account/repository"
	"mobile-workforce/backend/internal/audit"
	"mobile-workforce/backend/internal/security"
	sessiondomain "mobile-workforce/backend/internal/session/domain"
	sessionrepo "mobile-workforce/backend/internal/session/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrNotRegistered      = errors.New("account registration is incomplete")
	// ErrQuickLoginUnavailable: no live session carries the quick-login
	// capability for the pairing; the client must offer full login.
	ErrQuickLoginUnavailable = errors.New("quick login unavailable")
	// ErrReauthenticationRequired: the capability exists but the 30-day window
	// closed or the device sat idle past the activity limit; a password is
	// required again. The identity itself is intact.
	ErrReauthenticationRequired = errors.New("reauthentication required")
	ErrInvalidRefreshToken      = errors.New("invalid refresh token")
	// ErrRefreshTokenReuse: a rotated-out refresh token was presented. All of
	// the account's sessions are revoked before this is returned.
	ErrRefreshTokenReuse = errors.New("refresh token reuse detected")
	ErrSessionNotFound   = errors.New("session not found")
)

// LoginResult carries everything a successful authentication returns.
type LoginResult struct {
	Account      *accountdomain.Account
	Session      *sessiondomain.Session
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// SavedAccount is one entry in a device's account picker.
type SavedAccount struct {
	AccountID      string
	Username       string
	Email          string
	Name           string
	HasQuickAccess bool
	LastLoginAt    *time.Time
}

// Service implements authentication and session lifecycle: full login, quick
// login, refresh rotation, logout, and the per-device saved-accounts listing.
type Service struct {
	accounts accountrepo.Repository
	sessions sessionrepo.Repository
	hasher   *security.Hasher
	tokens   *security.TokenProvider
	auditor  audit.AuditLogger

	quickLoginTTL  time.Duration
	activityWindow time.Duration
	now            func() time.Time
}

// NewService returns a session service. auditor may be nil. quickLoginTTL of 0
// defaults to 30 days; activityWindow of 0 defaults to 24 hours.
func NewService(accounts accountrepo.Repository, sessions sessionrepo.Repository, hasher *security.Hasher, tokens *security.TokenProvider, auditor audit.AuditLogger, quickLoginTTL, activityWindow time.Duration) *Service {
	if quickLoginTTL <= 0 {
		quickLoginTTL = 720 * time.Hour
	}
	if activityWindow <= 0 {
		activityWindow = 24 * time.Hour
	}
	return &Service{
		accounts:       accounts,
		sessions:       sessions,
		hasher:         hasher,
		tokens:         tokens,
		auditor:        auditor,
		quickLoginTTL:  quickLoginTTL,
		activityWindow: activityWindow,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Login authenticates with an identifier (email when it contains "@",
// username otherwise) and password, creates a fresh session with quick login
// enabled, and issues a token pair. Credential failures are indistinguishable
// from unknown identifiers.
func (s *Service) Login(ctx context.Context, identifier, password, deviceID string) (*LoginResult, error) {
	acct, err := s.lookupByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		s.audit(ctx, "", "login_failed", identifier)
		return nil, ErrInvalidCredentials
	}
	if !acct.IsActive {
		return nil, ErrAccountDisabled
	}
	if !acct.IsRegistered {
		return nil, ErrNotRegistered
	}
	if err := s.hasher.Compare(acct.PasswordHash, []byte(password)); err != nil {
		s.audit(ctx, acct.ID, "login_failed", identifier)
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.accounts.RecordPasswordCheck(ctx, acct.ID, now); err != nil {
		return nil, err
	}

	// A new full login supersedes the device's previous session for this
	// account, so only one row per pairing can be live.
	prev, err := s.sessions.GetLatestByAccountAndDevice(ctx, acct.ID, deviceID)
	if err != nil {
		return nil, err
	}
	if prev != nil && prev.Active() {
		if err := s.sessions.Revoke(ctx, prev.ID); err != nil {
			return nil, err
		}
	}

	res, err := s.openSession(ctx, acct, deviceID, now)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.RecordLogin(ctx, acct.ID, now); err != nil {
		return nil, err
	}
	acct.IsLoggedOut = false
	acct.LastLoginAt = &now
	s.audit(ctx, acct.ID, "login", deviceID)
	return res, nil
}

// QuickLogin re-authenticates a saved account on its device without a
// password. Requires an open quick-login window; requires activity within the
// configured window, otherwise the caller must fall back to full login.
func (s *Service) QuickLogin(ctx context.Context, accountID, deviceID string) (*LoginResult, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct == nil || !acct.IsActive {
		return nil, ErrQuickLoginUnavailable
	}
	if acct.IsLoggedOut || !acct.IsRegistered {
		// Explicit logout closes the quick path until the next full login.
		return nil, ErrQuickLoginUnavailable
	}

	sess, err := s.sessions.GetLatestByAccountAndDevice(ctx, accountID, deviceID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if sess == nil || !sess.QuickLoginOffered() {
		return nil, ErrQuickLoginUnavailable
	}
	// Both expiries demand credentials, never re-registration: the window
	// closing and the device going idle leave the identity intact.
	if !sess.QuickLoginEligible(now, s.activityWindow) {
		return nil, ErrReauthenticationRequired
	}

	// Same session row keeps its quick-login window; only the access lifetime
	// and tokens renew.
	accessToken, _, expiresAt, err := s.tokens.IssueAccess(sess.ID, acct.ID, deviceID)
	if err != nil {
		return nil, err
	}
	refreshToken, refreshJti, refreshExpiresAt, err := s.tokens.IssueRefresh(sess.ID, acct.ID, deviceID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Renew(ctx, sess.ID, expiresAt, now); err != nil {
		return nil, err
	}
	if err := s.sessions.UpdateRefreshToken(ctx, sess.ID, refreshJti, security.HashRefreshToken(refreshToken), refreshExpiresAt); err != nil {
		return nil, err
	}
	// Quick login refreshes activity and keeps the account logged in, but it
	// is not a full login: last_login_at stays untouched.
	if err := s.accounts.ClearLoggedOut(ctx, acct.ID); err != nil {
		return nil, err
	}
	sess.ExpiresAt = expiresAt
	sess.LastActivityAt = &now
	sess.RefreshJti = refreshJti
	sess.RefreshTokenHash = security.HashRefreshToken(refreshToken)
	sess.RefreshExpiresAt = &refreshExpiresAt
	s.audit(ctx, acct.ID, "quick_login", deviceID)
	return &LoginResult{
		Account:      acct,
		Session:      sess,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

// Refresh rotates a refresh token: the presented token must be the session's
// current one. Presenting a rotated-out token revokes every session the
// account holds, on the assumption the token leaked.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	sessionID, jti, accountID, deviceID, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || !sess.Active() {
		return nil, ErrInvalidRefreshToken
	}
	if sess.RefreshJti != jti || !security.RefreshTokenHashEqual(refreshToken, sess.RefreshTokenHash) {
		if err := s.sessions.RevokeAllByAccount(ctx, accountID); err != nil {
			return nil, err
		}
		s.audit(ctx, accountID, "refresh_reuse", deviceID)
		return nil, ErrRefreshTokenReuse
	}
	now := s.now()
	if sess.RefreshExpiresAt != nil && !sess.RefreshExpiresAt.After(now) {
		return nil, ErrInvalidRefreshToken
	}

	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct == nil || !acct.IsActive || acct.IsLoggedOut {
		return nil, ErrInvalidRefreshToken
	}

	accessToken, _, expiresAt, err := s.tokens.IssueAccess(sess.ID, accountID, deviceID)
	if err != nil {
		return nil, err
	}
	newRefresh, newJti, refreshExpiresAt, err := s.tokens.IssueRefresh(sess.ID, accountID, deviceID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Renew(ctx, sess.ID, expiresAt, now); err != nil {
		return nil, err
	}
	if err := s.sessions.UpdateRefreshToken(ctx, sess.ID, newJti, security.HashRefreshToken(newRefresh), refreshExpiresAt); err != nil {
		return nil, err
	}
	sess.ExpiresAt = expiresAt
	sess.LastActivityAt = &now
	sess.RefreshJti = newJti
	sess.RefreshTokenHash = security.HashRefreshToken(newRefresh)
	sess.RefreshExpiresAt = &refreshExpiresAt
	return &LoginResult{
		Account:      acct,
		Session:      sess,
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		ExpiresAt:    expiresAt,
	}, nil
}

// Logout revokes the session and marks the account logged out, which closes
// the quick-login path and reopens QR registration for the identity.
func (s *Service) Logout(ctx context.Context, accountID, sessionID string) error {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil || sess.AccountID != accountID {
		return ErrSessionNotFound
	}
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return err
	}
	if err := s.accounts.RecordLogout(ctx, accountID, s.now()); err != nil {
		return err
	}
	s.audit(ctx, accountID, "logout", sess.DeviceID)
	return nil
}

// TouchActivity stamps the session's last-seen time. Called per authenticated
// request to keep the quick-login activity window open.
func (s *Service) TouchActivity(ctx context.Context, sessionID string) error {
	return s.sessions.UpdateActivity(ctx, sessionID, s.now())
}

// SavedAccounts lists the accounts previously used on the device, newest
// first, each flagged with whether quick login is currently offered.
func (s *Service) SavedAccounts(ctx context.Context, deviceID string) ([]SavedAccount, error) {
	sessions, err := s.sessions.ListLatestByDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]SavedAccount, 0, len(sessions))
	for _, sess := range sessions {
		acct, err := s.accounts.GetByID(ctx, sess.AccountID)
		if err != nil {
			return nil, err
		}
		if acct == nil || !acct.IsActive {
			continue
		}
		out = append(out, SavedAccount{
			AccountID:      acct.ID,
			Username:       acct.Username,
			Email:          acct.Email,
			Name:           acct.Name,
			HasQuickAccess: sess.QuickLoginOpen(now) && !acct.IsLoggedOut,
			LastLoginAt:    acct.LastLoginAt,
		})
	}
	return out, nil
}

func (s *Service) openSession(ctx context.Context, acct *accountdomain.Account, deviceID string, now time.Time) (*LoginResult, error) {
	sessionID := uuid.New().String()
	accessToken, _, expiresAt, err := s.tokens.IssueAccess(sessionID, acct.ID, deviceID)
	if err != nil {
		return nil, err
	}
	refreshToken, refreshJti, refreshExpiresAt, err := s.tokens.IssueRefresh(sessionID, acct.ID, deviceID)
	if err != nil {
		return nil, err
	}
	quickExpiry := now.Add(s.quickLoginTTL)
	sess := &sessiondomain.Session{
		ID:                  sessionID,
		AccountID:           acct.ID,
		DeviceID:            deviceID,
		ExpiresAt:           expiresAt,
		QuickLoginEnabled:   true,
		QuickLoginExpiresAt: &quickExpiry,
		LastActivityAt:      &now,
		RefreshJti:          refreshJti,
		RefreshTokenHash:    security.HashRefreshToken(refreshToken),
		RefreshExpiresAt:    &refreshExpiresAt,
		CreatedAt:           now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	return &LoginResult{
		Account:      acct,
		Session:      sess,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) lookupByIdentifier(ctx context.Context, identifier string) (*accountdomain.Account, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return s.accounts.GetByEmail(ctx, strings.ToLower(identifier))
	}
	return s.accounts.GetByUsername(ctx, identifier)
}

func (s *Service) audit(ctx context.Context, accountID, action, metadata string) {
	if s.auditor != nil {
		s.auditor.LogEvent(ctx, accountID, action, "session", metadata)
	}
}
