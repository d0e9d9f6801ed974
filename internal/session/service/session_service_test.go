package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	accountdomain "mobile-workforce/backend/internal/account/domain"
	accountrepo "mobile-workforce/backend/internal/account/repository"
	"mobile-workforce/backend/internal/security"
	sessiondomain "mobile-workforce/backend/internal/session/domain"
)

type memAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*accountdomain.Account
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: make(map[string]*accountdomain.Account)}
}

func (r *memAccountRepo) add(a *accountdomain.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.accounts[a.ID] = &cp
}

func (r *memAccountRepo) GetByID(ctx context.Context, id string) (*accountdomain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (r *memAccountRepo) findBy(match func(*accountdomain.Account) bool) *accountdomain.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if match(a) {
			cp := *a
			return &cp
		}
	}
	return nil
}

func (r *memAccountRepo) GetByExternalID(ctx context.Context, externalID string) (*accountdomain.Account, error) {
	return r.findBy(func(a *accountdomain.Account) bool { return a.ExternalID == externalID }), nil
}

func (r *memAccountRepo) GetByEmail(ctx context.Context, email string) (*accountdomain.Account, error) {
	return r.findBy(func(a *accountdomain.Account) bool { return a.Email == email }), nil
}

func (r *memAccountRepo) GetByUsername(ctx context.Context, username string) (*accountdomain.Account, error) {
	return r.findBy(func(a *accountdomain.Account) bool { return a.Username == username }), nil
}

func (r *memAccountRepo) Create(ctx context.Context, a *accountdomain.Account) error {
	r.add(a)
	return nil
}

func (r *memAccountRepo) update(id string, fn func(*accountdomain.Account)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return errors.New("account not found")
	}
	fn(a)
	return nil
}

func (r *memAccountRepo) SetVerificationCode(ctx context.Context, id, codeHash string, expiresAt time.Time) error {
	return r.update(id, func(a *accountdomain.Account) {
		a.VerificationCodeHash = codeHash
		a.VerificationExpiresAt = &expiresAt
	})
}

func (r *memAccountRepo) MarkEmailVerified(ctx context.Context, id string) error {
	return r.update(id, func(a *accountdomain.Account) { a.EmailVerified = true })
}

func (r *memAccountRepo) SetPassword(ctx context.Context, id, passwordHash string) error {
	return r.update(id, func(a *accountdomain.Account) {
		a.PasswordHash = passwordHash
		a.PasswordVerified = true
		a.IsRegistered = true
		a.IsLoggedOut = false
	})
}

func (r *memAccountRepo) ResetRegistration(ctx context.Context, id, codeHash string, expiresAt time.Time) error {
	return r.update(id, func(a *accountdomain.Account) {
		a.EmailVerified = false
		a.PasswordVerified = false
		a.IsRegistered = false
	})
}

func (r *memAccountRepo) RecordLogin(ctx context.Context, id string, at time.Time) error {
	return r.update(id, func(a *accountdomain.Account) {
		a.IsLoggedOut = false
		a.LastLoginAt = &at
	})
}

func (r *memAccountRepo) RecordLogout(ctx context.Context, id string, at time.Time) error {
	return r.update(id, func(a *accountdomain.Account) {
		a.IsLoggedOut = true
		a.LastLogoutAt = &at
	})
}

func (r *memAccountRepo) ClearLoggedOut(ctx context.Context, id string) error {
	return r.update(id, func(a *accountdomain.Account) { a.IsLoggedOut = false })
}

func (r *memAccountRepo) RecordPasswordCheck(ctx context.Context, id string, at time.Time) error {
	return r.update(id, func(a *accountdomain.Account) { a.LastPasswordCheckAt = &at })
}

func (r *memAccountRepo) InTx(ctx context.Context, fn func(accountrepo.Repository) error) error {
	return fn(r)
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*sessiondomain.Session
	order    []string // creation order
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*sessiondomain.Session)}
}

func (r *memSessionRepo) GetByID(ctx context.Context, id string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (r *memSessionRepo) GetLatestByAccountAndDevice(ctx context.Context, accountID, deviceID string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.order) - 1; i >= 0; i-- {
		s := r.sessions[r.order[i]]
		if s.AccountID == accountID && s.DeviceID == deviceID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memSessionRepo) ListLatestByDevice(ctx context.Context, deviceID string) ([]*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var out []*sessiondomain.Session
	for i := len(r.order) - 1; i >= 0; i-- {
		s := r.sessions[r.order[i]]
		if s.DeviceID != deviceID || seen[s.AccountID] {
			continue
		}
		seen[s.AccountID] = true
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memSessionRepo) Create(ctx context.Context, s *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.ID] = &cp
	r.order = append(r.order, s.ID)
	return nil
}

func (r *memSessionRepo) update(id string, fn func(*sessiondomain.Session)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return errors.New("session not found")
	}
	fn(s)
	return nil
}

func (r *memSessionRepo) Revoke(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return r.update(id, func(s *sessiondomain.Session) { s.RevokedAt = &now })
}

func (r *memSessionRepo) RevokeAllByAccount(ctx context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for _, s := range r.sessions {
		if s.AccountID == accountID && s.RevokedAt == nil {
			t := now
			s.RevokedAt = &t
		}
	}
	return nil
}

func (r *memSessionRepo) Renew(ctx context.Context, id string, expiresAt, at time.Time) error {
	return r.update(id, func(s *sessiondomain.Session) {
		s.ExpiresAt = expiresAt
		s.LastActivityAt = &at
	})
}

func (r *memSessionRepo) UpdateActivity(ctx context.Context, id string, at time.Time) error {
	return r.update(id, func(s *sessiondomain.Session) { s.LastActivityAt = &at })
}

func (r *memSessionRepo) UpdateRefreshToken(ctx context.Context, id, jti, refreshTokenHash string, expiresAt time.Time) error {
	return r.update(id, func(s *sessiondomain.Session) {
		s.RefreshJti = jti
		s.RefreshTokenHash = refreshTokenHash
		s.RefreshExpiresAt = &expiresAt
	})
}

const testPassword = "P@ss1!"

func seedAccount(t *testing.T, accounts *memAccountRepo, id, username, email string) *accountdomain.Account {
	t.Helper()
	hasher := security.NewHasher(bcrypt.MinCost)
	hash, err := hasher.Hash([]byte(testPassword))
	if err != nil {
		t.Fatal(err)
	}
	a := &accountdomain.Account{
		ID:               id,
		ExternalID:       "X" + id,
		Username:         username,
		Email:            email,
		Name:             username,
		EmailVerified:    true,
		PasswordVerified: true,
		IsRegistered:     true,
		IsActive:         true,
		PasswordHash:     hash,
		CreatedAt:        time.Now().UTC(),
	}
	accounts.add(a)
	return a
}

func newTestService(t *testing.T) (*Service, *memAccountRepo, *memSessionRepo) {
	t.Helper()
	accounts := newMemAccountRepo()
	sessions := newMemSessionRepo()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(
		accounts, sessions,
		security.NewHasher(bcrypt.MinCost),
		tokens,
		nil,
		720*time.Hour, 24*time.Hour,
	)
	return svc, accounts, sessions
}

func TestLoginWithEmailAndUsername(t *testing.T) {
	svc, accounts, _ := newTestService(t)
	seedAccount(t, accounts, "a1", "jdoe", "jdoe@example.com")
	ctx := context.Background()

	byEmail, err := svc.Login(ctx, "jdoe@example.com", testPassword, "dev-1")
	if err != nil {
		t.Fatalf("login by email: %v", err)
	}
	if byEmail.AccessToken == "" || byEmail.RefreshToken == "" {
		t.Fatal("expected a token pair")
	}
	if !byEmail.Session.QuickLoginEnabled {
		t.Fatal("full login should enable quick login")
	}

	byUsername, err := svc.Login(ctx, "jdoe", testPassword, "dev-1")
	if err != nil {
		t.Fatalf("login by username: %v", err)
	}
	if byUsername.Account.ID != "a1" {
		t.Fatalf("account = %q, want a1", byUsername.Account.ID)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, accounts, _ := newTestService(t)
	seedAccount(t, accounts, "a1", "jdoe", "jdoe@example.com")

	if _, err := svc.Login(context.Background(), "jdoe@example.com", "wrong", "dev-1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginUnknownIdentifier(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.Login(context.Background(), "nobody@example.com", testPassword, "dev-1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginIncompleteRegistration(t *testing.T) {
	svc, accounts, _ := newTestService(t)
	a := seedAccount(t, accounts, "a1", "jdoe", "jdoe@example.com")
	if err := accounts.update(a.ID, func(x *accountdomain.Account) { x.IsRegistered = false }); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Login(context.Background(), "jdoe@example.com", testPassword, "dev-1"); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("err = %v, want ErrNotRegistered", err)
	}
}

func TestLoginSupersedesPreviousSession(t *testing.T) {
	svc, accounts, sessions := newTestService(t)
	seedAccount(t, accounts, "a1", "jdoe", "jdoe@example.com")
	ctx := context.Background()

	first, err := svc.Login(ctx, "jdoe", testPassword, "dev-1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Login(ctx, "jdoe", testPassword, "dev-1"); err != nil {
		t.Fatal(err)
	}
	old, err := sessions.GetByID(ctx, first.Session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if old.Active() {
		t.Fatal("previous session on the same device should be revoked")
	}
}

func TestQuickLoginHappyPath(t *testing.T) {
	svc, accounts, _ := newTestService(t)
	seedAccount(t, accounts, "a1", "jdoe", "jdoe@example.com")
	ctx := context.Background()

	full, err := svc.Login(ctx, "jdoe", testPassword, "dev-1")
	if err != nil {
		t.Fatal(err)
	}
	quick, err := svc.QuickLogin(ctx, "a1", "dev-1")
	if err != nil {
		t.Fatalf("QuickLogin: %v", err)
	}
	if quick.Session.ID != full.Session.ID {
		t.Fatal("quick login should renew the existing session, not open a new one")
	}
	if quick.AccessToken == "" || quick.RefreshToken == "" {
		t.Fatal("expected a fresh token pair")
	}
}

func TestQuickLoginActivityBoundary(t *testing.T) {
	base := time.Now().UTC()
	cases := []struct {
		name    string
		idle    time.Duration
		wantErr error
	}{
		{"idle 23h", 23 * time.Hour, nil},
		{"idle exactly 24h", 24 * time.Hour, nil},
		{"idle 24h1s", 24*time.Hour + time.Second, ErrReauthenticationRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, accounts, _ := newTestService(t)
			seedAccount(t, accounts, "a1", "jdoe", "jdoe@example.com")
			ctx := context.Background()

			svc.now = func() time.Time { return base }
			if _, err := svc.Login(ctx, "jdoe", testPassword, "dev-1"); err != nil {
				t.Fatal(err)
			}

			svc.now = func() time.Time { return base.Add(tc.idle) }
			_, err := svc.QuickLogin(ctx, "a1", "dev-1")
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestQuickLoginClosedAfterLogout(t *testing.T) {
	svc, accounts, _ := newTestService(t)
	seedAccount(t, accounts, "a1", "jdoe", "jdoe@example.com")
	ctx := context.Background()

	res, err := svc.Login(ctx, "jdoe", testPassword, "dev-1")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Logout(ctx, "a1", res.Session.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.QuickLogin(ctx, "a1", "dev-1"); !errors.Is(err, ErrQuickLoginUnavailable) {
		t.Fatalf("err = %v, want ErrQuickLoginUnavailable", err)
	}
}

func TestQuickLoginWindowExpired(t *testing.T) {
	base := time.Now().UTC()
	svc, accounts, sessions := newTestService(t)
	seedAccount(t, accounts, "a1", "jdoe", "jdoe@example.com")
	ctx := context.Background()

	svc.now = func() time.Time { return base }
	res, err := svc.Login(ctx, "jdoe", testPassword, "dev-1")
	if err != nil {
		t.Fatal(err)
	}
	// Keep activity fresh but push past the 30-day window. The identity is
	// intact, so the caller is sent back to password entry, not to the QR flow.
	later := base.Add(721 * time.Hour)
	if err := sessions.UpdateActivity(ctx, res.Session.ID, later.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	svc.now = func() time.Time { return later }
	if _, err := svc.QuickLogin(ctx, "a1", "dev-1"); !errors.Is(err, ErrReauthenticationRequired) {
		t.Fatalf("err = %v, want ErrReauthenticationRequired", err)
	}
}

func TestQuickLoginDoesNotStampLastLogin(t *testing.T) {
	base := time.Now().UTC()
	svc, accounts, _ := newTestService(t)
	seedAccount(t, accounts, "a1", "jdoe", "jdoe@example.com")
	ctx := context.Background()

	svc.now = func() time.Time { return base }
	if _, err := svc.Login(ctx, "jdoe", testPassword, "dev-1"); err != nil {
		t.Fatal(err)
	}
	svc.now = func() time.Time { return base.Add(time.Hour) }
	if _, err := svc.QuickLogin(ctx, "a1", "dev-1"); err != nil {
		t.Fatalf("QuickLogin: %v", err)
	}

	acct, err := accounts.GetByID(ctx, "a1")
	if err != nil {
		t.Fatal(err)
	}
	if acct.LastLoginAt == nil || !acct.LastLoginAt.Equal(base) {
		t.Fatalf("last login = %v, want the full-login time %v", acct.LastLoginAt, base)
	}
	if acct.IsLoggedOut {
		t.Fatal("quick login must keep the account logged in")
	}
}

func TestQuickLoginUnknownPairing(t *testing.T) {
	svc, accounts, _ := newTestService(t)
	seedAccount(t, accounts, "a1", "jdoe", "jdoe@example.com")

	if _, err := svc.QuickLogin(context.Background(), "a1", "never-seen"); !errors.Is(err, ErrQuickLoginUnavailable) {
		t.Fatalf("err = %v, want ErrQuickLoginUnavailable", err)
	}
}

func TestRefreshRotation(t *testing.T) {
	svc, accounts, _ := newTestService(t)
	seedAccount(t, accounts, "a1", "jdoe", "jdoe@example.com")
	ctx := context.Background()

	res, err := svc.Login(ctx, "jdoe", testPassword, "dev-1")
	if err != nil {
		t.Fatal(err)
	}
	rotated, err := svc.Refresh(ctx, res.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rotated.RefreshToken == res.RefreshToken {
		t.Fatal("refresh must rotate the token")
	}
	if rotated.Session.ID != res.Session.ID {
		t.Fatal("rotation should keep the session")
	}

	// The rotated-out token is dead; presenting it nukes the account's sessions.
	if _, err := svc.Refresh(ctx, res.RefreshToken); !errors.Is(err, ErrRefreshTokenReuse) {
		t.Fatalf("err = %v, want ErrRefreshTokenReuse", err)
	}
	if _, err := svc.Refresh(ctx, rotated.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("after reuse detection current token should fail too, got %v", err)
	}
}

func TestRefreshGarbageToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.Refresh(context.Background(), "not.a.jwt"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("err = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestLogoutWrongAccount(t *testing.T) {
	svc, accounts, _ := newTestService(t)
	seedAccount(t, accounts, "a1", "jdoe", "jdoe@example.com")
	ctx := context.Background()

	res, err := svc.Login(ctx, "jdoe", testPassword, "dev-1")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Logout(ctx, "someone-else", res.Session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestSavedAccounts(t *testing.T) {
	svc, accounts, _ := newTestService(t)
	seedAccount(t, accounts, "a1", "jdoe", "jdoe@example.com")
	seedAccount(t, accounts, "a2", "asmith", "asmith@example.com")
	ctx := context.Background()

	if _, err := svc.Login(ctx, "jdoe", testPassword, "dev-1"); err != nil {
		t.Fatal(err)
	}
	second, err := svc.Login(ctx, "asmith", testPassword, "dev-1")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Logout(ctx, "a2", second.Session.ID); err != nil {
		t.Fatal(err)
	}

	saved, err := svc.SavedAccounts(ctx, "dev-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 2 {
		t.Fatalf("len = %d, want 2", len(saved))
	}
	if saved[0].AccountID != "a2" || saved[1].AccountID != "a1" {
		t.Fatalf("order = [%s %s], want newest login first", saved[0].AccountID, saved[1].AccountID)
	}
	byID := make(map[string]SavedAccount)
	for _, sa := range saved {
		byID[sa.AccountID] = sa
	}
	if !byID["a1"].HasQuickAccess {
		t.Fatal("a1 should have quick access")
	}
	if byID["a2"].HasQuickAccess {
		t.Fatal("a2 logged out; quick access should be closed")
	}

	empty, err := svc.SavedAccounts(ctx, "dev-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Fatalf("unknown device: len = %d, want 0", len(empty))
	}
}
