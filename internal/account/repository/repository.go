package repository

import (
	"context"
	"time"

	"mobile-workforce/backend/internal/account/domain"
)

// Repository defines persistence for accounts. Lookup methods return
// (nil, nil) when no row matches; errors are database failures only.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error

	// SetVerificationCode stores a fresh single-use code hash and expiry.
	SetVerificationCode(ctx context.Context, id, codeHash string, expiresAt time.Time) error
	// MarkEmailVerified sets email_verified and clears the stored code.
	MarkEmailVerified(ctx context.Context, id string) error
	// SetPassword stores the hash and promotes the account to registered,
	// clearing the logged-out flag.
	SetPassword(ctx context.Context, id, passwordHash string) error
	// ResetRegistration reopens the registration pipeline after logout:
	// clears verification progress and stores a fresh code hash and expiry.
	ResetRegistration(ctx context.Context, id, codeHash string, expiresAt time.Time) error

	RecordLogin(ctx context.Context, id string, at time.Time) error
	RecordLogout(ctx context.Context, id string, at time.Time) error
	RecordPasswordCheck(ctx context.Context, id string, at time.Time) error
	// ClearLoggedOut reopens the session path without stamping last_login_at;
	// used by quick login, which is not a full login.
	ClearLoggedOut(ctx context.Context, id string) error

	// InTx runs fn against a transaction-scoped repository. Lookups inside the
	// transaction lock the rows they read, so read-modify-write sequences on
	// one identity are atomic under concurrent requests. fn returning an error
	// rolls the transaction back.
	InTx(ctx context.Context, fn func(Repository) error) error
}
