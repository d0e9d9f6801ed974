package repository

import (
	"context"
	"time"

	"mobile-workforce/backend/internal/session/domain"
)

// Repository defines persistence for sessions. Lookup methods return
// (nil, nil) when no row matches; errors are database failures only.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// GetLatestByAccountAndDevice returns the most recently created session
	// for the pairing, revoked or not, or nil when none exists.
	GetLatestByAccountAndDevice(ctx context.Context, accountID, deviceID string) (*domain.Session, error)
	// ListLatestByDevice returns the most recent session per account known on
	// the device, newest first. Feeds the saved-accounts listing.
	ListLatestByDevice(ctx context.Context, deviceID string) ([]*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	Revoke(ctx context.Context, id string) error
	RevokeAllByAccount(ctx context.Context, accountID string) error
	// Renew extends the access lifetime and stamps activity; used by quick
	// login, which re-issues tokens under the same session id.
	Renew(ctx context.Context, id string, expiresAt, at time.Time) error
	UpdateActivity(ctx context.Context, id string, at time.Time) error
	UpdateRefreshToken(ctx context.Context, id, jti, refreshTokenHash string, expiresAt time.Time) error
}
