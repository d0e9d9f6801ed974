package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mobile-workforce/backend/internal/session/domain"
)

const sessionColumns = `id, account_id, device_id, expires_at, revoked_at,
	quick_login_enabled, quick_login_expires_at, last_activity_at,
	refresh_jti, refresh_token_hash, refresh_expires_at, created_at`

// PostgresRepository persists sessions in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanOne(row)
}

// GetLatestByAccountAndDevice returns the newest session for the pairing, or nil if none.
func (r *PostgresRepository) GetLatestByAccountAndDevice(ctx context.Context, accountID, deviceID string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions
		WHERE account_id = $1 AND device_id = $2
		ORDER BY created_at DESC LIMIT 1`, accountID, deviceID)
	return scanOne(row)
}

// ListLatestByDevice returns the most recent session per account on the device, newest first.
func (r *PostgresRepository) ListLatestByDevice(ctx context.Context, deviceID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM (
			SELECT DISTINCT ON (account_id) `+sessionColumns+`
			FROM sessions WHERE device_id = $1
			ORDER BY account_id, created_at DESC
		) latest ORDER BY created_at DESC`, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID, s.AccountID, s.DeviceID, s.ExpiresAt, timeToNullTime(s.RevokedAt),
		s.QuickLoginEnabled, timeToNullTime(s.QuickLoginExpiresAt), timeToNullTime(s.LastActivityAt),
		nullString(s.RefreshJti), nullString(s.RefreshTokenHash), timeToNullTime(s.RefreshExpiresAt),
		s.CreatedAt)
	return err
}

// Revoke marks the session with the given id as revoked.
func (r *PostgresRepository) Revoke(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`,
		id, time.Now().UTC())
	return err
}

// RevokeAllByAccount revokes every active session owned by the account.
func (r *PostgresRepository) RevokeAllByAccount(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET revoked_at = $2 WHERE account_id = $1 AND revoked_at IS NULL`,
		accountID, time.Now().UTC())
	return err
}

// Renew extends the access lifetime and stamps last activity.
func (r *PostgresRepository) Renew(ctx context.Context, id string, expiresAt, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET expires_at = $2, last_activity_at = $3 WHERE id = $1`,
		id, expiresAt, at)
	return err
}

// UpdateActivity stamps the session's last-activity timestamp.
func (r *PostgresRepository) UpdateActivity(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET last_activity_at = $2 WHERE id = $1`, id, at)
	return err
}

// UpdateRefreshToken binds the session to the current refresh token jti and hash.
func (r *PostgresRepository) UpdateRefreshToken(ctx context.Context, id, jti, refreshTokenHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions
		SET refresh_jti = $2, refresh_token_hash = $3, refresh_expires_at = $4
		WHERE id = $1`, id, jti, refreshTokenHash, expiresAt)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row *sql.Row) (*domain.Session, error) {
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	var revoked, quickExpires, lastActivity, refreshExpires sql.NullTime
	var jti, tokenHash sql.NullString
	err := row.Scan(
		&s.ID, &s.AccountID, &s.DeviceID, &s.ExpiresAt, &revoked,
		&s.QuickLoginEnabled, &quickExpires, &lastActivity,
		&jti, &tokenHash, &refreshExpires, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.RevokedAt = nullTimeToPtr(revoked)
	s.QuickLoginExpiresAt = nullTimeToPtr(quickExpires)
	s.LastActivityAt = nullTimeToPtr(lastActivity)
	s.RefreshJti = jti.String
	s.RefreshTokenHash = tokenHash.String
	s.RefreshExpiresAt = nullTimeToPtr(refreshExpires)
	return &s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}
