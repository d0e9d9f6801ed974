package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mobile-workforce/backend/internal/account/domain"
)

const accountColumns = `id, external_id, username, email, name, phone,
	email_verified, password_verified, is_registered, is_active, is_logged_out,
	password_hash, verification_code_hash, verification_expires_at,
	last_login_at, last_logout_at, last_password_check_at, created_at, updated_at`

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresRepository persists accounts in Postgres.
type PostgresRepository struct {
	db *sql.DB
	q  querier
	// forUpdate is set on transaction-scoped repositories so lookups lock the
	// rows they read.
	forUpdate bool
}

// NewPostgresRepository returns an account repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, q: db}
}

func (r *PostgresRepository) getBy(ctx context.Context, where string, arg any) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + where
	if r.forUpdate {
		query += ` FOR UPDATE`
	}
	row := r.q.QueryRowContext(ctx, query, arg)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// GetByID returns the account for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getBy(ctx, `id = $1`, id)
}

// GetByExternalID returns the account for the employer-assigned id, or nil if not found.
func (r *PostgresRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Account, error) {
	return r.getBy(ctx, `external_id = $1`, externalID)
}

// GetByEmail returns the account for email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getBy(ctx, `email = $1`, email)
}

// GetByUsername returns the account for username, or nil if not found.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.getBy(ctx, `username = $1`, username)
}

// Create persists the account. The account must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Account) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		a.ID, a.ExternalID, a.Username, a.Email, a.Name, a.Phone,
		a.EmailVerified, a.PasswordVerified, a.IsRegistered, a.IsActive, a.IsLoggedOut,
		nullString(a.PasswordHash), nullString(a.VerificationCodeHash), timeToNullTime(a.VerificationExpiresAt),
		timeToNullTime(a.LastLoginAt), timeToNullTime(a.LastLogoutAt), timeToNullTime(a.LastPasswordCheckAt),
		a.CreatedAt, a.UpdatedAt)
	return err
}

// SetVerificationCode stores a fresh code hash and expiry for the account.
func (r *PostgresRepository) SetVerificationCode(ctx context.Context, id, codeHash string, expiresAt time.Time) error {
	_, err := r.q.ExecContext(ctx, `UPDATE accounts
		SET verification_code_hash = $2, verification_expires_at = $3, updated_at = now()
		WHERE id = $1`, id, codeHash, expiresAt)
	return err
}

// MarkEmailVerified sets email_verified and clears the single-use code.
func (r *PostgresRepository) MarkEmailVerified(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE accounts
		SET email_verified = TRUE, verification_code_hash = NULL, verification_expires_at = NULL, updated_at = now()
		WHERE id = $1`, id)
	return err
}

// SetPassword stores the password hash and promotes the account to registered.
func (r *PostgresRepository) SetPassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE accounts
		SET password_hash = $2, password_verified = TRUE, is_registered = TRUE, is_logged_out = FALSE, updated_at = now()
		WHERE id = $1`, id, passwordHash)
	return err
}

// ResetRegistration clears verification progress and stores a fresh code.
func (r *PostgresRepository) ResetRegistration(ctx context.Context, id, codeHash string, expiresAt time.Time) error {
	_, err := r.q.ExecContext(ctx, `UPDATE accounts
		SET email_verified = FALSE, password_verified = FALSE, is_registered = FALSE,
		    verification_code_hash = $2, verification_expires_at = $3, updated_at = now()
		WHERE id = $1`, id, codeHash, expiresAt)
	return err
}

// RecordLogin stamps last_login_at and clears the logged-out flag.
func (r *PostgresRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.q.ExecContext(ctx, `UPDATE accounts
		SET last_login_at = $2, is_logged_out = FALSE, updated_at = now()
		WHERE id = $1`, id, at)
	return err
}

// RecordLogout sets the logged-out flag and stamps last_logout_at.
func (r *PostgresRepository) RecordLogout(ctx context.Context, id string, at time.Time) error {
	_, err := r.q.ExecContext(ctx, `UPDATE accounts
		SET is_logged_out = TRUE, last_logout_at = $2, updated_at = now()
		WHERE id = $1`, id, at)
	return err
}

// ClearLoggedOut clears the logged-out flag without touching last_login_at.
func (r *PostgresRepository) ClearLoggedOut(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE accounts
		SET is_logged_out = FALSE, updated_at = now()
		WHERE id = $1`, id)
	return err
}

// RecordPasswordCheck stamps last_password_check_at.
func (r *PostgresRepository) RecordPasswordCheck(ctx context.Context, id string, at time.Time) error {
	_, err := r.q.ExecContext(ctx, `UPDATE accounts
		SET last_password_check_at = $2, updated_at = now()
		WHERE id = $1`, id, at)
	return err
}

// InTx runs fn against a transaction-scoped repository whose lookups use
// SELECT ... FOR UPDATE. Rolls back when fn returns an error.
func (r *PostgresRepository) InTx(ctx context.Context, fn func(Repository) error) error {
	if r.db == nil {
		return errors.New("account repository: InTx on transaction-scoped repository")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	txRepo := &PostgresRepository{q: tx, forUpdate: true}
	if err := fn(txRepo); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func scanAccount(row *sql.Row) (*domain.Account, error) {
	var a domain.Account
	var passwordHash, codeHash sql.NullString
	var codeExpires, lastLogin, lastLogout, lastCheck sql.NullTime
	err := row.Scan(
		&a.ID, &a.ExternalID, &a.Username, &a.Email, &a.Name, &a.Phone,
		&a.EmailVerified, &a.PasswordVerified, &a.IsRegistered, &a.IsActive, &a.IsLoggedOut,
		&passwordHash, &codeHash, &codeExpires,
		&lastLogin, &lastLogout, &lastCheck, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.PasswordHash = passwordHash.String
	a.VerificationCodeHash = codeHash.String
	a.VerificationExpiresAt = nullTimeToPtr(codeExpires)
	a.LastLoginAt = nullTimeToPtr(lastLogin)
	a.LastLogoutAt = nullTimeToPtr(lastLogout)
	a.LastPasswordCheckAt = nullTimeToPtr(lastCheck)
	return &a, nil
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
