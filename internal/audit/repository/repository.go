package repository

import (
	"context"

	"mobile-workforce/backend/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	// ListByAccount returns the newest entries for an account, newest first.
	ListByAccount(ctx context.Context, accountID string, limit int32) ([]*domain.AuditLog, error)
}
