package domain

import "time"

// AuditLog represents one identity or session event (scan, login, quick
// login, logout, registration progress).
type AuditLog struct {
	ID        string
	AccountID string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
