// Package telemetry defines the auth event stream emitted by the HTTP server:
// one event per request outcome, carrying identity context for downstream
// analysis of login patterns and registration funnels.
package telemetry

import (
	"context"
	"time"
)

// AuthEvent is one observable auth-flow occurrence (request served, login,
// registration step). Empty fields are omitted from the emitted record.
type AuthEvent struct {
	EventType string
	AccountID string
	DeviceID  string
	SessionID string
	Path      string
	Status    int
	Duration  time.Duration
	CreatedAt time.Time
}

// EventEmitter sends auth events to a telemetry backend. Implementations are
// best-effort; callers never fail a request on emit errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *AuthEvent) error
}
