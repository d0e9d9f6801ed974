// Package recovery tells a client which way back in exists when it holds
// stale local state: a device may remember an account that no longer has a
// usable server-side identity, or one that simply needs a fresh login.
package recovery

import (
	"context"

	accountrepo "mobile-workforce/backend/internal/account/repository"
)

// Action is the advised next step for a stranded client.
type Action string

const (
	// ActionQRRegistrationRequired: the identity is missing, disabled, or its
	// registration never completed; the user must rescan their QR badge.
	ActionQRRegistrationRequired Action = "qr_registration_required"
	// ActionLoginRequired: the identity is intact; a full login suffices.
	ActionLoginRequired Action = "login_required"
)

// Advice pairs the advised action with a client-facing reason.
type Advice struct {
	Action Action
	Reason string
}

// Advisor inspects account state to produce recovery advice.
type Advisor struct {
	accounts accountrepo.Repository
}

// NewAdvisor returns a recovery advisor.
func NewAdvisor(accounts accountrepo.Repository) *Advisor {
	return &Advisor{accounts: accounts}
}

// Advise returns the recovery path for the account the device remembers.
// It never errors on unknown identities; absence is itself the advice.
func (a *Advisor) Advise(ctx context.Context, accountID string) (*Advice, error) {
	acct, err := a.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return &Advice{
			Action: ActionQRRegistrationRequired,
			Reason: "account does not exist",
		}, nil
	}
	if !acct.IsActive {
		return &Advice{
			Action: ActionQRRegistrationRequired,
			Reason: "account is disabled",
		}, nil
	}
	if !acct.IsRegistered {
		return &Advice{
			Action: ActionQRRegistrationRequired,
			Reason: "registration is incomplete",
		}, nil
	}
	// Registered and active: whatever the device lost, a password gets it back.
	return &Advice{
		Action: ActionLoginRequired,
		Reason: "credentials are valid; log in again",
	}, nil
}
