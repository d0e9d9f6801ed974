package service

import (
	"context"
	"log"
)

// LogNotifier is a delivery channel of last resort: it records that a code was
// issued without sending it anywhere. Deployments without a mail provider get
// an operator-visible trace instead of silently dropping codes. The code
// itself is not logged.
type LogNotifier struct{}

func (LogNotifier) SendVerificationCode(ctx context.Context, email, code string) error {
	log.Printf("registration: verification code issued for %s (no delivery channel configured)", email)
	return nil
}
