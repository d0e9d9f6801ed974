package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	accountdomain "mobile-workforce/backend/internal/account/domain"
	accountrepo "mobile-workforce/backend/internal/account/repository"
	"mobile-workforce/backend/internal/audit"
	"mobile-workforce/backend/internal/devcode"
	regdomain "mobile-workforce/backend/internal/registration/domain"
	"mobile-workforce/backend/internal/security"
)

// Sentinel errors for the registration pipeline; handlers map them to HTTP
// status codes and stable discriminators.
var (
	ErrInvalidQRPayload        = regdomain.ErrInvalidQRPayload
	ErrAlreadyRegistered       = errors.New("account already registered and logged in")
	ErrAccountDisabled         = errors.New("account is disabled")
	ErrAccountNotFound         = errors.New("account not found")
	ErrInvalidVerificationCode = errors.New("invalid or expired verification code")
	ErrPasswordMismatch        = errors.New("password confirmation does not match")
	ErrNotEmailVerified        = errors.New("email address has not been verified")
	ErrWeakPassword            = errors.New("password must be at least 6 characters")
)

// Outcome classifies a successful QR scan.
type Outcome string

const (
	// OutcomeStarted: a new registration, or an idempotent retry of a pending one.
	OutcomeStarted Outcome = "started"
	// OutcomeResumed: a logged-out identity starting over; progress was reset.
	OutcomeResumed Outcome = "resumed"
)

// ScanResult is the outcome of a successful QR scan.
type ScanResult struct {
	Outcome Outcome
	Account *accountdomain.Account
	// CodeExpiresAt is when the issued verification code lapses; zero when no
	// code was issued.
	CodeExpiresAt time.Time
	// SkipVerification is true when the email was already verified in a prior
	// attempt and the client may go straight to setting a password.
	SkipVerification bool
}

// Notifier delivers a verification code to an email address. Implementations
// return success or failure for one attempt; this service never retries.
type Notifier interface {
	SendVerificationCode(ctx context.Context, email, code string) error
}

// Service is the registration state machine and verification pipeline: it
// turns a QR payload into a started, resumed, or rejected registration and
// advances pending registrations through email verification and password
// setting. All flag transitions run inside account-store transactions so
// concurrent scans of the same identity cannot interleave.
type Service struct {
	accounts accountrepo.Repository
	hasher   *security.Hasher
	notifier Notifier
	devCodes devcode.Store // nil outside dev mode
	auditor  audit.AuditLogger
	codeTTL  time.Duration
	now      func() time.Time
}

// NewService returns a registration service. notifier, devCodes, and auditor
// may be nil; codeTTL of 0 defaults to 10 minutes.
func NewService(accounts accountrepo.Repository, hasher *security.Hasher, notifier Notifier, devCodes devcode.Store, auditor audit.AuditLogger, codeTTL time.Duration) *Service {
	if codeTTL <= 0 {
		codeTTL = 10 * time.Minute
	}
	return &Service{
		accounts: accounts,
		hasher:   hasher,
		notifier: notifier,
		devCodes: devCodes,
		auditor:  auditor,
		codeTTL:  codeTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ScanQR implements the registration state machine for one decoded QR payload:
//
//   - unknown identity            → create a pending account, issue a code (started)
//   - active, logged in           → ErrAlreadyRegistered (anti-replay; nothing mutated)
//   - logged out                  → reset progress, issue a fresh code (resumed)
//   - mid-flow, email unverified  → re-issue a code (started; idempotent retry)
//   - mid-flow, email verified    → started with SkipVerification, no new code
//
// The lookup-then-mutate sequence runs in one transaction keyed by the
// account row, so two concurrent scans of the same identity serialize and
// only one account row can ever exist per external id.
func (s *Service) ScanQR(ctx context.Context, encodedPayload string) (*ScanResult, error) {
	payload, err := regdomain.DecodeQRPayload(encodedPayload)
	if err != nil {
		return nil, err
	}

	var result *ScanResult
	var issuedCode string
	err = s.accounts.InTx(ctx, func(repo accountrepo.Repository) error {
		acct, err := repo.GetByExternalID(ctx, payload.ExternalID)
		if err != nil {
			return err
		}
		if acct == nil {
			acct, err = repo.GetByEmail(ctx, payload.Email)
			if err != nil {
				return err
			}
		}
		now := s.now()

		if acct == nil {
			code, hash, expiresAt, err := s.newCode(now)
			if err != nil {
				return err
			}
			acct = &accountdomain.Account{
				ID:                    uuid.New().String(),
				ExternalID:            payload.ExternalID,
				Username:              payload.Username,
				Email:                 payload.Email,
				Name:                  payload.Username,
				Phone:                 payload.Phone,
				IsActive:              true,
				VerificationCodeHash:  hash,
				VerificationExpiresAt: &expiresAt,
				CreatedAt:             now,
				UpdatedAt:             now,
			}
			if err := acct.Validate(); err != nil {
				return ErrInvalidQRPayload
			}
			if err := repo.Create(ctx, acct); err != nil {
				return err
			}
			issuedCode = code
			result = &ScanResult{Outcome: OutcomeStarted, Account: acct, CodeExpiresAt: expiresAt}
			return nil
		}

		if !acct.IsActive {
			return ErrAccountDisabled
		}

		switch acct.State() {
		case accountdomain.StateActive:
			// Anti-replay: an active, logged-in identity cannot be
			// re-registered out from under itself.
			return ErrAlreadyRegistered

		case accountdomain.StateLoggedOut:
			code, hash, expiresAt, err := s.newCode(now)
			if err != nil {
				return err
			}
			if err := repo.ResetRegistration(ctx, acct.ID, hash, expiresAt); err != nil {
				return err
			}
			acct.EmailVerified = false
			acct.PasswordVerified = false
			acct.IsRegistered = false
			acct.VerificationCodeHash = hash
			acct.VerificationExpiresAt = &expiresAt
			issuedCode = code
			result = &ScanResult{Outcome: OutcomeResumed, Account: acct, CodeExpiresAt: expiresAt}
			return nil

		case accountdomain.StatePendingPassword:
			// Email already verified; the client may go straight to the
			// password step without burning another code.
			result = &ScanResult{Outcome: OutcomeStarted, Account: acct, SkipVerification: true}
			return nil

		default: // StatePendingVerification
			code, hash, expiresAt, err := s.newCode(now)
			if err != nil {
				return err
			}
			if err := repo.SetVerificationCode(ctx, acct.ID, hash, expiresAt); err != nil {
				return err
			}
			acct.VerificationCodeHash = hash
			acct.VerificationExpiresAt = &expiresAt
			issuedCode = code
			result = &ScanResult{Outcome: OutcomeStarted, Account: acct, CodeExpiresAt: expiresAt}
			return nil
		}
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyRegistered) {
			s.audit(ctx, "", "scan_rejected", payload.Email)
		}
		return nil, err
	}

	if issuedCode != "" {
		s.deliverCode(ctx, result.Account.Email, issuedCode, result.CodeExpiresAt)
	}
	s.audit(ctx, result.Account.ID, "scan_"+string(result.Outcome), result.Account.Email)
	return result, nil
}

// VerifyEmail consumes a single-use verification code. The stored code must
// be present, unexpired, and match; success clears it so a replay fails.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	err := s.accounts.InTx(ctx, func(repo accountrepo.Repository) error {
		acct, err := repo.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if acct == nil {
			return ErrAccountNotFound
		}
		if !acct.CodeValid(s.now()) {
			return ErrInvalidVerificationCode
		}
		if !security.VerificationCodeEqual(code, acct.VerificationCodeHash) {
			return ErrInvalidVerificationCode
		}
		return repo.MarkEmailVerified(ctx, acct.ID)
	})
	if err == nil {
		s.audit(ctx, "", "email_verified", email)
	}
	return err
}

// SetPassword completes a pending registration: hashes and stores the mobile
// password, promotes the account to registered, and clears the logged-out
// flag. Refuses to overwrite an active account's credentials.
func (s *Service) SetPassword(ctx context.Context, email, password, confirmPassword string) (*accountdomain.Account, error) {
	email = normalizeEmail(email)
	if password != confirmPassword {
		return nil, ErrPasswordMismatch
	}
	if len(password) < 6 {
		return nil, ErrWeakPassword
	}

	var out *accountdomain.Account
	err := s.accounts.InTx(ctx, func(repo accountrepo.Repository) error {
		acct, err := repo.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if acct == nil {
			return ErrAccountNotFound
		}
		if acct.IsRegistered {
			return ErrAlreadyRegistered
		}
		if !acct.EmailVerified {
			return ErrNotEmailVerified
		}
		hash, err := s.hasher.Hash([]byte(password))
		if err != nil {
			return err
		}
		if err := repo.SetPassword(ctx, acct.ID, hash); err != nil {
			return err
		}
		acct.PasswordHash = hash
		acct.PasswordVerified = true
		acct.IsRegistered = true
		acct.IsLoggedOut = false
		out = acct
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, out.ID, "password_set", out.Email)
	return out, nil
}

// ResendCode issues a fresh verification code for a registration that is
// still pending email verification.
func (s *Service) ResendCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	var issuedCode string
	var expiresAt time.Time
	var accountID string
	err := s.accounts.InTx(ctx, func(repo accountrepo.Repository) error {
		acct, err := repo.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if acct == nil {
			return ErrAccountNotFound
		}
		if !acct.IsActive {
			return ErrAccountDisabled
		}
		if acct.State() != accountdomain.StatePendingVerification {
			return ErrInvalidVerificationCode
		}
		code, hash, exp, err := s.newCode(s.now())
		if err != nil {
			return err
		}
		if err := repo.SetVerificationCode(ctx, acct.ID, hash, exp); err != nil {
			return err
		}
		issuedCode, expiresAt, accountID = code, exp, acct.ID
		return nil
	})
	if err != nil {
		return err
	}
	s.deliverCode(ctx, email, issuedCode, expiresAt)
	s.audit(ctx, accountID, "code_resent", email)
	return nil
}

func (s *Service) newCode(now time.Time) (code, hash string, expiresAt time.Time, err error) {
	code, err = security.GenerateVerificationCode()
	if err != nil {
		return "", "", time.Time{}, err
	}
	return code, security.HashVerificationCode(code), now.Add(s.codeTTL), nil
}

func (s *Service) deliverCode(ctx context.Context, email, code string, expiresAt time.Time) {
	if s.devCodes != nil {
		s.devCodes.Put(ctx, email, code, expiresAt)
	}
	if s.notifier == nil {
		return
	}
	// One attempt; the client falls back to resend on delivery failure.
	if err := s.notifier.SendVerificationCode(ctx, email, code); err != nil {
		log.Printf("registration: code delivery to %s failed: %v", email, err)
	}
}

func (s *Service) audit(ctx context.Context, accountID, action, metadata string) {
	if s.auditor != nil {
		s.auditor.LogEvent(ctx, accountID, action, "registration", metadata)
	}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
