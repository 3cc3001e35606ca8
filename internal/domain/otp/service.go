package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// IssueResult reports the remaining quota after a successful issuance.
type IssueResult struct {
	AttemptsRemaining int
	ResendsRemaining  int
}

// Service is the OTP state machine: issue, resend, verify. All counter
// mutations go through the repository's atomic operations; the service keeps
// no in-memory state.
type Service struct {
	repo   Repository
	hasher Hasher
	mail   Dispatcher

	// blocked, when non-nil, is a bloom filter of disposable email domains
	// consulted before issuing registration codes. False positives reject a
	// legitimate domain, so the filter is built with a low error rate.
	blocked *bloom.BloomFilter

	now func() time.Time
}

// NewService creates an OTP Service. The blocklist filter may be nil, in
// which case no domain screening is performed.
func NewService(repo Repository, hasher Hasher, mail Dispatcher, blocked *bloom.BloomFilter) *Service {
	return &Service{
		repo:    repo,
		hasher:  hasher,
		mail:    mail,
		blocked: blocked,
		now:     time.Now,
	}
}

// IssueOrResend generates a fresh code for (email, purpose), stores its hash
// with a new expiry, and dispatches it by email. A prior record for the same
// pair is replaced: the resend counter carries over and increments, while the
// attempt counter is left as-is (separate counters, separate ceilings). If
// either ceiling is already reached the record is purged and ErrBlocked is
// returned; the caller must wait for the lockout to clear.
//
// The code is committed before dispatch. If dispatch fails the stored code
// remains usable and ErrDispatchFailed is returned.
func (s *Service) IssueOrResend(ctx context.Context, email string, purpose Purpose, displayName string) (*IssueResult, error) {
	if !purpose.Valid() {
		return nil, errors.Errorf("unknown otp purpose %q", purpose)
	}
	email = strings.ToLower(strings.TrimSpace(email))

	if purpose == PurposeRegister && s.blocked != nil {
		if _, domain, ok := strings.Cut(email, "@"); ok && s.blocked.TestString(domain) {
			return nil, ErrDisposableEmail
		}
	}

	// Passive GC: expired records across all pairs are swept opportunistically
	// on the issuance path instead of by a timer.
	if n, err := s.repo.DeleteExpired(ctx, s.now()); err != nil {
		zctx.From(ctx).Warn("otp expired sweep failed", zap.Error(err))
	} else if n > 0 {
		zctx.From(ctx).Debug("otp expired records swept", zap.Int64("count", n))
	}

	resendCount := 0
	attempts := 0
	existing, err := s.repo.Find(ctx, email, purpose)
	switch {
	case err == nil:
		if existing.Attempts >= MaxAttempts || existing.ResendCount >= MaxResends {
			if err := s.repo.Delete(ctx, email, purpose); err != nil {
				return nil, errors.Wrap(err, "purge locked otp record")
			}
			return nil, ErrBlocked
		}
		if !existing.Expired(s.now()) {
			resendCount = existing.ResendCount + 1
			attempts = existing.Attempts
		}
	case errors.Is(err, ErrNotFound):
		// First issuance for this pair.
	default:
		return nil, errors.Wrap(err, "find otp record")
	}

	code, err := generateCode(CodeLength)
	if err != nil {
		return nil, errors.Wrap(err, "generate code")
	}

	rec := &Record{
		Email:       email,
		Purpose:     purpose,
		CodeHash:    s.hasher.Hash(code),
		Attempts:    attempts,
		ResendCount: resendCount,
		ExpiresAt:   s.now().Add(Lifetime),
	}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		return nil, errors.Wrap(err, "store otp record")
	}

	res := &IssueResult{
		AttemptsRemaining: MaxAttempts - attempts,
		ResendsRemaining:  MaxResends - resendCount,
	}

	subject, body := composeEmail(purpose, displayName, code)
	if err := s.mail.Send(ctx, email, subject, body); err != nil {
		zctx.From(ctx).Error("otp email dispatch failed",
			zap.String("purpose", string(purpose)),
			zap.Error(err),
		)
		return res, ErrDispatchFailed
	}

	return res, nil
}

// Verify checks a submitted code. It fails closed: a missing record yields
// an InvalidCodeError, never ErrBlocked. A wrong code atomically increments
// the attempt counter; hitting MaxAttempts purges the record and returns
// ErrBlocked. A correct code deletes the record (single use) and returns nil.
func (s *Service) Verify(ctx context.Context, email string, purpose Purpose, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	rec, err := s.repo.Find(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &InvalidCodeError{AttemptsRemaining: 0}
		}
		return errors.Wrap(err, "find otp record")
	}

	if rec.Expired(s.now()) {
		if err := s.repo.Delete(ctx, email, purpose); err != nil {
			return errors.Wrap(err, "delete expired otp record")
		}
		return ErrCodeExpired
	}

	if s.hasher.Matches(rec.CodeHash, code) {
		if err := s.repo.Delete(ctx, email, purpose); err != nil {
			return errors.Wrap(err, "consume otp record")
		}
		return nil
	}

	attempts, err := s.repo.IncrementAttempts(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Record vanished between Find and the increment (concurrent
			// verify or sweep). Treat as a plain miss.
			return &InvalidCodeError{AttemptsRemaining: 0}
		}
		return errors.Wrap(err, "increment otp attempts")
	}
	if attempts >= MaxAttempts {
		if err := s.repo.Delete(ctx, email, purpose); err != nil {
			return errors.Wrap(err, "purge locked otp record")
		}
		return ErrBlocked
	}

	return &InvalidCodeError{AttemptsRemaining: MaxAttempts - attempts}
}

// generateCode returns a uniformly random numeric code of n digits,
// zero-padded, from crypto/rand.
func generateCode(n int) (string, error) {
	max := big.NewInt(1)
	for range n {
		max.Mul(max, big.NewInt(10))
	}
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", n, v), nil
}

func composeEmail(purpose Purpose, displayName, code string) (subject, body string) {
	name := displayName
	if name == "" {
		name = "there"
	}
	switch purpose {
	case PurposeLogin:
		subject = "Your login verification code"
	case PurposePasswordReset:
		subject = "Your password reset code"
	default:
		subject = "Verify your email address"
	}
	body = fmt.Sprintf(
		"<p>Hi %s,</p><p>Your verification code is <strong>%s</strong>. It expires in %d minutes.</p>"+
			"<p>If you did not request this code, you can ignore this email.</p>",
		name, code, int(Lifetime.Minutes()),
	)
	return subject, body
}
