package otp

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

// Purpose distinguishes independent OTP flows. Each (email, purpose) pair
// has at most one live code at a time.
type Purpose string

const (
	PurposeRegister      Purpose = "register"
	PurposeLogin         Purpose = "login"
	PurposePasswordReset Purpose = "password_reset"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeRegister, PurposeLogin, PurposePasswordReset:
		return true
	}
	return false
}

const (
	// MaxAttempts is the number of wrong-code submissions allowed before
	// the record is purged and the flow locked out.
	MaxAttempts = 5
	// MaxResends is the number of re-issuance requests allowed for one
	// (email, purpose) before lockout. Tracked separately from attempts.
	MaxResends = 5
	// CodeLength is the number of digits in a generated code.
	CodeLength = 6
	// Lifetime is how long a code stays valid after issuance.
	Lifetime = 5 * time.Minute
)

// Record is the persisted state of one outstanding code.
type Record struct {
	Email       string
	Purpose     Purpose
	CodeHash    string
	Attempts    int
	ResendCount int
	ExpiresAt   time.Time
}

// Expired reports whether the record is past its expiry at the given time.
func (r *Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Sentinel errors for the OTP state machine.
var (
	// ErrNotFound is returned by Repository.Find when no record exists.
	ErrNotFound = errors.New("otp record not found")
	// ErrBlocked means the attempt or resend ceiling was hit and the
	// record purged. Retrying the same code is futile; a fresh issuance
	// is required once the lockout clears.
	ErrBlocked = errors.New("otp blocked")
	// ErrCodeExpired means the code exists but is past its lifetime.
	ErrCodeExpired = errors.New("otp code expired")
	// ErrDisposableEmail means issuance was refused because the email
	// domain is on the disposable-domain blocklist.
	ErrDisposableEmail = errors.New("disposable email domain not allowed")
	// ErrDispatchFailed means the code was stored but the email could not
	// be delivered. The stored code remains usable.
	ErrDispatchFailed = errors.New("otp email dispatch failed")
)

// InvalidCodeError indicates a wrong-code submission (or no record at all).
type InvalidCodeError struct {
	AttemptsRemaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid otp code (%d attempts remaining)", e.AttemptsRemaining)
}

// Repository defines persistence for OTP records. Counter increments must be
// atomic in the store, not read-modify-write in memory.
type Repository interface {
	Find(ctx context.Context, email string, purpose Purpose) (*Record, error)
	Upsert(ctx context.Context, rec *Record) error
	// IncrementAttempts atomically bumps the attempt counter and returns
	// the new value. Returns ErrNotFound if the record is gone.
	IncrementAttempts(ctx context.Context, email string, purpose Purpose) (int, error)
	Delete(ctx context.Context, email string, purpose Purpose) error
	// DeleteExpired removes records whose expiry is before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Hasher is the one-way hashing primitive for codes. Plaintext codes are
// never persisted.
type Hasher interface {
	Hash(code string) string
	Matches(hash, code string) bool
}

// Dispatcher delivers OTP emails. Failures are surfaced but do not roll
// back the stored code.
type Dispatcher interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
