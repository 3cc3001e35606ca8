package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velano/storefront/internal/domain/otp"
)

const (
	findOTPSQL = `SELECT email, purpose, code_hash, attempts, resend_count, expires_at
		FROM otp_codes WHERE email = $1 AND purpose = $2`

	upsertOTPSQL = `INSERT INTO otp_codes (email, purpose, code_hash, attempts, resend_count, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email, purpose) DO UPDATE SET
			code_hash = EXCLUDED.code_hash,
			attempts = EXCLUDED.attempts,
			resend_count = EXCLUDED.resend_count,
			expires_at = EXCLUDED.expires_at`

	// The increment is a single conditional statement so concurrent wrong
	// submissions each observe a distinct counter value.
	incrementOTPAttemptsSQL = `UPDATE otp_codes SET attempts = attempts + 1
		WHERE email = $1 AND purpose = $2 RETURNING attempts`

	deleteOTPSQL = `DELETE FROM otp_codes WHERE email = $1 AND purpose = $2`

	deleteExpiredOTPSQL = `DELETE FROM otp_codes WHERE expires_at < $1`
)

var _ otp.Repository = (*OTPRepository)(nil)

// OTPRepository implements otp.Repository backed by PostgreSQL. Counter
// updates are single atomic statements, never read-modify-write.
type OTPRepository struct {
	pool *pgxpool.Pool
}

// NewOTPRepository returns an OTPRepository that uses the given pool.
func NewOTPRepository(pool *pgxpool.Pool) *OTPRepository {
	return &OTPRepository{pool: pool}
}

// Find returns the live record for (email, purpose), or otp.ErrNotFound.
func (r *OTPRepository) Find(ctx context.Context, email string, purpose otp.Purpose) (*otp.Record, error) {
	rows, err := dbFrom(ctx, r.pool).Query(ctx, findOTPSQL, email, string(purpose))
	if err != nil {
		return nil, fmt.Errorf("finding otp record: %w", err)
	}

	rec, err := pgx.CollectExactlyOneRow(rows, scanOTP)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, otp.ErrNotFound
		}
		return nil, fmt.Errorf("finding otp record: %w", err)
	}
	return &rec, nil
}

// Upsert creates or replaces the record for (email, purpose).
func (r *OTPRepository) Upsert(ctx context.Context, rec *otp.Record) error {
	_, err := dbFrom(ctx, r.pool).Exec(ctx, upsertOTPSQL,
		rec.Email, string(rec.Purpose), rec.CodeHash, rec.Attempts, rec.ResendCount, rec.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("upserting otp record: %w", err)
	}
	return nil
}

// IncrementAttempts atomically bumps the attempt counter and returns the
// new value, or otp.ErrNotFound if the record is gone.
func (r *OTPRepository) IncrementAttempts(ctx context.Context, email string, purpose otp.Purpose) (int, error) {
	var attempts int
	err := dbFrom(ctx, r.pool).QueryRow(ctx, incrementOTPAttemptsSQL, email, string(purpose)).Scan(&attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, otp.ErrNotFound
		}
		return 0, fmt.Errorf("incrementing otp attempts: %w", err)
	}
	return attempts, nil
}

// Delete removes the record for (email, purpose). Deleting a missing record
// is not an error.
func (r *OTPRepository) Delete(ctx context.Context, email string, purpose otp.Purpose) error {
	if _, err := dbFrom(ctx, r.pool).Exec(ctx, deleteOTPSQL, email, string(purpose)); err != nil {
		return fmt.Errorf("deleting otp record: %w", err)
	}
	return nil
}

// DeleteExpired removes all records past their expiry.
func (r *OTPRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := dbFrom(ctx, r.pool).Exec(ctx, deleteExpiredOTPSQL, now)
	if err != nil {
		return 0, fmt.Errorf("deleting expired otp records: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanOTP(row pgx.CollectableRow) (otp.Record, error) {
	var (
		rec     otp.Record
		purpose string
	)
	err := row.Scan(&rec.Email, &purpose, &rec.CodeHash, &rec.Attempts, &rec.ResendCount, &rec.ExpiresAt)
	rec.Purpose = otp.Purpose(purpose)
	return rec, err
}
