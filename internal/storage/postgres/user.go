package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velano/storefront/internal/domain/user"
)

const (
	createUserSQL = `INSERT INTO users (id, email, name, password, role, verified, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getUserByIDSQL = `SELECT id, email, name, password, role, verified, address, created_at
		FROM users WHERE id = $1`

	getUserByEmailSQL = `SELECT id, email, name, password, role, verified, address, created_at
		FROM users WHERE email = $1`

	setUserVerifiedSQL = `UPDATE users SET verified = TRUE WHERE id = $1`

	updateUserAddressSQL = `UPDATE users SET address = $2 WHERE id = $1`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL. The
// profile address is stored in a JSONB column.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create persists a new user. A unique-violation on the email column is
// mapped to user.ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	addr, err := marshalAddress(u.Address)
	if err != nil {
		return err
	}

	_, err = dbFrom(ctx, r.pool).Exec(ctx, createUserSQL,
		u.ID, u.Email, u.Name, u.PasswordHash, string(u.Role), u.Verified, addr,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.ErrEmailTaken
		}
		return fmt.Errorf("creating user %q: %w", u.Email, err)
	}
	return nil
}

// GetByID returns a user by id, or user.ErrNotFound.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.get(ctx, getUserByIDSQL, id)
}

// GetByEmail returns a user by email, or user.ErrNotFound.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.get(ctx, getUserByEmailSQL, email)
}

func (r *UserRepository) get(ctx context.Context, query, arg string) (*user.User, error) {
	rows, err := dbFrom(ctx, r.pool).Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}

	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}

// SetVerified marks a user's email as verified.
func (r *UserRepository) SetVerified(ctx context.Context, id string) error {
	tag, err := dbFrom(ctx, r.pool).Exec(ctx, setUserVerifiedSQL, id)
	if err != nil {
		return fmt.Errorf("verifying user %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

// UpdateAddress replaces a user's profile address.
func (r *UserRepository) UpdateAddress(ctx context.Context, id string, addr *user.Address) error {
	data, err := marshalAddress(addr)
	if err != nil {
		return err
	}
	tag, err := dbFrom(ctx, r.pool).Exec(ctx, updateUserAddressSQL, id, data)
	if err != nil {
		return fmt.Errorf("updating address for user %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func marshalAddress(addr *user.Address) ([]byte, error) {
	if addr == nil {
		return nil, nil
	}
	data, err := json.Marshal(addr)
	if err != nil {
		return nil, fmt.Errorf("marshaling address: %w", err)
	}
	return data, nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var (
		u    user.User
		role string
		addr []byte
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &u.Verified, &addr, &u.CreatedAt); err != nil {
		return u, err
	}
	u.Role = user.Role(role)
	if len(addr) > 0 {
		u.Address = &user.Address{}
		if err := json.Unmarshal(addr, u.Address); err != nil {
			return u, fmt.Errorf("unmarshaling address: %w", err)
		}
	}
	return u, nil
}
