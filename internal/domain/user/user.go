package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("user not found")

// ErrEmailTaken is returned when registering with an already-used email.
var ErrEmailTaken = errors.New("email already registered")

// Role determines what a principal may do.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Address is a postal address, used both on user profiles and as the
// fallback shipping destination for orders.
type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// User is a registered account. PasswordHash is a bcrypt hash; the
// plaintext password never leaves the registration handler.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	Verified     bool
	Address      *Address
	CreatedAt    time.Time
}

// Repository defines persistence operations for user accounts.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	SetVerified(ctx context.Context, id string) error
	UpdateAddress(ctx context.Context, id string, addr *Address) error
}
