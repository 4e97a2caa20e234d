package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/food-orders/internal/domain/auth"
)

var (
	// ErrNotFound is returned when a requested user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
)

// ValidationError reports a malformed registration.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// User is an account record. Passwords are not part of this model.
type User struct {
	ID        string
	Email     string
	Name      string
	Phone     string
	Address   string
	Role      auth.Role
	CreatedAt time.Time
}

// Actor returns the capability view of the user.
func (u *User) Actor() auth.Actor {
	return auth.Actor{UserID: u.ID, Role: u.Role}
}

// Repository provides access to user records.
type Repository interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	CountByRole(ctx context.Context, role auth.Role) (int64, error)
	Create(ctx context.Context, u *User) error
}
