package user

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/food-orders/internal/domain/auth"
)

// Registration is the self-service signup payload.
type Registration struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

func (in *Registration) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	if in.Name == "" {
		return &ValidationError{Field: "name", Message: "required"}
	}
	if in.Email == "" {
		return &ValidationError{Field: "email", Message: "required"}
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return &ValidationError{Field: "email", Message: "invalid address"}
	}
	return nil
}

// Register creates a customer account. The account has no credentials of
// its own; API keys are issued out of band.
func Register(ctx context.Context, repo Repository, in Registration) (*User, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	_, err := repo.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, ErrDuplicateEmail
	case !errors.Is(err, ErrNotFound):
		return nil, errors.Wrap(err, "find by email")
	}

	u := &User{
		ID:        uuid.NewString(),
		Email:     in.Email,
		Name:      in.Name,
		Phone:     in.Phone,
		Address:   in.Address,
		Role:      auth.RoleCustomer,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := repo.Create(ctx, u); err != nil {
		return nil, errors.Wrap(err, "create")
	}
	return u, nil
}
