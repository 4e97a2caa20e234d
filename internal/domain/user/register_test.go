package user

import (
	"context"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/food-orders/internal/domain/auth"
)

type memoryRepo struct {
	users     []User
	createErr error
}

func (m *memoryRepo) FindByID(_ context.Context, id string) (*User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRepo) CountByRole(_ context.Context, role auth.Role) (int64, error) {
	var n int64
	for _, u := range m.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (m *memoryRepo) Create(_ context.Context, u *User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.users = append(m.users, *u)
	return nil
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates customer", func(t *testing.T) {
		repo := &memoryRepo{}
		u, err := Register(ctx, repo, Registration{
			Name:    " Carol ",
			Email:   "carol@example.com",
			Phone:   "333",
			Address: "5 Park Lane",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, u.ID)
		assert.Equal(t, "Carol", u.Name)
		assert.Equal(t, auth.RoleCustomer, u.Role)
		assert.False(t, u.CreatedAt.IsZero())

		stored, err := repo.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "carol@example.com", stored.Email)
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := &memoryRepo{users: []User{{ID: "u1", Email: "carol@example.com", Role: auth.RoleCustomer}}}
		_, err := Register(ctx, repo, Registration{Name: "Carol", Email: "Carol@Example.com"})
		require.ErrorIs(t, err, ErrDuplicateEmail)
		assert.Len(t, repo.users, 1)
	})

	t.Run("store conflict is kept", func(t *testing.T) {
		repo := &memoryRepo{createErr: ErrDuplicateEmail}
		_, err := Register(ctx, repo, Registration{Name: "Carol", Email: "carol@example.com"})
		require.ErrorIs(t, err, ErrDuplicateEmail)
	})

	tests := []struct {
		name  string
		in    Registration
		field string
	}{
		{name: "missing name", in: Registration{Email: "a@example.com"}, field: "name"},
		{name: "blank name", in: Registration{Name: "  ", Email: "a@example.com"}, field: "name"},
		{name: "missing email", in: Registration{Name: "A"}, field: "email"},
		{name: "malformed email", in: Registration{Name: "A", Email: "not-an-email"}, field: "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memoryRepo{}
			_, err := Register(ctx, repo, tt.in)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.Empty(t, repo.users)
		})
	}
}
