package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuards(t *testing.T) {
	owner := Actor{UserID: "u1", Role: RoleCustomer}
	stranger := Actor{UserID: "u2", Role: RoleCustomer}
	admin := Actor{UserID: "a1", Role: RoleAdmin}
	anonymous := Actor{}

	tests := []struct {
		name    string
		check   func(Actor) error
		actor   Actor
		wantErr bool
	}{
		{"admin passes RequireAdmin", RequireAdmin, admin, false},
		{"customer fails RequireAdmin", RequireAdmin, owner, true},
		{"owner reads order", func(a Actor) error { return CanReadOrder(a, "u1") }, owner, false},
		{"admin reads foreign order", func(a Actor) error { return CanReadOrder(a, "u1") }, admin, false},
		{"stranger cannot read order", func(a Actor) error { return CanReadOrder(a, "u1") }, stranger, true},
		{"anonymous cannot read ownerless order", func(a Actor) error { return CanReadOrder(a, "") }, anonymous, true},
		{"owner records payment", func(a Actor) error { return CanRecordPayment(a, "u1") }, owner, false},
		{"admin cannot record payment for customer", func(a Actor) error { return CanRecordPayment(a, "u1") }, admin, true},
		{"stranger cannot record payment", func(a Actor) error { return CanRecordPayment(a, "u1") }, stranger, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check(tt.actor)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrAccessDenied)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestActorContext(t *testing.T) {
	_, ok := ActorFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithActor(context.Background(), Actor{UserID: "u1", Role: RoleAdmin})
	a, ok := ActorFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", a.UserID)
	assert.True(t, a.IsAdmin())
}

func TestHashAPIKey(t *testing.T) {
	h1 := HashAPIKey([]byte("pepper"), "key")
	h2 := HashAPIKey([]byte("pepper"), "key")
	h3 := HashAPIKey([]byte("other"), "key")

	assert.Len(t, h1, 64)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleCustomer.Valid())
	assert.False(t, Role("courier").Valid())
}
