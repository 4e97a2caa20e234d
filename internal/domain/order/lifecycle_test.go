package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/food-orders/internal/domain/auth"
)

func TestGetOrder_Access(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "", LineRequest{ItemID: "biryani", Quantity: 1})

	tests := []struct {
		name    string
		actor   auth.Actor
		wantErr error
	}{
		{"owner", owner, nil},
		{"admin", admin, nil},
		{"other customer", stranger, auth.ErrAccessDenied},
		{"anonymous", auth.Actor{}, auth.ErrAccessDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.GetOrder(context.Background(), tt.actor, o.ID)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, o.ID, got.ID)
		})
	}

	_, err := f.svc.GetOrder(context.Background(), admin, "VFMISSING")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	first := f.place(t, "", LineRequest{ItemID: "naan", Quantity: 1})
	f.now = f.now.Add(time.Minute)
	second := f.place(t, "", LineRequest{ItemID: "lassi", Quantity: 1})
	f.now = f.now.Add(time.Minute)
	_, err := f.svc.PlaceOrder(context.Background(), stranger, placeReq("", LineRequest{ItemID: "naan", Quantity: 1}))
	require.NoError(t, err)

	mine, err := f.svc.ListMyOrders(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	_, err = f.svc.ListMyOrders(context.Background(), auth.Actor{})
	require.ErrorIs(t, err, auth.ErrUnauthenticated)

	all, err := f.svc.ListAllOrders(context.Background(), admin)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.svc.ListAllOrders(context.Background(), owner)
	require.ErrorIs(t, err, auth.ErrAccessDenied)
}

func TestSetStatus_AppendsHistory(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "", LineRequest{ItemID: "biryani", Quantity: 1})

	steps := []Status{StatusConfirmed, StatusPreparing, StatusOutForDelivery, StatusDelivered}
	for i, st := range steps {
		f.now = f.now.Add(time.Minute)
		got, err := f.svc.SetStatus(context.Background(), admin, o.ID, string(st))
		require.NoError(t, err)
		assert.Equal(t, st, got.Status)
		require.Len(t, got.History, i+2)
		assert.Equal(t, StatusEntry{Status: st, At: f.now}, got.History[i+1])
		assert.Equal(t, StatusPending, got.History[0].Status)
	}

	require.Len(t, f.publisher.events, 1+len(steps))
	assert.Equal(t, EventStatusChanged, f.publisher.events[len(steps)].Type)
}

func TestSetStatus_Lenient(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "", LineRequest{ItemID: "biryani", Quantity: 1})

	// Without strict transitions any known status is accepted.
	_, err := f.svc.SetStatus(context.Background(), admin, o.ID, string(StatusDelivered))
	require.NoError(t, err)
	got, err := f.svc.SetStatus(context.Background(), admin, o.ID, string(StatusPending))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Len(t, got.History, 3)
}

func TestSetStatus_Strict(t *testing.T) {
	f := newFixture(t, WithStrictTransitions(true))
	o := f.place(t, "", LineRequest{ItemID: "biryani", Quantity: 1})

	_, err := f.svc.SetStatus(context.Background(), admin, o.ID, string(StatusDelivered))
	var trErr *InvalidTransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, StatusPending, trErr.From)
	assert.Equal(t, StatusDelivered, trErr.To)

	stored, err := f.orders.FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
	assert.Len(t, stored.History, 1)

	_, err = f.svc.SetStatus(context.Background(), admin, o.ID, string(StatusCancelled))
	require.NoError(t, err)
	_, err = f.svc.SetStatus(context.Background(), admin, o.ID, string(StatusConfirmed))
	require.ErrorAs(t, err, &trErr)
}

func TestSetStatus_Errors(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "", LineRequest{ItemID: "biryani", Quantity: 1})

	_, err := f.svc.SetStatus(context.Background(), owner, o.ID, string(StatusConfirmed))
	require.ErrorIs(t, err, auth.ErrAccessDenied)

	_, err = f.svc.SetStatus(context.Background(), admin, o.ID, "teleported")
	require.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.svc.SetStatus(context.Background(), admin, "VFMISSING", string(StatusConfirmed))
	require.ErrorIs(t, err, ErrNotFound)

	stored, err := f.orders.FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Len(t, stored.History, 1)
}

func TestRecordPayment_CompletedConfirms(t *testing.T) {
	for _, strict := range []bool{false, true} {
		f := newFixture(t, WithStrictTransitions(strict))
		o := f.place(t, "", LineRequest{ItemID: "biryani", Quantity: 1})
		_, err := f.svc.SetStatus(context.Background(), admin, o.ID, string(StatusConfirmed))
		require.NoError(t, err)
		_, err = f.svc.SetStatus(context.Background(), admin, o.ID, string(StatusPreparing))
		require.NoError(t, err)

		got, err := f.svc.RecordPayment(context.Background(), owner, o.ID, "pay_123", string(PaymentCompleted))
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, got.Status)
		assert.Equal(t, PaymentCompleted, got.PaymentStatus)
		assert.Equal(t, "pay_123", got.PaymentID)
		require.Len(t, got.History, 4)
		assert.Equal(t, StatusConfirmed, got.History[3].Status)
		assert.Equal(t, EventPaymentRecorded, f.publisher.events[len(f.publisher.events)-1].Type)
	}
}

func TestRecordPayment_FailedKeepsStatus(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "", LineRequest{ItemID: "biryani", Quantity: 1})

	got, err := f.svc.RecordPayment(context.Background(), owner, o.ID, "pay_9", string(PaymentFailed))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, PaymentFailed, got.PaymentStatus)
	assert.Len(t, got.History, 1)
}

func TestRecordPayment_Errors(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "", LineRequest{ItemID: "biryani", Quantity: 1})

	tests := []struct {
		name    string
		actor   auth.Actor
		id      string
		status  string
		wantErr error
	}{
		{"admin on behalf of customer", admin, o.ID, "completed", auth.ErrAccessDenied},
		{"other customer", stranger, o.ID, "completed", auth.ErrAccessDenied},
		{"unknown payment status", owner, o.ID, "refunded", ErrInvalidPaymentStatus},
		{"unknown order", owner, "VFMISSING", "completed", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RecordPayment(context.Background(), tt.actor, tt.id, "pay_1", tt.status)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	stored, err := f.orders.FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentPending, stored.PaymentStatus)
	assert.Empty(t, stored.PaymentID)
	assert.Len(t, stored.History, 1)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusConfirmed))
	assert.True(t, CanTransition(StatusOutForDelivery, StatusCancelled))
	assert.False(t, CanTransition(StatusPending, StatusPreparing))
	assert.False(t, CanTransition(StatusDelivered, StatusCancelled))
	assert.True(t, StatusDelivered.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPreparing.IsTerminal())
}
