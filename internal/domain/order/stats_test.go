package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/food-orders/internal/domain/auth"
)

func TestComputeStats(t *testing.T) {
	f := newFixture(t)
	paid := f.place(t, "SAVE10", LineRequest{ItemID: "biryani", Quantity: 2})
	f.place(t, "", LineRequest{ItemID: "naan", Quantity: 1})
	_, err := f.svc.RecordPayment(context.Background(), owner, paid.ID, "pay_1", string(PaymentCompleted))
	require.NoError(t, err)

	st, err := f.svc.ComputeStats(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.TotalOrders)
	assert.Equal(t, int64(1), st.PendingOrders)
	assert.True(t, dec("460").Equal(st.TotalRevenue), "revenue %s", st.TotalRevenue)
	assert.Equal(t, int64(7), st.TotalCustomers)

	_, err = f.svc.ComputeStats(context.Background(), owner)
	require.ErrorIs(t, err, auth.ErrAccessDenied)
}

func TestComputeStats_Error(t *testing.T) {
	f := newFixture(t)
	f.svc.customers = mockCustomerCounter{err: errors.New("users unavailable")}

	_, err := f.svc.ComputeStats(context.Background(), admin)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count customers")
}
