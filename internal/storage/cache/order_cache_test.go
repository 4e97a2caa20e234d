package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/food-orders/internal/domain/order"
)

type stubRepo struct {
	order.Repository
	o     *order.Order
	finds int
}

func (r *stubRepo) FindByID(context.Context, string) (*order.Order, error) {
	r.finds++
	return r.o.Clone(), nil
}

func (r *stubRepo) Update(_ context.Context, _ string, fn func(*order.Order) error) (*order.Order, error) {
	cp := r.o.Clone()
	if err := fn(cp); err != nil {
		return nil, err
	}
	r.o = cp
	return cp, nil
}

func TestOrderCache_RedisDownFallsThrough(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	inner := &stubRepo{o: &order.Order{ID: "VF1", Status: order.StatusPending}}
	c := NewOrderCache(inner, client, time.Minute)

	o, err := c.FindByID(context.Background(), "VF1")
	require.NoError(t, err)
	assert.Equal(t, "VF1", o.ID)
	assert.Equal(t, 1, inner.finds)

	updated, err := c.Update(context.Background(), "VF1", func(o *order.Order) error {
		o.Status = order.StatusConfirmed
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, updated.Status)
}

func TestOrderCache_UpdateErrorPassesThrough(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	inner := &stubRepo{o: &order.Order{ID: "VF1", Status: order.StatusPending}}
	c := NewOrderCache(inner, client, time.Minute)

	_, err := c.Update(context.Background(), "VF1", func(*order.Order) error { return order.ErrInvalidStatus })
	require.ErrorIs(t, err, order.ErrInvalidStatus)
	assert.Equal(t, order.StatusPending, inner.o.Status)
}
