// Package cache provides a read-through Redis cache for single order lookups.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/food-orders/internal/domain/order"
)

var _ order.Repository = (*OrderCache)(nil)

// OrderCache wraps an order.Repository. FindByID is served from Redis when
// possible; every Update drops the cached entry and bumps a per-order
// generation. A reader only fills the cache if the generation is unchanged
// since before it read the store, so a fill never overwrites a newer update.
// Redis failures are logged and the call falls through to the wrapped
// repository.
type OrderCache struct {
	order.Repository

	client *redis.Client
	ttl    time.Duration
	genTTL time.Duration
	prefix string
}

// fillScript sets KEYS[1] only while KEYS[2] still holds ARGV[1].
var fillScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or ''
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// NewOrderCache returns a cache in front of repo keeping entries for ttl.
func NewOrderCache(repo order.Repository, client *redis.Client, ttl time.Duration) *OrderCache {
	return &OrderCache{
		Repository: repo,
		client:     client,
		ttl:        ttl,
		genTTL:     max(24*time.Hour, 10*ttl),
		prefix:     "orders:order:",
	}
}

// NewClient connects to Redis at addr, which may be a host:port pair or a
// redis:// URL.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "ping redis %s", opts.Addr)
	}
	return client, nil
}

func (c *OrderCache) key(id string) string {
	return c.prefix + id
}

func (c *OrderCache) genKey(id string) string {
	return c.prefix + id + ":gen"
}

func (c *OrderCache) FindByID(ctx context.Context, id string) (*order.Order, error) {
	lg := zctx.From(ctx)

	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	switch {
	case err == nil:
		var o order.Order
		if err := json.Unmarshal(data, &o); err == nil {
			return &o, nil
		}
		lg.Warn("Drop undecodable cached order", zap.String("order_id", id))
	case !errors.Is(err, redis.Nil):
		lg.Warn("Order cache get", zap.String("order_id", id), zap.Error(err))
	}

	// Sampled before reading the store: an update committed after this point
	// changes the generation and cancels the fill.
	gen, err := c.client.Get(ctx, c.genKey(id)).Result()
	canFill := true
	switch {
	case errors.Is(err, redis.Nil):
		gen = ""
	case err != nil:
		lg.Warn("Order cache generation", zap.String("order_id", id), zap.Error(err))
		canFill = false
	}

	o, err := c.Repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if canFill {
		if err := c.fill(ctx, o, gen); err != nil {
			lg.Warn("Order cache set", zap.String("order_id", id), zap.Error(err))
		}
	}
	return o, nil
}

func (c *OrderCache) Update(ctx context.Context, id string, fn func(o *order.Order) error) (*order.Order, error) {
	o, err := c.Repository.Update(ctx, id, fn)
	if err != nil {
		return nil, err
	}
	if err := c.Invalidate(ctx, id); err != nil {
		zctx.From(ctx).Warn("Order cache invalidate", zap.String("order_id", id), zap.Error(err))
	}
	return o, nil
}

// Invalidate removes the cached copy of the order and cancels fills that
// started before the call.
func (c *OrderCache) Invalidate(ctx context.Context, id string) error {
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, c.genKey(id))
		p.Expire(ctx, c.genKey(id), c.genTTL)
		p.Del(ctx, c.key(id))
		return nil
	})
	return err
}

// fill caches o unless the generation moved away from gen.
func (c *OrderCache) fill(ctx context.Context, o *order.Order, gen string) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshaling order %q: %w", o.ID, err)
	}
	keys := []string{c.key(o.ID), c.genKey(o.ID)}
	return fillScript.Run(ctx, c.client, keys, gen, data, c.ttl.Milliseconds()).Err()
}
