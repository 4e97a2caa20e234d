package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/food-orders/internal/domain/auth"
)

// Stats summarizes orders for the admin dashboard.
type Stats struct {
	TotalOrders    int64
	PendingOrders  int64
	TotalRevenue   decimal.Decimal
	TotalCustomers int64
}

// ComputeStats runs the dashboard aggregates concurrently.
func (s *Service) ComputeStats(ctx context.Context, actor auth.Actor) (*Stats, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}

	var st Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.TotalOrders, err = s.orders.CountAll(gctx)
		return errors.Wrap(err, "count orders")
	})
	g.Go(func() (err error) {
		st.PendingOrders, err = s.orders.CountByStatus(gctx, StatusPending)
		return errors.Wrap(err, "count pending orders")
	})
	g.Go(func() (err error) {
		st.TotalRevenue, err = s.orders.SumCompletedRevenue(gctx)
		return errors.Wrap(err, "sum revenue")
	})
	g.Go(func() (err error) {
		st.TotalCustomers, err = s.customers.CountByRole(gctx, auth.RoleCustomer)
		return errors.Wrap(err, "count customers")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &st, nil
}
