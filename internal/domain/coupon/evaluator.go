package coupon

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Evaluate computes the discount c grants on subtotal at now. A nil coupon is
// rejected with ErrInvalidCoupon. Amounts are rounded half away from zero to
// whole currency units.
func Evaluate(c *Coupon, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	switch {
	case c == nil:
		return decimal.Zero, ErrInvalidCoupon
	case !c.Active:
		return decimal.Zero, ErrCouponInactive
	case c.ExpiresAt != nil && !c.ExpiresAt.After(now):
		return decimal.Zero, ErrCouponExpired
	case subtotal.LessThan(c.MinOrder):
		return decimal.Zero, &MinimumOrderError{MinOrder: c.MinOrder}
	}

	if c.Kind == KindFixed {
		return c.Value.Round(0), nil
	}

	discount := subtotal.Mul(c.Value).Div(hundred).Round(0)
	if c.MaxDiscount != nil && discount.GreaterThan(*c.MaxDiscount) {
		discount = c.MaxDiscount.Round(0)
	}
	return discount, nil
}
