package coupon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind enumerates the supported discount strategies.
type Kind string

const (
	// KindPercentage takes a percentage of the subtotal, optionally capped.
	KindPercentage Kind = "percentage"
	// KindFixed takes a fixed amount regardless of the subtotal.
	KindFixed Kind = "fixed"
)

// Valid reports whether k is a known discount kind.
func (k Kind) Valid() bool {
	return k == KindPercentage || k == KindFixed
}

var (
	// ErrInvalidCoupon is returned when no coupon matches the supplied code.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrCouponInactive is returned when the coupon has been switched off.
	ErrCouponInactive = errors.New("coupon inactive")
	// ErrCouponExpired is returned when the coupon expiry is not after now.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrNotFound is returned by repositories for unknown codes.
	ErrNotFound = errors.New("coupon not found")
	// ErrDuplicateCode is returned when creating a coupon whose code exists.
	ErrDuplicateCode = errors.New("coupon code already exists")
)

// MinimumOrderError indicates the subtotal is below the coupon threshold.
type MinimumOrderError struct {
	MinOrder decimal.Decimal
}

func (e *MinimumOrderError) Error() string {
	return fmt.Sprintf("minimum order value of %s required", e.MinOrder.StringFixed(0))
}

// ValidationError reports a malformed coupon definition.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsRejection reports whether err means the coupon cannot be applied, as
// opposed to a failure to look it up.
func IsRejection(err error) bool {
	var minErr *MinimumOrderError
	return errors.Is(err, ErrInvalidCoupon) ||
		errors.Is(err, ErrCouponInactive) ||
		errors.Is(err, ErrCouponExpired) ||
		errors.As(err, &minErr)
}

// Coupon is a discount definition. Code is stored in canonical form.
type Coupon struct {
	Code  string
	Value decimal.Decimal
	Kind  Kind
	// MinOrder is the lowest subtotal the coupon applies to.
	MinOrder decimal.Decimal
	// MaxDiscount caps percentage discounts. Nil means uncapped.
	MaxDiscount *decimal.Decimal
	Active      bool
	ExpiresAt   *time.Time
	CreatedAt   time.Time
}

// Canonicalize returns the stored form of a user supplied code.
func Canonicalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Repository provides lookup and maintenance of coupons keyed by canonical code.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// List returns coupons newest first.
	List(ctx context.Context) ([]Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, code string) error
}
