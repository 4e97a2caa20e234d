package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/food-orders/internal/domain/auth"
)

// Applier computes the discount a code grants on a subtotal. Rejections are
// reported as errors for which IsRejection holds.
type Applier interface {
	Apply(ctx context.Context, code string, subtotal decimal.Decimal) (decimal.Decimal, error)
}

// Validation is the outcome of a successful coupon check.
type Validation struct {
	Code     string
	Discount decimal.Decimal
}

// Patch holds a partial coupon update. Nil fields are left unchanged.
type Patch struct {
	Value       *decimal.Decimal
	Kind        *Kind
	MinOrder    *decimal.Decimal
	MaxDiscount *decimal.Decimal
	Active      *bool
	ExpiresAt   *time.Time
	// ClearMaxDiscount and ClearExpiry remove the cap and the expiry.
	ClearMaxDiscount bool
	ClearExpiry      bool
}

// Service evaluates coupons against subtotals and lets admins maintain them.
type Service struct {
	repo Repository
	now  func() time.Time
}

var _ Applier = (*Service)(nil)

// NewService creates a coupon Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Apply looks up code in canonical form and evaluates it against subtotal.
func (s *Service) Apply(ctx context.Context, code string, subtotal decimal.Decimal) (decimal.Decimal, error) {
	c, err := s.repo.FindByCode(ctx, Canonicalize(code))
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidCoupon) {
			return decimal.Zero, ErrInvalidCoupon
		}
		return decimal.Zero, errors.Wrap(err, "lookup coupon")
	}
	return Evaluate(c, subtotal, s.now())
}

// Validate checks code against orderTotal and fails hard on any rejection.
func (s *Service) Validate(ctx context.Context, code string, orderTotal decimal.Decimal) (*Validation, error) {
	discount, err := s.Apply(ctx, code, orderTotal)
	if err != nil {
		return nil, err
	}
	return &Validation{Code: Canonicalize(code), Discount: discount}, nil
}

// List returns every coupon, newest first.
func (s *Service) List(ctx context.Context, actor auth.Actor) ([]Coupon, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	coupons, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}
	return coupons, nil
}

// Create stores a new coupon. The code is canonicalized and the kind defaults
// to percentage.
func (s *Service) Create(ctx context.Context, actor auth.Actor, c Coupon) (*Coupon, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	c.Code = Canonicalize(c.Code)
	if c.Kind == "" {
		c.Kind = KindPercentage
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.CreatedAt = s.now()
	if err := s.repo.Create(ctx, &c); err != nil {
		if errors.Is(err, ErrDuplicateCode) {
			return nil, err
		}
		return nil, errors.Wrap(err, "create coupon")
	}
	return &c, nil
}

// Update applies patch to the coupon identified by code.
func (s *Service) Update(ctx context.Context, actor auth.Actor, code string, patch Patch) (*Coupon, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	c, err := s.repo.FindByCode(ctx, Canonicalize(code))
	if err != nil {
		return nil, err
	}
	if patch.Value != nil {
		c.Value = *patch.Value
	}
	if patch.Kind != nil {
		c.Kind = *patch.Kind
	}
	if patch.MinOrder != nil {
		c.MinOrder = *patch.MinOrder
	}
	if patch.MaxDiscount != nil {
		c.MaxDiscount = patch.MaxDiscount
	}
	if patch.ClearMaxDiscount {
		c.MaxDiscount = nil
	}
	if patch.Active != nil {
		c.Active = *patch.Active
	}
	if patch.ExpiresAt != nil {
		c.ExpiresAt = patch.ExpiresAt
	}
	if patch.ClearExpiry {
		c.ExpiresAt = nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, errors.Wrap(err, "update coupon")
	}
	return c, nil
}

// Delete removes the coupon. Orders keep the code they recorded.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, code string) error {
	if err := auth.RequireAdmin(actor); err != nil {
		return err
	}
	return s.repo.Delete(ctx, Canonicalize(code))
}

// Validate checks the fields an admin or importer may set.
func (c *Coupon) Validate() error {
	switch {
	case c.Code == "":
		return &ValidationError{Field: "code", Message: "required"}
	case !c.Kind.Valid():
		return &ValidationError{Field: "discountType", Message: "must be percentage or fixed"}
	case !c.Value.IsPositive():
		return &ValidationError{Field: "discount", Message: "must be greater than 0"}
	case c.Kind == KindPercentage && c.Value.GreaterThan(hundred):
		return &ValidationError{Field: "discount", Message: "percentage must not exceed 100"}
	case c.MinOrder.IsNegative():
		return &ValidationError{Field: "minOrder", Message: "must not be negative"}
	case c.MaxDiscount != nil && !c.MaxDiscount.IsPositive():
		return &ValidationError{Field: "maxDiscount", Message: "must be greater than 0"}
	}
	return nil
}
