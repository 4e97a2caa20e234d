package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/food-orders/internal/domain/auth"
)

type mockCouponRepo struct {
	byCode    map[string]*Coupon
	findErr   error
	findCalls int
	lastCode  string
}

func newMockRepo(coupons ...Coupon) *mockCouponRepo {
	m := &mockCouponRepo{byCode: make(map[string]*Coupon)}
	for i := range coupons {
		m.byCode[coupons[i].Code] = &coupons[i]
	}
	return m
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*Coupon, error) {
	m.findCalls++
	m.lastCode = code
	if m.findErr != nil {
		return nil, m.findErr
	}
	c, ok := m.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCouponRepo) List(_ context.Context) ([]Coupon, error) {
	out := make([]Coupon, 0, len(m.byCode))
	for _, c := range m.byCode {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockCouponRepo) Create(_ context.Context, c *Coupon) error {
	if _, ok := m.byCode[c.Code]; ok {
		return ErrDuplicateCode
	}
	cp := *c
	m.byCode[c.Code] = &cp
	return nil
}

func (m *mockCouponRepo) Update(_ context.Context, c *Coupon) error {
	if _, ok := m.byCode[c.Code]; !ok {
		return ErrNotFound
	}
	cp := *c
	m.byCode[c.Code] = &cp
	return nil
}

func (m *mockCouponRepo) Delete(_ context.Context, code string) error {
	if _, ok := m.byCode[code]; !ok {
		return ErrNotFound
	}
	delete(m.byCode, code)
	return nil
}

var (
	admin    = auth.Actor{UserID: "admin", Role: auth.RoleAdmin}
	customer = auth.Actor{UserID: "c1", Role: auth.RoleCustomer}
)

func save10() Coupon {
	return Coupon{Code: "SAVE10", Kind: KindPercentage, Value: dec("10"), MaxDiscount: decPtr("40"), Active: true}
}

func TestService_Validate(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	expired := fixedNow.Add(-time.Minute)

	tests := []struct {
		name         string
		repo         *mockCouponRepo
		code         string
		total        string
		wantDiscount string
		wantErr      error
		wantMinErr   bool
	}{
		{
			name:         "lowercase code is canonicalized",
			repo:         newMockRepo(save10()),
			code:         " save10",
			total:        "500",
			wantDiscount: "40",
		},
		{
			name:    "unknown code",
			repo:    newMockRepo(),
			code:    "BOGUS",
			total:   "500",
			wantErr: ErrInvalidCoupon,
		},
		{
			name: "inactive code",
			repo: newMockRepo(Coupon{Code: "OFF", Kind: KindFixed, Value: dec("10")}),
			code: "off", total: "500",
			wantErr: ErrCouponInactive,
		},
		{
			name: "expired code",
			repo: newMockRepo(Coupon{Code: "OLD", Kind: KindFixed, Value: dec("10"), Active: true, ExpiresAt: &expired}),
			code: "old", total: "500",
			wantErr: ErrCouponExpired,
		},
		{
			name: "below minimum",
			repo: newMockRepo(Coupon{Code: "BIG", Kind: KindFixed, Value: dec("10"), Active: true, MinOrder: dec("300")}),
			code: "big", total: "200",
			wantMinErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.repo)
			svc.now = func() time.Time { return fixedNow }

			got, err := svc.Validate(context.Background(), tt.code, dec(tt.total))
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			case tt.wantMinErr:
				var minErr *MinimumOrderError
				require.ErrorAs(t, err, &minErr)
				assert.Nil(t, got)
			default:
				require.NoError(t, err)
				assert.Equal(t, "SAVE10", got.Code)
				assert.True(t, dec(tt.wantDiscount).Equal(got.Discount))
			}
			assert.Equal(t, Canonicalize(tt.code), tt.repo.lastCode)
		})
	}
}

func TestService_Apply_InfrastructureError(t *testing.T) {
	repo := newMockRepo()
	repo.findErr = errors.New("connection refused")

	_, err := NewService(repo).Apply(context.Background(), "SAVE10", dec("100"))
	require.Error(t, err)
	assert.False(t, IsRejection(err))
	assert.Contains(t, err.Error(), "lookup coupon")
}

func TestService_AdminOnly(t *testing.T) {
	repo := newMockRepo(save10())
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.List(ctx, customer)
	require.ErrorIs(t, err, auth.ErrAccessDenied)

	_, err = svc.Create(ctx, customer, Coupon{Code: "NEW", Value: dec("5")})
	require.ErrorIs(t, err, auth.ErrAccessDenied)

	active := false
	_, err = svc.Update(ctx, customer, "SAVE10", Patch{Active: &active})
	require.ErrorIs(t, err, auth.ErrAccessDenied)

	require.ErrorIs(t, svc.Delete(ctx, customer, "SAVE10"), auth.ErrAccessDenied)
	assert.Len(t, repo.byCode, 1)
}

func TestService_Create(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	c, err := svc.Create(context.Background(), admin, Coupon{Code: " welcome ", Value: dec("20"), Active: true})
	require.NoError(t, err)
	assert.Equal(t, "WELCOME", c.Code)
	assert.Equal(t, KindPercentage, c.Kind)
	assert.False(t, c.CreatedAt.IsZero())
	assert.Contains(t, repo.byCode, "WELCOME")

	_, err = svc.Create(context.Background(), admin, Coupon{Code: "welcome", Value: dec("20")})
	require.ErrorIs(t, err, ErrDuplicateCode)
}

func TestService_Create_Validation(t *testing.T) {
	svc := NewService(newMockRepo())

	tests := []struct {
		name      string
		coupon    Coupon
		wantField string
	}{
		{"empty code", Coupon{Code: "  ", Value: dec("5")}, "code"},
		{"unknown kind", Coupon{Code: "X", Kind: "bogo", Value: dec("5")}, "discountType"},
		{"zero value", Coupon{Code: "X", Value: decimal.Zero}, "discount"},
		{"percentage above 100", Coupon{Code: "X", Value: dec("101")}, "discount"},
		{"negative minimum", Coupon{Code: "X", Value: dec("5"), MinOrder: dec("-1")}, "minOrder"},
		{"zero cap", Coupon{Code: "X", Value: dec("5"), MaxDiscount: decPtr("0")}, "maxDiscount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), admin, tt.coupon)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestService_Update(t *testing.T) {
	repo := newMockRepo(save10())
	svc := NewService(repo)

	active := false
	c, err := svc.Update(context.Background(), admin, "save10", Patch{Active: &active, ClearMaxDiscount: true})
	require.NoError(t, err)
	assert.False(t, c.Active)
	assert.Nil(t, c.MaxDiscount)
	assert.False(t, repo.byCode["SAVE10"].Active)

	_, err = svc.Update(context.Background(), admin, "missing", Patch{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_Delete(t *testing.T) {
	repo := newMockRepo(save10())
	svc := NewService(repo)

	require.NoError(t, svc.Delete(context.Background(), admin, "save10"))
	assert.Empty(t, repo.byCode)
	require.ErrorIs(t, svc.Delete(context.Background(), admin, "save10"), ErrNotFound)
}
