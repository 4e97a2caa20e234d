package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/food-orders/internal/domain/coupon"
)

var _ coupon.Repository = (*CouponRepository)(nil)

const couponColumns = `code, discount, kind, min_order, max_discount, active, expires_at, created_at`

const (
	getCouponSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC, code`

	insertCouponSQL = `INSERT INTO coupons (` + couponColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	updateCouponSQL = `UPDATE coupons
SET discount = $2, kind = $3, min_order = $4, max_discount = $5, active = $6, expires_at = $7
WHERE code = $1`

	deleteCouponSQL = `DELETE FROM coupons WHERE code = $1`

	upsertCouponSQL = `INSERT INTO coupons (` + couponColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (code) DO UPDATE
SET discount = EXCLUDED.discount, kind = EXCLUDED.kind, min_order = EXCLUDED.min_order,
    max_discount = EXCLUDED.max_discount, active = EXCLUDED.active, expires_at = EXCLUDED.expires_at`
)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
// Codes are expected in canonical form.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c       coupon.Coupon
		kind    string
		maxDisc decimal.NullDecimal
	)
	if err := row.Scan(&c.Code, &c.Value, &kind, &c.MinOrder, &maxDisc,
		&c.Active, &c.ExpiresAt, &c.CreatedAt); err != nil {
		return c, err
	}
	c.Kind = coupon.Kind(kind)
	if maxDisc.Valid {
		c.MaxDiscount = &maxDisc.Decimal
	}
	return c, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

// FindByCode returns coupon.ErrNotFound when no coupon has the code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	coupons, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, fmt.Errorf("scanning coupons: %w", err)
	}
	return coupons, nil
}

// Create returns coupon.ErrDuplicateCode when the code is taken.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, insertCouponSQL, c.Code, c.Value, string(c.Kind), c.MinOrder,
		nullDecimal(c.MaxDiscount), c.Active, c.ExpiresAt, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return coupon.ErrDuplicateCode
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	tag, err := r.pool.Exec(ctx, updateCouponSQL, c.Code, c.Value, string(c.Kind), c.MinOrder,
		nullDecimal(c.MaxDiscount), c.Active, c.ExpiresAt)
	if err != nil {
		return fmt.Errorf("updating coupon %q: %w", c.Code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

func (r *CouponRepository) Delete(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, code)
	if err != nil {
		return fmt.Errorf("deleting coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Upsert inserts the coupon or overwrites the stored one with the same code.
func (r *CouponRepository) Upsert(ctx context.Context, c *coupon.Coupon) error {
	if _, err := r.pool.Exec(ctx, upsertCouponSQL, c.Code, c.Value, string(c.Kind), c.MinOrder,
		nullDecimal(c.MaxDiscount), c.Active, c.ExpiresAt, c.CreatedAt); err != nil {
		return fmt.Errorf("upserting coupon %q: %w", c.Code, err)
	}
	return nil
}

// UpsertBatch upserts coupons in one round trip.
func (r *CouponRepository) UpsertBatch(ctx context.Context, coupons []coupon.Coupon) error {
	batch := &pgx.Batch{}
	for i := range coupons {
		c := &coupons[i]
		batch.Queue(upsertCouponSQL, c.Code, c.Value, string(c.Kind), c.MinOrder,
			nullDecimal(c.MaxDiscount), c.Active, c.ExpiresAt, c.CreatedAt)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upserting %d coupons: %w", len(coupons), err)
	}
	return nil
}
