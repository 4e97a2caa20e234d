package main

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/food-orders/internal/domain/coupon"
)

// Recognized header columns. code and discount are required.
const (
	colCode        = "code"
	colKind        = "discount_type"
	colDiscount    = "discount"
	colMinOrder    = "min_order"
	colMaxDiscount = "max_discount"
	colExpiresAt   = "expires_at"
	colActive      = "active"
)

// readFile parses a coupon CSV, gzip-compressed when the name ends in .gz.
// Rows that fail validation are logged and counted, not fatal.
func readFile(ctx context.Context, path string) ([]coupon.Coupon, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	return parseCSV(ctx, r, time.Now())
}

func parseCSV(ctx context.Context, r io.Reader, now time.Time) ([]coupon.Coupon, int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, 0, errors.Wrap(err, "read header")
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colCode, colDiscount} {
		if _, ok := cols[required]; !ok {
			return nil, 0, errors.Errorf("missing %q column", required)
		}
	}

	var (
		coupons  []coupon.Coupon
		rejected int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, errors.Wrap(err, "read record")
		}

		c, err := parseRecord(cols, rec, now)
		if err != nil {
			line, _ := cr.FieldPos(0)
			slog.Warn("rejected row", slog.Int("line", line), slog.String("error", err.Error()))
			rejected++
			continue
		}
		coupons = append(coupons, c)
	}
	return coupons, rejected, nil
}

func parseRecord(cols map[string]int, rec []string, now time.Time) (coupon.Coupon, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	c := coupon.Coupon{
		Code:      coupon.Canonicalize(field(colCode)),
		Kind:      coupon.KindPercentage,
		Active:    true,
		CreatedAt: now,
	}
	if s := field(colKind); s != "" {
		c.Kind = coupon.Kind(strings.ToLower(s))
	}

	var err error
	if c.Value, err = decimal.NewFromString(field(colDiscount)); err != nil {
		return c, errors.Wrap(err, "discount")
	}
	if s := field(colMinOrder); s != "" {
		if c.MinOrder, err = decimal.NewFromString(s); err != nil {
			return c, errors.Wrap(err, "min_order")
		}
	}
	if s := field(colMaxDiscount); s != "" {
		v, err := decimal.NewFromString(s)
		if err != nil {
			return c, errors.Wrap(err, "max_discount")
		}
		c.MaxDiscount = &v
	}
	if s := field(colExpiresAt); s != "" {
		t, err := parseExpiry(s)
		if err != nil {
			return c, errors.Wrap(err, "expires_at")
		}
		c.ExpiresAt = &t
	}
	if s := field(colActive); s != "" {
		if c.Active, err = strconv.ParseBool(s); err != nil {
			return c, errors.Wrap(err, "active")
		}
	}

	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// parseExpiry accepts RFC 3339 timestamps or plain dates. A plain date
// expires at the end of that day in UTC.
func parseExpiry(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(24*time.Hour - time.Nanosecond), nil
}
