package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/food-orders/internal/domain/auth"
	"github.com/xenking/food-orders/internal/domain/coupon"
	"github.com/xenking/food-orders/internal/domain/menu"
	"github.com/xenking/food-orders/internal/domain/order"
	"github.com/xenking/food-orders/internal/domain/user"
)

// errBadRequest marks request bodies that could not be decoded.
var errBadRequest = errors.New("malformed request body")

type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return errBadRequest.Error() + ": " + e.err.Error() }

func (e *decodeError) Unwrap() error { return errBadRequest }

// statusOf maps domain errors to HTTP status codes. Unknown errors are 500.
func statusOf(err error) int {
	var (
		orderValidation  *order.ValidationError
		menuValidation   *menu.ValidationError
		couponValidation *coupon.ValidationError
		userValidation   *user.ValidationError
		quantity         *order.InvalidQuantityError
		unavailable      *order.ItemUnavailableError
		transition       *order.InvalidTransitionError
		minimum          *coupon.MinimumOrderError
	)
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, errBadRequest),
		errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrInvalidPaymentStatus),
		errors.As(err, &orderValidation),
		errors.As(err, &menuValidation),
		errors.As(err, &couponValidation),
		errors.As(err, &userValidation),
		errors.As(err, &quantity),
		errors.As(err, &unavailable),
		errors.As(err, &minimum):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, menu.ErrNotFound),
		errors.Is(err, user.ErrNotFound),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, coupon.ErrCouponInactive),
		errors.Is(err, coupon.ErrCouponExpired):
		return http.StatusNotFound
	case errors.Is(err, coupon.ErrDuplicateCode),
		errors.Is(err, user.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.As(err, &transition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"code", "message"}. Internal errors are logged
// and their message is hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	msg := err.Error()
	switch {
	case code >= http.StatusInternalServerError:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		msg = "internal server error"
	case errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, coupon.ErrCouponInactive),
		errors.Is(err, coupon.ErrCouponExpired):
		msg = "invalid or expired coupon"
	}
	writeStatus(w, code, msg)
}

func writeJSON(w http.ResponseWriter, code int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
