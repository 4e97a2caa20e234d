package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/food-orders/internal/domain/coupon"
)

func writeCoupon(w http.ResponseWriter, c *coupon.Coupon) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encodeCoupon(e, c)
	writeJSON(w, http.StatusOK, e)
}

// ListCoupons handles GET /api/coupons.
func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	list, err := h.coupons.List(r.Context(), actorFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.ArrStart()
	for i := range list {
		encodeCoupon(e, &list[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, e)
}

// CreateCoupon handles POST /api/coupons.
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	in, err := decodeCouponInput(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.coupons.Create(r.Context(), actorFrom(r), in.newCoupon())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCoupon(w, c)
}

// UpdateCoupon handles PUT /api/coupons/{code}.
func (h *Handler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	in, err := decodeCouponInput(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.coupons.Update(r.Context(), actorFrom(r), chi.URLParam(r, "code"), in.Patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCoupon(w, c)
}

// DeleteCoupon handles DELETE /api/coupons/{code}.
func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.coupons.Delete(r.Context(), actorFrom(r), chi.URLParam(r, "code")); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Coupon deleted")
}

// ValidateCoupon handles POST /api/coupons/validate. Unlike order placement,
// every rejection is reported to the caller.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var (
		code  string
		total decimal.Decimal
	)
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			code, err = d.Str()
		case "orderTotal":
			total, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	v, err := h.coupons.Validate(r.Context(), code, total)
	if err != nil {
		writeError(w, r, err)
		return
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.ObjStart()
	e.FieldStart("valid")
	e.Bool(true)
	e.FieldStart("discount")
	encodeDecimal(e, v.Discount)
	e.FieldStart("code")
	e.Str(v.Code)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e)
}
