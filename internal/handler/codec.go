package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/food-orders/internal/domain/coupon"
	"github.com/xenking/food-orders/internal/domain/menu"
	"github.com/xenking/food-orders/internal/domain/order"
	"github.com/xenking/food-orders/internal/domain/user"
)

const maxBodySize = 1 << 20

// decodeObject reads a JSON object body, calling field for every key.
func decodeObject(r *http.Request, field func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return &decodeError{err: err}
	}
	err = jx.DecodeBytes(body).ObjBytes(func(d *jx.Decoder, key []byte) error {
		return field(d, string(key))
	})
	if err != nil {
		return &decodeError{err: err}
	}
	return nil
}

// decodeDecimal accepts both JSON numbers and numeric strings.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		raw = s
	} else {
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		raw = string(n)
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse amount %q", raw)
	}
	return v, nil
}

// decodeNullable reports true when the next value is null, consuming it.
func decodeNullable(d *jx.Decoder) (bool, error) {
	if d.Next() != jx.Null {
		return false, nil
	}
	return true, d.Null()
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse time %q", s)
	}
	return t, nil
}

func strPtr(d *jx.Decoder) (*string, error) {
	s, err := d.Str()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.String()))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

func encodeMenuItem(e *jx.Encoder, it *menu.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(it.ID)
	e.FieldStart("name")
	e.Str(it.Name)
	e.FieldStart("description")
	e.Str(it.Description)
	e.FieldStart("price")
	encodeDecimal(e, it.Price)
	e.FieldStart("category")
	e.Str(it.Category)
	e.FieldStart("image")
	e.Str(it.Image)
	e.FieldStart("available")
	e.Bool(it.Available)
	e.FieldStart("createdAt")
	encodeTime(e, it.CreatedAt)
	e.ObjEnd()
}

func decodeMenuPatch(r *http.Request) (menu.Patch, error) {
	var p menu.Patch
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			p.Name, err = strPtr(d)
		case "description":
			p.Description, err = strPtr(d)
		case "category":
			p.Category, err = strPtr(d)
		case "image":
			p.Image, err = strPtr(d)
		case "price":
			var v decimal.Decimal
			if v, err = decodeDecimal(d); err == nil {
				p.Price = &v
			}
		case "available":
			var v bool
			if v, err = d.Bool(); err == nil {
				p.Available = &v
			}
		default:
			err = d.Skip()
		}
		return err
	})
	return p, err
}

func encodeCoupon(e *jx.Encoder, c *coupon.Coupon) {
	e.ObjStart()
	e.FieldStart("code")
	e.Str(c.Code)
	e.FieldStart("discount")
	encodeDecimal(e, c.Value)
	e.FieldStart("discountType")
	e.Str(string(c.Kind))
	e.FieldStart("minOrder")
	encodeDecimal(e, c.MinOrder)
	e.FieldStart("maxDiscount")
	if c.MaxDiscount != nil {
		encodeDecimal(e, *c.MaxDiscount)
	} else {
		e.Null()
	}
	e.FieldStart("active")
	e.Bool(c.Active)
	e.FieldStart("expiryDate")
	if c.ExpiresAt != nil {
		encodeTime(e, *c.ExpiresAt)
	} else {
		e.Null()
	}
	e.FieldStart("createdAt")
	encodeTime(e, c.CreatedAt)
	e.ObjEnd()
}

// couponInput is a create or update body. Code is ignored on update.
type couponInput struct {
	Code  string
	Patch coupon.Patch
}

func decodeRegistration(r *http.Request) (user.Registration, error) {
	var in user.Registration
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			in.Name, err = d.Str()
		case "email":
			in.Email, err = d.Str()
		case "phone":
			in.Phone, err = d.Str()
		case "address":
			in.Address, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return in, err
}

func decodeCouponInput(r *http.Request) (couponInput, error) {
	var in couponInput
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			in.Code, err = d.Str()
		case "discount":
			var v decimal.Decimal
			if v, err = decodeDecimal(d); err == nil {
				in.Patch.Value = &v
			}
		case "discountType":
			var s string
			if s, err = d.Str(); err == nil {
				k := coupon.Kind(s)
				in.Patch.Kind = &k
			}
		case "minOrder":
			var v decimal.Decimal
			if v, err = decodeDecimal(d); err == nil {
				in.Patch.MinOrder = &v
			}
		case "maxDiscount":
			var null bool
			if null, err = decodeNullable(d); err != nil || null {
				in.Patch.ClearMaxDiscount = null
				return err
			}
			var v decimal.Decimal
			if v, err = decodeDecimal(d); err == nil {
				in.Patch.MaxDiscount = &v
			}
		case "active":
			var v bool
			if v, err = d.Bool(); err == nil {
				in.Patch.Active = &v
			}
		case "expiryDate":
			var null bool
			if null, err = decodeNullable(d); err != nil || null {
				in.Patch.ClearExpiry = null
				return err
			}
			var t time.Time
			if t, err = decodeTime(d); err == nil {
				in.Patch.ExpiresAt = &t
			}
		default:
			err = d.Skip()
		}
		return err
	})
	return in, err
}

// newCoupon builds a coupon from a create body. Active defaults to true.
func (in couponInput) newCoupon() coupon.Coupon {
	c := coupon.Coupon{Code: in.Code, Active: true}
	p := in.Patch
	if p.Value != nil {
		c.Value = *p.Value
	}
	if p.Kind != nil {
		c.Kind = *p.Kind
	}
	if p.MinOrder != nil {
		c.MinOrder = *p.MinOrder
	}
	if p.Active != nil {
		c.Active = *p.Active
	}
	c.MaxDiscount = p.MaxDiscount
	c.ExpiresAt = p.ExpiresAt
	return c
}

func encodeUserSummary(e *jx.Encoder, u *user.User) {
	e.ObjStart()
	e.FieldStart("name")
	e.Str(u.Name)
	e.FieldStart("email")
	e.Str(u.Email)
	e.FieldStart("phone")
	e.Str(u.Phone)
	e.ObjEnd()
}

func encodeUser(e *jx.Encoder, u *user.User) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(u.ID)
	e.FieldStart("email")
	e.Str(u.Email)
	e.FieldStart("name")
	e.Str(u.Name)
	e.FieldStart("phone")
	e.Str(u.Phone)
	e.FieldStart("address")
	e.Str(u.Address)
	e.FieldStart("role")
	e.Str(string(u.Role))
	e.FieldStart("createdAt")
	encodeTime(e, u.CreatedAt)
	e.ObjEnd()
}

// encodeOrder writes o. owner is attached as "user" when known.
func encodeOrder(e *jx.Encoder, o *order.Order, owner *user.User) {
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(o.ID)
	e.FieldStart("userId")
	e.Str(o.UserID)
	if owner != nil {
		e.FieldStart("user")
		encodeUserSummary(e, owner)
	}
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range o.Items {
		e.ObjStart()
		e.FieldStart("menuItemId")
		e.Str(l.ItemID)
		e.FieldStart("name")
		e.Str(l.Name)
		e.FieldStart("price")
		encodeDecimal(e, l.Price)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("subtotal")
	encodeDecimal(e, o.Subtotal)
	e.FieldStart("discount")
	encodeDecimal(e, o.Discount)
	e.FieldStart("total")
	encodeDecimal(e, o.Total)
	e.FieldStart("couponCode")
	e.Str(o.CouponCode)
	e.FieldStart("deliveryAddress")
	e.Str(o.DeliveryAddress)
	e.FieldStart("phone")
	e.Str(o.Phone)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("paymentMethod")
	e.Str(o.PaymentMethod)
	e.FieldStart("paymentStatus")
	e.Str(string(o.PaymentStatus))
	e.FieldStart("paymentId")
	e.Str(o.PaymentID)
	e.FieldStart("estimatedDeliveryTime")
	e.Int(o.EstimatedDelivery)
	e.FieldStart("createdAt")
	encodeTime(e, o.CreatedAt)
	e.FieldStart("statusHistory")
	e.ArrStart()
	for _, h := range o.History {
		e.ObjStart()
		e.FieldStart("status")
		e.Str(string(h.Status))
		e.FieldStart("timestamp")
		encodeTime(e, h.At)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

func decodePlaceOrder(r *http.Request) (order.PlaceOrderRequest, error) {
	var req order.PlaceOrderRequest
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "items":
			err = d.Arr(func(d *jx.Decoder) error {
				var l order.LineRequest
				if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
					var err error
					switch string(key) {
					case "menuItemId":
						l.ItemID, err = d.Str()
					case "name":
						l.Name, err = d.Str()
					case "quantity":
						l.Quantity, err = d.Int()
					default:
						err = d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				req.Items = append(req.Items, l)
				return nil
			})
		case "deliveryAddress":
			req.DeliveryAddress, err = d.Str()
		case "phone":
			req.Phone, err = d.Str()
		case "paymentMethod":
			req.PaymentMethod, err = d.Str()
		case "couponCode":
			var null bool
			if null, err = decodeNullable(d); err != nil || null {
				return err
			}
			req.CouponCode, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

// decodeStrings reads a flat object of string fields into dst.
func decodeStrings(r *http.Request, dst map[string]*string) error {
	return decodeObject(r, func(d *jx.Decoder, key string) error {
		p, ok := dst[key]
		if !ok {
			return d.Skip()
		}
		s, err := d.Str()
		*p = s
		return err
	})
}
