// Package handler exposes the order engine as a JSON API under /api.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/food-orders/internal/domain/coupon"
	"github.com/xenking/food-orders/internal/domain/menu"
	"github.com/xenking/food-orders/internal/domain/order"
	"github.com/xenking/food-orders/internal/domain/user"
)

// Handler serves the HTTP API.
type Handler struct {
	menu    *menu.Service
	coupons *coupon.Service
	orders  *order.Service
	users   user.Repository
	authn   *Authenticator
}

// New constructs a Handler with the required domain dependencies.
func New(
	menuSvc *menu.Service,
	couponSvc *coupon.Service,
	orderSvc *order.Service,
	users user.Repository,
	authn *Authenticator,
) *Handler {
	return &Handler{
		menu:    menuSvc,
		coupons: couponSvc,
		orders:  orderSvc,
		users:   users,
		authn:   authn,
	}
}

// Router returns a chi router serving the API. Middlewares passed here run
// after route matching, so RoutePattern is available to them once the
// handler returns.
func (h *Handler) Router(middlewares ...func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middlewares...)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/menu", h.ListMenu)
		r.Post("/auth/register", h.Register)

		r.Group(func(r chi.Router) {
			r.Use(h.authn.Middleware)

			r.Get("/auth/me", h.Me)

			r.Get("/menu/all", h.ListAllMenu)
			r.Post("/menu", h.CreateMenuItem)
			r.Put("/menu/{id}", h.UpdateMenuItem)
			r.Delete("/menu/{id}", h.DeleteMenuItem)

			r.Get("/coupons", h.ListCoupons)
			r.Post("/coupons", h.CreateCoupon)
			r.Post("/coupons/validate", h.ValidateCoupon)
			r.Put("/coupons/{code}", h.UpdateCoupon)
			r.Delete("/coupons/{code}", h.DeleteCoupon)

			r.Post("/orders", h.PlaceOrder)
			r.Get("/orders/my-orders", h.ListMyOrders)
			r.Get("/orders/all", h.ListAllOrders)
			r.Get("/orders/{id}", h.GetOrder)
			r.Put("/orders/{id}/status", h.SetOrderStatus)
			r.Post("/orders/{id}/payment", h.RecordPayment)

			r.Get("/stats", h.Stats)
		})
	})
	return r
}

// RoutePattern returns the chi route matched for r, or "".
func RoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}

func writeStatus(w http.ResponseWriter, code int, msg string) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.ObjStart()
	e.FieldStart("code")
	e.Int(code)
	e.FieldStart("message")
	e.Str(msg)
	e.ObjEnd()
	writeJSON(w, code, e)
}

func writeMessage(w http.ResponseWriter, msg string) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.ObjStart()
	e.FieldStart("message")
	e.Str(msg)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e)
}
