package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/food-orders/internal/domain/order"
	"github.com/xenking/food-orders/internal/domain/user"
)

// owners looks up the owner of every order once per distinct user. Orders
// whose owner no longer exists get no summary.
func (h *Handler) owners(ctx context.Context, orders []order.Order) (map[string]*user.User, error) {
	out := make(map[string]*user.User)
	for i := range orders {
		id := orders[i].UserID
		if _, seen := out[id]; seen {
			continue
		}
		u, err := h.users.FindByID(ctx, id)
		switch {
		case err == nil:
			out[id] = u
		case errors.Is(err, user.ErrNotFound):
			out[id] = nil
		default:
			return nil, errors.Wrapf(err, "find owner %s", id)
		}
	}
	return out, nil
}

func writeOrders(w http.ResponseWriter, orders []order.Order, owners map[string]*user.User) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.ArrStart()
	for i := range orders {
		encodeOrder(e, &orders[i], owners[orders[i].UserID])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, e)
}

func writeOrder(w http.ResponseWriter, o *order.Order, owner *user.User) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encodeOrder(e, o, owner)
	writeJSON(w, http.StatusOK, e)
}

// PlaceOrder handles POST /api/orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	req, err := decodePlaceOrder(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.orders.PlaceOrder(r.Context(), actorFrom(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, o, nil)
}

// ListMyOrders handles GET /api/orders/my-orders.
func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListMyOrders(r.Context(), actorFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrders(w, orders, nil)
}

// ListAllOrders handles GET /api/orders/all.
func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orders, err := h.orders.ListAllOrders(ctx, actorFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	owners, err := h.owners(ctx, orders)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrders(w, orders, owners)
}

// GetOrder handles GET /api/orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	o, err := h.orders.GetOrder(ctx, actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	owners, err := h.owners(ctx, []order.Order{*o})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, o, owners[o.UserID])
}

// SetOrderStatus handles PUT /api/orders/{id}/status.
func (h *Handler) SetOrderStatus(w http.ResponseWriter, r *http.Request) {
	var status string
	if err := decodeStrings(r, map[string]*string{"status": &status}); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.orders.SetStatus(r.Context(), actorFrom(r), chi.URLParam(r, "id"), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, o, nil)
}

// RecordPayment handles POST /api/orders/{id}/payment.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var paymentID, paymentStatus string
	err := decodeStrings(r, map[string]*string{
		"paymentId":     &paymentID,
		"paymentStatus": &paymentStatus,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.orders.RecordPayment(r.Context(), actorFrom(r), chi.URLParam(r, "id"), paymentID, paymentStatus)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, o, nil)
}
