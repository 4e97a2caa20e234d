package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/food-orders/internal/domain/user"
)

// Register handles POST /api/auth/register. The new account is a customer
// without credentials until an API key is issued for it.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	in, err := decodeRegistration(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := user.Register(r.Context(), h.users, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encodeUser(e, u)
	writeJSON(w, http.StatusCreated, e)
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.FindByID(r.Context(), actorFrom(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encodeUser(e, u)
	writeJSON(w, http.StatusOK, e)
}

// Stats handles GET /api/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.orders.ComputeStats(r.Context(), actorFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.ObjStart()
	e.FieldStart("totalOrders")
	e.Int64(st.TotalOrders)
	e.FieldStart("pendingOrders")
	e.Int64(st.PendingOrders)
	e.FieldStart("totalRevenue")
	encodeDecimal(e, st.TotalRevenue)
	e.FieldStart("totalCustomers")
	e.Int64(st.TotalCustomers)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e)
}
