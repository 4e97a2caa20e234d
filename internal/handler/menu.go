package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/food-orders/internal/domain/menu"
)

func writeMenu(w http.ResponseWriter, items []menu.Item) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.ArrStart()
	for i := range items {
		encodeMenuItem(e, &items[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, e)
}

func writeMenuItem(w http.ResponseWriter, it *menu.Item) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encodeMenuItem(e, it)
	writeJSON(w, http.StatusOK, e)
}

// ListMenu handles GET /api/menu.
func (h *Handler) ListMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.menu.ListAvailable(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMenu(w, items)
}

// ListAllMenu handles GET /api/menu/all.
func (h *Handler) ListAllMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.menu.ListAll(r.Context(), actorFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMenu(w, items)
}

// CreateMenuItem handles POST /api/menu. Items are available unless the body
// says otherwise.
func (h *Handler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	p, err := decodeMenuPatch(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	item := menu.Item{Available: true}
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Price != nil {
		item.Price = *p.Price
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Image != nil {
		item.Image = *p.Image
	}
	if p.Available != nil {
		item.Available = *p.Available
	}

	created, err := h.menu.Create(r.Context(), actorFrom(r), item)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMenuItem(w, created)
}

// UpdateMenuItem handles PUT /api/menu/{id}.
func (h *Handler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	p, err := decodeMenuPatch(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.menu.Update(r.Context(), actorFrom(r), chi.URLParam(r, "id"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMenuItem(w, item)
}

// DeleteMenuItem handles DELETE /api/menu/{id}.
func (h *Handler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	if err := h.menu.Delete(r.Context(), actorFrom(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Item deleted")
}
