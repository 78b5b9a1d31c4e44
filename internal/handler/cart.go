package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/io25nsk/minishop/internal/domain/cart"
	"github.com/io25nsk/minishop/pkg/hexid"
)

type addToCartRequest struct {
	UID      string `json:"uid"`
	PID      string `json:"pid"`
	Quantity int    `json:"quantity"`
}

// GetCart handles GET /cart/{uid}.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if !hexid.Valid(uid) {
		writeError(w, http.StatusUnprocessableEntity, "uid must be a 24-character hex string")
		return
	}

	c, err := h.carts.Get(r.Context(), uid)
	if err != nil {
		respondError(w, r, err)
		return
	}

	names, err := h.productNames(r, c)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeCart(e, c, names)
	})
}

// AddToCart handles POST /cart/add.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !hexid.Valid(req.UID) || !hexid.Valid(req.PID) {
		writeError(w, http.StatusUnprocessableEntity, "uid and pid must be 24-character hex strings")
		return
	}
	if req.Quantity < 1 {
		writeError(w, http.StatusUnprocessableEntity, "quantity must be positive")
		return
	}

	c, err := h.carts.AddItem(r.Context(), req.UID, req.PID, req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeCart(e, c, nil)
	})
}

// RemoveFromCart handles DELETE /cart/remove/{uid}/{pid}/{quantity}.
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	pid := chi.URLParam(r, "pid")
	if !hexid.Valid(uid) || !hexid.Valid(pid) {
		writeError(w, http.StatusUnprocessableEntity, "uid and pid must be 24-character hex strings")
		return
	}
	quantity, err := strconv.Atoi(chi.URLParam(r, "quantity"))
	if err != nil || quantity < 1 {
		writeError(w, http.StatusUnprocessableEntity, "quantity must be a positive integer")
		return
	}

	c, err := h.carts.RemoveItem(r.Context(), uid, pid, quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeCart(e, c, nil)
	})
}

// productNames fetches the catalog names of the cart's products in one batch.
func (h *Handler) productNames(r *http.Request, c *cart.Cart) (map[string]string, error) {
	if len(c.Lines) == 0 {
		return nil, nil
	}

	ids := make([]string, len(c.Lines))
	for i, l := range c.Lines {
		ids[i] = l.PID
	}

	products, err := h.products.GetByIDs(r.Context(), ids)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	return names, nil
}
