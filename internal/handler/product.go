package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/io25nsk/minishop/pkg/hexid"
)

// ListProducts handles GET /products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, p := range products {
			encodeProduct(e, p)
		}
		e.ArrEnd()
	})
}

// GetProduct handles GET /products/{pid}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	pid := chi.URLParam(r, "pid")
	if !hexid.Valid(pid) {
		writeError(w, http.StatusUnprocessableEntity, "pid must be a 24-character hex string")
		return
	}

	p, err := h.products.GetByID(r.Context(), pid)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeProduct(e, *p)
	})
}
