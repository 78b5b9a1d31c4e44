package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/io25nsk/minishop/pkg/hexid"
)

type createOrderRequest struct {
	UID        string   `json:"uid"`
	Promocodes []string `json:"promocodes"`
	PayTimeout int      `json:"pay_timeout"` // seconds; 0 disables expiry
}

type payOrderRequest struct {
	OID       string `json:"oid"`
	PaySystem string `json:"pay_system"`
}

type returnOrderRequest struct {
	PID      string `json:"pid"`
	Quantity int    `json:"quantity"`
}

// ListOrders handles GET /order/{uid}.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if !hexid.Valid(uid) {
		writeError(w, http.StatusUnprocessableEntity, "uid must be a 24-character hex string")
		return
	}

	orders, err := h.orderRepo.ListByUser(r.Context(), uid)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if len(orders) == 0 {
		writeError(w, http.StatusNotFound, "no orders found for user "+uid)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range orders {
			encodeOrder(e, &orders[i])
		}
		e.ArrEnd()
	})
}

// CreateOrder handles POST /order/create.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !hexid.Valid(req.UID) {
		writeError(w, http.StatusUnprocessableEntity, "uid must be a 24-character hex string")
		return
	}
	if req.PayTimeout < 0 {
		writeError(w, http.StatusUnprocessableEntity, "pay_timeout must not be negative")
		return
	}

	o, err := h.orders.CreateOrder(r.Context(), req.UID, req.Promocodes, time.Duration(req.PayTimeout)*time.Second)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// PayOrder handles POST /order/pay.
func (h *Handler) PayOrder(w http.ResponseWriter, r *http.Request) {
	var req payOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !hexid.Valid(req.OID) {
		writeError(w, http.StatusUnprocessableEntity, "oid must be a 24-character hex string")
		return
	}
	if req.PaySystem == "" {
		writeError(w, http.StatusUnprocessableEntity, "pay_system is required")
		return
	}

	o, err := h.orders.Pay(r.Context(), req.OID, req.PaySystem)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// ReturnOrder handles POST /order/{oid}/return.
func (h *Handler) ReturnOrder(w http.ResponseWriter, r *http.Request) {
	oid := chi.URLParam(r, "oid")
	if !hexid.Valid(oid) {
		writeError(w, http.StatusUnprocessableEntity, "oid must be a 24-character hex string")
		return
	}

	var req returnOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !hexid.Valid(req.PID) {
		writeError(w, http.StatusUnprocessableEntity, "pid must be a 24-character hex string")
		return
	}
	if req.Quantity < 1 {
		writeError(w, http.StatusUnprocessableEntity, "quantity must be positive")
		return
	}

	o, err := h.orders.Return(r.Context(), oid, req.PID, req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// ReturnStatus handles GET /order/{oid}/return_status.
func (h *Handler) ReturnStatus(w http.ResponseWriter, r *http.Request) {
	oid := chi.URLParam(r, "oid")
	if !hexid.Valid(oid) {
		writeError(w, http.StatusUnprocessableEntity, "oid must be a 24-character hex string")
		return
	}

	returns, err := h.orders.ReturnStatus(r.Context(), oid)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, lr := range returns {
			e.ObjStart()
			e.FieldStart("pid")
			e.Str(lr.PID)
			e.FieldStart("return_status")
			e.Str(lr.ReturnStatus)
			e.ObjEnd()
		}
		e.ArrEnd()
	})
}
