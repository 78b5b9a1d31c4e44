package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/io25nsk/minishop/internal/domain/cart"
	"github.com/io25nsk/minishop/internal/domain/order"
	"github.com/io25nsk/minishop/internal/domain/product"
	"github.com/io25nsk/minishop/internal/domain/promo"
)

// writeJSON encodes a response body with build and writes it with the given
// status code.
func writeJSON(w http.ResponseWriter, status int, build func(e *jx.Encoder)) {
	e := &jx.Encoder{}
	build(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes a {"code", "message"} error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(msg)
		e.ObjEnd()
	})
}

// respondError maps a domain error to an HTTP status. Unknown errors are
// logged and reported as 500 without leaking details.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		iqErr  *cart.InsufficientQuantityError
		rqeErr *order.ReturnQuantityExceededError
	)

	switch {
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, cart.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, promo.ErrNotFound),
		errors.Is(err, order.ErrLineNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, order.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.As(err, &iqErr), errors.As(err, &rqeErr):
		writeError(w, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, order.ErrAlreadyPaid),
		errors.Is(err, order.ErrExpired),
		errors.Is(err, order.ErrNotPaid),
		errors.Is(err, order.ErrNoReturns),
		errors.Is(err, cart.ErrConcurrentModification),
		errors.Is(err, order.ErrConcurrentModification):
		writeError(w, http.StatusConflict, err.Error())

	case errors.Is(err, order.ErrPaymentDeclined),
		errors.Is(err, order.ErrRefundFailed):
		writeError(w, http.StatusPaymentRequired, err.Error())

	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	e.Float64(p.Price.InexactFloat64())
	e.FieldStart("category")
	e.Str(p.Category)
	e.ObjEnd()
}

// encodeCart writes the cart view, enriching each line with the product name
// when known.
func encodeCart(e *jx.Encoder, c *cart.Cart, names map[string]string) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("products")
	e.ArrStart()
	for _, l := range c.Lines {
		e.ObjStart()
		e.FieldStart("pid")
		e.Str(l.PID)
		if name, ok := names[l.PID]; ok {
			e.FieldStart("name")
			e.Str(name)
		}
		e.FieldStart("price")
		e.Float64(l.Price.InexactFloat64())
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("line_total")
		e.Float64(l.LineTotal.InexactFloat64())
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("total")
	e.Float64(c.Total.InexactFloat64())
	e.ObjEnd()
}

func encodeOrderLine(e *jx.Encoder, l order.Line) {
	e.ObjStart()
	e.FieldStart("pid")
	e.Str(l.PID)
	e.FieldStart("price")
	e.Float64(l.Price.InexactFloat64())
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	e.FieldStart("line_total")
	e.Float64(l.LineTotal.InexactFloat64())
	e.FieldStart("discount")
	e.Float64(l.Discount.InexactFloat64())
	e.FieldStart("discount_amount")
	e.Float64(l.DiscountAmount.InexactFloat64())
	e.FieldStart("amount_with_discount")
	e.Float64(l.AmountWithDiscount.InexactFloat64())
	e.FieldStart("returned_quantity")
	e.Int(l.ReturnedQuantity)
	e.FieldStart("returned_amount")
	e.Float64(l.ReturnedAmount.InexactFloat64())
	if l.ReturnStatus != "" {
		e.FieldStart("return_status")
		e.Str(l.ReturnStatus)
	}
	if len(l.ReturnDates) > 0 {
		e.FieldStart("return_dates")
		e.ArrStart()
		for _, t := range l.ReturnDates {
			encodeTime(e, t)
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("uid")
	e.Str(o.UID)
	e.FieldStart("created_at")
	encodeTime(e, o.CreatedAt)
	e.FieldStart("products")
	e.ArrStart()
	for _, l := range o.Lines {
		encodeOrderLine(e, l)
	}
	e.ArrEnd()
	e.FieldStart("promocodes")
	e.ArrStart()
	for _, code := range o.Promocodes {
		e.Str(code)
	}
	e.ArrEnd()
	e.FieldStart("global_discount")
	e.Float64(o.GlobalDiscount.InexactFloat64())
	e.FieldStart("global_discount_amount")
	e.Float64(o.GlobalDiscountAmount.InexactFloat64())
	e.FieldStart("total")
	e.Float64(o.Total.InexactFloat64())
	e.FieldStart("total_with_discount")
	e.Float64(o.TotalWithDiscount.InexactFloat64())
	e.FieldStart("status")
	e.Str(string(o.Status))
	if o.PayID != "" {
		e.FieldStart("pay_id")
		e.Str(o.PayID)
	}
	if o.PayDate != nil {
		e.FieldStart("pay_date")
		encodeTime(e, *o.PayDate)
	}
	if o.PayStatus != "" {
		e.FieldStart("pay_status")
		e.Str(o.PayStatus)
	}
	if o.PaySystem != "" {
		e.FieldStart("pay_system")
		e.Str(o.PaySystem)
	}
	e.ObjEnd()
}
