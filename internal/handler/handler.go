// Package handler exposes the shop over HTTP. Routing is chi, responses are
// encoded with jx. The handlers validate ids and quantities, delegate to the
// domain services, and map domain errors to status codes; they hold no
// business logic of their own.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/io25nsk/minishop/internal/domain/cart"
	"github.com/io25nsk/minishop/internal/domain/order"
	"github.com/io25nsk/minishop/internal/domain/product"
)

// Handler serves the shop API.
type Handler struct {
	products  product.Repository
	carts     *cart.Service
	orders    *order.Service
	orderRepo order.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	carts *cart.Service,
	orders *order.Service,
	orderRepo order.Repository,
) *Handler {
	return &Handler{
		products:  products,
		carts:     carts,
		orders:    orders,
		orderRepo: orderRepo,
	}
}

// Routes returns the API router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/{pid}", h.GetProduct)
	})

	r.Route("/cart", func(r chi.Router) {
		r.Get("/{uid}", h.GetCart)
		r.Post("/add", h.AddToCart)
		r.Delete("/remove/{uid}/{pid}/{quantity}", h.RemoveFromCart)
	})

	r.Route("/order", func(r chi.Router) {
		r.Get("/{uid}", h.ListOrders)
		r.Post("/create", h.CreateOrder)
		r.Post("/pay", h.PayOrder)
		r.Post("/{oid}/return", h.ReturnOrder)
		r.Get("/{oid}/return_status", h.ReturnStatus)
	})

	return r
}
