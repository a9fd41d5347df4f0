// Package api exposes the storefront over a small JSON HTTP API. Handlers
// decode requests, delegate to the domain services, and map domain errors to
// status codes; no business logic lives here.
package api

import (
	"net/http"

	"github.com/Julien07012002/boutique/internal/domain/cart"
	"github.com/Julien07012002/boutique/internal/domain/checkout"
	"github.com/Julien07012002/boutique/internal/domain/order"
	"github.com/Julien07012002/boutique/internal/domain/product"
)

// Handler carries the domain dependencies for every route.
type Handler struct {
	products product.Repository
	carts    *cart.Service
	checkout *checkout.Service
	orders   order.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	carts *cart.Service,
	checkoutSvc *checkout.Service,
	orders order.Repository,
) *Handler {
	return &Handler{
		products: products,
		carts:    carts,
		checkout: checkoutSvc,
		orders:   orders,
	}
}

// Register installs the API routes on mux. The cart scope is part of the
// path; there is no ambient session state.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/cart/{scope}", h.listCartItems)
	mux.HandleFunc("POST /api/cart/{scope}/items", h.addCartItem)
	mux.HandleFunc("PUT /api/cart/{scope}/items/{product}", h.setCartQuantity)
	mux.HandleFunc("DELETE /api/cart/{scope}/items/{product}", h.removeCartItem)
	mux.HandleFunc("DELETE /api/cart/{scope}", h.clearCart)
	mux.HandleFunc("POST /api/cart/{scope}/checkout", h.checkoutCart)
	mux.HandleFunc("GET /api/orders", h.listOrders)
}
