// Package handler contains the thin HTTP controllers in front of the domain
// services. Handlers decode requests, delegate, and map domain errors to
// HTTP responses; no business logic lives here.
package handler

import (
	"net/http"

	"github.com/velano/storefront/internal/domain/cart"
	"github.com/velano/storefront/internal/domain/catalog"
	"github.com/velano/storefront/internal/domain/order"
	"github.com/velano/storefront/internal/domain/otp"
	"github.com/velano/storefront/internal/domain/user"
)

// Handler wires the domain services to HTTP routes.
type Handler struct {
	users    user.Repository
	otps     *otp.Service
	carts    *cart.Service
	orders   *order.Service
	products catalog.Repository
	reviews  catalog.ReviewRepository
	tokens   *TokenIssuer
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	users user.Repository,
	otps *otp.Service,
	carts *cart.Service,
	orders *order.Service,
	products catalog.Repository,
	reviews catalog.ReviewRepository,
	tokens *TokenIssuer,
) *Handler {
	return &Handler{
		users:    users,
		otps:     otps,
		carts:    carts,
		orders:   orders,
		products: products,
		reviews:  reviews,
		tokens:   tokens,
	}
}

// Register mounts all API routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/register/verify", h.registerVerify)
	mux.HandleFunc("POST /api/auth/login", h.login)
	mux.HandleFunc("POST /api/auth/login/verify", h.loginVerify)
	mux.HandleFunc("POST /api/auth/otp/resend", h.otpResend)

	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("POST /api/products", h.withAdmin(h.createProduct))
	mux.HandleFunc("DELETE /api/products/{id}", h.withAdmin(h.deleteProduct))
	mux.HandleFunc("GET /api/products/{id}/reviews", h.listReviews)
	mux.HandleFunc("POST /api/products/{id}/reviews", h.withAuth(h.createReview))

	mux.HandleFunc("GET /api/cart", h.withAuth(h.getCart))
	mux.HandleFunc("POST /api/cart/items", h.withAuth(h.addCartItem))
	mux.HandleFunc("PATCH /api/cart/items", h.withAuth(h.setCartItem))
	mux.HandleFunc("DELETE /api/cart", h.withAuth(h.clearCart))

	mux.HandleFunc("POST /api/orders", h.withAuth(h.placeOrder))
	mux.HandleFunc("GET /api/orders", h.withAuth(h.listOrders))
	mux.HandleFunc("GET /api/orders/{id}", h.withAuth(h.getOrder))
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.withAuth(h.cancelOrder))
	mux.HandleFunc("PATCH /api/orders/{id}/status", h.withAdmin(h.updateOrderStatus))
}
