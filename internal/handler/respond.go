package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/velano/storefront/internal/domain/cart"
	"github.com/velano/storefront/internal/domain/catalog"
	"github.com/velano/storefront/internal/domain/order"
	"github.com/velano/storefront/internal/domain/otp"
	"github.com/velano/storefront/internal/domain/user"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// decode reads the request body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// respondError maps a domain error to an HTTP response. Unexpected errors
// become an opaque 500 after logging; domain state errors carry enough
// detail for the caller to correct and retry.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidCode   *otp.InvalidCodeError
		noStock       *catalog.InsufficientStockError
		noProduct     *order.ProductNotFoundError
		noVariant     *order.VariantNotFoundError
		badTransition *order.InvalidTransitionError
	)

	switch {
	case errors.Is(err, otp.ErrBlocked):
		writeError(w, http.StatusTooManyRequests, "too many attempts, request a new code later")
	case errors.Is(err, otp.ErrCodeExpired):
		writeError(w, http.StatusUnprocessableEntity, "code expired, request a new one")
	case errors.Is(err, otp.ErrDisposableEmail):
		writeError(w, http.StatusUnprocessableEntity, "disposable email addresses are not allowed")
	case errors.Is(err, otp.ErrDispatchFailed):
		writeError(w, http.StatusBadGateway, "could not send verification email")
	case errors.As(err, &invalidCode):
		writeError(w, http.StatusUnprocessableEntity, invalidCode.Error())

	case errors.Is(err, order.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "cart is empty")
	case errors.Is(err, order.ErrNoShippingAddress):
		writeError(w, http.StatusBadRequest, order.ErrNoShippingAddress.Error())
	case errors.Is(err, order.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "not allowed")
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.As(err, &noProduct):
		writeError(w, http.StatusUnprocessableEntity, noProduct.Error())
	case errors.As(err, &noVariant):
		writeError(w, http.StatusUnprocessableEntity, noVariant.Error())
	case errors.As(err, &noStock):
		writeError(w, http.StatusConflict, noStock.Error())
	case errors.As(err, &badTransition):
		writeError(w, http.StatusConflict, badTransition.Error())

	case errors.Is(err, cart.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, cart.ErrInvalidQuantity.Error())
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, catalog.ErrVariantNotFound):
		writeError(w, http.StatusNotFound, "variant not found")
	case errors.Is(err, catalog.ErrInvalidRating):
		writeError(w, http.StatusBadRequest, catalog.ErrInvalidRating.Error())
	case errors.Is(err, catalog.ErrDuplicateReview):
		writeError(w, http.StatusConflict, catalog.ErrDuplicateReview.Error())

	case errors.Is(err, user.ErrNotFound), errors.Is(err, user.ErrWrongPassword):
		// One message for both: no hint about which part was wrong.
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, user.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email already registered")

	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
