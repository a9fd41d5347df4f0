package api

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/Julien07012002/boutique/internal/domain/cart"
	"github.com/Julien07012002/boutique/internal/domain/checkout"
	"github.com/Julien07012002/boutique/internal/domain/order"
	"github.com/Julien07012002/boutique/internal/domain/payment"
	"github.com/Julien07012002/boutique/internal/domain/product"
)

// mapDomainError translates a typed domain failure into an HTTP status and
// client-facing message. The second return is false for unexpected errors,
// which callers log and answer with a generic 500.
func mapDomainError(err error) (int, string, bool) {
	var (
		invalidQty  *cart.InvalidQuantityError
		notFound    *cart.ProductNotFoundError
		unavailable *checkout.ProductUnavailableError
		mismatch    *checkout.AmountMismatchError
		badFields   *payment.InvalidFieldsError
	)
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusBadRequest, err.Error(), true
	case errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound, err.Error(), true
	case errors.As(err, &invalidQty):
		return http.StatusUnprocessableEntity, invalidQty.Error(), true
	case errors.As(err, &notFound):
		return http.StatusUnprocessableEntity, notFound.Error(), true
	case errors.As(err, &unavailable):
		return http.StatusUnprocessableEntity, unavailable.Error(), true
	case errors.As(err, &mismatch):
		return http.StatusUnprocessableEntity, mismatch.Error(), true
	case errors.As(err, &badFields):
		return http.StatusUnprocessableEntity, badFields.Error(), true
	case errors.Is(err, order.ErrCartChanged):
		// Retryable: the cart was mutated mid-checkout and nothing was
		// persisted. The client should re-read the cart and try again.
		return http.StatusConflict, "cart changed during checkout", true
	}

	// CheckoutFailedError stays internal: the cause is storage detail the
	// client cannot act on.
	var failed *checkout.CheckoutFailedError
	if errors.As(err, &failed) {
		return http.StatusInternalServerError, "checkout failed", false
	}
	return http.StatusInternalServerError, "internal error", false
}

func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg, expected := mapDomainError(err)
	if !expected {
		logError(r, "request failed", err)
	}
	writeError(w, status, msg)
}
