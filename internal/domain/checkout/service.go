// Package checkout converts a scope's cart into a persisted order with an
// attached payment. It is the only workflow in the service with a
// transactional boundary: the order insert and the cart clear happen in one
// commit, or not at all.
package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Julien07012002/boutique/internal/domain/cart"
	"github.com/Julien07012002/boutique/internal/domain/order"
	"github.com/Julien07012002/boutique/internal/domain/payment"
	"github.com/Julien07012002/boutique/internal/domain/product"
)

// ErrEmptyCart is returned when checkout is invoked on an empty cart.
var ErrEmptyCart = errors.New("cart is empty")

// ProductUnavailableError indicates a cart item references a product that no
// longer exists or is not available for purchase.
type ProductUnavailableError struct {
	ProductID string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s is not available", e.ProductID)
}

// AmountMismatchError indicates the caller-supplied payment amount does not
// equal the sum of the frozen line totals.
type AmountMismatchError struct {
	Expected decimal.Decimal
	Provided decimal.Decimal
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("payment amount %s does not match order total %s", e.Provided, e.Expected)
}

// CheckoutFailedError wraps a storage failure during the atomic commit step.
// The cart is left untouched when this error is returned.
type CheckoutFailedError struct {
	Err error
}

func (e *CheckoutFailedError) Error() string { return "checkout failed: " + e.Err.Error() }

func (e *CheckoutFailedError) Unwrap() error { return e.Err }

// PaymentDetails holds the caller-supplied payment input for a checkout.
type PaymentDetails struct {
	Kind   payment.Kind
	Amount decimal.Decimal
	Card   *payment.CardDetails
}

// Request holds the input for a single checkout invocation.
type Request struct {
	Scope   string
	Payment PaymentDetails
}

// Service orchestrates the checkout state machine: load, price-freeze,
// payment, commit.
type Service struct {
	carts    cart.Store
	products product.Repository
	orders   order.Repository
	now      func() time.Time
}

// NewService creates a checkout Service with the required dependencies.
// products should be the uncached catalog so availability is decided on
// live data.
func NewService(carts cart.Store, products product.Repository, orders order.Repository) *Service {
	return &Service{
		carts:    carts,
		products: products,
		orders:   orders,
		now:      time.Now,
	}
}

// Checkout converts the scope's cart into a persisted order and returns the
// order id. On any failure the cart is left untouched and no order exists.
func (s *Service) Checkout(ctx context.Context, req Request) (string, error) {
	// Load.
	items, err := s.carts.Items(ctx, req.Scope)
	if err != nil {
		return "", errors.Wrap(err, "load cart")
	}
	if len(items) == 0 {
		return "", ErrEmptyCart
	}

	// Price-freeze: batch fetch and capture prices at this instant.
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return "", errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	lines := make([]order.Line, len(items))
	total := decimal.Zero
	for i, it := range items {
		p, ok := byID[it.ProductID]
		if !ok || !p.Available {
			return "", &ProductUnavailableError{ProductID: it.ProductID}
		}
		lines[i] = order.Line{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			UnitPrice:   p.Price,
		}
		total = total.Add(lines[i].Total())
	}
	total = total.Round(2)

	// Payment.
	if !req.Payment.Amount.Equal(total) {
		return "", &AmountMismatchError{Expected: total, Provided: req.Payment.Amount}
	}
	createdAt := s.now()
	method, err := payment.New(req.Payment.Kind, req.Payment.Amount, createdAt, payment.Details{
		Card: req.Payment.Card,
	})
	if err != nil {
		return "", err
	}

	o := &order.Order{
		ID:        uuid.New().String(),
		Scope:     req.Scope,
		Lines:     lines,
		Total:     total,
		Payment:   method,
		CreatedAt: createdAt,
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("checkout.order_id", o.ID),
		attribute.Int("checkout.lines", len(lines)),
		attribute.String("checkout.total", total.String()),
	)

	// Commit: order insert + cart clear in one transaction.
	if err := s.orders.CreateAndClearCart(ctx, o); err != nil {
		return "", &CheckoutFailedError{Err: err}
	}

	return o.ID, nil
}
