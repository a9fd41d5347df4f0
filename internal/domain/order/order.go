package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/Julien07012002/boutique/internal/domain/payment"
	"github.com/Julien07012002/boutique/internal/domain/user"
)

// ErrCartChanged is returned by CreateAndClearCart when the scope's cart no
// longer matches the snapshot the order was built from. Nothing is persisted
// in that case; the caller may re-read the cart and retry.
var ErrCartChanged = errors.New("cart changed during checkout")

// Line is a frozen (product, quantity, price) triple captured at checkout
// time. UnitPrice is the price at purchase; later catalog price changes do
// not affect persisted orders.
type Line struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// Total returns the line's quantity times its frozen unit price.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is created at checkout from a non-empty cart snapshot and is
// immutable after creation. Scope is the paying user's id.
type Order struct {
	ID        string
	Scope     string
	Lines     []Line
	Total     decimal.Decimal
	Payment   payment.Method
	User      *user.User
	CreatedAt time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	// CreateAndClearCart persists the order with its lines and payment and
	// deletes the scope's cart rows in one atomic transaction: either the
	// order exists and the cart is empty, or neither change is visible.
	// Returns ErrCartChanged when the cart was mutated concurrently.
	CreateAndClearCart(ctx context.Context, o *Order) error
	// ListWithUserAndPayment returns all orders newest-first, each with its
	// user, payment, and lines eagerly attached.
	ListWithUserAndPayment(ctx context.Context) ([]Order, error)
}
