// Package cart holds the per-scope shopping cart: consolidated line items
// keyed by (scope, product). The scope is the cart's ownership boundary,
// typically a user or session identifier, and is threaded explicitly through
// every call.
package cart

import (
	"context"
	"fmt"
	"time"
)

// Item is one consolidated cart row. At most one Item exists per
// (scope, product) pair, and Quantity is always >= 1: removal deletes the
// row instead of persisting a zero.
type Item struct {
	Scope     string
	ProductID string
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store owns cart rows for every scope. Implementations must apply
// concurrent increments for the same (scope, product) pair without losing
// updates, and must persist each mutation before returning.
type Store interface {
	// Add increments the product's quantity by the given amount, creating
	// the row when absent. quantity must be positive.
	Add(ctx context.Context, scope, productID string, quantity int) error
	// SetQuantity overwrites the product's quantity. Zero deletes the row.
	SetQuantity(ctx context.Context, scope, productID string, quantity int) error
	// Remove deletes the product's row. Absent rows are not an error.
	Remove(ctx context.Context, scope, productID string) error
	// Items returns the scope's rows ordered by insertion. The returned
	// slice is a snapshot; mutating it does not affect stored state.
	Items(ctx context.Context, scope string) ([]Item, error)
	// Clear deletes every row for the scope. Idempotent.
	Clear(ctx context.Context, scope string) error
}

// InvalidQuantityError indicates a cart mutation with an out-of-range quantity.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d for product %s", e.Quantity, e.ProductID)
}

// ProductNotFoundError indicates the product being added is unknown to the catalog.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}
