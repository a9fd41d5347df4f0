package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Julien07012002/boutique/internal/domain/cart"
)

const (
	// The upsert increment is atomic per row, so concurrent adds for the
	// same (scope, product) pair never lose an update.
	addCartItemSQL = `INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()`

	setCartQuantitySQL = `INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`

	removeCartItemSQL = `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`

	listCartItemsSQL = `SELECT user_id, product_id, quantity, created_at, updated_at
		FROM cart_items WHERE user_id = $1 ORDER BY created_at, product_id`

	clearCartSQL = `DELETE FROM cart_items WHERE user_id = $1`
)

var _ cart.Store = (*CartStore)(nil)

// CartStore implements cart.Store backed by PostgreSQL. Rows are keyed by
// the (user_id, product_id) unique constraint.
type CartStore struct {
	pool *pgxpool.Pool
}

// NewCartStore returns a CartStore that uses the given pool.
func NewCartStore(pool *pgxpool.Pool) *CartStore {
	return &CartStore{pool: pool}
}

// Add increments the product's quantity, creating the row when absent.
func (s *CartStore) Add(ctx context.Context, scope, productID string, quantity int) error {
	if _, err := s.pool.Exec(ctx, addCartItemSQL, scope, productID, quantity); err != nil {
		return fmt.Errorf("adding cart item %q: %w", productID, err)
	}
	return nil
}

// SetQuantity overwrites the product's quantity. Callers pass quantity >= 1;
// zero is handled by Remove at the service layer.
func (s *CartStore) SetQuantity(ctx context.Context, scope, productID string, quantity int) error {
	if _, err := s.pool.Exec(ctx, setCartQuantitySQL, scope, productID, quantity); err != nil {
		return fmt.Errorf("setting cart quantity for %q: %w", productID, err)
	}
	return nil
}

// Remove deletes the product's row. Deleting an absent row is a no-op.
func (s *CartStore) Remove(ctx context.Context, scope, productID string) error {
	if _, err := s.pool.Exec(ctx, removeCartItemSQL, scope, productID); err != nil {
		return fmt.Errorf("removing cart item %q: %w", productID, err)
	}
	return nil
}

// Items returns the scope's rows ordered by insertion.
func (s *CartStore) Items(ctx context.Context, scope string) ([]cart.Item, error) {
	rows, err := s.pool.Query(ctx, listCartItemsSQL, scope)
	if err != nil {
		return nil, fmt.Errorf("listing cart items: %w", err)
	}
	return pgx.CollectRows(rows, scanCartItem)
}

// Clear deletes every row for the scope.
func (s *CartStore) Clear(ctx context.Context, scope string) error {
	if _, err := s.pool.Exec(ctx, clearCartSQL, scope); err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}
	return nil
}

func scanCartItem(row pgx.CollectableRow) (cart.Item, error) {
	var it cart.Item
	err := row.Scan(&it.Scope, &it.ProductID, &it.Quantity, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}
