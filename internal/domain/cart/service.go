package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/Julien07012002/boutique/internal/domain/product"
)

// Service validates cart mutations against the product catalog before
// delegating to the Store.
type Service struct {
	catalog product.Repository
	store   Store
}

// NewService creates a cart Service backed by the given catalog and store.
func NewService(catalog product.Repository, store Store) *Service {
	return &Service{catalog: catalog, store: store}
}

// Add puts quantity units of the product into the scope's cart,
// consolidating with an existing row for the same product.
func (s *Service) Add(ctx context.Context, scope, productID string, quantity int) error {
	if quantity <= 0 {
		return &InvalidQuantityError{ProductID: productID, Quantity: quantity}
	}
	if err := s.checkProduct(ctx, productID); err != nil {
		return err
	}
	if err := s.store.Add(ctx, scope, productID, quantity); err != nil {
		return errors.Wrapf(err, "add product %s", productID)
	}
	return nil
}

// SetQuantity overwrites the product's quantity in the scope's cart.
// A quantity of zero removes the row.
func (s *Service) SetQuantity(ctx context.Context, scope, productID string, quantity int) error {
	if quantity < 0 {
		return &InvalidQuantityError{ProductID: productID, Quantity: quantity}
	}
	if quantity == 0 {
		return s.Remove(ctx, scope, productID)
	}
	if err := s.checkProduct(ctx, productID); err != nil {
		return err
	}
	if err := s.store.SetQuantity(ctx, scope, productID, quantity); err != nil {
		return errors.Wrapf(err, "set quantity for product %s", productID)
	}
	return nil
}

// Remove deletes the product's row from the scope's cart. Removing a
// product that is not in the cart is a no-op.
func (s *Service) Remove(ctx context.Context, scope, productID string) error {
	if err := s.store.Remove(ctx, scope, productID); err != nil {
		return errors.Wrapf(err, "remove product %s", productID)
	}
	return nil
}

// Items returns the scope's cart rows ordered by insertion.
func (s *Service) Items(ctx context.Context, scope string) ([]Item, error) {
	items, err := s.store.Items(ctx, scope)
	if err != nil {
		return nil, errors.Wrap(err, "list cart items")
	}
	return items, nil
}

// Clear empties the scope's cart. Idempotent.
func (s *Service) Clear(ctx context.Context, scope string) error {
	if err := s.store.Clear(ctx, scope); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}

func (s *Service) checkProduct(ctx context.Context, productID string) error {
	_, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return &ProductNotFoundError{ProductID: productID}
		}
		return errors.Wrapf(err, "get product %s", productID)
	}
	return nil
}
