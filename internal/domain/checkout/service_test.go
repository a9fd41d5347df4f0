package checkout_test

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Julien07012002/boutique/internal/domain/cart"
	"github.com/Julien07012002/boutique/internal/domain/checkout"
	"github.com/Julien07012002/boutique/internal/domain/order"
	"github.com/Julien07012002/boutique/internal/domain/payment"
	"github.com/Julien07012002/boutique/internal/domain/product"
)

type cartStoreMock struct {
	items   func(ctx context.Context, scope string) ([]cart.Item, error)
	cleared bool
}

func (m *cartStoreMock) Add(context.Context, string, string, int) error         { return nil }
func (m *cartStoreMock) SetQuantity(context.Context, string, string, int) error { return nil }
func (m *cartStoreMock) Remove(context.Context, string, string) error           { return nil }

func (m *cartStoreMock) Items(ctx context.Context, scope string) ([]cart.Item, error) {
	return m.items(ctx, scope)
}

func (m *cartStoreMock) Clear(context.Context, string) error {
	m.cleared = true
	return nil
}

type productsMock struct {
	getByIDs func(ctx context.Context, ids []string) ([]product.Product, error)
}

func (m *productsMock) List(context.Context) ([]product.Product, error) { return nil, nil }

func (m *productsMock) GetByID(context.Context, string) (*product.Product, error) {
	return nil, product.ErrNotFound
}

func (m *productsMock) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	return m.getByIDs(ctx, ids)
}

type ordersMock struct {
	create  func(ctx context.Context, o *order.Order) error
	created *order.Order
}

func (m *ordersMock) CreateAndClearCart(ctx context.Context, o *order.Order) error {
	m.created = o
	if m.create != nil {
		return m.create(ctx, o)
	}
	return nil
}

func (m *ordersMock) ListWithUserAndPayment(context.Context) ([]order.Order, error) {
	return nil, nil
}

func fixedProducts(products ...product.Product) *productsMock {
	return &productsMock{
		getByIDs: func(_ context.Context, ids []string) ([]product.Product, error) {
			out := make([]product.Product, 0, len(products))
			for _, p := range products {
				for _, id := range ids {
					if p.ID == id {
						out = append(out, p)
						break
					}
				}
			}
			return out, nil
		},
	}
}

func cardRequest(scope string, amount decimal.Decimal) checkout.Request {
	return checkout.Request{
		Scope: scope,
		Payment: checkout.PaymentDetails{
			Kind:   payment.KindCard,
			Amount: amount,
			Card:   &payment.CardDetails{Number: "4111111111111111", SecurityCode: "123"},
		},
	}
}

func TestCheckout(t *testing.T) {
	twoWaffles := []cart.Item{{Scope: "user-1", ProductID: "waffle-1", Quantity: 2}}
	waffle := product.Product{ID: "waffle-1", Name: "Waffle", Price: decimal.NewFromFloat(5.50), Available: true}

	t.Run("success freezes prices and commits", func(t *testing.T) {
		carts := &cartStoreMock{
			items: func(_ context.Context, scope string) ([]cart.Item, error) {
				assert.Equal(t, "user-1", scope)
				return []cart.Item{
					{Scope: "user-1", ProductID: "waffle-1", Quantity: 2},
					{Scope: "user-1", ProductID: "latte-9", Quantity: 1},
				}, nil
			},
		}
		latte := product.Product{ID: "latte-9", Name: "Latte", Price: decimal.NewFromFloat(3.25), Available: true}
		orders := &ordersMock{}
		svc := checkout.NewService(carts, fixedProducts(waffle, latte), orders)

		id, err := svc.Checkout(context.Background(), cardRequest("user-1", decimal.NewFromFloat(14.25)))
		require.NoError(t, err)

		_, parseErr := uuid.Parse(id)
		assert.NoError(t, parseErr)

		require.NotNil(t, orders.created)
		o := orders.created
		assert.Equal(t, id, o.ID)
		assert.Equal(t, "user-1", o.Scope)
		assert.True(t, o.Total.Equal(decimal.NewFromFloat(14.25)))
		require.Len(t, o.Lines, 2)
		assert.Equal(t, order.Line{ProductID: "waffle-1", ProductName: "Waffle", Quantity: 2, UnitPrice: waffle.Price}, o.Lines[0])
		assert.Equal(t, order.Line{ProductID: "latte-9", ProductName: "Latte", Quantity: 1, UnitPrice: latte.Price}, o.Lines[1])

		require.NotNil(t, o.Payment)
		assert.Equal(t, payment.KindCard, o.Payment.Kind())
		assert.True(t, o.Payment.Amount().Equal(o.Total))
	})

	t.Run("empty cart", func(t *testing.T) {
		carts := &cartStoreMock{
			items: func(context.Context, string) ([]cart.Item, error) { return nil, nil },
		}
		svc := checkout.NewService(carts, fixedProducts(), &ordersMock{})

		_, err := svc.Checkout(context.Background(), cardRequest("user-1", decimal.Zero))
		assert.ErrorIs(t, err, checkout.ErrEmptyCart)
	})

	t.Run("product vanished from catalog", func(t *testing.T) {
		carts := &cartStoreMock{
			items: func(context.Context, string) ([]cart.Item, error) { return twoWaffles, nil },
		}
		orders := &ordersMock{}
		svc := checkout.NewService(carts, fixedProducts(), orders)

		_, err := svc.Checkout(context.Background(), cardRequest("user-1", decimal.NewFromInt(11)))

		var unavailableErr *checkout.ProductUnavailableError
		require.ErrorAs(t, err, &unavailableErr)
		assert.Equal(t, "waffle-1", unavailableErr.ProductID)
		assert.Nil(t, orders.created)
	})

	t.Run("product marked unavailable", func(t *testing.T) {
		carts := &cartStoreMock{
			items: func(context.Context, string) ([]cart.Item, error) { return twoWaffles, nil },
		}
		soldOut := waffle
		soldOut.Available = false
		svc := checkout.NewService(carts, fixedProducts(soldOut), &ordersMock{})

		_, err := svc.Checkout(context.Background(), cardRequest("user-1", decimal.NewFromInt(11)))

		var unavailableErr *checkout.ProductUnavailableError
		require.ErrorAs(t, err, &unavailableErr)
	})

	t.Run("amount mismatch", func(t *testing.T) {
		carts := &cartStoreMock{
			items: func(context.Context, string) ([]cart.Item, error) { return twoWaffles, nil },
		}
		orders := &ordersMock{}
		svc := checkout.NewService(carts, fixedProducts(waffle), orders)

		_, err := svc.Checkout(context.Background(), cardRequest("user-1", decimal.NewFromInt(10)))

		var mismatchErr *checkout.AmountMismatchError
		require.ErrorAs(t, err, &mismatchErr)
		assert.True(t, mismatchErr.Expected.Equal(decimal.NewFromInt(11)))
		assert.True(t, mismatchErr.Provided.Equal(decimal.NewFromInt(10)))
		assert.Nil(t, orders.created)
	})

	t.Run("invalid payment details", func(t *testing.T) {
		carts := &cartStoreMock{
			items: func(context.Context, string) ([]cart.Item, error) { return twoWaffles, nil },
		}
		svc := checkout.NewService(carts, fixedProducts(waffle), &ordersMock{})

		req := cardRequest("user-1", decimal.NewFromInt(11))
		req.Payment.Card.SecurityCode = "12"
		_, err := svc.Checkout(context.Background(), req)

		var fieldErr *payment.InvalidFieldsError
		require.ErrorAs(t, err, &fieldErr)
	})

	t.Run("commit failure leaves cart untouched", func(t *testing.T) {
		carts := &cartStoreMock{
			items: func(context.Context, string) ([]cart.Item, error) { return twoWaffles, nil },
		}
		commitErr := errors.New("deadlock detected")
		orders := &ordersMock{
			create: func(context.Context, *order.Order) error { return commitErr },
		}
		svc := checkout.NewService(carts, fixedProducts(waffle), orders)

		_, err := svc.Checkout(context.Background(), cardRequest("user-1", decimal.NewFromInt(11)))

		var failedErr *checkout.CheckoutFailedError
		require.ErrorAs(t, err, &failedErr)
		assert.ErrorIs(t, err, commitErr)
		assert.False(t, carts.cleared)
	})

	t.Run("concurrent cart change surfaces as checkout failure", func(t *testing.T) {
		carts := &cartStoreMock{
			items: func(context.Context, string) ([]cart.Item, error) { return twoWaffles, nil },
		}
		orders := &ordersMock{
			create: func(context.Context, *order.Order) error { return order.ErrCartChanged },
		}
		svc := checkout.NewService(carts, fixedProducts(waffle), orders)

		_, err := svc.Checkout(context.Background(), cardRequest("user-1", decimal.NewFromInt(11)))

		var failedErr *checkout.CheckoutFailedError
		require.ErrorAs(t, err, &failedErr)
		assert.ErrorIs(t, err, order.ErrCartChanged)
	})
}
