package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Julien07012002/boutique/internal/api"
	"github.com/Julien07012002/boutique/internal/domain/cart"
	"github.com/Julien07012002/boutique/internal/domain/checkout"
	"github.com/Julien07012002/boutique/internal/domain/order"
	"github.com/Julien07012002/boutique/internal/domain/payment"
	"github.com/Julien07012002/boutique/internal/domain/product"
	"github.com/Julien07012002/boutique/internal/domain/user"
)

type memCatalog struct {
	products map[string]product.Product
}

func (c *memCatalog) List(context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *memCatalog) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (c *memCatalog) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type memCartStore struct {
	rows []cart.Item
}

func (s *memCartStore) Add(_ context.Context, scope, productID string, quantity int) error {
	for i, row := range s.rows {
		if row.Scope == scope && row.ProductID == productID {
			s.rows[i].Quantity += quantity
			return nil
		}
	}
	s.rows = append(s.rows, cart.Item{Scope: scope, ProductID: productID, Quantity: quantity})
	return nil
}

func (s *memCartStore) SetQuantity(ctx context.Context, scope, productID string, quantity int) error {
	if quantity == 0 {
		return s.Remove(ctx, scope, productID)
	}
	for i, row := range s.rows {
		if row.Scope == scope && row.ProductID == productID {
			s.rows[i].Quantity = quantity
			return nil
		}
	}
	s.rows = append(s.rows, cart.Item{Scope: scope, ProductID: productID, Quantity: quantity})
	return nil
}

func (s *memCartStore) Remove(_ context.Context, scope, productID string) error {
	out := s.rows[:0]
	for _, row := range s.rows {
		if row.Scope != scope || row.ProductID != productID {
			out = append(out, row)
		}
	}
	s.rows = out
	return nil
}

func (s *memCartStore) Items(_ context.Context, scope string) ([]cart.Item, error) {
	var out []cart.Item
	for _, row := range s.rows {
		if row.Scope == scope {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *memCartStore) Clear(_ context.Context, scope string) error {
	out := s.rows[:0]
	for _, row := range s.rows {
		if row.Scope != scope {
			out = append(out, row)
		}
	}
	s.rows = out
	return nil
}

type memOrders struct {
	carts    *memCartStore
	orders   []order.Order
	failWith error
}

func (m *memOrders) CreateAndClearCart(ctx context.Context, o *order.Order) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.orders = append(m.orders, *o)
	return m.carts.Clear(ctx, o.Scope)
}

func (m *memOrders) ListWithUserAndPayment(context.Context) ([]order.Order, error) {
	out := make([]order.Order, len(m.orders))
	copy(out, m.orders)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type fixture struct {
	server *httptest.Server
	carts  *memCartStore
	orders *memOrders
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	catalog := &memCatalog{products: map[string]product.Product{
		"waffle-1": {ID: "waffle-1", Name: "Waffle", Price: decimal.NewFromFloat(5.50), Available: true},
		"latte-9":  {ID: "latte-9", Name: "Latte", Price: decimal.NewFromFloat(3.25), Available: true},
		"retired":  {ID: "retired", Name: "Retired", Price: decimal.NewFromInt(1), Available: false},
	}}
	carts := &memCartStore{}
	orders := &memOrders{carts: carts}

	mux := http.NewServeMux()
	api.NewHandler(
		catalog,
		cart.NewService(catalog, carts),
		checkout.NewService(carts, catalog, orders),
		orders,
	).Register(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &fixture{server: server, carts: carts, orders: orders}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, f.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var decoded map[string]any
	dec := json.NewDecoder(resp.Body)
	if dec.More() {
		require.NoError(t, dec.Decode(&decoded))
	}
	return resp, decoded
}

func TestListProducts(t *testing.T) {
	f := newFixture(t)

	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/api/products", nil)
	require.NoError(t, err)
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var products []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
	require.Len(t, products, 3)
	assert.Equal(t, "latte-9", products[0]["id"])
	assert.Equal(t, "Latte", products[0]["name"])
	assert.InDelta(t, 3.25, products[0]["price"], 0.0001)
}

func TestAddCartItem(t *testing.T) {
	t.Run("adds and consolidates", func(t *testing.T) {
		f := newFixture(t)

		resp, _ := f.do(t, http.MethodPost, "/api/cart/user-1/items", `{"productId":"waffle-1","quantity":2}`)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp, _ = f.do(t, http.MethodPost, "/api/cart/user-1/items", `{"productId":"waffle-1","quantity":3}`)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		items, err := f.carts.Items(context.Background(), "user-1")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, 5, items[0].Quantity)
	})

	t.Run("malformed body", func(t *testing.T) {
		f := newFixture(t)

		resp, body := f.do(t, http.MethodPost, "/api/cart/user-1/items", `{"productId":`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.NotEmpty(t, body["message"])
	})

	t.Run("missing productId", func(t *testing.T) {
		f := newFixture(t)

		resp, _ := f.do(t, http.MethodPost, "/api/cart/user-1/items", `{"quantity":1}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("zero quantity", func(t *testing.T) {
		f := newFixture(t)

		resp, body := f.do(t, http.MethodPost, "/api/cart/user-1/items", `{"productId":"waffle-1","quantity":0}`)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Contains(t, body["message"], "invalid quantity")
	})

	t.Run("unknown product", func(t *testing.T) {
		f := newFixture(t)

		resp, _ := f.do(t, http.MethodPost, "/api/cart/user-1/items", `{"productId":"ghost","quantity":1}`)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestSetCartQuantity(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodPost, "/api/cart/user-1/items", `{"productId":"waffle-1","quantity":2}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPut, "/api/cart/user-1/items/waffle-1", `{"quantity":7}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	items, err := f.carts.Items(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 7, items[0].Quantity)

	resp, _ = f.do(t, http.MethodPut, "/api/cart/user-1/items/waffle-1", `{"quantity":0}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	items, err = f.carts.Items(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRemoveCartItem(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodPost, "/api/cart/user-1/items", `{"productId":"waffle-1","quantity":2}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = f.do(t, http.MethodDelete, "/api/cart/user-1/items/waffle-1", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Removing again is a no-op, not an error.
	resp, _ = f.do(t, http.MethodDelete, "/api/cart/user-1/items/waffle-1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestListCartItems(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodPost, "/api/cart/user-1/items", `{"productId":"waffle-1","quantity":2}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPost, "/api/cart/user-1/items", `{"productId":"latte-9","quantity":1}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := f.do(t, http.MethodGet, "/api/cart/user-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	items, ok := body["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)

	first, ok := items[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "waffle-1", first["productId"])
	assert.Equal(t, "Waffle", first["name"])
	assert.InDelta(t, 2, first["quantity"], 0)
	assert.InDelta(t, 5.50, first["unitPrice"], 0.0001)
	assert.InDelta(t, 11.0, first["lineTotal"], 0.0001)

	assert.InDelta(t, 14.25, body["total"], 0.0001)
}

func TestListCartItemsOmitsVanishedProduct(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodPost, "/api/cart/user-1/items", `{"productId":"waffle-1","quantity":2}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Plant a row for a product that is no longer in the catalog.
	require.NoError(t, f.carts.Add(context.Background(), "user-1", "ghost", 1))

	resp, body := f.do(t, http.MethodGet, "/api/cart/user-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	items, ok := body["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)

	first, ok := items[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "waffle-1", first["productId"])
	assert.InDelta(t, 11.0, body["total"], 0.0001)
}

func TestClearCart(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodPost, "/api/cart/user-1/items", `{"productId":"waffle-1","quantity":2}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = f.do(t, http.MethodDelete, "/api/cart/user-1", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	items, err := f.carts.Items(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCheckoutCart(t *testing.T) {
	const checkoutBody = `{"payment":{"kind":"card","amount":11.00,"cardNumber":"4111111111111111","securityCode":"123"}}`

	t.Run("success", func(t *testing.T) {
		f := newFixture(t)

		resp, _ := f.do(t, http.MethodPost, "/api/cart/user-1/items", `{"productId":"waffle-1","quantity":2}`)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp, body := f.do(t, http.MethodPost, "/api/cart/user-1/checkout", checkoutBody)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.NotEmpty(t, body["orderId"])

		items, err := f.carts.Items(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Empty(t, items)

		require.Len(t, f.orders.orders, 1)
		assert.True(t, f.orders.orders[0].Total.Equal(decimal.NewFromInt(11)))
	})

	t.Run("empty cart", func(t *testing.T) {
		f := newFixture(t)

		resp, body := f.do(t, http.MethodPost, "/api/cart/user-1/checkout", checkoutBody)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "cart is empty", body["message"])
	})

	t.Run("amount mismatch", func(t *testing.T) {
		f := newFixture(t)

		resp, _ := f.do(t, http.MethodPost, "/api/cart/user-1/items", `{"productId":"waffle-1","quantity":1}`)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp, _ = f.do(t, http.MethodPost, "/api/cart/user-1/checkout", checkoutBody)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("invalid card", func(t *testing.T) {
		f := newFixture(t)

		resp, _ := f.do(t, http.MethodPost, "/api/cart/user-1/items", `{"productId":"waffle-1","quantity":2}`)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp, body := f.do(t, http.MethodPost, "/api/cart/user-1/checkout",
			`{"payment":{"kind":"card","amount":11.00,"cardNumber":"1234","securityCode":"123"}}`)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Contains(t, body["message"], "cardNumber")
	})

	t.Run("unknown payment kind", func(t *testing.T) {
		f := newFixture(t)

		resp, _ := f.do(t, http.MethodPost, "/api/cart/user-1/items", `{"productId":"waffle-1","quantity":2}`)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp, _ = f.do(t, http.MethodPost, "/api/cart/user-1/checkout",
			`{"payment":{"kind":"wire","amount":11.00}}`)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("cart changed concurrently", func(t *testing.T) {
		f := newFixture(t)

		resp, _ := f.do(t, http.MethodPost, "/api/cart/user-1/items", `{"productId":"waffle-1","quantity":2}`)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		f.orders.failWith = order.ErrCartChanged
		resp, body := f.do(t, http.MethodPost, "/api/cart/user-1/checkout", checkoutBody)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "cart changed during checkout", body["message"])

		// The cart survives a conflicted checkout.
		items, err := f.carts.Items(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("storage failure", func(t *testing.T) {
		f := newFixture(t)

		resp, _ := f.do(t, http.MethodPost, "/api/cart/user-1/items", `{"productId":"waffle-1","quantity":2}`)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		f.orders.failWith = errors.New("connection reset")
		resp, body := f.do(t, http.MethodPost, "/api/cart/user-1/checkout", checkoutBody)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "checkout failed", body["message"])
	})

	t.Run("unavailable product", func(t *testing.T) {
		f := newFixture(t)

		// Bypass the service to plant a row for a product that is no
		// longer purchasable.
		require.NoError(t, f.carts.Add(context.Background(), "user-1", "retired", 1))

		resp, _ := f.do(t, http.MethodPost, "/api/cart/user-1/checkout",
			`{"payment":{"kind":"card","amount":1.00,"cardNumber":"4111111111111111","securityCode":"123"}}`)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)

	paidAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	card, err := payment.NewCard(decimal.NewFromInt(11), paidAt, payment.CardDetails{
		Number:       "4111111111111111",
		SecurityCode: "123",
	})
	require.NoError(t, err)

	f.orders.orders = append(f.orders.orders, order.Order{
		ID:    "11111111-1111-1111-1111-111111111111",
		Scope: "user-1",
		Lines: []order.Line{
			{ProductID: "waffle-1", ProductName: "Waffle", Quantity: 2, UnitPrice: decimal.NewFromFloat(5.50)},
		},
		Total:     decimal.NewFromInt(11),
		Payment:   card,
		User:      &user.User{ID: "user-1", Email: "jane@example.com", FullName: "Jane Doe"},
		CreatedAt: paidAt,
	})

	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/api/orders", nil)
	require.NoError(t, err)
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var orders []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&orders))
	require.Len(t, orders, 1)

	o := orders[0]
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", o["id"])
	assert.InDelta(t, 11.0, o["total"], 0.0001)

	u, ok := o["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "jane@example.com", u["email"])

	p, ok := o["payment"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "card", p["kind"])
	assert.Equal(t, "1111", p["cardLast4"])
}
