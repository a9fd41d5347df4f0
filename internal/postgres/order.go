package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Julien07012002/boutique/internal/domain/order"
	"github.com/Julien07012002/boutique/internal/domain/payment"
	"github.com/Julien07012002/boutique/internal/domain/user"
)

const (
	lockCartItemsSQL = `SELECT product_id, quantity FROM cart_items
		WHERE user_id = $1 FOR UPDATE`

	insertOrderSQL = `INSERT INTO orders (id, user_id, total, created_at)
		VALUES ($1, $2, $3, $4)`

	insertOrderLineSQL = `INSERT INTO order_lines (order_id, product_id, product_name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`

	insertPaymentSQL = `INSERT INTO payments (id, order_id, kind, amount, paid_at, card_number, card_security_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	// Deletes only the ordered rows. A row inserted concurrently for a
	// product outside the snapshot conflicts with nothing locked, so a
	// blanket delete by user_id would silently destroy it.
	deleteCartItemsSQL = `DELETE FROM cart_items WHERE user_id = $1 AND product_id = ANY($2)`

	listOrdersSQL = `SELECT o.id, o.user_id, o.total, o.created_at,
			u.email, u.full_name,
			p.kind, p.amount, p.paid_at, p.card_number, p.card_security_code
		FROM orders o
		LEFT JOIN users u ON u.id = o.user_id
		LEFT JOIN payments p ON p.order_id = o.id
		ORDER BY o.created_at DESC, o.id`

	listOrderLinesSQL = `SELECT order_id, product_id, product_name, quantity, unit_price
		FROM order_lines WHERE order_id = ANY($1) ORDER BY id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateAndClearCart persists the order, its lines, and its payment, then
// deletes the ordered cart rows, all in one transaction. The cart rows are
// locked and compared against the order's frozen lines first: if the cart
// was mutated since the snapshot was taken the transaction is rolled back
// and order.ErrCartChanged is returned. A row for a new product added while
// the transaction runs is left in the cart.
func (r *OrderRepository) CreateAndClearCart(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Serialization point: concurrent cart mutations for this scope block
	// here until the transaction finishes.
	rows, err := tx.Query(ctx, lockCartItemsSQL, o.Scope)
	if err != nil {
		return errors.Wrap(err, "lock cart items")
	}
	locked := make(map[string]int)
	for rows.Next() {
		var (
			productID string
			quantity  int
		)
		if err := rows.Scan(&productID, &quantity); err != nil {
			rows.Close()
			return errors.Wrap(err, "scan cart item")
		}
		locked[productID] = quantity
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "read cart items")
	}

	if len(locked) != len(o.Lines) {
		return order.ErrCartChanged
	}
	for _, line := range o.Lines {
		if locked[line.ProductID] != line.Quantity {
			return order.ErrCartChanged
		}
	}

	if _, err := tx.Exec(ctx, insertOrderSQL, o.ID, o.Scope, o.Total, o.CreatedAt); err != nil {
		return errors.Wrapf(err, "insert order %s", o.ID)
	}

	for _, line := range o.Lines {
		_, err := tx.Exec(ctx, insertOrderLineSQL,
			o.ID, line.ProductID, line.ProductName, line.Quantity, line.UnitPrice,
		)
		if err != nil {
			return errors.Wrapf(err, "insert order line %s", line.ProductID)
		}
	}

	if err := insertPayment(ctx, tx, o); err != nil {
		return err
	}

	ids := make([]string, len(o.Lines))
	for i, line := range o.Lines {
		ids[i] = line.ProductID
	}
	if _, err := tx.Exec(ctx, deleteCartItemsSQL, o.Scope, ids); err != nil {
		return errors.Wrap(err, "clear cart")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}

// insertPayment maps the payment variant to its column set via the kind tag.
func insertPayment(ctx context.Context, tx pgx.Tx, o *order.Order) error {
	switch m := o.Payment.(type) {
	case *payment.Card:
		_, err := tx.Exec(ctx, insertPaymentSQL,
			uuid.New().String(), o.ID, string(m.Kind()), m.Amount(), m.PaidAt(),
			m.Number(), m.SecurityCode(),
		)
		if err != nil {
			return errors.Wrapf(err, "insert payment for order %s", o.ID)
		}
		return nil
	default:
		return errors.Errorf("unsupported payment kind %q", string(o.Payment.Kind()))
	}
}

// ListWithUserAndPayment returns all orders newest-first with user, payment,
// and lines attached.
func (r *OrderRepository) ListWithUserAndPayment(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	var (
		result []order.Order
		ids    []string
		index  = make(map[string]int)
	)
	for rows.Next() {
		var (
			o                    order.Order
			email, fullName      *string
			kind                 *string
			amount               *decimal.Decimal
			paidAt               *time.Time
			cardNumber, cardCode *string
		)
		err := rows.Scan(
			&o.ID, &o.Scope, &o.Total, &o.CreatedAt,
			&email, &fullName,
			&kind, &amount, &paidAt, &cardNumber, &cardCode,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}

		if email != nil {
			o.User = &user.User{ID: o.Scope, Email: *email}
			if fullName != nil {
				o.User.FullName = *fullName
			}
		}

		if kind != nil {
			o.Payment, err = restorePayment(*kind, amount, paidAt, cardNumber, cardCode)
			if err != nil {
				return nil, errors.Wrapf(err, "order %s", o.ID)
			}
		}

		index[o.ID] = len(result)
		ids = append(ids, o.ID)
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "read orders")
	}
	if len(result) == 0 {
		return nil, nil
	}

	lineRows, err := r.pool.Query(ctx, listOrderLinesSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "list order lines")
	}
	defer lineRows.Close()

	for lineRows.Next() {
		var (
			orderID string
			line    order.Line
		)
		err := lineRows.Scan(&orderID, &line.ProductID, &line.ProductName, &line.Quantity, &line.UnitPrice)
		if err != nil {
			return nil, errors.Wrap(err, "scan order line")
		}
		if i, ok := index[orderID]; ok {
			result[i].Lines = append(result[i].Lines, line)
		}
	}
	if err := lineRows.Err(); err != nil {
		return nil, errors.Wrap(err, "read order lines")
	}

	return result, nil
}

// restorePayment rebuilds the payment variant from its kind tag and column
// set, re-running construction-time validation on the stored fields.
func restorePayment(kind string, amount *decimal.Decimal, paidAt *time.Time, cardNumber, cardCode *string) (payment.Method, error) {
	if amount == nil || paidAt == nil {
		return nil, errors.New("payment row missing amount or paid_at")
	}
	switch payment.Kind(kind) {
	case payment.KindCard:
		if cardNumber == nil || cardCode == nil {
			return nil, errors.New("card payment row missing card columns")
		}
		m, err := payment.NewCard(*amount, *paidAt, payment.CardDetails{
			Number:       *cardNumber,
			SecurityCode: *cardCode,
		})
		if err != nil {
			return nil, errors.Wrap(err, "restore card payment")
		}
		return m, nil
	default:
		return nil, errors.Errorf("unknown payment kind %q in storage", kind)
	}
}
