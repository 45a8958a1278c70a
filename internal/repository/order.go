package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/cart"
	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/inventory"
	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/order"
)

const (
	userCartLinesSQL = `SELECT ` + cartLineCols + `
		FROM cart_lines l
		JOIN carts c ON c.id = l.cart_id
		JOIN products p ON p.id = l.product_id
		WHERE c.user_id = $1 ORDER BY l.added_at, l.id`

	insertOrderSQL = `INSERT INTO orders (id, user_id, status, total_amount, shipping_address, notes)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at, updated_at`

	insertOrderLineSQL = `INSERT INTO order_lines (id, order_id, product_id, product_name, quantity, price_at_purchase)
		VALUES ($1, $2, $3, $4, $5, $6)`

	// The conditional decrement is the oversell guard: it re-validates
	// availability in the same statement that mutates it.
	reserveInventorySQL = `UPDATE products
		SET inventory = inventory - $2, updated_at = now()
		WHERE id = $1 AND active AND inventory >= $2`

	restoreInventorySQL = `UPDATE products
		SET inventory = inventory + $2, updated_at = now()
		WHERE id = $1`

	inventoryStateSQL = `SELECT inventory, active FROM products WHERE id = $1`

	clearUserCartSQL = `DELETE FROM cart_lines l
		USING carts c
		WHERE l.cart_id = c.id AND c.user_id = $1`

	touchUserCartSQL = `UPDATE carts SET updated_at = now() WHERE user_id = $1`

	orderForUpdateSQL = `SELECT id, user_id, status, total_amount, shipping_address, notes, created_at, updated_at
		FROM orders WHERE id = $1 FOR UPDATE`

	setOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`

	orderLinesSQL = `SELECT id, order_id, COALESCE(product_id, ''), product_name, quantity, price_at_purchase
		FROM order_lines WHERE order_id = $1 ORDER BY id`

	orderSummariesSQL = `SELECT o.id, o.status, o.total_amount, COALESCE(SUM(l.quantity), 0)::int, o.created_at
		FROM orders o
		LEFT JOIN order_lines l ON l.order_id = o.id
		WHERE o.user_id = $1
		GROUP BY o.id, o.status, o.total_amount, o.created_at
		ORDER BY o.created_at DESC, o.id DESC`

	orderDetailSQL = `SELECT id, user_id, status, total_amount, shipping_address, notes, created_at, updated_at
		FROM orders WHERE id = $1 AND user_id = $2`
)

var _ order.Store = (*OrderStore)(nil)

// OrderStore implements order.Store backed by PostgreSQL. Mutations run in
// read-committed transactions; the oversell guard is the conditional
// inventory decrement, not the isolation level.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// InTx runs fn inside one database transaction. If fn returns an error the
// transaction is rolled back and the error is returned unwrapped, so domain
// errors survive for the caller to inspect.
func (s *OrderStore) InTx(ctx context.Context, fn func(tx order.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&orderTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Summaries returns the user's order summaries newest first, with item
// counts aggregated in SQL so list views never load line detail.
func (s *OrderStore) Summaries(ctx context.Context, userID string) ([]order.Summary, error) {
	rows, err := s.pool.Query(ctx, orderSummariesSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Summary, error) {
		var sum order.Summary
		err := row.Scan(&sum.ID, &sum.Status, &sum.TotalAmount, &sum.ItemCount, &sum.CreatedAt)
		return sum, err
	})
}

// GetDetail returns the full order with lines, scoped to the owning user.
// A missing row and a foreign owner are both order.ErrNotFound.
func (s *OrderStore) GetDetail(ctx context.Context, orderID, userID string) (*order.Order, error) {
	var o order.Order
	err := s.pool.QueryRow(ctx, orderDetailSQL, orderID, userID).Scan(
		&o.ID, &o.UserID, &o.Status, &o.TotalAmount,
		&o.ShippingAddress, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", orderID, err)
	}

	o.Lines, err = collectOrderLines(ctx, s.pool, orderID)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// orderTx implements order.Tx on a pgx transaction.
type orderTx struct {
	tx pgx.Tx
}

var _ order.Tx = (*orderTx)(nil)

// UserCartLines loads the user's cart lines hydrated with product data,
// inside the transaction, in stable insertion order.
func (t *orderTx) UserCartLines(ctx context.Context, userID string) ([]cart.Line, error) {
	rows, err := t.tx.Query(ctx, userCartLinesSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("loading cart lines for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanCartLine)
}

// CreateOrder persists the order row and all of its lines.
func (t *orderTx) CreateOrder(ctx context.Context, o *order.Order) error {
	err := t.tx.QueryRow(ctx, insertOrderSQL,
		o.ID, o.UserID, o.Status, o.TotalAmount, o.ShippingAddress, o.Notes,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for i := range o.Lines {
		l := &o.Lines[i]
		_, err := t.tx.Exec(ctx, insertOrderLineSQL,
			l.ID, l.OrderID, l.ProductID, l.ProductName, l.Quantity, l.PriceAtPurchase,
		)
		if err != nil {
			return fmt.Errorf("creating order line for product %q: %w", l.ProductID, err)
		}
	}
	return nil
}

// Reserve atomically decrements available inventory. Zero rows affected
// means the product is missing, inactive, or short on stock; the follow-up
// read only classifies the failure, it never mutates.
func (t *orderTx) Reserve(ctx context.Context, productID string, quantity int) error {
	tag, err := t.tx.Exec(ctx, reserveInventorySQL, productID, quantity)
	if err != nil {
		return fmt.Errorf("reserving %d of %q: %w", quantity, productID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var (
		available int
		active    bool
	)
	err = t.tx.QueryRow(ctx, inventoryStateSQL, productID).Scan(&available, &active)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("checking inventory of %q: %w", productID, err)
	}
	return &inventory.InsufficientError{
		ProductID: productID,
		Requested: quantity,
		Available: available,
		Inactive:  !active || errors.Is(err, pgx.ErrNoRows),
	}
}

// Restore returns previously reserved units to the ledger.
func (t *orderTx) Restore(ctx context.Context, productID string, quantity int) error {
	if _, err := t.tx.Exec(ctx, restoreInventorySQL, productID, quantity); err != nil {
		return fmt.Errorf("restoring %d of %q: %w", quantity, productID, err)
	}
	return nil
}

// ClearUserCart deletes all of the user's cart lines and bumps the cart.
func (t *orderTx) ClearUserCart(ctx context.Context, userID string) error {
	if _, err := t.tx.Exec(ctx, clearUserCartSQL, userID); err != nil {
		return fmt.Errorf("clearing cart for user %q: %w", userID, err)
	}
	if _, err := t.tx.Exec(ctx, touchUserCartSQL, userID); err != nil {
		return fmt.Errorf("touching cart for user %q: %w", userID, err)
	}
	return nil
}

// OrderForUpdate loads an order with its lines, holding a row lock so
// concurrent status changes serialize.
func (t *orderTx) OrderForUpdate(ctx context.Context, orderID string) (*order.Order, error) {
	var o order.Order
	err := t.tx.QueryRow(ctx, orderForUpdateSQL, orderID).Scan(
		&o.ID, &o.UserID, &o.Status, &o.TotalAmount,
		&o.ShippingAddress, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("locking order %q: %w", orderID, err)
	}

	o.Lines, err = collectOrderLines(ctx, t.tx, orderID)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// SetStatus persists a status transition already validated by the service.
func (t *orderTx) SetStatus(ctx context.Context, orderID string, status order.Status) error {
	if _, err := t.tx.Exec(ctx, setOrderStatusSQL, orderID, status); err != nil {
		return fmt.Errorf("setting status of order %q: %w", orderID, err)
	}
	return nil
}

// querier is the subset of pgx shared by pools and transactions.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func collectOrderLines(ctx context.Context, q querier, orderID string) ([]order.Line, error) {
	rows, err := q.Query(ctx, orderLinesSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("loading lines of order %q: %w", orderID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Line, error) {
		var l order.Line
		err := row.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.ProductName, &l.Quantity, &l.PriceAtPurchase)
		return l, err
	})
}
