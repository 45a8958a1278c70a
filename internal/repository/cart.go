package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/cart"
)

const (
	// Upsert keeps GetOrCreate a single round trip: the no-op DO UPDATE lets
	// RETURNING yield the existing row on conflict.
	getOrCreateCartSQL = `INSERT INTO carts (id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id, created_at, updated_at`

	cartLineCols = `l.id, l.cart_id, l.product_id, l.quantity, l.added_at, l.updated_at,
		p.id, p.name, p.description, p.category, p.price, p.inventory, p.active, p.created_at, p.updated_at`

	cartLinesSQL = `SELECT ` + cartLineCols + `
		FROM cart_lines l JOIN products p ON p.id = l.product_id
		WHERE l.cart_id = $1 ORDER BY l.added_at, l.id`

	cartLineByIDSQL = `SELECT ` + cartLineCols + `
		FROM cart_lines l JOIN products p ON p.id = l.product_id
		WHERE l.cart_id = $1 AND l.id = $2`

	cartLineByProductSQL = `SELECT ` + cartLineCols + `
		FROM cart_lines l JOIN products p ON p.id = l.product_id
		WHERE l.cart_id = $1 AND l.product_id = $2`

	insertCartLineSQL = `INSERT INTO cart_lines (id, cart_id, product_id, quantity)
		VALUES ($1, $2, $3, $4) RETURNING added_at, updated_at`

	updateCartLineSQL = `UPDATE cart_lines SET quantity = $2, updated_at = now()
		WHERE id = $1 RETURNING cart_id`

	deleteCartLineSQL = `DELETE FROM cart_lines WHERE cart_id = $1 AND id = $2`

	clearCartLinesSQL = `DELETE FROM cart_lines WHERE cart_id = $1`

	touchCartSQL = `UPDATE carts SET updated_at = now() WHERE id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Every
// line read hydrates the referenced product so totals always reflect live
// catalog prices.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// GetOrCreate returns the user's cart, creating an empty one on first use.
// It is idempotent: one cart exists per user.
func (r *CartRepository) GetOrCreate(ctx context.Context, userID string) (*cart.Cart, error) {
	var c cart.Cart
	err := r.pool.QueryRow(ctx, getOrCreateCartSQL, newID(), userID).Scan(
		&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get or create cart for user %q: %w", userID, err)
	}
	return &c, nil
}

// Lines returns the cart's lines hydrated with product data, in stable
// insertion order.
func (r *CartRepository) Lines(ctx context.Context, cartID string) ([]cart.Line, error) {
	rows, err := r.pool.Query(ctx, cartLinesSQL, cartID)
	if err != nil {
		return nil, fmt.Errorf("listing cart lines: %w", err)
	}
	return pgx.CollectRows(rows, scanCartLine)
}

// LineByID returns one line scoped to the given cart.
func (r *CartRepository) LineByID(ctx context.Context, cartID, lineID string) (*cart.Line, error) {
	return r.collectLine(ctx, cartLineByIDSQL, cartID, lineID)
}

// LineByProduct returns the cart's line for a product, if any.
func (r *CartRepository) LineByProduct(ctx context.Context, cartID, productID string) (*cart.Line, error) {
	return r.collectLine(ctx, cartLineByProductSQL, cartID, productID)
}

func (r *CartRepository) collectLine(ctx context.Context, sql string, args ...any) (*cart.Line, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("getting cart line: %w", err)
	}

	l, err := pgx.CollectExactlyOneRow(rows, scanCartLine)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrLineNotFound
		}
		return nil, fmt.Errorf("getting cart line: %w", err)
	}
	return &l, nil
}

// InsertLine adds a new line and bumps the cart's updated_at.
func (r *CartRepository) InsertLine(ctx context.Context, line *cart.Line) error {
	err := r.pool.QueryRow(ctx, insertCartLineSQL,
		line.ID, line.CartID, line.ProductID, line.Quantity,
	).Scan(&line.AddedAt, &line.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting cart line: %w", err)
	}
	return r.touch(ctx, line.CartID)
}

// UpdateLineQuantity sets the line's quantity and bumps the cart's updated_at.
func (r *CartRepository) UpdateLineQuantity(ctx context.Context, lineID string, quantity int) error {
	var cartID string
	err := r.pool.QueryRow(ctx, updateCartLineSQL, lineID, quantity).Scan(&cartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart.ErrLineNotFound
		}
		return fmt.Errorf("updating cart line %q: %w", lineID, err)
	}
	return r.touch(ctx, cartID)
}

// DeleteLine removes one line scoped to the cart.
func (r *CartRepository) DeleteLine(ctx context.Context, cartID, lineID string) error {
	tag, err := r.pool.Exec(ctx, deleteCartLineSQL, cartID, lineID)
	if err != nil {
		return fmt.Errorf("deleting cart line %q: %w", lineID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return r.touch(ctx, cartID)
}

// Clear deletes all of the cart's lines. Clearing an empty cart is a no-op.
func (r *CartRepository) Clear(ctx context.Context, cartID string) error {
	if _, err := r.pool.Exec(ctx, clearCartLinesSQL, cartID); err != nil {
		return fmt.Errorf("clearing cart %q: %w", cartID, err)
	}
	return r.touch(ctx, cartID)
}

func (r *CartRepository) touch(ctx context.Context, cartID string) error {
	if _, err := r.pool.Exec(ctx, touchCartSQL, cartID); err != nil {
		return fmt.Errorf("touching cart %q: %w", cartID, err)
	}
	return nil
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var l cart.Line
	err := row.Scan(
		&l.ID, &l.CartID, &l.ProductID, &l.Quantity, &l.AddedAt, &l.UpdatedAt,
		&l.Product.ID, &l.Product.Name, &l.Product.Description, &l.Product.Category,
		&l.Product.Price, &l.Product.Inventory, &l.Product.Active,
		&l.Product.CreatedAt, &l.Product.UpdatedAt,
	)
	return l, err
}
