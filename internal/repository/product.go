package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/inventory"
	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/product"
)

const (
	productCols = `id, name, description, category, price, inventory, active, created_at, updated_at`

	listProductsSQL = `SELECT ` + productCols + ` FROM products ORDER BY id`

	getProductByIDSQL = `SELECT ` + productCols + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productCols + ` FROM products WHERE id = ANY($1) ORDER BY id`

	adjustInventorySQL = `UPDATE products
		SET inventory = inventory + $2, updated_at = now()
		WHERE id = $1 AND inventory + $2 >= 0
		RETURNING ` + productCols
)

var (
	_ product.Repository        = (*ProductRepository)(nil)
	_ product.InventoryAdjuster = (*ProductRepository)(nil)
)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// AdjustInventory applies a signed inventory correction as a single
// conditional update, so concurrent checkouts and restocks cannot lose
// updates. Adjustments that would drive inventory negative fail with
// *inventory.InsufficientError.
func (r *ProductRepository) AdjustInventory(ctx context.Context, id string, delta int) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, adjustInventorySQL, id, delta)
	if err != nil {
		return nil, fmt.Errorf("adjusting inventory for %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("adjusting inventory for %q: %w", id, err)
	}

	// Zero rows: either the product is missing or the decrement would
	// undershoot. Distinguish with a plain read.
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, &inventory.InsufficientError{
		ProductID: id,
		Requested: -delta,
		Available: current.Inventory,
	}
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category,
		&p.Price, &p.Inventory, &p.Active,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
