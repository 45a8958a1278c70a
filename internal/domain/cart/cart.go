// Package cart implements the shopping cart aggregate: a mutable set of
// product lines owned by one user. Carts never store prices; totals are
// always computed from the live catalog.
package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/product"
)

// ErrLineNotFound is returned when a cart line does not exist or does not
// belong to the caller's cart.
var ErrLineNotFound = errors.New("cart line not found")

// InvalidQuantityError indicates a requested quantity below the minimum of 1.
type InvalidQuantityError struct {
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1, got %d", e.Quantity)
}

// Cart is the per-user container for lines. It is created lazily on first
// item addition and cleared, never deleted, on checkout.
type Cart struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Line is one (product, quantity) entry. At most one line exists per product
// per cart; re-adding a product merges into the existing line. Product is
// hydrated from the catalog on every read so prices are always current.
type Line struct {
	ID        string
	CartID    string
	ProductID string
	Quantity  int
	AddedAt   time.Time
	UpdatedAt time.Time

	Product product.Product
}

// Subtotal is quantity times the current product price.
func (l *Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Totals holds the computed cart summary.
type Totals struct {
	Items  int
	Amount decimal.Decimal
}

// Total computes item count and total amount from hydrated lines. It is a
// pure function: an empty slice yields zero items and a zero amount.
func Total(lines []Line) Totals {
	t := Totals{Amount: decimal.Zero}
	for i := range lines {
		t.Items += lines[i].Quantity
		t.Amount = t.Amount.Add(lines[i].Subtotal())
	}
	return t
}

// Repository defines persistence operations for carts and their lines.
// Line mutations also bump the owning cart's updated_at.
type Repository interface {
	GetOrCreate(ctx context.Context, userID string) (*Cart, error)
	Lines(ctx context.Context, cartID string) ([]Line, error)
	LineByID(ctx context.Context, cartID, lineID string) (*Line, error)
	LineByProduct(ctx context.Context, cartID, productID string) (*Line, error)
	InsertLine(ctx context.Context, line *Line) error
	UpdateLineQuantity(ctx context.Context, lineID string, quantity int) error
	DeleteLine(ctx context.Context, cartID, lineID string) error
	Clear(ctx context.Context, cartID string) error
}
