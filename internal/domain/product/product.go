package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase. Price is the
// live unit price; carts always reflect it, orders snapshot it at checkout.
type Product struct {
	ID          string
	Name        string
	Description string
	Category    string
	Price       decimal.Decimal
	Inventory   int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Purchasable reports whether the product can currently be sold at all.
func (p *Product) Purchasable() bool {
	return p.Active && p.Inventory > 0
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}

// InventoryAdjuster applies administrative inventory corrections. The
// implementation must use the same atomic conditional-update primitive as
// checkout reservation so concurrent mutations cannot lose updates.
type InventoryAdjuster interface {
	AdjustInventory(ctx context.Context, id string, delta int) (*Product, error)
}
