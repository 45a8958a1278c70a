package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/inventory"
	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/product"
)

// Service encapsulates cart business logic. Inventory checks here are
// advisory reads against the live catalog; actual reservation happens only
// at checkout.
type Service struct {
	carts    Repository
	products product.Repository
}

// NewService creates a cart Service with the required dependencies.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{
		carts:    carts,
		products: products,
	}
}

// Fetch returns the user's cart and its hydrated lines, creating an empty
// cart if none exists yet.
func (s *Service) Fetch(ctx context.Context, userID string) (*Cart, []Line, error) {
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "get or create cart")
	}

	lines, err := s.carts.Lines(ctx, c.ID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load cart lines")
	}
	return c, lines, nil
}

// AddItem puts quantity units of a product into the user's cart. If the
// product is already present the quantities are merged into the existing
// line; created reports whether a new line was made. The merged total is
// validated against the product's current available inventory.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (line *Line, created bool, err error) {
	if quantity < 1 {
		return nil, false, &InvalidQuantityError{Quantity: quantity}
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, false, err
	}
	if !p.Active {
		return nil, false, product.ErrNotFound
	}

	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, false, errors.Wrap(err, "get or create cart")
	}

	existing, err := s.carts.LineByProduct(ctx, c.ID, productID)
	if err != nil && !errors.Is(err, ErrLineNotFound) {
		return nil, false, errors.Wrap(err, "find existing line")
	}

	newTotal := quantity
	if existing != nil {
		newTotal += existing.Quantity
	}
	if newTotal > p.Inventory {
		return nil, false, &inventory.InsufficientError{
			ProductID: productID,
			Requested: newTotal,
			Available: p.Inventory,
		}
	}

	if existing != nil {
		if err := s.carts.UpdateLineQuantity(ctx, existing.ID, newTotal); err != nil {
			return nil, false, errors.Wrap(err, "merge line quantity")
		}
		existing.Quantity = newTotal
		existing.Product = *p
		return existing, false, nil
	}

	l := &Line{
		ID:        uuid.New().String(),
		CartID:    c.ID,
		ProductID: productID,
		Quantity:  quantity,
		Product:   *p,
	}
	if err := s.carts.InsertLine(ctx, l); err != nil {
		return nil, false, errors.Wrap(err, "insert line")
	}
	return l, true, nil
}

// UpdateQuantity sets a line to an exact quantity, validated against the
// product's current inventory. Quantities below 1 are rejected; use
// RemoveItem instead.
func (s *Service) UpdateQuantity(ctx context.Context, userID, lineID string, quantity int) (*Line, error) {
	if quantity < 1 {
		return nil, &InvalidQuantityError{Quantity: quantity}
	}

	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get or create cart")
	}

	line, err := s.carts.LineByID(ctx, c.ID, lineID)
	if err != nil {
		return nil, err
	}

	p, err := s.products.GetByID(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}
	if quantity > p.Inventory {
		return nil, &inventory.InsufficientError{
			ProductID: p.ID,
			Requested: quantity,
			Available: p.Inventory,
		}
	}

	if err := s.carts.UpdateLineQuantity(ctx, line.ID, quantity); err != nil {
		return nil, errors.Wrap(err, "update line quantity")
	}
	line.Quantity = quantity
	line.Product = *p
	return line, nil
}

// RemoveItem deletes one line from the user's cart.
func (s *Service) RemoveItem(ctx context.Context, userID, lineID string) error {
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "get or create cart")
	}
	return s.carts.DeleteLine(ctx, c.ID, lineID)
}

// Clear removes every line from the user's cart. Clearing an already empty
// cart is a no-op.
func (s *Service) Clear(ctx context.Context, userID string) error {
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "get or create cart")
	}
	return s.carts.Clear(ctx, c.ID)
}
