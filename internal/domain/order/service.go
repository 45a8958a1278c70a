package order

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/inventory"
)

// Service encapsulates checkout, cancellation, and order reads.
type Service struct {
	store Store
}

// NewService creates an order Service backed by the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// CheckoutRequest holds the input for placing an order from a cart.
type CheckoutRequest struct {
	UserID          string
	ShippingAddress string
	Notes           string
}

// Checkout converts the user's cart into an order as one atomic unit:
// validate cart and inventory, snapshot prices into order lines, reserve
// inventory, clear the cart. Any failure leaves no partial effect.
//
// Validation collects every stock violation before failing so the caller
// can report all problems at once. The reservation step re-validates each
// decrement atomically; if stock moved between validation and reservation
// because of a concurrent checkout, the transaction rolls back and the
// caller may retry against fresh inventory.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Order, error) {
	if strings.TrimSpace(req.ShippingAddress) == "" {
		return nil, ErrShippingAddressRequired
	}

	var placed *Order
	err := s.store.InTx(ctx, func(tx Tx) error {
		lines, err := tx.UserCartLines(ctx, req.UserID)
		if err != nil {
			return errors.Wrap(err, "load cart")
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		var violations []StockViolation
		for i := range lines {
			l := &lines[i]
			switch {
			case !l.Product.Active:
				violations = append(violations, StockViolation{
					ProductID:   l.ProductID,
					ProductName: l.Product.Name,
					Requested:   l.Quantity,
					Inactive:    true,
				})
			case l.Quantity > l.Product.Inventory:
				violations = append(violations, StockViolation{
					ProductID:   l.ProductID,
					ProductName: l.Product.Name,
					Requested:   l.Quantity,
					Available:   l.Product.Inventory,
				})
			}
		}
		if len(violations) > 0 {
			return &InsufficientInventoryError{Violations: violations}
		}

		// Prices observed during validation are the prices the customer
		// pays; no re-read happens between here and commit.
		orderID := uuid.New().String()
		total := decimal.Zero
		orderLines := make([]Line, len(lines))
		for i := range lines {
			l := &lines[i]
			total = total.Add(l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
			orderLines[i] = Line{
				ID:              uuid.New().String(),
				OrderID:         orderID,
				ProductID:       l.ProductID,
				ProductName:     l.Product.Name,
				Quantity:        l.Quantity,
				PriceAtPurchase: l.Product.Price,
			}
		}

		o := &Order{
			ID:              orderID,
			UserID:          req.UserID,
			Status:          StatusPending,
			TotalAmount:     total.Round(2),
			ShippingAddress: req.ShippingAddress,
			Notes:           req.Notes,
			Lines:           orderLines,
		}
		if err := tx.CreateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}

		for i := range lines {
			l := &lines[i]
			if err := tx.Reserve(ctx, l.ProductID, l.Quantity); err != nil {
				var ie *inventory.InsufficientError
				if errors.As(err, &ie) {
					return &InsufficientInventoryError{Violations: []StockViolation{{
						ProductID:   ie.ProductID,
						ProductName: l.Product.Name,
						Requested:   ie.Requested,
						Available:   ie.Available,
						Inactive:    ie.Inactive,
					}}}
				}
				return errors.Wrapf(err, "reserve %s", l.ProductID)
			}
		}

		if err := tx.ClearUserCart(ctx, req.UserID); err != nil {
			return errors.Wrap(err, "clear cart")
		}

		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

// Cancel moves an order owned by userID to CANCELLED and restores every
// reserved quantity to the inventory ledger. Orders past PROCESSING can no
// longer be cancelled.
func (s *Service) Cancel(ctx context.Context, orderID, userID string) (*Order, error) {
	var cancelled *Order
	err := s.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return ErrNotFound
		}
		if !o.Status.Cancellable() {
			return &InvalidTransitionError{From: o.Status, To: StatusCancelled}
		}

		if err := restoreLines(ctx, tx, o.Lines); err != nil {
			return err
		}
		if err := tx.SetStatus(ctx, o.ID, StatusCancelled); err != nil {
			return errors.Wrap(err, "set status")
		}

		o.Status = StatusCancelled
		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// UpdateStatus transitions any user's order to next, validating the move
// against the state machine. Intended for operator use; cancelling through
// this path restores inventory exactly like Cancel does.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next Status) (*Order, error) {
	var updated *Order
	err := s.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(next) {
			return &InvalidTransitionError{From: o.Status, To: next}
		}

		if next == StatusCancelled {
			if err := restoreLines(ctx, tx, o.Lines); err != nil {
				return err
			}
		}
		if err := tx.SetStatus(ctx, o.ID, next); err != nil {
			return errors.Wrap(err, "set status")
		}

		o.Status = next
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// restoreLines returns reserved quantities to the ledger. Lines whose
// product was deleted since purchase have nothing left to restore.
func restoreLines(ctx context.Context, tx Tx, lines []Line) error {
	for i := range lines {
		l := &lines[i]
		if l.ProductID == "" {
			continue
		}
		if err := tx.Restore(ctx, l.ProductID, l.Quantity); err != nil {
			return errors.Wrapf(err, "restore %s", l.ProductID)
		}
	}
	return nil
}

// ListForUser returns the user's order summaries, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Summary, error) {
	summaries, err := s.store.Summaries(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return summaries, nil
}

// GetDetail returns the full order with its lines. Orders owned by another
// user are reported as ErrNotFound.
func (s *Service) GetDetail(ctx context.Context, orderID, userID string) (*Order, error) {
	return s.store.GetDetail(ctx, orderID, userID)
}
