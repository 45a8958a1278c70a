// Package order implements the order aggregate and the checkout
// transaction that converts a cart into an immutable order while reserving
// inventory atomically.
package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/cart"
	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/inventory"
)

// Status is the order lifecycle state. Orders are immutable after creation
// except for status, which may only move along the allowed transitions.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// transitions is the closed set of allowed status changes.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  nil,
	StatusCancelled:  nil,
}

// ParseStatus converts a wire value into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(s))
	if _, ok := transitions[st]; !ok {
		return "", errors.Errorf("unknown order status %q", s)
	}
	return st, nil
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Cancellable reports whether an order in this status may still be cancelled.
func (s Status) Cancellable() bool {
	return s.CanTransitionTo(StatusCancelled)
}

// Order is the immutable record of a completed purchase. TotalAmount is
// computed once at checkout and never recomputed.
type Order struct {
	ID              string
	UserID          string
	Status          Status
	TotalAmount     decimal.Decimal
	ShippingAddress string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Lines           []Line
}

// ItemCount is the sum of quantities across all lines.
func (o *Order) ItemCount() int {
	n := 0
	for i := range o.Lines {
		n += o.Lines[i].Quantity
	}
	return n
}

// Line is one purchased item with its price snapshotted at checkout time.
// ProductID is informational only and becomes empty if the product is later
// deleted; ProductName keeps the historical record readable.
type Line struct {
	ID              string
	OrderID         string
	ProductID       string
	ProductName     string
	Quantity        int
	PriceAtPurchase decimal.Decimal
}

// Subtotal is quantity times the snapshotted purchase price, independent of
// any later product price change.
func (l *Line) Subtotal() decimal.Decimal {
	return l.PriceAtPurchase.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Summary is the lightweight shape for order list views; it deliberately
// carries no line detail.
type Summary struct {
	ID          string
	Status      Status
	TotalAmount decimal.Decimal
	ItemCount   int
	CreatedAt   time.Time
}

// Sentinel errors for order operations.
var (
	// ErrEmptyCart is returned when checkout is attempted with no cart lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNotFound is returned when an order does not exist or belongs to a
	// different user; ownership is never distinguishable from nonexistence.
	ErrNotFound = errors.New("order not found")
	// ErrShippingAddressRequired is returned when checkout lacks an address.
	ErrShippingAddressRequired = errors.New("shipping address is required")
)

// StockViolation describes one cart line that cannot be fulfilled.
type StockViolation struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
	Inactive    bool
}

// Message renders the violation for the caller.
func (v StockViolation) Message() string {
	name := v.ProductName
	if name == "" {
		name = v.ProductID
	}
	if v.Inactive {
		return fmt.Sprintf("%s is no longer available", name)
	}
	return fmt.Sprintf("%s: only %d available, %d requested", name, v.Available, v.Requested)
}

// InsufficientInventoryError carries every violation found during checkout
// validation so the caller can fix all of them in a single round trip.
type InsufficientInventoryError struct {
	Violations []StockViolation
}

func (e *InsufficientInventoryError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message()
	}
	return "insufficient inventory: " + strings.Join(msgs, "; ")
}

// InvalidTransitionError indicates a status change outside the allowed
// state machine.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// Store provides order persistence. Reads run outside any transaction;
// checkout and cancellation execute their mutations through InTx, which
// must guarantee that either every mutation commits or none do.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Summaries(ctx context.Context, userID string) ([]Summary, error)
	GetDetail(ctx context.Context, orderID, userID string) (*Order, error)
}

// Tx is the unit of work visible inside a single order transaction. Its
// inventory.Ledger methods must re-validate availability atomically at
// write time; the application-level read in checkout is not sufficient on
// its own.
type Tx interface {
	inventory.Ledger

	UserCartLines(ctx context.Context, userID string) ([]cart.Line, error)
	CreateOrder(ctx context.Context, o *Order) error
	ClearUserCart(ctx context.Context, userID string) error
	OrderForUpdate(ctx context.Context, orderID string) (*Order, error)
	SetStatus(ctx context.Context, orderID string, status Status) error
}
