// Package inventory defines the inventory ledger contract: the single
// primitive through which available product quantity is ever mutated.
package inventory

import (
	"context"
	"fmt"
)

// InsufficientError indicates a reservation could not be satisfied: the
// product is inactive or fewer units are available than requested.
type InsufficientError struct {
	ProductID string
	Requested int
	Available int
	Inactive  bool
}

func (e *InsufficientError) Error() string {
	if e.Inactive {
		return fmt.Sprintf("product %s is no longer available", e.ProductID)
	}
	return fmt.Sprintf("product %s: only %d available, %d requested", e.ProductID, e.Available, e.Requested)
}

// Ledger provides atomic inventory mutation. Reserve must be implemented as
// a single conditional update so that concurrent reservations for the same
// product can never both succeed against the same pre-decrement value.
type Ledger interface {
	// Reserve decrements available inventory by quantity if and only if the
	// product is active and at least quantity units remain. On failure it
	// returns *InsufficientError and leaves inventory untouched.
	Reserve(ctx context.Context, productID string, quantity int) error

	// Restore increments available inventory by quantity. It is used by
	// order cancellation and assumes the quantity was previously reserved.
	Restore(ctx context.Context, productID string, quantity int) error
}
