//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/cart"
	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/order"
	"github.com/FabioPita18/ecommerce-product-catalog/internal/repository"
)

func newServices() (*cart.Service, *order.Service) {
	products := repository.NewProductRepository(pool)
	carts := repository.NewCartRepository(pool)
	return cart.NewService(carts, products), order.NewService(repository.NewOrderStore(pool))
}

func productInventory(t *testing.T, id string) int {
	t.Helper()
	var inv int
	err := pool.QueryRow(context.Background(),
		`SELECT inventory FROM products WHERE id = $1`, id).Scan(&inv)
	require.NoError(t, err)
	return inv
}

func TestCheckout_EndToEnd(t *testing.T) {
	cleanTables(t)
	seedProduct(t, "p1", "Widget", "10.00", 5, true)
	seedProduct(t, "p2", "Gadget", "2.50", 4, true)

	carts, orders := newServices()
	ctx := context.Background()

	_, _, err := carts.AddItem(ctx, "user-1", "p1", 2)
	require.NoError(t, err)
	_, _, err = carts.AddItem(ctx, "user-1", "p2", 3)
	require.NoError(t, err)

	o, err := orders.Checkout(ctx, order.CheckoutRequest{
		UserID:          "user-1",
		ShippingAddress: "1 Main St",
	})
	require.NoError(t, err)

	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, "27.50", o.TotalAmount.StringFixed(2))
	assert.Equal(t, 3, productInventory(t, "p1"))
	assert.Equal(t, 1, productInventory(t, "p2"))

	// Cart is cleared.
	_, lines, err := carts.Fetch(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, lines)

	// Detail read reflects the snapshot.
	got, err := orders.GetDetail(ctx, o.ID, "user-1")
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "Widget", got.Lines[0].ProductName)
	assert.Equal(t, "10.00", got.Lines[0].PriceAtPurchase.StringFixed(2))
}

func TestCheckout_FailureLeavesNoPartialState(t *testing.T) {
	cleanTables(t)
	seedProduct(t, "p1", "Widget", "10.00", 5, true)
	seedProduct(t, "p2", "Gadget", "2.50", 1, true)

	carts, orders := newServices()
	ctx := context.Background()

	_, _, err := carts.AddItem(ctx, "user-1", "p1", 2)
	require.NoError(t, err)
	_, _, err = carts.AddItem(ctx, "user-1", "p2", 1)
	require.NoError(t, err)

	// Another shopper drains p2 after it entered the first cart.
	_, _, err = carts.AddItem(ctx, "user-2", "p2", 1)
	require.NoError(t, err)
	_, err = orders.Checkout(ctx, order.CheckoutRequest{
		UserID:          "user-2",
		ShippingAddress: "2 Oak Ave",
	})
	require.NoError(t, err)

	_, err = orders.Checkout(ctx, order.CheckoutRequest{
		UserID:          "user-1",
		ShippingAddress: "1 Main St",
	})
	var iiErr *order.InsufficientInventoryError
	require.ErrorAs(t, err, &iiErr)

	// p1 was not touched and user-1's cart is intact.
	assert.Equal(t, 5, productInventory(t, "p1"))
	_, lines, err := carts.Fetch(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, lines, 2)

	summaries, err := orders.ListForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestCheckout_ConcurrentLastUnit(t *testing.T) {
	cleanTables(t)
	seedProduct(t, "p1", "Widget", "10.00", 1, true)

	carts, orders := newServices()
	ctx := context.Background()

	users := []string{"user-a", "user-b", "user-c", "user-d"}
	for _, u := range users {
		_, _, err := carts.AddItem(ctx, u, "p1", 1)
		require.NoError(t, err)
	}

	results := make([]error, len(users))
	g := new(errgroup.Group)
	for i, u := range users {
		g.Go(func() error {
			_, results[i] = orders.Checkout(ctx, order.CheckoutRequest{
				UserID:          u,
				ShippingAddress: "1 Main St",
			})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var won int
	for _, err := range results {
		if err == nil {
			won++
			continue
		}
		var iiErr *order.InsufficientInventoryError
		require.ErrorAs(t, err, &iiErr)
	}
	assert.Equal(t, 1, won, "exactly one checkout must win the last unit")
	assert.Equal(t, 0, productInventory(t, "p1"))
}

func TestCancel_RestoresInventory(t *testing.T) {
	cleanTables(t)
	seedProduct(t, "p1", "Widget", "10.00", 5, true)

	carts, orders := newServices()
	ctx := context.Background()

	_, _, err := carts.AddItem(ctx, "user-1", "p1", 3)
	require.NoError(t, err)

	o, err := orders.Checkout(ctx, order.CheckoutRequest{
		UserID:          "user-1",
		ShippingAddress: "1 Main St",
	})
	require.NoError(t, err)
	require.Equal(t, 2, productInventory(t, "p1"))

	cancelled, err := orders.Cancel(ctx, o.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, cancelled.Status)
	assert.Equal(t, 5, productInventory(t, "p1"))

	_, err = orders.Cancel(ctx, o.ID, "user-1")
	var itErr *order.InvalidTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, 5, productInventory(t, "p1"))
}

func TestStatusLifecycle(t *testing.T) {
	cleanTables(t)
	seedProduct(t, "p1", "Widget", "10.00", 5, true)

	carts, orders := newServices()
	ctx := context.Background()

	_, _, err := carts.AddItem(ctx, "user-1", "p1", 1)
	require.NoError(t, err)
	o, err := orders.Checkout(ctx, order.CheckoutRequest{
		UserID:          "user-1",
		ShippingAddress: "1 Main St",
	})
	require.NoError(t, err)

	for _, next := range []order.Status{
		order.StatusProcessing, order.StatusShipped, order.StatusDelivered,
	} {
		updated, err := orders.UpdateStatus(ctx, o.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}

	_, err = orders.UpdateStatus(ctx, o.ID, order.StatusCancelled)
	var itErr *order.InvalidTransitionError
	require.ErrorAs(t, err, &itErr)
}
