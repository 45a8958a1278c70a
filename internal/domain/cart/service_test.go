package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/inventory"
	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID map[string]*product.Product
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

// mockCartRepo keeps a single user's cart in memory.
type mockCartRepo struct {
	cart  Cart
	lines map[string]*Line
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{
		cart:  Cart{ID: "cart-1", UserID: "user-1"},
		lines: make(map[string]*Line),
	}
}

func (m *mockCartRepo) GetOrCreate(_ context.Context, userID string) (*Cart, error) {
	c := m.cart
	c.UserID = userID
	return &c, nil
}

func (m *mockCartRepo) Lines(_ context.Context, _ string) ([]Line, error) {
	var out []Line
	for _, l := range m.lines {
		out = append(out, *l)
	}
	return out, nil
}

func (m *mockCartRepo) LineByID(_ context.Context, _, lineID string) (*Line, error) {
	l, ok := m.lines[lineID]
	if !ok {
		return nil, ErrLineNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *mockCartRepo) LineByProduct(_ context.Context, _, productID string) (*Line, error) {
	for _, l := range m.lines {
		if l.ProductID == productID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, ErrLineNotFound
}

func (m *mockCartRepo) InsertLine(_ context.Context, line *Line) error {
	cp := *line
	m.lines[line.ID] = &cp
	return nil
}

func (m *mockCartRepo) UpdateLineQuantity(_ context.Context, lineID string, quantity int) error {
	l, ok := m.lines[lineID]
	if !ok {
		return ErrLineNotFound
	}
	l.Quantity = quantity
	return nil
}

func (m *mockCartRepo) DeleteLine(_ context.Context, _, lineID string) error {
	if _, ok := m.lines[lineID]; !ok {
		return ErrLineNotFound
	}
	delete(m.lines, lineID)
	return nil
}

func (m *mockCartRepo) Clear(_ context.Context, _ string) error {
	m.lines = make(map[string]*Line)
	return nil
}

// --- Helpers ---

func newTestProduct(id string, price string, inv int) *product.Product {
	return &product.Product{
		ID:        id,
		Name:      "Product " + id,
		Category:  "test",
		Price:     decimal.RequireFromString(price),
		Inventory: inv,
		Active:    true,
	}
}

func newService(products ...*product.Product) (*Service, *mockCartRepo) {
	byID := make(map[string]*product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	carts := newMockCartRepo()
	return NewService(carts, &mockProductRepo{byID: byID}), carts
}

// --- Tests ---

func TestAddItem_NewLine(t *testing.T) {
	svc, _ := newService(newTestProduct("p1", "10.00", 5))

	line, created, err := svc.AddItem(context.Background(), "user-1", "p1", 2)

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, "20.00", line.Subtotal().StringFixed(2))
}

func TestAddItem_MergesExistingLine(t *testing.T) {
	svc, repo := newService(newTestProduct("p1", "10.00", 10))

	_, created, err := svc.AddItem(context.Background(), "user-1", "p1", 2)
	require.NoError(t, err)
	require.True(t, created)

	line, created, err := svc.AddItem(context.Background(), "user-1", "p1", 2)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 4, line.Quantity)

	lines, err := repo.Lines(context.Background(), "cart-1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 4, lines[0].Quantity)
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	svc, _ := newService(newTestProduct("p1", "10.00", 5))

	_, _, err := svc.AddItem(context.Background(), "user-1", "p1", 0)

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, 0, iqErr.Quantity)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	svc, _ := newService()

	_, _, err := svc.AddItem(context.Background(), "user-1", "missing", 1)
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestAddItem_InactiveProduct(t *testing.T) {
	p := newTestProduct("p1", "10.00", 5)
	p.Active = false
	svc, _ := newService(p)

	_, _, err := svc.AddItem(context.Background(), "user-1", "p1", 1)
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestAddItem_MergeExceedsInventory(t *testing.T) {
	svc, _ := newService(newTestProduct("p1", "10.00", 3))

	_, _, err := svc.AddItem(context.Background(), "user-1", "p1", 2)
	require.NoError(t, err)

	_, _, err = svc.AddItem(context.Background(), "user-1", "p1", 2)

	var inErr *inventory.InsufficientError
	require.ErrorAs(t, err, &inErr)
	assert.Equal(t, 4, inErr.Requested)
	assert.Equal(t, 3, inErr.Available)
}

func TestUpdateQuantity_SetsExactValue(t *testing.T) {
	svc, _ := newService(newTestProduct("p1", "10.00", 10))

	added, _, err := svc.AddItem(context.Background(), "user-1", "p1", 2)
	require.NoError(t, err)

	line, err := svc.UpdateQuantity(context.Background(), "user-1", added.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, line.Quantity)
}

func TestUpdateQuantity_ExceedsInventory(t *testing.T) {
	svc, _ := newService(newTestProduct("p1", "10.00", 5))

	added, _, err := svc.AddItem(context.Background(), "user-1", "p1", 2)
	require.NoError(t, err)

	_, err = svc.UpdateQuantity(context.Background(), "user-1", added.ID, 6)

	var inErr *inventory.InsufficientError
	require.ErrorAs(t, err, &inErr)
}

func TestUpdateQuantity_LineNotFound(t *testing.T) {
	svc, _ := newService(newTestProduct("p1", "10.00", 5))

	_, err := svc.UpdateQuantity(context.Background(), "user-1", "missing", 2)
	require.ErrorIs(t, err, ErrLineNotFound)
}

func TestRemoveItem(t *testing.T) {
	svc, repo := newService(newTestProduct("p1", "10.00", 5))

	added, _, err := svc.AddItem(context.Background(), "user-1", "p1", 1)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveItem(context.Background(), "user-1", added.ID))

	lines, err := repo.Lines(context.Background(), "cart-1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestRemoveItem_NotFound(t *testing.T) {
	svc, _ := newService(newTestProduct("p1", "10.00", 5))

	err := svc.RemoveItem(context.Background(), "user-1", "missing")
	require.ErrorIs(t, err, ErrLineNotFound)
}

func TestClear_EmptiesCart(t *testing.T) {
	svc, repo := newService(
		newTestProduct("p1", "10.00", 5),
		newTestProduct("p2", "4.00", 5),
	)

	_, _, err := svc.AddItem(context.Background(), "user-1", "p1", 1)
	require.NoError(t, err)
	_, _, err = svc.AddItem(context.Background(), "user-1", "p2", 2)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(context.Background(), "user-1"))

	lines, err := repo.Lines(context.Background(), "cart-1")
	require.NoError(t, err)
	assert.Empty(t, lines)

	// Clearing again is a no-op.
	require.NoError(t, svc.Clear(context.Background(), "user-1"))
}

func TestFetch_CreatesEmptyCart(t *testing.T) {
	svc, _ := newService()

	c, lines, err := svc.Fetch(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", c.UserID)
	assert.Empty(t, lines)
}
