package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/cart"
	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/inventory"
	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/order"
	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/product"
)

// errorResponse is the uniform error body. Details carries per-product
// messages for inventory violations so callers can fix everything at once.
type errorResponse struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, code int, message string, details ...string) {
	writeJSON(w, code, errorResponse{Code: code, Message: message, Details: details})
}

// writeDomainError maps domain errors onto the HTTP error taxonomy.
// Unrecognized errors are logged and reported as 500 without leaking
// internals.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		iiErr *order.InsufficientInventoryError
		inErr *inventory.InsufficientError
		iqErr *cart.InvalidQuantityError
		itErr *order.InvalidTransitionError
	)

	switch {
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrShippingAddressRequired):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.As(err, &iiErr):
		details := make([]string, len(iiErr.Violations))
		for i, v := range iiErr.Violations {
			details[i] = v.Message()
		}
		writeError(w, http.StatusBadRequest, "insufficient inventory", details...)

	case errors.As(err, &inErr), errors.As(err, &iqErr), errors.As(err, &itErr):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// --- Response shapes. Money is rendered with two fixed decimal places. ---

type productResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       string `json:"price"`
	Inventory   int    `json:"inventory"`
	Active      bool   `json:"active"`
}

func toProductResponse(p *product.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price.StringFixed(2),
		Inventory:   p.Inventory,
		Active:      p.Active,
	}
}

type cartLineResponse struct {
	ID       string          `json:"id"`
	Product  productResponse `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal string          `json:"subtotal"`
}

type cartResponse struct {
	ID          string             `json:"id"`
	Items       []cartLineResponse `json:"items"`
	TotalItems  int                `json:"total_items"`
	TotalAmount string             `json:"total_amount"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func toCartResponse(c *cart.Cart, lines []cart.Line) cartResponse {
	items := make([]cartLineResponse, len(lines))
	for i := range lines {
		l := &lines[i]
		items[i] = cartLineResponse{
			ID:       l.ID,
			Product:  toProductResponse(&l.Product),
			Quantity: l.Quantity,
			Subtotal: l.Subtotal().StringFixed(2),
		}
	}

	totals := cart.Total(lines)
	return cartResponse{
		ID:          c.ID,
		Items:       items,
		TotalItems:  totals.Items,
		TotalAmount: totals.Amount.StringFixed(2),
		UpdatedAt:   c.UpdatedAt,
	}
}

type orderLineResponse struct {
	ID              string `json:"id"`
	ProductID       string `json:"product_id,omitempty"`
	ProductName     string `json:"product_name"`
	Quantity        int    `json:"quantity"`
	PriceAtPurchase string `json:"price_at_purchase"`
	Subtotal        string `json:"subtotal"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	Status          string              `json:"status"`
	Items           []orderLineResponse `json:"items"`
	TotalAmount     string              `json:"total_amount"`
	ItemCount       int                 `json:"item_count"`
	ShippingAddress string              `json:"shipping_address"`
	Notes           string              `json:"notes,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderLineResponse, len(o.Lines))
	for i := range o.Lines {
		l := &o.Lines[i]
		items[i] = orderLineResponse{
			ID:              l.ID,
			ProductID:       l.ProductID,
			ProductName:     l.ProductName,
			Quantity:        l.Quantity,
			PriceAtPurchase: l.PriceAtPurchase.StringFixed(2),
			Subtotal:        l.Subtotal().StringFixed(2),
		}
	}

	return orderResponse{
		ID:              o.ID,
		Status:          string(o.Status),
		Items:           items,
		TotalAmount:     o.TotalAmount.StringFixed(2),
		ItemCount:       o.ItemCount(),
		ShippingAddress: o.ShippingAddress,
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

type orderSummaryResponse struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	TotalAmount string    `json:"total_amount"`
	ItemCount   int       `json:"item_count"`
	CreatedAt   time.Time `json:"created_at"`
}

func toOrderSummaryResponse(s order.Summary) orderSummaryResponse {
	return orderSummaryResponse{
		ID:          s.ID,
		Status:      string(s.Status),
		TotalAmount: s.TotalAmount.StringFixed(2),
		ItemCount:   s.ItemCount,
		CreatedAt:   s.CreatedAt,
	}
}

// decodeJSON parses the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, "invalid JSON body")
	}
	return nil
}
