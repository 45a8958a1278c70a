package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/product"
	"github.com/FabioPita18/ecommerce-product-catalog/internal/validate"
)

// GetCart returns the caller's cart with live totals. Users who never
// added anything get an empty cart shape, not an error.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())

	c, lines, err := h.carts.Fetch(r.Context(), identity.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c, lines))
}

// ClearCart removes every line from the caller's cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())

	if err := h.carts.Clear(r.Context(), identity.UserID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	// Quantity defaults to 1 when omitted.
	Quantity int `json:"quantity" validate:"gte=0"`
}

// AddCartItem puts a product into the cart, merging quantity into an
// existing line if present: 201 for a new line, 200 for a merge. A missing
// or inactive product is a validation failure here, not a 404.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())

	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Check(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	line, created, err := h.carts.AddItem(r.Context(), identity.UserID, req.ProductID, req.Quantity)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "product not found or unavailable")
			return
		}
		writeDomainError(w, r, err)
		return
	}

	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	writeJSON(w, code, cartLineResponse{
		ID:       line.ID,
		Product:  toProductResponse(&line.Product),
		Quantity: line.Quantity,
		Subtotal: line.Subtotal().StringFixed(2),
	})
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// UpdateCartItem sets an exact quantity on one cart line.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())

	var req updateQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Check(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	line, err := h.carts.UpdateQuantity(r.Context(), identity.UserID, r.PathValue("id"), req.Quantity)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartLineResponse{
		ID:       line.ID,
		Product:  toProductResponse(&line.Product),
		Quantity: line.Quantity,
		Subtotal: line.Subtotal().StringFixed(2),
	})
}

// RemoveCartItem deletes one line from the caller's cart.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())

	if err := h.carts.RemoveItem(r.Context(), identity.UserID, r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
