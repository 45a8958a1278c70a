package handler

import (
	"net/http"

	"github.com/FabioPita18/ecommerce-product-catalog/internal/validate"
)

// ListProducts returns the full catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := make([]productResponse, len(products))
	for i := range products {
		resp[i] = toProductResponse(&products[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetProduct returns one product by ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

type adjustInventoryRequest struct {
	// Delta is the signed stock correction; positive restocks, negative
	// writes off damaged or lost units.
	Delta int `json:"delta" validate:"required"`
}

// AdjustInventory applies an operator stock correction through the atomic
// ledger primitive.
func (h *Handler) AdjustInventory(w http.ResponseWriter, r *http.Request) {
	var req adjustInventoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Check(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.adjuster.AdjustInventory(r.Context(), r.PathValue("id"), req.Delta)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}
