package handler

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/order"
	"github.com/FabioPita18/ecommerce-product-catalog/internal/validate"
)

type checkoutRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"required,max=500"`
	Notes           string `json:"notes" validate:"max=500"`
}

// Checkout places an order from the caller's cart. Inventory is reserved
// and the cart is cleared in the same transaction; on any failure nothing
// changes.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Check(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, span := h.tracer.Start(r.Context(), "Checkout",
		trace.WithAttributes(attribute.String("user.id", identity.UserID)),
	)
	defer span.End()

	o, err := h.orders.Checkout(ctx, order.CheckoutRequest{
		UserID:          identity.UserID,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.String("order.id", o.ID),
		attribute.Int("order.items", o.ItemCount()),
	)
	h.metrics.OrdersPlaced.Add(ctx, 1)

	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

// ListOrders returns the caller's order history, newest first. A user with
// no orders gets an empty list.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())

	summaries, err := h.orders.ListForUser(r.Context(), identity.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := make([]orderSummaryResponse, len(summaries))
	for i, s := range summaries {
		resp[i] = toOrderSummaryResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetOrder returns one of the caller's orders with its lines. Orders owned
// by someone else look identical to orders that do not exist.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())

	o, err := h.orders.GetDetail(r.Context(), r.PathValue("id"), identity.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// CancelOrder cancels one of the caller's orders and restores its reserved
// inventory.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())

	o, err := h.orders.Cancel(r.Context(), r.PathValue("id"), identity.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.metrics.OrdersCancelled.Add(r.Context(), 1)
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateOrderStatus moves any order along the fulfillment state machine.
// Operator only; cancelling through this path restores inventory.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Check(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	next, err := order.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), next)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if next == order.StatusCancelled {
		h.metrics.OrdersCancelled.Add(r.Context(), 1)
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
