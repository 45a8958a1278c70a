// Package handler implements the HTTP API on net/http, delegating all
// business logic to the injected domain services.
package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/auth"
	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/cart"
	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/order"
	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/product"
)

// Metrics holds the instruments recorded by the handlers.
type Metrics struct {
	OrdersPlaced    metric.Int64Counter
	OrdersCancelled metric.Int64Counter
}

// NewMetrics registers the handler instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter("shop-api")

	placed, err := meter.Int64Counter("orders_placed_total",
		metric.WithDescription("Number of successfully placed orders"))
	if err != nil {
		return nil, errors.Wrap(err, "orders_placed_total")
	}

	cancelled, err := meter.Int64Counter("orders_cancelled_total",
		metric.WithDescription("Number of cancelled orders"))
	if err != nil {
		return nil, errors.Wrap(err, "orders_cancelled_total")
	}

	return &Metrics{OrdersPlaced: placed, OrdersCancelled: cancelled}, nil
}

// Handler serves the shop API.
type Handler struct {
	products product.Repository
	adjuster product.InventoryAdjuster
	carts    *cart.Service
	orders   *order.Service
	metrics  *Metrics
	tracer   trace.Tracer
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	adjuster product.InventoryAdjuster,
	carts *cart.Service,
	orders *order.Service,
	metrics *Metrics,
	tp trace.TracerProvider,
) *Handler {
	return &Handler{
		products: products,
		adjuster: adjuster,
		carts:    carts,
		orders:   orders,
		metrics:  metrics,
		tracer:   tp.Tracer("shop-api"),
	}
}

// Routes builds the API mux. Product reads are public; cart and order
// routes require an API key, and operator routes additionally require the
// admin scope.
func (h *Handler) Routes(sec *SecurityHandler) *http.ServeMux {
	authed := func(fn http.HandlerFunc) http.Handler {
		return sec.Require(fn)
	}
	admin := func(fn http.HandlerFunc) http.Handler {
		return sec.Require(sec.RequireScope(auth.ScopeAdmin, fn))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.Handle("PATCH /api/products/{id}/inventory", admin(h.AdjustInventory))

	mux.Handle("GET /api/cart", authed(h.GetCart))
	mux.Handle("DELETE /api/cart", authed(h.ClearCart))
	mux.Handle("POST /api/cart/items", authed(h.AddCartItem))
	mux.Handle("PATCH /api/cart/items/{id}", authed(h.UpdateCartItem))
	mux.Handle("DELETE /api/cart/items/{id}", authed(h.RemoveCartItem))

	mux.Handle("POST /api/orders", authed(h.Checkout))
	mux.Handle("GET /api/orders", authed(h.ListOrders))
	mux.Handle("GET /api/orders/{id}", authed(h.GetOrder))
	mux.Handle("POST /api/orders/{id}/cancel", authed(h.CancelOrder))
	mux.Handle("POST /api/orders/{id}/status", admin(h.UpdateOrderStatus))

	return mux
}
