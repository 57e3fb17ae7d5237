package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
)

type OrderLister interface {
	FetchMyOrders(ctx context.Context, token string) []domain.Order
}

type OrdersHandler struct {
	orders  OrderLister
	timeout time.Duration
}

func NewOrdersHandler(orders OrderLister, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
	}
}

type OrdersResponseDTO struct {
	Orders []domain.Order `json:"orders"`
}

// GET /api/v1/orders
// The order service being unreachable yields an empty history, never an error.
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders := h.orders.FetchMyOrders(ctx, getToken(r.Context()))
	if orders == nil {
		orders = []domain.Order{}
	}
	respondJSON(w, http.StatusOK, OrdersResponseDTO{Orders: orders})
}
