package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/cart/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CartService interface {
	GetCart(ctx context.Context, sessionID string) (cart.Summary, error)
	AddItem(ctx context.Context, sessionID string, productID int64, quantity int, size, color string) (cart.Summary, error)
	UpdateQuantity(ctx context.Context, sessionID string, productID int64, quantity int) (cart.Summary, error)
	RemoveItem(ctx context.Context, sessionID string, productID int64) (cart.Summary, error)
	Clear(ctx context.Context, sessionID string) error
	SetDrawer(ctx context.Context, sessionID string, action service.DrawerAction) (cart.Summary, error)
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
	log     *zap.Logger
}

func NewCartHandler(carts CartService, timeout time.Duration, log *zap.Logger) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
		log:     log,
	}
}

type AddItemRequestDTO struct {
	ProductID     int64  `json:"product_id"`
	Quantity      int    `json:"quantity"`
	SelectedSize  string `json:"selected_size"`
	SelectedColor string `json:"selected_color"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	summary, err := h.carts.GetCart(ctx, getSessionID(r.Context()))
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be positive")
		return
	}

	summary, err := h.carts.AddItem(ctx, getSessionID(r.Context()), req.ProductID, req.Quantity, req.SelectedSize, req.SelectedColor)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, summary)
}

// PUT /api/v1/cart/items/{product_id}
// Quantities below the product minimum are raised to it.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	summary, err := h.carts.UpdateQuantity(ctx, getSessionID(r.Context()), productID, req.Quantity)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	summary, err := h.carts.RemoveItem(ctx, getSessionID(r.Context()), productID)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if err := h.carts.Clear(ctx, sessionID); err != nil {
		handleError(w, h.log, err)
		return
	}

	summary, err := h.carts.GetCart(ctx, sessionID)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// POST /api/v1/cart/drawer/{action}
func (h *CartHandler) Drawer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	action := service.DrawerAction(chi.URLParam(r, "action"))
	summary, err := h.carts.SetDrawer(ctx, getSessionID(r.Context()), action)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return 0, false
	}
	return productID, true
}
