// Package orders talks to the order service hosted by the CMS.
package orders

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fjod/go_storefront/internal/cms"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrCreateOrder   = errors.New("could not process order")
	ErrOrderNotFound = errors.New("order not found")
)

// Doer is the CMS transport.
type Doer interface {
	Do(ctx context.Context, req cms.Request, out any) error
}

// Client performs order operations on behalf of an authenticated customer.
type Client struct {
	cms Doer
	log *zap.Logger
}

func NewClient(c Doer, log *zap.Logger) *Client {
	return &Client{cms: c, log: log}
}

type createOrderRequest struct {
	Items           []domain.OrderItem     `json:"items"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	Notes           string                 `json:"notes,omitempty"`
}

type createOrderResponse struct {
	Order struct {
		OrderNumber string          `json:"orderNumber"`
		Total       decimal.Decimal `json:"total"`
	} `json:"order"`
	Payment struct {
		DocumentID string `json:"documentId"`
	} `json:"payment"`
}

// CreateOrder submits the cart as a new order. Every call creates a new order with a new reference.
func (c *Client) CreateOrder(ctx context.Context, token string, items []domain.OrderItem, address domain.ShippingAddress, notes string) (domain.PlacedOrder, error) {
	var resp createOrderResponse
	err := c.cms.Do(ctx, cms.Request{
		Method: http.MethodPost,
		Path:   "/api/orders/create-from-cart",
		Body:   createOrderRequest{Items: items, ShippingAddress: address, Notes: notes},
		Token:  token,
	}, &resp)
	if err != nil {
		return domain.PlacedOrder{}, fmt.Errorf("%w: %w", ErrCreateOrder, err)
	}
	if resp.Order.OrderNumber == "" {
		return domain.PlacedOrder{}, fmt.Errorf("%w: response without order number", ErrCreateOrder)
	}

	return domain.PlacedOrder{
		OrderNumber: resp.Order.OrderNumber,
		Total:       resp.Order.Total,
		PaymentID:   resp.Payment.DocumentID,
	}, nil
}

// ConfirmPayment reports a widget transaction for the order. Callers treat failures as non-fatal.
func (c *Client) ConfirmPayment(ctx context.Context, token, orderNumber, transactionID string) error {
	err := c.cms.Do(ctx, cms.Request{
		Method: http.MethodPost,
		Path:   "/api/orders/confirm-payment",
		Body: map[string]string{
			"orderNumber":        orderNumber,
			"wompiTransactionId": transactionID,
		},
		Token: token,
	}, nil)
	if err != nil {
		return fmt.Errorf("confirm payment for %s: %w", orderNumber, err)
	}
	return nil
}

// FetchMyOrders returns the customer's order history. Any failure yields an empty list.
func (c *Client) FetchMyOrders(ctx context.Context, token string) []domain.Order {
	var resp struct {
		Data []domain.Order `json:"data"`
	}
	err := c.cms.Do(ctx, cms.Request{
		Method: http.MethodGet,
		Path:   "/api/orders/my-orders",
		Token:  token,
	}, &resp)
	if err != nil {
		c.log.Warn("fetch my orders failed", zap.Error(err))
		return []domain.Order{}
	}
	if resp.Data == nil {
		return []domain.Order{}
	}
	return resp.Data
}
