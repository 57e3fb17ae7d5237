package orders

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fjod/go_storefront/internal/cms"
	"github.com/fjod/go_storefront/internal/domain"
)

// Admin updates orders and payments with the service token. Used by webhook reconciliation only.
type Admin struct {
	cms Doer
}

func NewAdmin(c Doer) *Admin {
	return &Admin{cms: c}
}

func (a *Admin) FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	query := url.Values{}
	query.Set("filters[orderNumber][$eq]", orderNumber)
	query.Set("populate", "payment")

	var resp struct {
		Data []domain.Order `json:"data"`
	}
	err := a.cms.Do(ctx, cms.Request{
		Method: http.MethodGet,
		Path:   "/api/orders",
		Query:  query,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("find order %s: %w", orderNumber, err)
	}
	if len(resp.Data) == 0 {
		return nil, ErrOrderNotFound
	}
	return &resp.Data[0], nil
}

func (a *Admin) UpdatePayment(ctx context.Context, paymentDocumentID string, update domain.PaymentUpdate) error {
	err := a.cms.Do(ctx, cms.Request{
		Method: http.MethodPut,
		Path:   "/api/payments/" + url.PathEscape(paymentDocumentID),
		Body:   map[string]any{"data": update},
	}, nil)
	if err != nil {
		return fmt.Errorf("update payment %s: %w", paymentDocumentID, err)
	}
	return nil
}

func (a *Admin) UpdateOrderStatus(ctx context.Context, orderDocumentID string, status domain.OrderStatus) error {
	err := a.cms.Do(ctx, cms.Request{
		Method: http.MethodPut,
		Path:   "/api/orders/" + url.PathEscape(orderDocumentID),
		Body:   map[string]any{"data": map[string]domain.OrderStatus{"orderStatus": status}},
	}, nil)
	if err != nil {
		return fmt.Errorf("update order %s: %w", orderDocumentID, err)
	}
	return nil
}
