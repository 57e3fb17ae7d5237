package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/cms"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdmin(t *testing.T, handler http.HandlerFunc) *Admin {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAdmin(cms.NewClient(srv.URL, "service-token", time.Second))
}

func TestFindByOrderNumber(t *testing.T) {
	a := newTestAdmin(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orders", r.URL.Path)
		assert.Equal(t, "ORD-5", r.URL.Query().Get("filters[orderNumber][$eq]"))
		assert.Equal(t, "payment", r.URL.Query().Get("populate"))
		assert.Equal(t, "Bearer service-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[{"documentId":"o5","orderNumber":"ORD-5","payment":{"documentId":"p5"}}]}`))
	})

	order, err := a.FindByOrderNumber(context.Background(), "ORD-5")
	require.NoError(t, err)
	assert.Equal(t, "o5", order.DocumentID)
	require.NotNil(t, order.Payment)
	assert.Equal(t, "p5", order.Payment.DocumentID)
}

func TestFindByOrderNumber_NotFound(t *testing.T) {
	a := newTestAdmin(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	_, err := a.FindByOrderNumber(context.Background(), "ORD-404")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdatePaymentAndOrder(t *testing.T) {
	var paths []string
	a := newTestAdmin(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		paths = append(paths, r.URL.Path)

		var body struct {
			Data map[string]any `json:"data"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch r.URL.Path {
		case "/api/payments/p5":
			assert.Equal(t, "tx-1", body.Data["wompiTransactionId"])
			assert.Equal(t, "approved", body.Data["paymentStatus"])
			assert.Equal(t, "CARD", body.Data["paymentMethod"])
		case "/api/orders/o5":
			assert.Equal(t, "confirmed", body.Data["orderStatus"])
		}
		w.WriteHeader(http.StatusOK)
	})

	method := "CARD"
	ctx := context.Background()
	require.NoError(t, a.UpdatePayment(ctx, "p5", domain.PaymentUpdate{
		TransactionID: "tx-1",
		Status:        domain.PaymentStatusApproved,
		Method:        &method,
	}))
	require.NoError(t, a.UpdateOrderStatus(ctx, "o5", domain.OrderStatusConfirmed))
	assert.Equal(t, []string{"/api/payments/p5", "/api/orders/o5"}, paths)
}
