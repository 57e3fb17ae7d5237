package payment

import (
	"testing"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIntent() domain.PaymentIntent {
	return domain.PaymentIntent{Reference: "ORD-1", AmountInCents: 9000000, Currency: "COP", Signature: "sig"}
}

func TestNewWidgetConfig_Minimal(t *testing.T) {
	cfg, err := NewWidgetConfig(testIntent(), "pub_test", Customer{}, nil)
	require.NoError(t, err)

	assert.Equal(t, "COP", cfg.Currency)
	assert.Equal(t, int64(9000000), cfg.AmountInCents)
	assert.Equal(t, "ORD-1", cfg.Reference)
	assert.Equal(t, "sig", cfg.Signature.Integrity)
	assert.Nil(t, cfg.CustomerData)
	assert.Nil(t, cfg.ShippingAddress)
}

func TestNewWidgetConfig_Prefill(t *testing.T) {
	shipping := &domain.ShippingDetails{
		FullName: "Ana Pérez", Phone: "3001234567", Department: "Córdoba", City: "Montería", Address: "Calle 1 # 2-3",
	}
	cfg, err := NewWidgetConfig(testIntent(), "pub_test", Customer{Email: "ana@example.com", FullName: "Ana Pérez"}, shipping)
	require.NoError(t, err)

	require.NotNil(t, cfg.CustomerData)
	assert.Equal(t, "+57", cfg.CustomerData.PhoneNumberPrefix)
	assert.Equal(t, "ana@example.com", cfg.CustomerData.Email)

	require.NotNil(t, cfg.ShippingAddress)
	assert.Equal(t, "CO", cfg.ShippingAddress.Country)
	assert.Equal(t, "Córdoba", cfg.ShippingAddress.Region)
	assert.Equal(t, "Calle 1 # 2-3", cfg.ShippingAddress.AddressLine1)
}

func TestNewWidgetConfig_NoPublicKey(t *testing.T) {
	_, err := NewWidgetConfig(testIntent(), "", Customer{}, nil)
	assert.ErrorIs(t, err, ErrNoPublicKey)
}

func TestTransactionResult_Approved(t *testing.T) {
	assert.True(t, TransactionResult{Status: "APPROVED"}.Approved())
	assert.False(t, TransactionResult{Status: "DECLINED"}.Approved())
	assert.False(t, TransactionResult{Status: "approved"}.Approved())
	assert.False(t, TransactionResult{}.Approved())
}
