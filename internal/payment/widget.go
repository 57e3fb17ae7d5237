package payment

import (
	"errors"

	"github.com/fjod/go_storefront/internal/domain"
)

const (
	StatusApproved = "APPROVED"
	StatusDeclined = "DECLINED"
	StatusVoided   = "VOIDED"
	StatusError    = "ERROR"
	StatusPending  = "PENDING"

	phonePrefix = "+57"
	country     = "CO"
)

var ErrNoPublicKey = errors.New("payment public key not configured")

type Integrity struct {
	Integrity string `json:"integrity"`
}

type CustomerData struct {
	Email             string `json:"email,omitempty"`
	FullName          string `json:"fullName,omitempty"`
	PhoneNumber       string `json:"phoneNumber,omitempty"`
	PhoneNumberPrefix string `json:"phoneNumberPrefix,omitempty"`
}

type ShippingAddress struct {
	AddressLine1 string `json:"addressLine1"`
	City         string `json:"city"`
	PhoneNumber  string `json:"phoneNumber"`
	Region       string `json:"region"`
	Country      string `json:"country"`
}

// WidgetConfig is handed to the gateway's hosted checkout widget as is.
type WidgetConfig struct {
	Currency        string           `json:"currency"`
	AmountInCents   int64            `json:"amountInCents"`
	Reference       string           `json:"reference"`
	PublicKey       string           `json:"publicKey"`
	Signature       Integrity        `json:"signature"`
	RedirectURL     string           `json:"redirectUrl,omitempty"`
	CustomerData    *CustomerData    `json:"customerData,omitempty"`
	ShippingAddress *ShippingAddress `json:"shippingAddress,omitempty"`
}

// Customer is the optional prefill for the widget.
type Customer struct {
	Email    string
	FullName string
	Phone    string
}

// NewWidgetConfig seeds the widget from a payment intent. Customer data is included when any of
// its fields is set; the shipping block when shipping details are known.
func NewWidgetConfig(intent domain.PaymentIntent, publicKey string, customer Customer, shipping *domain.ShippingDetails) (WidgetConfig, error) {
	if publicKey == "" {
		return WidgetConfig{}, ErrNoPublicKey
	}

	cfg := WidgetConfig{
		Currency:      intent.Currency,
		AmountInCents: intent.AmountInCents,
		Reference:     intent.Reference,
		PublicKey:     publicKey,
		Signature:     Integrity{Integrity: intent.Signature},
	}

	if customer != (Customer{}) {
		cfg.CustomerData = &CustomerData{
			Email:             customer.Email,
			FullName:          customer.FullName,
			PhoneNumber:       customer.Phone,
			PhoneNumberPrefix: phonePrefix,
		}
	}

	if shipping != nil {
		cfg.ShippingAddress = &ShippingAddress{
			AddressLine1: shipping.Address,
			City:         shipping.City,
			PhoneNumber:  shipping.Phone,
			Region:       shipping.Department,
			Country:      country,
		}
	}

	return cfg, nil
}

// TransactionResult is what the widget reports when it closes.
type TransactionResult struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
}

func (r TransactionResult) Approved() bool {
	return r.Status == StatusApproved
}
