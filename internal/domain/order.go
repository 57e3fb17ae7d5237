package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusDeclined PaymentStatus = "declined"
	PaymentStatusVoided   PaymentStatus = "voided"
	PaymentStatusError    PaymentStatus = "error"
)

// MinorUnits converts an amount in whole currency units to minor units, rounding half up.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// ShippingDetails is captured by the first checkout step and is immutable afterwards.
type ShippingDetails struct {
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	Department string `json:"department"`
	City       string `json:"city"`
	Address    string `json:"address"`
	Notes      string `json:"notes,omitempty"`
}

// OrderItem is the record sent to the order service for every cart line.
type OrderItem struct {
	ProductID     int64  `json:"productId"`
	ProductName   string `json:"productName"`
	ProductSlug   string `json:"productSlug"`
	Quantity      int    `json:"quantity"`
	UnitPrice     int64  `json:"unitPrice"`
	SelectedSize  string `json:"selectedSize,omitempty"`
	SelectedColor string `json:"selectedColor,omitempty"`
}

// ShippingAddress is the address block of an order, without the notes.
type ShippingAddress struct {
	FullName   string `json:"fullName"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Department string `json:"department"`
	Phone      string `json:"phone"`
}

func (s ShippingDetails) ShippingAddress() ShippingAddress {
	return ShippingAddress{
		FullName:   s.FullName,
		Address:    s.Address,
		City:       s.City,
		Department: s.Department,
		Phone:      s.Phone,
	}
}

// PlacedOrder is what the order service returns after creating an order.
type PlacedOrder struct {
	OrderNumber string
	Total       decimal.Decimal
	PaymentID   string
}

// PaymentIntent seeds the payment widget. One per created order, never reused.
type PaymentIntent struct {
	Reference     string `json:"reference"`
	AmountInCents int64  `json:"amountInCents"`
	Currency      string `json:"currency"`
	Signature     string `json:"signature"`
}

type OrderLine struct {
	ID            int64           `json:"id"`
	ProductName   string          `json:"productName"`
	ProductSlug   string          `json:"productSlug"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	SelectedSize  *string         `json:"selectedSize"`
	SelectedColor *string         `json:"selectedColor"`
}

type Payment struct {
	ID                 int64           `json:"id"`
	DocumentID         string          `json:"documentId"`
	PaymentStatus      PaymentStatus   `json:"paymentStatus"`
	Amount             decimal.Decimal `json:"amount"`
	WompiTransactionID *string         `json:"wompiTransactionId"`
	PaymentMethod      *string         `json:"paymentMethod"`
}

// Order is owned by the order service. This module only reads it and asks for transitions.
type Order struct {
	ID              int64           `json:"id"`
	DocumentID      string          `json:"documentId"`
	OrderNumber     string          `json:"orderNumber"`
	OrderStatus     OrderStatus     `json:"orderStatus"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	ShippingCost    decimal.Decimal `json:"shippingCost"`
	Total           decimal.Decimal `json:"total"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Notes           *string         `json:"notes"`
	OrderItems      []OrderLine     `json:"orderItems"`
	Payment         *Payment        `json:"payment"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// PaymentUpdate is applied to a payment record when the gateway reports a status change.
type PaymentUpdate struct {
	TransactionID string          `json:"wompiTransactionId"`
	Status        PaymentStatus   `json:"paymentStatus"`
	Method        *string         `json:"paymentMethod"`
	Raw           json.RawMessage `json:"wompiResponse,omitempty"`
}
