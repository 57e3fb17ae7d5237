package domain

import "time"

type CartLine struct {
	Product       Product `json:"product" bson:"product"`
	Quantity      int     `json:"quantity" bson:"quantity"`
	SelectedSize  string  `json:"selectedSize,omitempty" bson:"selected_size,omitempty"`
	SelectedColor string  `json:"selectedColor,omitempty" bson:"selected_color,omitempty"`
}

// LineKey identifies a cart line. Lines with equal keys are merged.
type LineKey struct {
	ProductID int64
	Size      string
	Color     string
}

func (l CartLine) Key() LineKey {
	return LineKey{ProductID: l.Product.ID, Size: l.SelectedSize, Color: l.SelectedColor}
}

// Subtotal is base price times quantity. Price tiers never take part in billing.
func (l CartLine) Subtotal() int64 {
	return l.Product.BasePrice * int64(l.Quantity)
}

// Cart is the persisted form of a session cart. Drawer visibility is not part of it.
type Cart struct {
	ID        string     `json:"id,omitempty" bson:"_id,omitempty"`
	SessionID string     `json:"session_id" bson:"session_id"`
	Lines     []CartLine `json:"lines" bson:"lines"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}
