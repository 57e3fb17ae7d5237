package domain

// Product is the catalog entry as published by the CMS. Prices are whole currency units.
type Product struct {
	ID              int64       `json:"id" bson:"id"`
	DocumentID      string      `json:"documentId" bson:"document_id"`
	Name            string      `json:"name" bson:"name"`
	Slug            string      `json:"slug" bson:"slug"`
	SKU             string      `json:"sku" bson:"sku"`
	BasePrice       int64       `json:"basePrice" bson:"base_price"`
	CompareAtPrice  *int64      `json:"compareAtPrice,omitempty" bson:"compare_at_price,omitempty"`
	MinWholesaleQty int         `json:"minWholesaleQty" bson:"min_wholesale_qty"`
	IsActive        bool        `json:"isActive" bson:"is_active"`
	Sizes           []string    `json:"sizes,omitempty" bson:"sizes,omitempty"`
	Colors          []string    `json:"colors,omitempty" bson:"colors,omitempty"`
	PriceTiers      []PriceTier `json:"priceTiers,omitempty" bson:"price_tiers,omitempty"`
}

// PriceTier maps a quantity range to a unit price. MaxQuantity nil means open ended.
type PriceTier struct {
	ID           int64   `json:"id" bson:"id"`
	MinQuantity  int     `json:"minQuantity" bson:"min_quantity"`
	MaxQuantity  *int    `json:"maxQuantity,omitempty" bson:"max_quantity,omitempty"`
	PricePerUnit int64   `json:"pricePerUnit" bson:"price_per_unit"`
	Label        *string `json:"label,omitempty" bson:"label,omitempty"`
}

// MinQuantity is the wholesale minimum, never lower than one unit.
func (p Product) MinQuantity() int {
	if p.MinWholesaleQty < 1 {
		return 1
	}
	return p.MinWholesaleQty
}
