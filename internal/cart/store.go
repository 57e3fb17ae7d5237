// Package cart holds the single-session cart state container.
//
// A Store is owned by exactly one session. It knows nothing about persistence: callers take a
// Snapshot after a mutation and hand it to whatever durable layer they use, and rebuild a Store
// from persisted lines with NewStore.
package cart

import (
	"slices"
	"sync"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/pricing"
)

type Store struct {
	mu    sync.RWMutex
	lines []domain.CartLine
	open  bool
}

// NewStore rebuilds a cart from persisted lines. The drawer always starts closed.
func NewStore(lines ...domain.CartLine) *Store {
	s := &Store{}
	for _, l := range lines {
		l.Quantity = pricing.ClampQuantity(l.Quantity, l.Product.MinQuantity())
		s.lines = append(s.lines, l)
	}
	return s
}

// AddItem merges into the line with the same (product, size, color) key or appends a new one.
// Quantities below the product minimum are clamped. The drawer is opened.
func (s *Store) AddItem(product domain.Product, quantity int, size, color string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.LineKey{ProductID: product.ID, Size: size, Color: color}
	min := product.MinQuantity()
	s.open = true

	for i := range s.lines {
		if s.lines[i].Key() == key {
			s.lines[i].Quantity = pricing.ClampQuantity(s.lines[i].Quantity+quantity, min)
			return
		}
	}

	s.lines = append(s.lines, domain.CartLine{
		Product:       product,
		Quantity:      pricing.ClampQuantity(quantity, min),
		SelectedSize:  size,
		SelectedColor: color,
	})
}

// RemoveItem drops every line of the product, whatever its size or color.
func (s *Store) RemoveItem(productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = slices.DeleteFunc(s.lines, func(l domain.CartLine) bool {
		return l.Product.ID == productID
	})
}

// UpdateQuantity sets the quantity of every line of the product, clamped to its minimum.
func (s *Store) UpdateQuantity(productID int64, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].Product.ID == productID {
			s.lines[i].Quantity = pricing.ClampQuantity(quantity, s.lines[i].Product.MinQuantity())
		}
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
}

// Subtotal is the sum of base price times quantity. Price tiers are ignored.
func (s *Store) Subtotal() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, l := range s.lines {
		total += l.Subtotal()
	}
	return total
}

func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, l := range s.lines {
		count += l.Quantity
	}
	return count
}

func (s *Store) Open() {
	s.mu.Lock()
	s.open = true
	s.mu.Unlock()
}

func (s *Store) Close() {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
}

func (s *Store) Toggle() {
	s.mu.Lock()
	s.open = !s.open
	s.mu.Unlock()
}

func (s *Store) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open
}

// Lines returns a copy of the current lines in insertion order.
func (s *Store) Lines() []domain.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lines)
}

func (s *Store) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines) == 0
}

// Snapshot is the persisted form of the cart. Drawer state is not part of it.
func (s *Store) Snapshot(sessionID string) *domain.Cart {
	return &domain.Cart{
		SessionID: sessionID,
		Lines:     s.Lines(),
	}
}

// Summary is a read-only view of the cart with its derived totals. Subtotal is always base price
// times quantity; tier data on the lines is for display.
type Summary struct {
	Lines             []LineView `json:"lines"`
	Subtotal          int64      `json:"subtotal"`
	FormattedSubtotal string     `json:"formatted_subtotal"`
	ItemCount         int        `json:"item_count"`
	Open              bool       `json:"drawer_open"`
}

// LineView is a cart line with its display pricing. Tier is the volume tier the line's quantity
// falls into, if any, and TierSavings its rounded percentage off the base price.
type LineView struct {
	domain.CartLine
	LineTotal          int64             `json:"line_total"`
	FormattedLineTotal string            `json:"formatted_line_total"`
	Tier               *domain.PriceTier `json:"tier,omitempty"`
	TierSavings        int               `json:"tier_savings,omitempty"`
}

func newLineView(l domain.CartLine) LineView {
	v := LineView{
		CartLine:           l,
		LineTotal:          l.Subtotal(),
		FormattedLineTotal: pricing.FormatPrice(l.Subtotal()),
	}
	if tier, ok := pricing.FindTier(l.Product.PriceTiers, l.Quantity); ok {
		v.Tier = &tier
		v.TierSavings = pricing.TierSavings(l.Product.BasePrice, tier.PricePerUnit)
	}
	return v
}

func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := Summary{
		Lines: make([]LineView, 0, len(s.lines)),
		Open:  s.open,
	}
	for _, l := range s.lines {
		sum.Lines = append(sum.Lines, newLineView(l))
		sum.Subtotal += l.Subtotal()
		sum.ItemCount += l.Quantity
	}
	sum.FormattedSubtotal = pricing.FormatPrice(sum.Subtotal)
	return sum
}

// Clone copies lines and drawer state into an independent Store.
func (s *Store) Clone() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Store{lines: slices.Clone(s.lines), open: s.open}
}
