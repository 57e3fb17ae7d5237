package cart

import (
	"testing"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productA() domain.Product {
	return domain.Product{ID: 1, Name: "Camiseta", Slug: "camiseta", BasePrice: 10000, MinWholesaleQty: 5}
}

func productB() domain.Product {
	return domain.Product{ID: 2, Name: "Gorra", Slug: "gorra", BasePrice: 20000, MinWholesaleQty: 1}
}

func TestAddItem_ClampsToMinimum(t *testing.T) {
	s := NewStore()
	s.AddItem(productA(), 2, "", "")

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
}

func TestAddItem_OpensDrawer(t *testing.T) {
	s := NewStore()
	assert.False(t, s.IsOpen())

	s.AddItem(productB(), 1, "", "")
	assert.True(t, s.IsOpen())
}

func TestAddItem_MergesSameKey(t *testing.T) {
	s := NewStore()
	for _, q := range []int{5, 7, 9} {
		s.AddItem(productA(), q, "M", "rojo")
	}

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 21, lines[0].Quantity)
}

func TestAddItem_DifferentVariantsAreSeparateLines(t *testing.T) {
	s := NewStore()
	s.AddItem(productA(), 5, "M", "rojo")
	s.AddItem(productA(), 5, "L", "rojo")
	s.AddItem(productA(), 5, "M", "")

	assert.Len(t, s.Lines(), 3)
	assert.Equal(t, 15, s.ItemCount())
}

func TestRemoveItem_RemovesAllVariants(t *testing.T) {
	s := NewStore()
	s.AddItem(productA(), 5, "M", "")
	s.AddItem(productA(), 5, "L", "")
	s.AddItem(productB(), 1, "", "")

	s.RemoveItem(productA().ID)

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, productB().ID, lines[0].Product.ID)
}

func TestUpdateQuantity_ClampsAndIsIdempotent(t *testing.T) {
	s := NewStore()
	s.AddItem(productA(), 10, "", "")

	s.UpdateQuantity(productA().ID, 0)
	assert.Equal(t, 5, s.Lines()[0].Quantity)

	s.UpdateQuantity(productA().ID, 8)
	once := s.Lines()
	s.UpdateQuantity(productA().ID, 8)
	assert.Equal(t, once, s.Lines())
}

func TestUpdateQuantity_UnknownProductIsNoop(t *testing.T) {
	s := NewStore()
	s.AddItem(productB(), 3, "", "")
	s.UpdateQuantity(99, 10)
	assert.Equal(t, 3, s.ItemCount())
}

func TestSubtotalAndItemCount(t *testing.T) {
	a := productA()
	eleven := 11
	a.PriceTiers = []domain.PriceTier{{MinQuantity: 5, MaxQuantity: &eleven, PricePerUnit: 1}}

	s := NewStore()
	s.AddItem(a, 5, "", "")
	s.AddItem(productB(), 2, "", "")

	assert.Equal(t, int64(90000), s.Subtotal())
	assert.Equal(t, 7, s.ItemCount())
}

func TestClear(t *testing.T) {
	s := NewStore()
	s.AddItem(productA(), 5, "", "")
	s.Clear()

	assert.Equal(t, 0, s.ItemCount())
	assert.Equal(t, int64(0), s.Subtotal())
	assert.True(t, s.IsEmpty())
}

func TestDrawer(t *testing.T) {
	s := NewStore()
	s.Toggle()
	assert.True(t, s.IsOpen())
	s.Toggle()
	assert.False(t, s.IsOpen())
	s.Open()
	s.Close()
	assert.False(t, s.IsOpen())
}

func TestSnapshotRoundTrip_DropsDrawer(t *testing.T) {
	s := NewStore()
	s.AddItem(productA(), 6, "S", "azul")
	s.AddItem(productB(), 2, "", "")

	snap := s.Snapshot("sess-1")
	assert.Equal(t, "sess-1", snap.SessionID)

	restored := NewStore(snap.Lines...)
	assert.Equal(t, s.Lines(), restored.Lines())
	assert.False(t, restored.IsOpen())
}

func TestNewStore_RepairsQuantityBelowMinimum(t *testing.T) {
	restored := NewStore(domain.CartLine{Product: productA(), Quantity: 1})
	assert.Equal(t, 5, restored.Lines()[0].Quantity)
}

func TestLines_ReturnsCopy(t *testing.T) {
	s := NewStore()
	s.AddItem(productB(), 2, "", "")
	lines := s.Lines()
	lines[0].Quantity = 100
	assert.Equal(t, 2, s.ItemCount())
}

func TestSummary(t *testing.T) {
	s := NewStore()
	sum := s.Summary()
	assert.NotNil(t, sum.Lines)
	assert.Zero(t, sum.ItemCount)

	s.AddItem(productA(), 5, "", "")
	s.AddItem(productB(), 2, "", "")
	sum = s.Summary()
	assert.Equal(t, int64(90000), sum.Subtotal)
	assert.Equal(t, "$ 90.000", sum.FormattedSubtotal)
	assert.Equal(t, 7, sum.ItemCount)
	assert.True(t, sum.Open)
	require.Len(t, sum.Lines, 2)
	assert.Equal(t, int64(50000), sum.Lines[0].LineTotal)
	assert.Equal(t, "$ 50.000", sum.Lines[0].FormattedLineTotal)
	assert.Nil(t, sum.Lines[0].Tier)
}

func TestSummary_TiersAreDisplayOnly(t *testing.T) {
	upTo := 11
	product := productA()
	product.PriceTiers = []domain.PriceTier{
		{ID: 2, MinQuantity: 12, PricePerUnit: 8000},
		{ID: 1, MinQuantity: 6, MaxQuantity: &upTo, PricePerUnit: 9000},
	}
	s := NewStore()
	s.AddItem(product, 12, "", "")

	sum := s.Summary()
	require.Len(t, sum.Lines, 1)
	line := sum.Lines[0]
	require.NotNil(t, line.Tier)
	assert.Equal(t, int64(2), line.Tier.ID)
	assert.Equal(t, 20, line.TierSavings)

	assert.Equal(t, int64(120000), line.LineTotal)
	assert.Equal(t, int64(120000), sum.Subtotal)
	assert.Equal(t, s.Subtotal(), sum.Subtotal)
	assert.Equal(t, "$ 120.000", sum.FormattedSubtotal)
}

func TestClone_IsIndependent(t *testing.T) {
	s := NewStore()
	s.AddItem(productB(), 2, "", "")

	c := s.Clone()
	c.UpdateQuantity(productB().ID, 9)
	c.Close()

	assert.Equal(t, 2, s.ItemCount())
	assert.True(t, s.IsOpen())
	assert.Equal(t, 9, c.ItemCount())
}
