package pricing

import (
	"testing"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$ 90.000", FormatPrice(90000))
	assert.Equal(t, "$ 1.250.000", FormatPrice(1250000))
	assert.Equal(t, "$ 0", FormatPrice(0))
	assert.Equal(t, "-$ 45.500", FormatPrice(-45500))
}

func TestClampQuantity(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		min      int
		want     int
	}{
		{"above minimum", 15, 12, 15},
		{"below minimum", 3, 12, 12},
		{"zero minimum counts as one", 0, 0, 1},
		{"negative quantity", -4, 1, 1},
		{"exactly minimum", 6, 6, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampQuantity(tt.quantity, tt.min))
		})
	}
}

func TestFindTier(t *testing.T) {
	eleven := 11
	tiers := []domain.PriceTier{
		{ID: 2, MinQuantity: 12, PricePerUnit: 35000},
		{ID: 1, MinQuantity: 6, MaxQuantity: &eleven, PricePerUnit: 40000},
	}

	_, ok := FindTier(tiers, 5)
	assert.False(t, ok)

	tier, ok := FindTier(tiers, 8)
	require.True(t, ok)
	assert.Equal(t, int64(1), tier.ID)

	tier, ok = FindTier(tiers, 500)
	require.True(t, ok)
	assert.Equal(t, int64(2), tier.ID)

	// input order is left untouched
	assert.Equal(t, int64(2), tiers[0].ID)
}

func TestTierSavings(t *testing.T) {
	assert.Equal(t, 22, TierSavings(45000, 35000))
	assert.Equal(t, 0, TierSavings(0, 100))
	assert.Equal(t, 50, TierSavings(100, 50))
}
