// Package pricing holds the currency and quantity rules shared by the cart and the catalog views.
package pricing

import (
	"cmp"
	"math"
	"slices"

	"github.com/fjod/go_storefront/internal/domain"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Colombian pesos group thousands with dots like the base Spanish locale.
var printer = message.NewPrinter(language.Spanish)

// FormatPrice renders an amount of Colombian pesos without decimals, e.g. 90000 -> "$ 90.000".
func FormatPrice(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + "$ " + printer.Sprintf("%v", number.Decimal(amount, number.Scale(0)))
}

// ClampQuantity forces quantity into [min, +inf). A min below one counts as one.
func ClampQuantity(quantity, min int) int {
	if min < 1 {
		min = 1
	}
	if quantity < min {
		return min
	}
	return quantity
}

// FindTier returns the tier whose [min, max] range contains quantity. Tiers need not be sorted.
func FindTier(tiers []domain.PriceTier, quantity int) (domain.PriceTier, bool) {
	sorted := slices.Clone(tiers)
	slices.SortStableFunc(sorted, func(a, b domain.PriceTier) int {
		return cmp.Compare(a.MinQuantity, b.MinQuantity)
	})
	for _, t := range sorted {
		if quantity < t.MinQuantity {
			continue
		}
		if t.MaxQuantity != nil && quantity > *t.MaxQuantity {
			continue
		}
		return t, true
	}
	return domain.PriceTier{}, false
}

// TierSavings is the rounded percentage a tier saves over the base price.
func TierSavings(base, tier int64) int {
	if base <= 0 {
		return 0
	}
	return int(math.Round(float64(base-tier) / float64(base) * 100))
}
