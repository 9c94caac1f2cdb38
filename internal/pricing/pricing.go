// Package pricing computes what a version costs at a given quantity.
//
// All amounts are integer cents. Percentages are decimal.Decimal so tier
// discounts like 7.5% stay exact; every percentage discount is rounded
// half-up to the cent before being subtracted.
package pricing

import (
	"fmt"
	"sort"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PercentOf returns pct percent of amount, rounded half-up to the cent.
func PercentOf(amount int64, pct decimal.Decimal) int64 {
	if amount <= 0 || !pct.IsPositive() {
		return 0
	}
	return decimal.NewFromInt(amount).Mul(pct).Div(hundred).Round(0).IntPart()
}

// ApplyPercent takes pct percent off amount.
func ApplyPercent(amount int64, pct decimal.Decimal) int64 {
	return amount - PercentOf(amount, pct)
}

// ValidateTiers checks min quantities are at least 2 and unique, discounts
// lie in 0..100, overrides and bonuses are not negative.
func ValidateTiers(tiers []domain.PriceTier) error {
	const op = "pricing.validate_tiers"

	var err error
	add := func(field, msg string) {
		if err == nil {
			err = domain.NewValidationError(op, field, msg)
			return
		}
		err = domain.AddFieldError(err, field, msg)
	}

	seen := make(map[int]bool, len(tiers))
	for i, t := range tiers {
		prefix := fmt.Sprintf("tiers[%d]", i)
		if t.MinQuantity < 2 {
			add(prefix+".min_quantity", "must be at least 2")
		} else if seen[t.MinQuantity] {
			add(prefix+".min_quantity", "duplicate minimum quantity")
		}
		seen[t.MinQuantity] = true

		if t.UnitPrice != nil && *t.UnitPrice < 0 {
			add(prefix+".unit_price", "must not be negative")
		}
		if t.DiscountPercent.IsNegative() || t.DiscountPercent.GreaterThan(hundred) {
			add(prefix+".discount_percent", "must be between 0 and 100")
		}
		if t.BonusQuantity < 0 {
			add(prefix+".bonus_quantity", "must not be negative")
		}
	}
	return err
}

// SortTiers returns a copy of tiers ordered by ascending min quantity.
func SortTiers(tiers []domain.PriceTier) []domain.PriceTier {
	out := make([]domain.PriceTier, len(tiers))
	copy(out, tiers)
	sort.Slice(out, func(i, j int) bool {
		return out[i].MinQuantity < out[j].MinQuantity
	})
	return out
}

// SelectTier returns the tier with the greatest min quantity not above
// quantity, or nil when quantity is below every tier.
func SelectTier(tiers []domain.PriceTier, quantity int) *domain.PriceTier {
	var best *domain.PriceTier
	for i := range tiers {
		t := &tiers[i]
		if t.MinQuantity > quantity {
			continue
		}
		if best == nil || t.MinQuantity > best.MinQuantity {
			best = t
		}
	}
	return best
}

// TierUnitPrice is the unit price inside tier before promotions: the
// override if set, else the version price, minus the tier discount.
func TierUnitPrice(versionPrice int64, tier *domain.PriceTier) int64 {
	if tier == nil {
		return versionPrice
	}
	price := versionPrice
	if tier.UnitPrice != nil {
		price = *tier.UnitPrice
	}
	return ApplyPercent(price, tier.DiscountPercent)
}
