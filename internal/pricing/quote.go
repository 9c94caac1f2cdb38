package pricing

import (
	"github.com/dukerupert/marketplace/internal/domain"
)

// Quote prices quantity units of v. Promotions must already be filtered to
// those active and applicable to the version's product.
func Quote(v *domain.Version, quantity int, promos []domain.Promotion) (*domain.Quote, error) {
	const op = "pricing.quote"

	if quantity < 1 {
		return nil, domain.NewValidationError(op, "quantity", "must be at least 1")
	}

	tier := SelectTier(v.Tiers, quantity)
	unit := TierUnitPrice(v.Price, tier)

	q := &domain.Quote{
		VersionID:     v.ID,
		Quantity:      quantity,
		BaseUnitPrice: v.Price,
	}
	if tier != nil {
		t := *tier
		q.Tier = &t
		q.BonusQuantity = t.BonusQuantity
	}

	if p, d := Best(promos, unit); p != nil {
		unit -= d
		q.Promotion = &domain.AppliedPromotion{ID: p.ID, Name: p.Name, Discount: d}
	}

	q.UnitPrice = unit
	q.Subtotal = unit * int64(quantity)
	q.DeliveredQuantity = quantity + q.BonusQuantity
	return q, nil
}

// UnitPrices returns the lowest achievable and the single-unit price of v
// after promotions.
func UnitPrices(v *domain.Version, promos []domain.Promotion) (lowest, single int64) {
	withPromo := func(unit int64) int64 {
		_, d := Best(promos, unit)
		return unit - d
	}

	single = withPromo(TierUnitPrice(v.Price, SelectTier(v.Tiers, 1)))
	lowest = single
	for i := range v.Tiers {
		if p := withPromo(TierUnitPrice(v.Price, &v.Tiers[i])); p < lowest {
			lowest = p
		}
	}
	return lowest, single
}

// Range aggregates unit prices over the active versions. Min is the lowest
// achievable unit price at any tier, Max the highest single-unit price.
// Returns nil when no version is active.
func Range(versions []domain.Version, promos []domain.Promotion) *domain.PriceRange {
	var r *domain.PriceRange
	for i := range versions {
		v := &versions[i]
		if !v.Active {
			continue
		}
		lowest, single := UnitPrices(v, promos)
		if r == nil {
			r = &domain.PriceRange{Min: lowest, Max: single}
			continue
		}
		r.Min = min(r.Min, lowest)
		r.Max = max(r.Max, single)
	}
	return r
}
