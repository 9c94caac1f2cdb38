package pricing

import (
	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/shopspring/decimal"
)

// ValidatePromotion checks kind, value bounds and the time window.
func ValidatePromotion(p *domain.Promotion) error {
	const op = "pricing.validate_promotion"

	var err error
	add := func(field, msg string) {
		if err == nil {
			err = domain.NewValidationError(op, field, msg)
			return
		}
		err = domain.AddFieldError(err, field, msg)
	}

	switch p.Kind {
	case domain.PromotionPercentage:
		if p.Value < 0 || p.Value > 100 {
			add("value", "percentage must be between 0 and 100")
		}
	case domain.PromotionFixed:
		if p.Value < 0 {
			add("value", "must not be negative")
		}
	default:
		add("kind", "must be percentage or fixed")
	}
	if p.EndsAt != nil && !p.EndsAt.After(p.StartsAt) {
		add("ends_at", "must be after starts_at")
	}
	if !p.AppliesToAll && len(p.ProductIDs)+len(p.CategoryIDs)+len(p.BrandIDs) == 0 {
		add("scope", "select all products or at least one product, category or brand")
	}
	return err
}

// Discount is how many cents p takes off unit. Fixed discounts never
// exceed the price.
func Discount(p *domain.Promotion, unit int64) int64 {
	if unit <= 0 {
		return 0
	}
	switch p.Kind {
	case domain.PromotionPercentage:
		return PercentOf(unit, decimal.NewFromInt(p.Value))
	case domain.PromotionFixed:
		return min(p.Value, unit)
	}
	return 0
}

// Best picks the promotion giving the largest discount on unit. Ties go to
// the earliest created promotion. Callers pass only promotions that are
// active and apply to the product.
func Best(promos []domain.Promotion, unit int64) (*domain.Promotion, int64) {
	var (
		best     *domain.Promotion
		discount int64
	)
	for i := range promos {
		p := &promos[i]
		d := Discount(p, unit)
		if d <= 0 {
			continue
		}
		if best == nil || d > discount || (d == discount && p.CreatedAt.Before(best.CreatedAt)) {
			best, discount = p, d
		}
	}
	return best, discount
}
