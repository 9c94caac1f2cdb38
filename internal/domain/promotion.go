package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// PromotionKind selects how Value is interpreted.
type PromotionKind string

const (
	// PromotionPercentage takes Value percent (0..100) off the unit price.
	PromotionPercentage PromotionKind = "percentage"

	// PromotionFixed takes Value cents off the unit price.
	PromotionFixed PromotionKind = "fixed"
)

// Promotion is a time-boxed discount on part of the catalog.
type Promotion struct {
	ID           uuid.UUID     `json:"id"`
	Name         string        `json:"name"`
	Kind         PromotionKind `json:"kind"`
	Value        int64         `json:"value"`
	AppliesToAll bool          `json:"applies_to_all"`
	ProductIDs   []uuid.UUID   `json:"product_ids"`
	CategoryIDs  []uuid.UUID   `json:"category_ids"`
	BrandIDs     []uuid.UUID   `json:"brand_ids"`
	StartsAt     time.Time     `json:"starts_at"`
	EndsAt       *time.Time    `json:"ends_at,omitempty"`
	Active       bool          `json:"active"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// ActiveAt reports whether the promotion runs at t.
func (p *Promotion) ActiveAt(t time.Time) bool {
	if !p.Active || t.Before(p.StartsAt) {
		return false
	}
	return p.EndsAt == nil || t.Before(*p.EndsAt)
}

// PromotionTarget describes the product a promotion is matched against.
// CategoryPath holds the product category and all of its ancestors.
type PromotionTarget struct {
	ProductID    uuid.UUID
	BrandID      *uuid.UUID
	CategoryPath []uuid.UUID
}

// AppliesTo reports whether the promotion scope covers target.
func (p *Promotion) AppliesTo(target PromotionTarget) bool {
	if p.AppliesToAll {
		return true
	}
	if slices.Contains(p.ProductIDs, target.ProductID) {
		return true
	}
	if target.BrandID != nil && slices.Contains(p.BrandIDs, *target.BrandID) {
		return true
	}
	for _, id := range target.CategoryPath {
		if slices.Contains(p.CategoryIDs, id) {
			return true
		}
	}
	return false
}

// AppliedPromotion records which promotion changed a price and by how much.
type AppliedPromotion struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Discount int64     `json:"discount"`
}
