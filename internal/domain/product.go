package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductStatus is the publication state of a product.
type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusActive   ProductStatus = "active"
	ProductStatusArchived ProductStatus = "archived"
)

// Valid reports whether s is a known status.
func (s ProductStatus) Valid() bool {
	switch s {
	case ProductStatusDraft, ProductStatusActive, ProductStatusArchived:
		return true
	}
	return false
}

// Variation selects which options of an attribute a product is sold in.
type Variation struct {
	AttributeID uuid.UUID   `json:"attribute_id"`
	OptionIDs   []uuid.UUID `json:"option_ids"`
}

// Product is a catalog entry. Sellable units are its versions.
type Product struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Slug        string            `json:"slug"`
	Description string            `json:"description"`
	BrandID     *uuid.UUID        `json:"brand_id,omitempty"`
	CategoryID  *uuid.UUID        `json:"category_id,omitempty"`
	Status      ProductStatus     `json:"status"`
	BasePrice   int64             `json:"base_price"`
	Currency    string            `json:"currency"`
	Images      []string          `json:"images"`
	Specs       map[string]string `json:"specs"`
	Tags        []string          `json:"tags"`
	Variations  []Variation       `json:"variations"`

	// PriceRange is the stored aggregate over active versions (without
	// promotions). Nil when the product has no active versions.
	PriceRange   *PriceRange `json:"price_range,omitempty"`
	VersionCount int         `json:"version_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PriceRange is the span of unit prices, in cents, a product sells at.
type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// PriceTier is a quantity break on a version.
type PriceTier struct {
	MinQuantity int `json:"min_quantity"`

	// UnitPrice overrides the version price from this quantity on.
	UnitPrice *int64 `json:"unit_price,omitempty"`

	// DiscountPercent is applied after the override, 0..100.
	DiscountPercent decimal.Decimal `json:"discount_percent"`

	// BonusQuantity free units are delivered on top of the ordered quantity.
	BonusQuantity int `json:"bonus_quantity"`
}

// Version is one sellable combination of a product's variation options.
type Version struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`

	// Options maps attribute id to the chosen option id.
	Options map[uuid.UUID]uuid.UUID `json:"options"`

	// CombinationKey identifies Options independent of order.
	// Empty for the default version of a product without variations.
	CombinationKey string `json:"combination_key"`

	Price     int64       `json:"price"`
	Stock     int         `json:"stock"`
	Active    bool        `json:"active"`
	Tiers     []PriceTier `json:"tiers"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ProductDetail is the public product page payload.
type ProductDetail struct {
	Product    Product     `json:"product"`
	Versions   []Version   `json:"versions"`
	PriceRange *PriceRange `json:"price_range,omitempty"`
	Promotion  *Promotion  `json:"promotion,omitempty"`
}

// Quote is the price of buying quantity units of a version.
type Quote struct {
	VersionID         uuid.UUID         `json:"version_id"`
	Quantity          int               `json:"quantity"`
	BaseUnitPrice     int64             `json:"base_unit_price"`
	UnitPrice         int64             `json:"unit_price"`
	Subtotal          int64             `json:"subtotal"`
	BonusQuantity     int               `json:"bonus_quantity"`
	DeliveredQuantity int               `json:"delivered_quantity"`
	Tier              *PriceTier        `json:"tier,omitempty"`
	Promotion         *AppliedPromotion `json:"promotion,omitempty"`
}

// ProductSort orders product listings.
type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
	SortName      ProductSort = "name"
)

// ProductFilter narrows a product listing.
type ProductFilter struct {
	Query       string
	CategoryIDs []uuid.UUID
	BrandID     *uuid.UUID
	Status      *ProductStatus
	MinPrice    *int64
	MaxPrice    *int64
	Tags        []string
	Sort        ProductSort
	Limit       int
	Offset      int
}

// ProductList is one page of products plus the unpaged total.
type ProductList struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}
