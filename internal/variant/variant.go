// Package variant expands a product's variation set into sellable versions.
//
// A variation set is a list of attributes, each with the options the product
// is offered in. The versions of the product are the cartesian product of
// those option lists. Every combination has a canonical key so a product can
// be regenerated after its variation set changes without losing the price,
// stock and tiers of combinations that still exist.
package variant

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/google/uuid"
)

// MaxCombinations caps how many versions one product may expand into.
const MaxCombinations = 500

var (
	// ErrTooManyCombinations is returned when the variation set expands past
	// MaxCombinations.
	ErrTooManyCombinations = errors.New("variation set expands to too many versions")

	// ErrEmptyAxis is returned when an attribute has no options selected.
	ErrEmptyAxis = errors.New("variation attribute has no options")

	// ErrDuplicateAxis is returned when an attribute appears twice.
	ErrDuplicateAxis = errors.New("variation attribute listed more than once")
)

// Option is one selectable value on an axis.
type Option struct {
	ID   uuid.UUID
	Slug string
}

// Axis is a variation attribute with its options in display order.
type Axis struct {
	AttributeID uuid.UUID
	Options     []Option
}

// Combination is one point of the cartesian product.
type Combination struct {
	// Options maps attribute id to option id.
	Options map[uuid.UUID]uuid.UUID

	// Slugs are the option slugs in axis order, used for SKUs.
	Slugs []string

	Key string
}

// Count returns the number of combinations axes expand to, stopping early
// once the result passes MaxCombinations.
func Count(axes []Axis) int {
	n := 1
	for _, a := range axes {
		n *= len(a.Options)
		if n > MaxCombinations {
			return n
		}
	}
	return n
}

// Combinations expands axes into every option combination. Axes are walked
// in order, the last axis varying fastest. No axes yields a single
// combination with an empty key.
func Combinations(axes []Axis) ([]Combination, error) {
	seen := make(map[uuid.UUID]bool, len(axes))
	for _, a := range axes {
		if seen[a.AttributeID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAxis, a.AttributeID)
		}
		seen[a.AttributeID] = true
		if len(a.Options) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyAxis, a.AttributeID)
		}
	}
	if Count(axes) > MaxCombinations {
		return nil, ErrTooManyCombinations
	}

	// indices[i] is the current option position on axis i.
	indices := make([]int, len(axes))
	var out []Combination
	for {
		c := Combination{
			Options: make(map[uuid.UUID]uuid.UUID, len(axes)),
			Slugs:   make([]string, 0, len(axes)),
		}
		for i, a := range axes {
			opt := a.Options[indices[i]]
			c.Options[a.AttributeID] = opt.ID
			c.Slugs = append(c.Slugs, opt.Slug)
		}
		c.Key = Key(c.Options)
		out = append(out, c)

		// Odometer increment from the last axis.
		i := len(axes) - 1
		for ; i >= 0; i-- {
			indices[i]++
			if indices[i] < len(axes[i].Options) {
				break
			}
			indices[i] = 0
		}
		if i < 0 {
			return out, nil
		}
	}
}

// Key returns the canonical identifier of an option map: attribute=option
// pairs sorted by attribute id and joined with ";".
func Key(options map[uuid.UUID]uuid.UUID) string {
	if len(options) == 0 {
		return ""
	}
	attrs := make([]uuid.UUID, 0, len(options))
	for attr := range options {
		attrs = append(attrs, attr)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].String() < attrs[j].String()
	})

	var b strings.Builder
	for i, attr := range attrs {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(attr.String())
		b.WriteByte('=')
		b.WriteString(options[attr].String())
	}
	return b.String()
}

// SKU builds "<PRODUCT-SLUG>-<OPTION-SLUGS>" in upper case. The result is
// not unique on its own: "shirt-red" with no options and "shirt" with "red"
// both give SHIRT-RED. Storage resolves clashes with SuffixSKU.
func SKU(productSlug string, optionSlugs []string) string {
	parts := append([]string{productSlug}, optionSlugs...)
	return strings.ToUpper(strings.Join(parts, "-"))
}

// SuffixSKU returns the n-th candidate for sku: sku itself for n <= 1, then
// sku-2, sku-3 and so on.
func SuffixSKU(sku string, n int) string {
	if n <= 1 {
		return sku
	}
	return sku + "-" + strconv.Itoa(n)
}

// Versions builds the active versions for combos, priced at basePrice.
func Versions(productID uuid.UUID, productSlug string, basePrice int64, combos []Combination) []domain.Version {
	out := make([]domain.Version, 0, len(combos))
	for _, c := range combos {
		out = append(out, domain.Version{
			ProductID:      productID,
			SKU:            SKU(productSlug, c.Slugs),
			Options:        c.Options,
			CombinationKey: c.Key,
			Price:          basePrice,
			Active:         true,
		})
	}
	return out
}

// Plan is the set of changes that brings stored versions in line with a
// freshly expanded variation set.
type Plan struct {
	// Create holds combinations with no stored version.
	Create []Combination

	// Keep holds ids of stored versions whose key is still present. They
	// keep price, stock and tiers and are re-activated if needed.
	Keep []uuid.UUID

	// Deactivate holds ids of active stored versions whose key vanished.
	// Versions are never deleted because wish lists and proposals point at
	// them.
	Deactivate []uuid.UUID
}

// Diff compares stored versions with the desired combinations.
func Diff(existing []domain.Version, desired []Combination) Plan {
	byKey := make(map[string]domain.Version, len(existing))
	for _, v := range existing {
		byKey[v.CombinationKey] = v
	}

	var plan Plan
	wanted := make(map[string]bool, len(desired))
	for _, c := range desired {
		wanted[c.Key] = true
		if v, ok := byKey[c.Key]; ok {
			plan.Keep = append(plan.Keep, v.ID)
			continue
		}
		plan.Create = append(plan.Create, c)
	}
	for _, v := range existing {
		if !wanted[v.CombinationKey] && v.Active {
			plan.Deactivate = append(plan.Deactivate, v.ID)
		}
	}
	return plan
}

// AxesFromCatalog resolves a product's variation set against attribute
// definitions, keeping option order as stored on the attribute.
// Returns a validation error naming the offending field.
func AxesFromCatalog(variations []domain.Variation, attributes map[uuid.UUID]*domain.Attribute) ([]Axis, error) {
	const op = "variant.axes"

	axes := make([]Axis, 0, len(variations))
	seen := make(map[uuid.UUID]bool, len(variations))
	var verr error
	for i, v := range variations {
		field := fmt.Sprintf("variations[%d]", i)
		if seen[v.AttributeID] {
			verr = addField(verr, op, field+".attribute_id", "attribute listed more than once")
			continue
		}
		seen[v.AttributeID] = true

		attr, ok := attributes[v.AttributeID]
		if !ok {
			verr = addField(verr, op, field+".attribute_id", "unknown attribute")
			continue
		}
		if len(v.OptionIDs) == 0 {
			verr = addField(verr, op, field+".option_ids", "at least one option is required")
			continue
		}

		selected := make(map[uuid.UUID]bool, len(v.OptionIDs))
		for _, id := range v.OptionIDs {
			if _, ok := attr.Option(id); !ok {
				verr = addField(verr, op, field+".option_ids", "option does not belong to attribute")
			}
			selected[id] = true
		}

		axis := Axis{AttributeID: attr.ID}
		for _, o := range attr.Options {
			if selected[o.ID] {
				axis.Options = append(axis.Options, Option{ID: o.ID, Slug: o.Slug})
			}
		}
		axes = append(axes, axis)
	}
	if verr != nil {
		return nil, verr
	}
	return axes, nil
}

func addField(err error, op, field, msg string) error {
	if err == nil {
		return domain.NewValidationError(op, field, msg)
	}
	return domain.AddFieldError(err, field, msg)
}
