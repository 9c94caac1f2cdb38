package variant

import (
	"testing"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func axis(slugs ...string) Axis {
	a := Axis{AttributeID: uuid.New()}
	for _, s := range slugs {
		a.Options = append(a.Options, Option{ID: uuid.New(), Slug: s})
	}
	return a
}

func TestCombinations_CartesianProduct(t *testing.T) {
	color := axis("red", "blue")
	size := axis("s", "m", "l")

	combos, err := Combinations([]Axis{color, size})
	require.NoError(t, err)
	require.Len(t, combos, 6)

	// Last axis varies fastest.
	assert.Equal(t, []string{"red", "s"}, combos[0].Slugs)
	assert.Equal(t, []string{"red", "m"}, combos[1].Slugs)
	assert.Equal(t, []string{"blue", "l"}, combos[5].Slugs)

	keys := make(map[string]bool)
	for _, c := range combos {
		assert.Len(t, c.Options, 2)
		assert.NotEmpty(t, c.Key)
		keys[c.Key] = true
	}
	assert.Len(t, keys, 6, "keys must be unique")
}

func TestCombinations_NoAxes(t *testing.T) {
	combos, err := Combinations(nil)
	require.NoError(t, err)
	require.Len(t, combos, 1)
	assert.Equal(t, "", combos[0].Key)
	assert.Empty(t, combos[0].Options)
	assert.Empty(t, combos[0].Slugs)
}

func TestCombinations_Errors(t *testing.T) {
	t.Run("empty axis", func(t *testing.T) {
		_, err := Combinations([]Axis{axis("a"), {AttributeID: uuid.New()}})
		assert.ErrorIs(t, err, ErrEmptyAxis)
	})

	t.Run("duplicate axis", func(t *testing.T) {
		a := axis("a", "b")
		_, err := Combinations([]Axis{a, a})
		assert.ErrorIs(t, err, ErrDuplicateAxis)
	})

	t.Run("too many", func(t *testing.T) {
		big := make([]string, 23)
		for i := range big {
			big[i] = "o"
		}
		// 23 * 23 = 529
		_, err := Combinations([]Axis{axis(big...), axis(big...)})
		assert.ErrorIs(t, err, ErrTooManyCombinations)
	})

	t.Run("exactly at cap", func(t *testing.T) {
		a := make([]string, 20)
		b := make([]string, 25)
		combos, err := Combinations([]Axis{axis(a...), axis(b...)})
		require.NoError(t, err)
		assert.Len(t, combos, MaxCombinations)
	})
}

func TestKey_OrderIndependent(t *testing.T) {
	a1, a2 := uuid.New(), uuid.New()
	o1, o2 := uuid.New(), uuid.New()

	k1 := Key(map[uuid.UUID]uuid.UUID{a1: o1, a2: o2})
	k2 := Key(map[uuid.UUID]uuid.UUID{a2: o2, a1: o1})
	assert.Equal(t, k1, k2)
	assert.Contains(t, k1, a1.String()+"="+o1.String())

	assert.NotEqual(t, k1, Key(map[uuid.UUID]uuid.UUID{a1: o2, a2: o1}))
	assert.Equal(t, "", Key(nil))
}

func TestSKU(t *testing.T) {
	assert.Equal(t, "CLASSIC-TEE-RED-XL", SKU("classic-tee", []string{"red", "xl"}))
	assert.Equal(t, "MUG", SKU("mug", nil))
}

func TestSuffixSKU(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "SHIRT-RED"},
		{1, "SHIRT-RED"},
		{2, "SHIRT-RED-2"},
		{11, "SHIRT-RED-11"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SuffixSKU("SHIRT-RED", tt.n))
	}

	// Distinct products can still build the same base SKU.
	assert.Equal(t, SKU("shirt-red", nil), SKU("shirt", []string{"red"}))
}

func TestVersions(t *testing.T) {
	productID := uuid.New()
	size := uuid.New()
	s, m := uuid.New(), uuid.New()
	combos, err := Combinations([]Axis{{AttributeID: size, Options: []Option{{ID: s, Slug: "s"}, {ID: m, Slug: "m"}}}})
	require.NoError(t, err)

	versions := Versions(productID, "tee", 1500, combos)
	require.Len(t, versions, 2)
	for i, v := range versions {
		assert.Equal(t, productID, v.ProductID)
		assert.Equal(t, combos[i].Key, v.CombinationKey)
		assert.Equal(t, int64(1500), v.Price)
		assert.True(t, v.Active)
	}
	assert.Equal(t, "TEE-S", versions[0].SKU)
	assert.Equal(t, "TEE-M", versions[1].SKU)
}

func TestDiff(t *testing.T) {
	color := axis("red", "blue", "green")
	combos, err := Combinations([]Axis{color})
	require.NoError(t, err)

	keptInactive := domain.Version{ID: uuid.New(), CombinationKey: combos[0].Key, Active: false}
	kept := domain.Version{ID: uuid.New(), CombinationKey: combos[1].Key, Active: true}
	gone := domain.Version{ID: uuid.New(), CombinationKey: "stale", Active: true}
	goneInactive := domain.Version{ID: uuid.New(), CombinationKey: "older", Active: false}

	plan := Diff([]domain.Version{keptInactive, kept, gone, goneInactive}, combos)

	assert.ElementsMatch(t, []uuid.UUID{keptInactive.ID, kept.ID}, plan.Keep)
	require.Len(t, plan.Create, 1)
	assert.Equal(t, combos[2].Key, plan.Create[0].Key)
	assert.Equal(t, []uuid.UUID{gone.ID}, plan.Deactivate, "already inactive versions are left alone")
}

func TestDiff_DefaultVersion(t *testing.T) {
	combos, err := Combinations(nil)
	require.NoError(t, err)

	first := Diff(nil, combos)
	assert.Len(t, first.Create, 1)

	def := domain.Version{ID: uuid.New(), CombinationKey: "", Active: true}
	again := Diff([]domain.Version{def}, combos)
	assert.Empty(t, again.Create)
	assert.Equal(t, []uuid.UUID{def.ID}, again.Keep)
}

func TestAxesFromCatalog(t *testing.T) {
	red := domain.AttributeOption{ID: uuid.New(), Value: "Red", Slug: "red", SortOrder: 0}
	blue := domain.AttributeOption{ID: uuid.New(), Value: "Blue", Slug: "blue", SortOrder: 1}
	color := &domain.Attribute{ID: uuid.New(), Name: "Color", Options: []domain.AttributeOption{red, blue}}
	catalog := map[uuid.UUID]*domain.Attribute{color.ID: color}

	t.Run("keeps attribute option order", func(t *testing.T) {
		axes, err := AxesFromCatalog([]domain.Variation{
			{AttributeID: color.ID, OptionIDs: []uuid.UUID{blue.ID, red.ID}},
		}, catalog)
		require.NoError(t, err)
		require.Len(t, axes, 1)
		assert.Equal(t, "red", axes[0].Options[0].Slug)
		assert.Equal(t, "blue", axes[0].Options[1].Slug)
	})

	t.Run("rejects foreign option", func(t *testing.T) {
		_, err := AxesFromCatalog([]domain.Variation{
			{AttributeID: color.ID, OptionIDs: []uuid.UUID{uuid.New()}},
		}, catalog)
		require.Error(t, err)
		assert.Contains(t, domain.GetValidationFields(err), "variations[0].option_ids")
	})

	t.Run("rejects unknown attribute and empty options", func(t *testing.T) {
		_, err := AxesFromCatalog([]domain.Variation{
			{AttributeID: uuid.New(), OptionIDs: []uuid.UUID{red.ID}},
			{AttributeID: color.ID},
		}, catalog)
		fields := domain.GetValidationFields(err)
		assert.Contains(t, fields, "variations[0].attribute_id")
		assert.Contains(t, fields, "variations[1].option_ids")
	})

	t.Run("rejects duplicate attribute", func(t *testing.T) {
		_, err := AxesFromCatalog([]domain.Variation{
			{AttributeID: color.ID, OptionIDs: []uuid.UUID{red.ID}},
			{AttributeID: color.ID, OptionIDs: []uuid.UUID{blue.ID}},
		}, catalog)
		assert.Contains(t, domain.GetValidationFields(err), "variations[1].attribute_id")
	})
}
