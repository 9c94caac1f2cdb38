package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/marketplace/internal/cache"
	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/repository"
	"github.com/dukerupert/marketplace/internal/variant"
)

// teeFixture is a product varying in size (S, M) and color (red, blue, green).
type teeFixture struct {
	product domain.Product
	size    domain.Attribute
	color   domain.Attribute
}

func newTeeFixture() teeFixture {
	size := domain.Attribute{ID: uuid.New(), Name: "Size", Slug: "size"}
	for i, v := range []string{"S", "M"} {
		size.Options = append(size.Options, domain.AttributeOption{ID: uuid.New(), AttributeID: size.ID, Value: v, Slug: Slugify(v), SortOrder: i})
	}
	color := domain.Attribute{ID: uuid.New(), Name: "Color", Slug: "color"}
	for i, v := range []string{"Red", "Blue", "Green"} {
		color.Options = append(color.Options, domain.AttributeOption{ID: uuid.New(), AttributeID: color.ID, Value: v, Slug: Slugify(v), SortOrder: i})
	}

	product := domain.Product{
		ID:        uuid.New(),
		Name:      "Tee",
		Slug:      "tee",
		Status:    domain.ProductStatusActive,
		BasePrice: 2500,
		Variations: []domain.Variation{
			{AttributeID: size.ID, OptionIDs: []uuid.UUID{size.Options[0].ID, size.Options[1].ID}},
			{AttributeID: color.ID, OptionIDs: []uuid.UUID{color.Options[0].ID, color.Options[1].ID, color.Options[2].ID}},
		},
	}
	return teeFixture{product: product, size: size, color: color}
}

// store wires the fixture into a mock that applies version plans in memory.
func (f teeFixture) store(existing []domain.Version) *mockStore {
	return &mockStore{
		GetProductByIDFunc: func(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
			p := f.product
			return &p, nil
		},
		GetAttributesByIDsFunc: func(ctx context.Context, ids []uuid.UUID) ([]domain.Attribute, error) {
			return []domain.Attribute{f.size, f.color}, nil
		},
		ListVersionsByProductFunc: func(ctx context.Context, productID uuid.UUID, activeOnly bool) ([]domain.Version, error) {
			return existing, nil
		},
		ApplyVersionPlanFunc: func(ctx context.Context, productID uuid.UUID, create []domain.Version, keep, deactivate []uuid.UUID) ([]domain.Version, error) {
			var out []domain.Version
			for _, v := range existing {
				for _, id := range keep {
					if v.ID == id {
						v.Active = true
						out = append(out, v)
					}
				}
			}
			for _, v := range create {
				v.ID = uuid.New()
				out = append(out, v)
			}
			return out, nil
		},
	}
}

func TestVersionService_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the cartesian product", func(t *testing.T) {
		f := newTeeFixture()
		store := f.store(nil)

		var stored *domain.PriceRange
		store.UpdateProductPriceRangeFunc = func(ctx context.Context, id uuid.UUID, r *domain.PriceRange) error {
			stored = r
			return nil
		}

		svc := NewVersionService(store, nil, NewCatalogCache(nil, 0, nil, nil), nil, nil)
		res, err := svc.Generate(ctx, f.product.ID)
		require.NoError(t, err)

		assert.Equal(t, 6, res.Created)
		assert.Zero(t, res.Kept)
		assert.Zero(t, res.Deactivated)

		var skus []string
		keys := make(map[string]bool)
		for _, v := range res.Versions {
			skus = append(skus, v.SKU)
			keys[v.CombinationKey] = true
			assert.Equal(t, int64(2500), v.Price)
			assert.True(t, v.Active)
			assert.Len(t, v.Options, 2)
		}
		assert.ElementsMatch(t, []string{
			"TEE-S-RED", "TEE-S-BLUE", "TEE-S-GREEN",
			"TEE-M-RED", "TEE-M-BLUE", "TEE-M-GREEN",
		}, skus)
		assert.Len(t, keys, 6, "combination keys must be distinct")

		require.NotNil(t, stored)
		assert.Equal(t, domain.PriceRange{Min: 2500, Max: 2500}, *stored)
	})

	t.Run("keeps surviving versions and deactivates vanished ones", func(t *testing.T) {
		f := newTeeFixture()
		kept := domain.Version{
			ID:             uuid.New(),
			ProductID:      f.product.ID,
			SKU:            "TEE-S-RED",
			CombinationKey: variant.Key(map[uuid.UUID]uuid.UUID{f.size.ID: f.size.Options[0].ID, f.color.ID: f.color.Options[0].ID}),
			Price:          1999,
			Stock:          7,
			Active:         false,
		}
		stale := domain.Version{ID: uuid.New(), ProductID: f.product.ID, CombinationKey: "gone", Active: true}

		svc := NewVersionService(f.store([]domain.Version{kept, stale}), nil, NewCatalogCache(nil, 0, nil, nil), nil, nil)
		res, err := svc.Generate(ctx, f.product.ID)
		require.NoError(t, err)

		assert.Equal(t, 5, res.Created)
		assert.Equal(t, 1, res.Kept)
		assert.Equal(t, 1, res.Deactivated)

		var found bool
		for _, v := range res.Versions {
			if v.ID == kept.ID {
				found = true
				assert.Equal(t, int64(1999), v.Price, "kept versions keep their price")
				assert.Equal(t, 7, v.Stock)
				assert.True(t, v.Active, "kept versions are re-activated")
			}
		}
		assert.True(t, found)
	})

	t.Run("no variations yields one default version", func(t *testing.T) {
		f := newTeeFixture()
		f.product.Variations = nil

		svc := NewVersionService(f.store(nil), nil, NewCatalogCache(nil, 0, nil, nil), nil, nil)
		res, err := svc.Generate(ctx, f.product.ID)
		require.NoError(t, err)

		require.Len(t, res.Versions, 1)
		assert.Equal(t, "", res.Versions[0].CombinationKey)
		assert.Equal(t, "TEE", res.Versions[0].SKU)
	})

	t.Run("too many combinations", func(t *testing.T) {
		f := newTeeFixture()
		var attrs []domain.Attribute
		f.product.Variations = nil
		for a := 0; a < 3; a++ {
			attr := domain.Attribute{ID: uuid.New(), Name: "A"}
			v := domain.Variation{AttributeID: attr.ID}
			for o := 0; o < 8; o++ {
				opt := domain.AttributeOption{ID: uuid.New(), AttributeID: attr.ID, Slug: "o"}
				attr.Options = append(attr.Options, opt)
				v.OptionIDs = append(v.OptionIDs, opt.ID)
			}
			attrs = append(attrs, attr)
			f.product.Variations = append(f.product.Variations, v)
		}
		store := f.store(nil)
		store.GetAttributesByIDsFunc = func(ctx context.Context, ids []uuid.UUID) ([]domain.Attribute, error) {
			return attrs, nil
		}

		svc := NewVersionService(store, nil, NewCatalogCache(nil, 0, nil, nil), nil, nil)
		_, err := svc.Generate(ctx, f.product.ID)
		require.Error(t, err)
		assert.True(t, domain.IsValidationError(err))
		assert.Contains(t, domain.GetValidationFields(err), "variations")
	})

	t.Run("busy while another generation holds the lock", func(t *testing.T) {
		f := newTeeFixture()
		locker := cache.NewLocalLocker()
		release, err := locker.Lock(ctx, "versions:"+f.product.ID.String(), time.Minute)
		require.NoError(t, err)
		defer release(ctx)

		svc := NewVersionService(f.store(nil), locker, NewCatalogCache(nil, 0, nil, nil), nil, nil)
		_, err = svc.Generate(ctx, f.product.ID)
		assert.ErrorIs(t, err, ErrVersionsBusy)
		assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	})

	t.Run("releases the lock afterwards", func(t *testing.T) {
		f := newTeeFixture()
		locker := cache.NewLocalLocker()
		svc := NewVersionService(f.store(nil), locker, NewCatalogCache(nil, 0, nil, nil), nil, nil)

		_, err := svc.Generate(ctx, f.product.ID)
		require.NoError(t, err)
		_, err = svc.Generate(ctx, f.product.ID)
		require.NoError(t, err)
	})

	t.Run("unknown product", func(t *testing.T) {
		svc := NewVersionService(&mockStore{}, nil, NewCatalogCache(nil, 0, nil, nil), nil, nil)
		_, err := svc.Generate(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrProductNotFound)
	})

	t.Run("no free sku", func(t *testing.T) {
		f := newTeeFixture()
		store := f.store(nil)
		store.ApplyVersionPlanFunc = func(ctx context.Context, productID uuid.UUID, create []domain.Version, keep, deactivate []uuid.UUID) ([]domain.Version, error) {
			return nil, fmt.Errorf("%w: %s", repository.ErrNoFreeSKU, create[0].SKU)
		}

		svc := NewVersionService(store, nil, NewCatalogCache(nil, 0, nil, nil), nil, nil)
		_, err := svc.Generate(ctx, f.product.ID)
		assert.ErrorIs(t, err, ErrSKUTaken)
		assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	})
}

func TestVersionService_Update(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()

	newStore := func() *mockStore {
		return &mockStore{
			GetVersionFunc: func(ctx context.Context, id uuid.UUID) (*domain.Version, error) {
				return &domain.Version{ID: id, ProductID: productID, SKU: "TEE", Price: 1000, Active: true}, nil
			},
			GetProductByIDFunc: func(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
				return &domain.Product{ID: id, Slug: "tee"}, nil
			},
		}
	}

	t.Run("sorts tiers and normalizes sku", func(t *testing.T) {
		store := newStore()
		var saved *domain.Version
		store.UpdateVersionFunc = func(ctx context.Context, v *domain.Version) error {
			saved = v
			return nil
		}

		sku := " tee-xl "
		tiers := []domain.PriceTier{
			{MinQuantity: 50, DiscountPercent: decimal.NewFromInt(20)},
			{MinQuantity: 10, DiscountPercent: decimal.NewFromInt(10)},
		}
		svc := NewVersionService(store, nil, NewCatalogCache(nil, 0, nil, nil), nil, nil)
		v, err := svc.Update(ctx, uuid.New(), VersionInput{SKU: &sku, Tiers: &tiers})
		require.NoError(t, err)

		require.NotNil(t, saved)
		assert.Equal(t, "TEE-XL", v.SKU)
		require.Len(t, v.Tiers, 2)
		assert.Equal(t, 10, v.Tiers[0].MinQuantity)
		assert.Equal(t, 50, v.Tiers[1].MinQuantity)
	})

	t.Run("rejects invalid tiers and negative price", func(t *testing.T) {
		price := int64(-1)
		tiers := []domain.PriceTier{{MinQuantity: 1}}
		svc := NewVersionService(newStore(), nil, NewCatalogCache(nil, 0, nil, nil), nil, nil)

		_, err := svc.Update(ctx, uuid.New(), VersionInput{Price: &price, Tiers: &tiers})
		require.Error(t, err)
		fields := domain.GetValidationFields(err)
		assert.Contains(t, fields, "price")
		assert.Contains(t, fields, "tiers[0].min_quantity")
	})

	t.Run("duplicate sku", func(t *testing.T) {
		store := newStore()
		store.UpdateVersionFunc = func(ctx context.Context, v *domain.Version) error {
			return &pgconn.PgError{Code: "23505"}
		}
		sku := "OTHER"
		svc := NewVersionService(store, nil, NewCatalogCache(nil, 0, nil, nil), nil, nil)
		_, err := svc.Update(ctx, uuid.New(), VersionInput{SKU: &sku})
		assert.ErrorIs(t, err, ErrSKUTaken)
	})
}

func TestVersionService_Quote(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	version := domain.Version{
		ID:        uuid.New(),
		ProductID: productID,
		Price:     1000,
		Active:    true,
		Tiers: []domain.PriceTier{
			{MinQuantity: 10, DiscountPercent: decimal.NewFromInt(10), BonusQuantity: 1},
		},
	}
	promo := domain.Promotion{
		ID:           uuid.New(),
		Name:         "Spring",
		Kind:         domain.PromotionPercentage,
		Value:        5,
		AppliesToAll: true,
		StartsAt:     now.Add(-time.Hour),
		Active:       true,
	}

	newService := func(v domain.Version, status domain.ProductStatus, promos []domain.Promotion) VersionService {
		store := &mockStore{
			GetVersionFunc: func(ctx context.Context, id uuid.UUID) (*domain.Version, error) {
				return &v, nil
			},
			GetProductByIDFunc: func(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
				return &domain.Product{ID: id, Status: status}, nil
			},
			ListActivePromotionsFunc: func(ctx context.Context, at time.Time) ([]domain.Promotion, error) {
				return promos, nil
			},
		}
		svc := NewVersionService(store, nil, NewCatalogCache(nil, 0, nil, nil), nil, nil).(*versionService)
		svc.now = func() time.Time { return now }
		return svc
	}

	t.Run("tier discount then promotion", func(t *testing.T) {
		q, err := newService(version, domain.ProductStatusActive, []domain.Promotion{promo}).Quote(ctx, version.ID, 12)
		require.NoError(t, err)

		assert.Equal(t, int64(1000), q.BaseUnitPrice)
		assert.Equal(t, int64(855), q.UnitPrice)
		assert.Equal(t, int64(10260), q.Subtotal)
		assert.Equal(t, 1, q.BonusQuantity)
		assert.Equal(t, 13, q.DeliveredQuantity)
		require.NotNil(t, q.Tier)
		assert.Equal(t, 10, q.Tier.MinQuantity)
		require.NotNil(t, q.Promotion)
		assert.Equal(t, int64(45), q.Promotion.Discount)
	})

	t.Run("below every tier uses the version price", func(t *testing.T) {
		q, err := newService(version, domain.ProductStatusActive, nil).Quote(ctx, version.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), q.UnitPrice)
		assert.Equal(t, int64(3000), q.Subtotal)
		assert.Nil(t, q.Tier)
		assert.Nil(t, q.Promotion)
	})

	t.Run("expired promotion is ignored", func(t *testing.T) {
		ended := promo
		end := now.Add(-time.Minute)
		ended.EndsAt = &end
		ended.StartsAt = now.Add(-2 * time.Hour)

		q, err := newService(version, domain.ProductStatusActive, []domain.Promotion{ended}).Quote(ctx, version.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), q.UnitPrice)
	})

	tests := []struct {
		name     string
		version  domain.Version
		status   domain.ProductStatus
		quantity int
		want     error
	}{
		{name: "inactive version", version: domain.Version{ID: uuid.New(), ProductID: productID, Price: 1}, status: domain.ProductStatusActive, quantity: 1, want: ErrVersionInactive},
		{name: "draft product", version: version, status: domain.ProductStatusDraft, quantity: 1, want: ErrProductNotActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newService(tt.version, tt.status, nil).Quote(ctx, tt.version.ID, tt.quantity)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
		})
	}

	t.Run("quantity below one", func(t *testing.T) {
		_, err := newService(version, domain.ProductStatusActive, nil).Quote(ctx, version.ID, 0)
		require.Error(t, err)
		assert.Contains(t, domain.GetValidationFields(err), "quantity")
	})
}
