package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/marketplace/internal/domain"
)

func TestPromotionService_Create(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("flushes cached products", func(t *testing.T) {
		mc := newMemCache()
		require.NoError(t, mc.Set(ctx, productCachePrefix+"tee", "x", 0))

		svc := NewPromotionService(&mockStore{}, NewCatalogCache(mc, 0, nil, nil))
		p, err := svc.Create(ctx, PromotionInput{
			Name: "Summer", Kind: domain.PromotionPercentage, Value: 15, AppliesToAll: true, StartsAt: start,
		})
		require.NoError(t, err)
		assert.True(t, p.Active)
		assert.False(t, mc.has(productCachePrefix+"tee"))
	})

	end := start.Add(-time.Hour)
	tests := []struct {
		name  string
		in    PromotionInput
		field string
	}{
		{name: "missing name", in: PromotionInput{Kind: domain.PromotionFixed, Value: 100, AppliesToAll: true, StartsAt: start}, field: "name"},
		{name: "missing start", in: PromotionInput{Name: "X", Kind: domain.PromotionFixed, Value: 100, AppliesToAll: true}, field: "starts_at"},
		{name: "percent above 100", in: PromotionInput{Name: "X", Kind: domain.PromotionPercentage, Value: 101, AppliesToAll: true, StartsAt: start}, field: "value"},
		{name: "ends before start", in: PromotionInput{Name: "X", Kind: domain.PromotionFixed, Value: 1, AppliesToAll: true, StartsAt: start, EndsAt: &end}, field: "ends_at"},
		{name: "empty scope", in: PromotionInput{Name: "X", Kind: domain.PromotionFixed, Value: 1, StartsAt: start}, field: "scope"},
		{name: "unknown kind", in: PromotionInput{Name: "X", Kind: "bogo", Value: 1, AppliesToAll: true, StartsAt: start}, field: "kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewPromotionService(&mockStore{}, NewCatalogCache(nil, 0, nil, nil))
			_, err := svc.Create(ctx, tt.in)
			require.Error(t, err)
			assert.Contains(t, domain.GetValidationFields(err), tt.field)
		})
	}
}

func TestPromotionService_BestForProduct(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	parent, leaf, brand := uuid.New(), uuid.New(), uuid.New()
	product := &domain.Product{ID: uuid.New(), CategoryID: &leaf, BrandID: &brand}

	promo := func(name string, kind domain.PromotionKind, value int64, created time.Time) domain.Promotion {
		return domain.Promotion{
			ID: uuid.New(), Name: name, Kind: kind, Value: value,
			StartsAt: now.Add(-24 * time.Hour), Active: true, CreatedAt: created,
		}
	}

	byParentCategory := promo("Category", domain.PromotionPercentage, 10, now.Add(-3*time.Hour))
	byParentCategory.CategoryIDs = []uuid.UUID{parent}

	byBrand := promo("Brand", domain.PromotionFixed, 100, now.Add(-2*time.Hour))
	byBrand.BrandIDs = []uuid.UUID{brand}

	otherProduct := promo("Other", domain.PromotionPercentage, 90, now.Add(-time.Hour))
	otherProduct.ProductIDs = []uuid.UUID{uuid.New()}

	newStore := func(promos ...domain.Promotion) *mockStore {
		return &mockStore{
			GetProductByIDFunc: func(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
				return product, nil
			},
			CategoryAncestorsFunc: func(ctx context.Context, id uuid.UUID) ([]domain.Category, error) {
				return []domain.Category{{ID: parent}, {ID: leaf}}, nil
			},
			ListActivePromotionsFunc: func(ctx context.Context, at time.Time) ([]domain.Promotion, error) {
				return promos, nil
			},
		}
	}

	t.Run("ancestor category scope and largest discount", func(t *testing.T) {
		svc := NewPromotionService(newStore(byParentCategory, byBrand, otherProduct), NewCatalogCache(nil, 0, nil, nil))

		p, d, err := svc.BestForProduct(ctx, product.ID, 2000, now)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "Category", p.Name)
		assert.Equal(t, int64(200), d)
	})

	t.Run("ties go to the earliest created", func(t *testing.T) {
		svc := NewPromotionService(newStore(byBrand, byParentCategory), NewCatalogCache(nil, 0, nil, nil))

		p, d, err := svc.BestForProduct(ctx, product.ID, 1000, now)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, int64(100), d)
		assert.Equal(t, "Category", p.Name)
	})

	t.Run("fixed discount is capped at the price", func(t *testing.T) {
		svc := NewPromotionService(newStore(byBrand), NewCatalogCache(nil, 0, nil, nil))

		p, d, err := svc.BestForProduct(ctx, product.ID, 60, now)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, int64(60), d)
	})

	t.Run("nothing applies", func(t *testing.T) {
		svc := NewPromotionService(newStore(otherProduct), NewCatalogCache(nil, 0, nil, nil))

		p, d, err := svc.BestForProduct(ctx, product.ID, 1000, now)
		require.NoError(t, err)
		assert.Nil(t, p)
		assert.Zero(t, d)
	})
}

func TestPromotionService_DeleteMissing(t *testing.T) {
	store := &mockStore{
		DeletePromotionFunc: func(ctx context.Context, id uuid.UUID) error {
			return pgx.ErrNoRows
		},
	}
	err := NewPromotionService(store, NewCatalogCache(nil, 0, nil, nil)).Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrPromotionMissing)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}
