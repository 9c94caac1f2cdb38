package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/marketplace/internal/cache"
	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/pricing"
	"github.com/dukerupert/marketplace/internal/repository"
	"github.com/dukerupert/marketplace/internal/telemetry"
	"github.com/dukerupert/marketplace/internal/variant"
)

// versionLockTTL bounds how long a crashed generator can block others.
const versionLockTTL = 30 * time.Second

// VersionStore is the persistence VersionService needs.
type VersionStore interface {
	GetProductByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetAttributesByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Attribute, error)
	ListVersionsByProduct(ctx context.Context, productID uuid.UUID, activeOnly bool) ([]domain.Version, error)
	GetVersion(ctx context.Context, id uuid.UUID) (*domain.Version, error)
	UpdateVersion(ctx context.Context, v *domain.Version) error
	ApplyVersionPlan(ctx context.Context, productID uuid.UUID, create []domain.Version, keep, deactivate []uuid.UUID) ([]domain.Version, error)
	UpdateProductPriceRange(ctx context.Context, id uuid.UUID, r *domain.PriceRange) error
	ListActivePromotions(ctx context.Context, t time.Time) ([]domain.Promotion, error)
	CategoryAncestors(ctx context.Context, id uuid.UUID) ([]domain.Category, error)
}

// VersionInput holds the fields an admin may change on a version. Nil
// fields are left alone.
type VersionInput struct {
	Price  *int64
	Stock  *int
	SKU    *string
	Active *bool
	Tiers  *[]domain.PriceTier
}

// GenerateResult reports what a regeneration changed.
type GenerateResult struct {
	Versions    []domain.Version `json:"versions"`
	Created     int              `json:"created"`
	Kept        int              `json:"kept"`
	Deactivated int              `json:"deactivated"`
}

// VersionService generates versions from variation sets and prices them
type VersionService interface {
	// Generate brings the product's versions in line with its variation set.
	Generate(ctx context.Context, productID uuid.UUID) (*GenerateResult, error)

	List(ctx context.Context, productID uuid.UUID, activeOnly bool) ([]domain.Version, error)
	Update(ctx context.Context, id uuid.UUID, in VersionInput) (*domain.Version, error)

	// Quote prices quantity units of an active version of an active product.
	Quote(ctx context.Context, versionID uuid.UUID, quantity int) (*domain.Quote, error)
}

type versionService struct {
	store   VersionStore
	locker  cache.Locker
	cache   *CatalogCache
	metrics *telemetry.BusinessMetrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewVersionService creates a new VersionService instance. A nil locker
// falls back to an in-process lock.
func NewVersionService(store VersionStore, locker cache.Locker, catalogCache *CatalogCache, metrics *telemetry.BusinessMetrics, logger *slog.Logger) VersionService {
	if locker == nil {
		locker = cache.NewLocalLocker()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &versionService{
		store:   store,
		locker:  locker,
		cache:   catalogCache,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *versionService) Generate(ctx context.Context, productID uuid.UUID) (*GenerateResult, error) {
	const op = "version.generate"

	release, err := s.locker.Lock(ctx, "versions:"+productID.String(), versionLockTTL)
	if err != nil {
		if errors.Is(err, cache.ErrLocked) {
			return nil, domain.WithOp(ErrVersionsBusy, op)
		}
		return nil, domain.Internal(err, op, "failed to acquire version lock")
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release version lock", "product_id", productID, "error", err)
		}
	}()

	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, lookupErr(err, ErrProductNotFound, op)
	}

	axes, err := s.axes(ctx, product, op)
	if err != nil {
		return nil, err
	}
	combos, err := variant.Combinations(axes)
	if err != nil {
		if errors.Is(err, variant.ErrTooManyCombinations) {
			return nil, domain.NewValidationError(op, "variations", err.Error())
		}
		return nil, domain.Invalid(op, err.Error())
	}

	existing, err := s.store.ListVersionsByProduct(ctx, productID, false)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load versions")
	}

	plan := variant.Diff(existing, combos)
	create := variant.Versions(productID, product.Slug, product.BasePrice, plan.Create)

	versions, err := s.store.ApplyVersionPlan(ctx, productID, create, plan.Keep, plan.Deactivate)
	if err != nil {
		return nil, versionWriteErr(err, op)
	}

	if err := s.refresh(ctx, product, versions); err != nil {
		return nil, err
	}

	s.metrics.Versions(len(plan.Create), len(plan.Keep), len(plan.Deactivate))
	s.logger.Info("versions generated",
		"product_id", productID,
		"created", len(plan.Create),
		"kept", len(plan.Keep),
		"deactivated", len(plan.Deactivate),
	)

	return &GenerateResult{
		Versions:    versions,
		Created:     len(plan.Create),
		Kept:        len(plan.Keep),
		Deactivated: len(plan.Deactivate),
	}, nil
}

// axes resolves the product's variation set against stored attributes.
func (s *versionService) axes(ctx context.Context, product *domain.Product, op string) ([]variant.Axis, error) {
	if len(product.Variations) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(product.Variations))
	for _, v := range product.Variations {
		ids = append(ids, v.AttributeID)
	}
	attrs, err := s.store.GetAttributesByIDs(ctx, ids)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load attributes")
	}
	byID := make(map[uuid.UUID]*domain.Attribute, len(attrs))
	for i := range attrs {
		byID[attrs[i].ID] = &attrs[i]
	}
	return variant.AxesFromCatalog(product.Variations, byID)
}

// refresh stores the promotion-free price range and drops the cached detail.
func (s *versionService) refresh(ctx context.Context, product *domain.Product, versions []domain.Version) error {
	r := pricing.Range(versions, nil)
	if err := s.store.UpdateProductPriceRange(ctx, product.ID, r); err != nil {
		return domain.Internal(err, "version.refresh", "failed to store price range")
	}
	s.cache.invalidateProduct(ctx, product.Slug)
	return nil
}

func (s *versionService) List(ctx context.Context, productID uuid.UUID, activeOnly bool) ([]domain.Version, error) {
	versions, err := s.store.ListVersionsByProduct(ctx, productID, activeOnly)
	if err != nil {
		return nil, domain.Internal(err, "version.list", "failed to list versions")
	}
	return versions, nil
}

func (s *versionService) Update(ctx context.Context, id uuid.UUID, in VersionInput) (*domain.Version, error) {
	const op = "version.update"

	v, err := s.store.GetVersion(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrVersionNotFound, op)
	}

	var verr error
	if in.Price != nil {
		if *in.Price < 0 {
			verr = domain.MergeValidation(verr, domain.NewValidationError(op, "price", "must not be negative"))
		}
		v.Price = *in.Price
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			verr = domain.MergeValidation(verr, domain.NewValidationError(op, "stock", "must not be negative"))
		}
		v.Stock = *in.Stock
	}
	if in.SKU != nil {
		sku := strings.ToUpper(strings.TrimSpace(*in.SKU))
		if sku == "" {
			verr = domain.MergeValidation(verr, domain.NewValidationError(op, "sku", "is required"))
		}
		v.SKU = sku
	}
	if in.Active != nil {
		v.Active = *in.Active
	}
	if in.Tiers != nil {
		if err := pricing.ValidateTiers(*in.Tiers); err != nil {
			verr = domain.MergeValidation(verr, err)
		}
		v.Tiers = pricing.SortTiers(*in.Tiers)
	}
	if verr != nil {
		return nil, verr
	}

	if err := s.store.UpdateVersion(ctx, v); err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.WithOp(ErrVersionNotFound, op)
		}
		return nil, writeErr(err, ErrSKUTaken, op)
	}

	product, err := s.store.GetProductByID(ctx, v.ProductID)
	if err != nil {
		return nil, lookupErr(err, ErrProductNotFound, op)
	}
	versions, err := s.store.ListVersionsByProduct(ctx, v.ProductID, false)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load versions")
	}
	if err := s.refresh(ctx, product, versions); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *versionService) Quote(ctx context.Context, versionID uuid.UUID, quantity int) (*domain.Quote, error) {
	const op = "version.quote"

	if quantity < 1 {
		return nil, domain.NewValidationError(op, "quantity", "must be at least 1")
	}

	v, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, lookupErr(err, ErrVersionNotFound, op)
	}
	if !v.Active {
		return nil, domain.WithOp(ErrVersionInactive, op)
	}

	product, err := s.store.GetProductByID(ctx, v.ProductID)
	if err != nil {
		return nil, lookupErr(err, ErrProductNotFound, op)
	}
	if product.Status != domain.ProductStatusActive {
		return nil, domain.WithOp(ErrProductNotActive, op)
	}

	promos, err := applicablePromotions(ctx, s.store, product, s.now())
	if err != nil {
		return nil, domain.Internal(err, op, "failed to resolve promotions")
	}

	q, err := pricing.Quote(v, quantity, promos)
	if err != nil {
		return nil, err
	}
	s.metrics.Quote()
	return q, nil
}

// versionWriteErr maps a failed version insert or update.
func versionWriteErr(err error, op string) error {
	if errors.Is(err, repository.ErrNoFreeSKU) {
		return domain.WithOp(ErrSKUTaken, op)
	}
	return writeErr(err, ErrSKUTaken, op)
}
