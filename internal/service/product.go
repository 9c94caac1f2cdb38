package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/pricing"
	"github.com/dukerupert/marketplace/internal/repository"
	"github.com/dukerupert/marketplace/internal/variant"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ProductStore is the persistence ProductService needs.
type ProductStore interface {
	CreateProductWithVersions(ctx context.Context, p *domain.Product, versions []domain.Version, r *domain.PriceRange) error
	UpdateProduct(ctx context.Context, p *domain.Product) error
	SetProductStatus(ctx context.Context, id uuid.UUID, status domain.ProductStatus) error
	GetProductByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	ListProducts(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int, error)
	ListVersionsByProduct(ctx context.Context, productID uuid.UUID, activeOnly bool) ([]domain.Version, error)
	GetAttributesByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Attribute, error)
	CategoryDescendantIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
	ListActivePromotions(ctx context.Context, t time.Time) ([]domain.Promotion, error)
	CategoryAncestors(ctx context.Context, id uuid.UUID) ([]domain.Category, error)
}

// ProductInput carries create and update fields. Empty Slug is derived from
// Name, empty Status means draft and empty Currency means USD.
type ProductInput struct {
	Name        string
	Slug        string
	Description string
	BrandID     *uuid.UUID
	CategoryID  *uuid.UUID
	Status      domain.ProductStatus
	BasePrice   int64
	Currency    string
	Images      []string
	Specs       map[string]string
	Tags        []string
	Variations  []domain.Variation
}

// ProductService provides business logic for catalog products
type ProductService interface {
	// List returns one page of products. Public listings only see active
	// products. Category filters include every subcategory.
	List(ctx context.Context, f domain.ProductFilter, public bool) (*domain.ProductList, error)

	Get(ctx context.Context, id uuid.UUID) (*domain.Product, error)

	// Detail returns the product page payload. Public lookups are served
	// through the catalog cache and hide products that are not active.
	Detail(ctx context.Context, slug string, public bool) (*domain.ProductDetail, error)

	// Create stores the product together with its generated versions.
	Create(ctx context.Context, in ProductInput) (*domain.Product, error)

	// Update replaces the product fields, regenerating versions when the
	// variation set changed.
	Update(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error)

	// Archive hides the product without deleting it.
	Archive(ctx context.Context, id uuid.UUID) error
}

type productService struct {
	store    ProductStore
	versions VersionService
	cache    *CatalogCache
	now      func() time.Time
}

// NewProductService creates a new ProductService instance
func NewProductService(store ProductStore, versions VersionService, catalogCache *CatalogCache) ProductService {
	return &productService{
		store:    store,
		versions: versions,
		cache:    catalogCache,
		now:      time.Now,
	}
}

func (s *productService) List(ctx context.Context, f domain.ProductFilter, public bool) (*domain.ProductList, error) {
	const op = "product.list"

	if public {
		active := domain.ProductStatusActive
		f.Status = &active
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	f.Limit = min(f.Limit, maxPageSize)
	f.Offset = max(f.Offset, 0)
	if f.Sort == "" {
		f.Sort = domain.SortNewest
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return nil, domain.NewValidationError(op, "min_price", "must not exceed max_price")
	}

	if len(f.CategoryIDs) > 0 {
		var expanded []uuid.UUID
		for _, id := range f.CategoryIDs {
			ids, err := s.store.CategoryDescendantIDs(ctx, id)
			if err != nil {
				return nil, domain.Internal(err, op, "failed to expand categories")
			}
			for _, d := range ids {
				if !slices.Contains(expanded, d) {
					expanded = append(expanded, d)
				}
			}
		}
		if len(expanded) == 0 {
			return &domain.ProductList{Products: []domain.Product{}, Limit: f.Limit, Offset: f.Offset}, nil
		}
		f.CategoryIDs = expanded
	}

	products, total, err := s.store.ListProducts(ctx, f)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list products")
	}
	if products == nil {
		products = []domain.Product{}
	}
	return &domain.ProductList{Products: products, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	p, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrProductNotFound, "product.get")
	}
	return p, nil
}

func (s *productService) Detail(ctx context.Context, slug string, public bool) (*domain.ProductDetail, error) {
	const op = "product.detail"

	if public {
		var cached domain.ProductDetail
		if s.cache.getProduct(ctx, slug, &cached) {
			return &cached, nil
		}
	}

	p, err := s.store.GetProductBySlug(ctx, slug)
	if err != nil {
		return nil, lookupErr(err, ErrProductNotFound, op)
	}
	if public && p.Status != domain.ProductStatusActive {
		return nil, domain.WithOp(ErrProductNotFound, op)
	}

	versions, err := s.store.ListVersionsByProduct(ctx, p.ID, public)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load versions")
	}
	if versions == nil {
		versions = []domain.Version{}
	}

	promos, err := applicablePromotions(ctx, s.store, p, s.now())
	if err != nil {
		return nil, domain.Internal(err, op, "failed to resolve promotions")
	}

	detail := &domain.ProductDetail{
		Product:    *p,
		Versions:   versions,
		PriceRange: pricing.Range(versions, promos),
	}
	detail.Promotion, _ = pricing.Best(promos, p.BasePrice)

	if public {
		s.cache.setProduct(ctx, slug, detail)
	}
	return detail, nil
}

func (s *productService) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	const op = "product.create"

	p := &domain.Product{}
	axes, err := s.apply(ctx, p, in, op)
	if err != nil {
		return nil, err
	}
	combos, err := variant.Combinations(axes)
	if err != nil {
		return nil, domain.NewValidationError(op, "variations", err.Error())
	}

	versions := variant.Versions(uuid.Nil, p.Slug, p.BasePrice, combos)
	if err := s.store.CreateProductWithVersions(ctx, p, versions, pricing.Range(versions, nil)); err != nil {
		if errors.Is(err, repository.ErrNoFreeSKU) {
			return nil, domain.WithOp(ErrSKUTaken, op)
		}
		return nil, productWriteErr(err, op)
	}
	return s.Get(ctx, p.ID)
}

func (s *productService) Update(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error) {
	const op = "product.update"

	p, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrProductNotFound, op)
	}
	oldSlug := p.Slug
	oldVariations := p.Variations

	if _, err := s.apply(ctx, p, in, op); err != nil {
		return nil, err
	}
	if err := s.store.UpdateProduct(ctx, p); err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.WithOp(ErrProductNotFound, op)
		}
		return nil, productWriteErr(err, op)
	}
	s.cache.invalidateProduct(ctx, oldSlug, p.Slug)

	if !sameVariations(oldVariations, p.Variations) {
		if _, err := s.versions.Generate(ctx, p.ID); err != nil {
			return nil, err
		}
		return s.Get(ctx, p.ID)
	}
	return p, nil
}

func (s *productService) Archive(ctx context.Context, id uuid.UUID) error {
	const op = "product.archive"

	p, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return lookupErr(err, ErrProductNotFound, op)
	}
	if err := s.store.SetProductStatus(ctx, id, domain.ProductStatusArchived); err != nil {
		return lookupErr(err, ErrProductNotFound, op)
	}
	s.cache.invalidateProduct(ctx, p.Slug)
	return nil
}

// apply validates in and copies it onto p. It returns the resolved
// variation axes.
func (s *productService) apply(ctx context.Context, p *domain.Product, in ProductInput, op string) ([]variant.Axis, error) {
	var verr error
	add := func(field, msg string) {
		verr = domain.MergeValidation(verr, domain.NewValidationError(op, field, msg))
	}

	p.Name = strings.TrimSpace(in.Name)
	if p.Name == "" {
		add("name", "is required")
	}
	p.Slug = Slugify(in.Slug)
	if p.Slug == "" {
		p.Slug = Slugify(p.Name)
	}
	if p.Slug == "" && p.Name != "" {
		add("slug", "must contain letters or digits")
	}
	p.Description = in.Description
	p.BrandID = in.BrandID
	p.CategoryID = in.CategoryID

	p.Status = in.Status
	if p.Status == "" {
		p.Status = domain.ProductStatusDraft
	}
	if !p.Status.Valid() {
		add("status", "must be draft, active or archived")
	}

	p.BasePrice = in.BasePrice
	if p.BasePrice < 0 {
		add("base_price", "must not be negative")
	}
	p.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if p.Currency == "" {
		p.Currency = "USD"
	}
	if len(p.Currency) != 3 {
		add("currency", "must be a three letter code")
	}

	p.Images = in.Images
	p.Specs = in.Specs
	p.Tags = normalizeTags(in.Tags)
	p.Variations = in.Variations

	axes, err := s.checkVariations(ctx, p.Variations, op)
	if err != nil {
		if !domain.IsValidationError(err) {
			return nil, err
		}
		verr = domain.MergeValidation(verr, err)
	}
	if verr != nil {
		return nil, verr
	}
	return axes, nil
}

// checkVariations resolves the variation set the way generation will and
// rejects sets that cannot expand.
func (s *productService) checkVariations(ctx context.Context, variations []domain.Variation, op string) ([]variant.Axis, error) {
	if len(variations) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(variations))
	for _, v := range variations {
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
	axes, err := variant.AxesFromCatalog(variations, byID)
	if err != nil {
		return nil, err
	}
	if n := variant.Count(axes); n > variant.MaxCombinations {
		return nil, domain.NewValidationError(op, "variations",
			fmt.Sprintf("expands to more than %d versions", variant.MaxCombinations))
	}
	return axes, nil
}

func productWriteErr(err error, op string) error {
	if repository.IsForeignKeyViolation(err) {
		return domain.NewValidationError(op, "brand_id", "brand or category does not exist")
	}
	return writeErr(err, ErrProductExists, op)
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// sameVariations compares variation sets ignoring attribute and option order.
func sameVariations(a, b []domain.Variation) bool {
	if len(a) != len(b) {
		return false
	}
	index := make(map[uuid.UUID][]uuid.UUID, len(a))
	for _, v := range a {
		index[v.AttributeID] = v.OptionIDs
	}
	for _, v := range b {
		opts, ok := index[v.AttributeID]
		if !ok || len(opts) != len(v.OptionIDs) {
			return false
		}
		for _, id := range v.OptionIDs {
			if !slices.Contains(opts, id) {
				return false
			}
		}
	}
	return true
}
