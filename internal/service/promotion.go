package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/pricing"
)

// PromotionStore is the persistence PromotionService needs.
type PromotionStore interface {
	CreatePromotion(ctx context.Context, p *domain.Promotion) error
	UpdatePromotion(ctx context.Context, p *domain.Promotion) error
	GetPromotion(ctx context.Context, id uuid.UUID) (*domain.Promotion, error)
	DeletePromotion(ctx context.Context, id uuid.UUID) error
	ListPromotions(ctx context.Context) ([]domain.Promotion, error)
	ListActivePromotions(ctx context.Context, t time.Time) ([]domain.Promotion, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	CategoryAncestors(ctx context.Context, id uuid.UUID) ([]domain.Category, error)
}

// PromotionInput carries create and update fields.
type PromotionInput struct {
	Name         string
	Kind         domain.PromotionKind
	Value        int64
	AppliesToAll bool
	ProductIDs   []uuid.UUID
	CategoryIDs  []uuid.UUID
	BrandIDs     []uuid.UUID
	StartsAt     time.Time
	EndsAt       *time.Time
	Active       *bool
}

// PromotionService manages promotions and resolves which apply to a product
type PromotionService interface {
	List(ctx context.Context) ([]domain.Promotion, error)
	ListActive(ctx context.Context, at time.Time) ([]domain.Promotion, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Promotion, error)
	Create(ctx context.Context, in PromotionInput) (*domain.Promotion, error)
	Update(ctx context.Context, id uuid.UUID, in PromotionInput) (*domain.Promotion, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// BestForProduct returns the promotion taking most off price for the
	// product at t, with the discount in cents. Nil when none applies.
	BestForProduct(ctx context.Context, productID uuid.UUID, price int64, at time.Time) (*domain.Promotion, int64, error)
}

type promotionService struct {
	store PromotionStore
	cache *CatalogCache
}

// NewPromotionService creates a new PromotionService instance
func NewPromotionService(store PromotionStore, cache *CatalogCache) PromotionService {
	return &promotionService{store: store, cache: cache}
}

func (s *promotionService) List(ctx context.Context) ([]domain.Promotion, error) {
	promos, err := s.store.ListPromotions(ctx)
	if err != nil {
		return nil, domain.Internal(err, "promotion.list", "failed to list promotions")
	}
	return promos, nil
}

func (s *promotionService) ListActive(ctx context.Context, at time.Time) ([]domain.Promotion, error) {
	promos, err := s.store.ListActivePromotions(ctx, at)
	if err != nil {
		return nil, domain.Internal(err, "promotion.list_active", "failed to list promotions")
	}
	return promos, nil
}

func (s *promotionService) Get(ctx context.Context, id uuid.UUID) (*domain.Promotion, error) {
	p, err := s.store.GetPromotion(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrPromotionMissing, "promotion.get")
	}
	return p, nil
}

func (s *promotionService) Create(ctx context.Context, in PromotionInput) (*domain.Promotion, error) {
	const op = "promotion.create"

	p := &domain.Promotion{Active: true}
	if err := applyPromotionInput(p, in, op); err != nil {
		return nil, err
	}
	if err := s.store.CreatePromotion(ctx, p); err != nil {
		return nil, writeErr(err, nil, op)
	}
	s.cache.invalidateAll(ctx)
	return p, nil
}

func (s *promotionService) Update(ctx context.Context, id uuid.UUID, in PromotionInput) (*domain.Promotion, error) {
	const op = "promotion.update"

	p, err := s.store.GetPromotion(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrPromotionMissing, op)
	}
	if err := applyPromotionInput(p, in, op); err != nil {
		return nil, err
	}
	if err := s.store.UpdatePromotion(ctx, p); err != nil {
		return nil, lookupErr(err, ErrPromotionMissing, op)
	}
	s.cache.invalidateAll(ctx)
	return p, nil
}

func (s *promotionService) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "promotion.delete"

	if err := s.store.DeletePromotion(ctx, id); err != nil {
		return lookupErr(err, ErrPromotionMissing, op)
	}
	s.cache.invalidateAll(ctx)
	return nil
}

func (s *promotionService) BestForProduct(ctx context.Context, productID uuid.UUID, price int64, at time.Time) (*domain.Promotion, int64, error) {
	const op = "promotion.best"

	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, 0, lookupErr(err, ErrProductNotFound, op)
	}
	promos, err := applicablePromotions(ctx, s.store, product, at)
	if err != nil {
		return nil, 0, domain.Internal(err, op, "failed to resolve promotions")
	}
	p, d := pricing.Best(promos, price)
	return p, d, nil
}

// promotionSource loads what is needed to match promotions to a product.
type promotionSource interface {
	ListActivePromotions(ctx context.Context, t time.Time) ([]domain.Promotion, error)
	CategoryAncestors(ctx context.Context, id uuid.UUID) ([]domain.Category, error)
}

// applicablePromotions returns promotions running at t whose scope covers
// the product, its brand or any category on its path.
func applicablePromotions(ctx context.Context, src promotionSource, p *domain.Product, at time.Time) ([]domain.Promotion, error) {
	active, err := src.ListActivePromotions(ctx, at)
	if err != nil || len(active) == 0 {
		return nil, err
	}

	target := domain.PromotionTarget{ProductID: p.ID, BrandID: p.BrandID}
	if p.CategoryID != nil {
		path, err := src.CategoryAncestors(ctx, *p.CategoryID)
		if err != nil {
			return nil, err
		}
		for _, c := range path {
			target.CategoryPath = append(target.CategoryPath, c.ID)
		}
	}

	var out []domain.Promotion
	for _, promo := range active {
		if promo.ActiveAt(at) && promo.AppliesTo(target) {
			out = append(out, promo)
		}
	}
	return out, nil
}

func applyPromotionInput(p *domain.Promotion, in PromotionInput, op string) error {
	p.Name = strings.TrimSpace(in.Name)
	if p.Name == "" {
		return domain.NewValidationError(op, "name", "is required")
	}
	p.Kind = in.Kind
	p.Value = in.Value
	p.AppliesToAll = in.AppliesToAll
	p.ProductIDs = in.ProductIDs
	p.CategoryIDs = in.CategoryIDs
	p.BrandIDs = in.BrandIDs
	p.StartsAt = in.StartsAt
	p.EndsAt = in.EndsAt
	if in.Active != nil {
		p.Active = *in.Active
	}
	if p.StartsAt.IsZero() {
		return domain.NewValidationError(op, "starts_at", "is required")
	}
	return pricing.ValidatePromotion(p)
}
