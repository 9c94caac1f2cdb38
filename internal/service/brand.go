package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/marketplace/internal/domain"
)

// BrandStore is the persistence BrandService needs.
type BrandStore interface {
	ListBrands(ctx context.Context, activeOnly bool) ([]domain.Brand, error)
	GetBrand(ctx context.Context, id uuid.UUID) (*domain.Brand, error)
	CreateBrand(ctx context.Context, b *domain.Brand) error
	UpdateBrand(ctx context.Context, b *domain.Brand) error
	DeleteBrand(ctx context.Context, id uuid.UUID) error
	CountProductsByBrand(ctx context.Context, id uuid.UUID) (int, error)
}

// BrandInput carries create and update fields. Empty Slug is derived from Name.
type BrandInput struct {
	Name        string
	Slug        string
	Description string
	LogoURL     string
	Active      *bool
}

// BrandService manages brands
type BrandService interface {
	List(ctx context.Context, activeOnly bool) ([]domain.Brand, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Brand, error)
	Create(ctx context.Context, in BrandInput) (*domain.Brand, error)
	Update(ctx context.Context, id uuid.UUID, in BrandInput) (*domain.Brand, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type brandService struct {
	store BrandStore
}

// NewBrandService creates a new BrandService instance
func NewBrandService(store BrandStore) BrandService {
	return &brandService{store: store}
}

func (s *brandService) List(ctx context.Context, activeOnly bool) ([]domain.Brand, error) {
	brands, err := s.store.ListBrands(ctx, activeOnly)
	if err != nil {
		return nil, domain.Internal(err, "brand.list", "failed to list brands")
	}
	return brands, nil
}

func (s *brandService) Get(ctx context.Context, id uuid.UUID) (*domain.Brand, error) {
	b, err := s.store.GetBrand(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrBrandNotFound, "brand.get")
	}
	return b, nil
}

func (s *brandService) Create(ctx context.Context, in BrandInput) (*domain.Brand, error) {
	const op = "brand.create"

	b := &domain.Brand{Active: true}
	if err := applyBrandInput(b, in, op); err != nil {
		return nil, err
	}
	if err := s.store.CreateBrand(ctx, b); err != nil {
		return nil, writeErr(err, ErrBrandExists, op)
	}
	return b, nil
}

func (s *brandService) Update(ctx context.Context, id uuid.UUID, in BrandInput) (*domain.Brand, error) {
	const op = "brand.update"

	b, err := s.store.GetBrand(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrBrandNotFound, op)
	}
	if err := applyBrandInput(b, in, op); err != nil {
		return nil, err
	}
	if err := s.store.UpdateBrand(ctx, b); err != nil {
		return nil, writeErr(err, ErrBrandExists, op)
	}
	return b, nil
}

func (s *brandService) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "brand.delete"

	n, err := s.store.CountProductsByBrand(ctx, id)
	if err != nil {
		return domain.Internal(err, op, "failed to count products")
	}
	if n > 0 {
		return domain.WithOp(ErrBrandInUse, op)
	}
	if err := s.store.DeleteBrand(ctx, id); err != nil {
		return lookupErr(err, ErrBrandNotFound, op)
	}
	return nil
}

func applyBrandInput(b *domain.Brand, in BrandInput, op string) error {
	b.Name = strings.TrimSpace(in.Name)
	if b.Name == "" {
		return domain.NewValidationError(op, "name", "is required")
	}
	b.Slug = Slugify(in.Slug)
	if b.Slug == "" {
		b.Slug = Slugify(b.Name)
	}
	if b.Slug == "" {
		return domain.NewValidationError(op, "slug", "must contain letters or digits")
	}
	b.Description = in.Description
	b.LogoURL = in.LogoURL
	if in.Active != nil {
		b.Active = *in.Active
	}
	return nil
}
