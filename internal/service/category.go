package service

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/repository"
)

// CategoryStore is the persistence CategoryService needs.
type CategoryStore interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	CreateCategory(ctx context.Context, c *domain.Category) error
	UpdateCategory(ctx context.Context, c *domain.Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	CountChildCategories(ctx context.Context, id uuid.UUID) (int, error)
	CountProductsByCategory(ctx context.Context, id uuid.UUID) (int, error)
	CategoryAncestors(ctx context.Context, id uuid.UUID) ([]domain.Category, error)
	CategoryDescendantIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
}

// CategoryInput carries create and update fields.
type CategoryInput struct {
	ParentID  *uuid.UUID
	Name      string
	Slug      string
	ImageURL  string
	SortOrder int
	Active    *bool
}

// CategoryService manages the category tree
type CategoryService interface {
	// Tree returns root categories with nested children.
	Tree(ctx context.Context, activeOnly bool) ([]*domain.Category, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Category, error)

	// Path returns the breadcrumb from the root down to id.
	Path(ctx context.Context, id uuid.UUID) ([]domain.Category, error)

	// DescendantIDs returns id and everything below it.
	DescendantIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)

	Create(ctx context.Context, in CategoryInput) (*domain.Category, error)
	Update(ctx context.Context, id uuid.UUID, in CategoryInput) (*domain.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type categoryService struct {
	store CategoryStore
	cache *CatalogCache
}

// NewCategoryService creates a new CategoryService instance
func NewCategoryService(store CategoryStore, cache *CatalogCache) CategoryService {
	return &categoryService{store: store, cache: cache}
}

// BuildTree nests flat categories under their parents, ordered by sort
// order then name. Orphans whose parent is missing become roots. With
// activeOnly, inactive categories are dropped along with their subtrees:
// children still attach to an inactive parent, which is never emitted.
func BuildTree(flat []domain.Category, activeOnly bool) []*domain.Category {
	nodes := make(map[uuid.UUID]*domain.Category, len(flat))
	for i := range flat {
		c := flat[i]
		c.Children = nil
		nodes[c.ID] = &c
	}

	var roots []*domain.Category
	for i := range flat {
		n := nodes[flat[i].ID]
		if activeOnly && !n.Active {
			continue
		}
		if n.ParentID != nil {
			if parent, ok := nodes[*n.ParentID]; ok {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}

	sortTree(roots)
	return roots
}

func sortTree(nodes []*domain.Category) {
	slices.SortFunc(nodes, func(a, b *domain.Category) int {
		if c := cmp.Compare(a.SortOrder, b.SortOrder); c != 0 {
			return c
		}
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	for _, n := range nodes {
		sortTree(n.Children)
	}
}

func (s *categoryService) Tree(ctx context.Context, activeOnly bool) ([]*domain.Category, error) {
	flat, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, domain.Internal(err, "category.tree", "failed to list categories")
	}
	return BuildTree(flat, activeOnly), nil
}

func (s *categoryService) Get(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrCategoryNotFound, "category.get")
	}
	return c, nil
}

func (s *categoryService) Path(ctx context.Context, id uuid.UUID) ([]domain.Category, error) {
	const op = "category.path"

	path, err := s.store.CategoryAncestors(ctx, id)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load category path")
	}
	if len(path) == 0 {
		return nil, domain.WithOp(ErrCategoryNotFound, op)
	}
	return path, nil
}

func (s *categoryService) DescendantIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	const op = "category.descendants"

	ids, err := s.store.CategoryDescendantIDs(ctx, id)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load subcategories")
	}
	if len(ids) == 0 {
		return nil, domain.WithOp(ErrCategoryNotFound, op)
	}
	return ids, nil
}

func (s *categoryService) Create(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	const op = "category.create"

	c := &domain.Category{Active: true}
	if err := applyCategoryInput(c, in, op); err != nil {
		return nil, err
	}
	if c.ParentID != nil {
		if _, err := s.store.GetCategory(ctx, *c.ParentID); err != nil {
			if repository.IsNotFound(err) {
				return nil, domain.NewValidationError(op, "parent_id", "parent category does not exist")
			}
			return nil, domain.Internal(err, op, "failed to load parent category")
		}
	}

	if err := s.store.CreateCategory(ctx, c); err != nil {
		return nil, writeErr(err, ErrCategoryExists, op)
	}
	return c, nil
}

func (s *categoryService) Update(ctx context.Context, id uuid.UUID, in CategoryInput) (*domain.Category, error) {
	const op = "category.update"

	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrCategoryNotFound, op)
	}

	oldParent := c.ParentID
	if err := applyCategoryInput(c, in, op); err != nil {
		return nil, err
	}

	if c.ParentID != nil && !sameParent(oldParent, c.ParentID) {
		if *c.ParentID == id {
			return nil, domain.WithOp(ErrCategoryCycle, op)
		}
		below, err := s.store.CategoryDescendantIDs(ctx, id)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to load subcategories")
		}
		if slices.Contains(below, *c.ParentID) {
			return nil, domain.WithOp(ErrCategoryCycle, op)
		}
		if _, err := s.store.GetCategory(ctx, *c.ParentID); err != nil {
			if repository.IsNotFound(err) {
				return nil, domain.NewValidationError(op, "parent_id", "parent category does not exist")
			}
			return nil, domain.Internal(err, op, "failed to load parent category")
		}
	}

	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return nil, writeErr(err, ErrCategoryExists, op)
	}

	// Promotion scope follows the category path, so any product may change.
	s.cache.invalidateAll(ctx)
	return c, nil
}

func (s *categoryService) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "category.delete"

	children, err := s.store.CountChildCategories(ctx, id)
	if err != nil {
		return domain.Internal(err, op, "failed to count subcategories")
	}
	if children > 0 {
		return domain.WithOp(ErrCategoryHasChildren, op)
	}

	products, err := s.store.CountProductsByCategory(ctx, id)
	if err != nil {
		return domain.Internal(err, op, "failed to count products")
	}
	if products > 0 {
		return domain.WithOp(ErrCategoryInUse, op)
	}

	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return lookupErr(err, ErrCategoryNotFound, op)
	}
	return nil
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func applyCategoryInput(c *domain.Category, in CategoryInput, op string) error {
	c.Name = strings.TrimSpace(in.Name)
	if c.Name == "" {
		return domain.NewValidationError(op, "name", "is required")
	}
	c.Slug = Slugify(in.Slug)
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	if c.Slug == "" {
		return domain.NewValidationError(op, "slug", "must contain letters or digits")
	}
	c.ParentID = in.ParentID
	c.ImageURL = in.ImageURL
	c.SortOrder = in.SortOrder
	if in.Active != nil {
		c.Active = *in.Active
	}
	return nil
}
