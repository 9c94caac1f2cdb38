package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/repository"
)

// AttributeStore is the persistence AttributeService needs.
type AttributeStore interface {
	ListAttributes(ctx context.Context) ([]domain.Attribute, error)
	GetAttribute(ctx context.Context, id uuid.UUID) (*domain.Attribute, error)
	CreateAttribute(ctx context.Context, a *domain.Attribute) error
	UpdateAttribute(ctx context.Context, a *domain.Attribute) error
	DeleteAttribute(ctx context.Context, id uuid.UUID) error
	AddAttributeOption(ctx context.Context, o *domain.AttributeOption) error
	UpdateAttributeOption(ctx context.Context, o *domain.AttributeOption) error
	DeleteAttributeOption(ctx context.Context, attributeID, optionID uuid.UUID) error
	CountOptionUsage(ctx context.Context, optionID uuid.UUID) (int, error)
	CountProductsUsingAttribute(ctx context.Context, attributeID uuid.UUID) (int, error)
}

// OptionInput is one attribute value.
type OptionInput struct {
	Value     string
	SortOrder int
}

// AttributeService manages variation attributes and their options
type AttributeService interface {
	List(ctx context.Context) ([]domain.Attribute, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Attribute, error)
	Create(ctx context.Context, name, slug string, options []OptionInput) (*domain.Attribute, error)
	Rename(ctx context.Context, id uuid.UUID, name, slug string) (*domain.Attribute, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddOption(ctx context.Context, attributeID uuid.UUID, in OptionInput) (*domain.AttributeOption, error)
	UpdateOption(ctx context.Context, attributeID, optionID uuid.UUID, in OptionInput) (*domain.AttributeOption, error)
	DeleteOption(ctx context.Context, attributeID, optionID uuid.UUID) error
}

type attributeService struct {
	store AttributeStore
}

// NewAttributeService creates a new AttributeService instance
func NewAttributeService(store AttributeStore) AttributeService {
	return &attributeService{store: store}
}

func (s *attributeService) List(ctx context.Context) ([]domain.Attribute, error) {
	attrs, err := s.store.ListAttributes(ctx)
	if err != nil {
		return nil, domain.Internal(err, "attribute.list", "failed to list attributes")
	}
	return attrs, nil
}

func (s *attributeService) Get(ctx context.Context, id uuid.UUID) (*domain.Attribute, error) {
	a, err := s.store.GetAttribute(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrAttributeNotFound, "attribute.get")
	}
	return a, nil
}

func (s *attributeService) Create(ctx context.Context, name, slug string, options []OptionInput) (*domain.Attribute, error) {
	const op = "attribute.create"

	a := &domain.Attribute{}
	if err := setAttributeName(a, name, slug, op); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(options))
	var verr error
	for i, in := range options {
		o, err := newOption(in, op, fmt.Sprintf("options[%d]", i))
		if err != nil {
			verr = domain.MergeValidation(verr, err)
			continue
		}
		if seen[o.Slug] || seen[strings.ToLower(o.Value)] {
			verr = domain.MergeValidation(verr, domain.NewValidationError(op, fmt.Sprintf("options[%d].value", i), "duplicate option value"))
			continue
		}
		seen[o.Slug] = true
		seen[strings.ToLower(o.Value)] = true
		a.Options = append(a.Options, o)
	}
	if verr != nil {
		return nil, verr
	}

	if err := s.store.CreateAttribute(ctx, a); err != nil {
		return nil, writeErr(err, ErrAttributeExists, op)
	}
	return a, nil
}

func (s *attributeService) Rename(ctx context.Context, id uuid.UUID, name, slug string) (*domain.Attribute, error) {
	const op = "attribute.rename"

	a, err := s.store.GetAttribute(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrAttributeNotFound, op)
	}
	if err := setAttributeName(a, name, slug, op); err != nil {
		return nil, err
	}
	if err := s.store.UpdateAttribute(ctx, a); err != nil {
		return nil, writeErr(err, ErrAttributeExists, op)
	}
	return a, nil
}

func (s *attributeService) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "attribute.delete"

	n, err := s.store.CountProductsUsingAttribute(ctx, id)
	if err != nil {
		return domain.Internal(err, op, "failed to count products")
	}
	if n > 0 {
		return domain.WithOp(ErrAttributeInUse, op)
	}
	if err := s.store.DeleteAttribute(ctx, id); err != nil {
		return lookupErr(err, ErrAttributeNotFound, op)
	}
	return nil
}

func (s *attributeService) AddOption(ctx context.Context, attributeID uuid.UUID, in OptionInput) (*domain.AttributeOption, error) {
	const op = "attribute.add_option"

	a, err := s.store.GetAttribute(ctx, attributeID)
	if err != nil {
		return nil, lookupErr(err, ErrAttributeNotFound, op)
	}
	o, err := newOption(in, op, "")
	if err != nil {
		return nil, err
	}
	if clashingOption(a, o, uuid.Nil) {
		return nil, domain.WithOp(ErrOptionExists, op)
	}

	o.AttributeID = attributeID
	if err := s.store.AddAttributeOption(ctx, &o); err != nil {
		return nil, writeErr(err, ErrOptionExists, op)
	}
	return &o, nil
}

func (s *attributeService) UpdateOption(ctx context.Context, attributeID, optionID uuid.UUID, in OptionInput) (*domain.AttributeOption, error) {
	const op = "attribute.update_option"

	a, err := s.store.GetAttribute(ctx, attributeID)
	if err != nil {
		return nil, lookupErr(err, ErrAttributeNotFound, op)
	}
	if _, ok := a.Option(optionID); !ok {
		return nil, domain.WithOp(ErrOptionNotFound, op)
	}
	o, err := newOption(in, op, "")
	if err != nil {
		return nil, err
	}
	if clashingOption(a, o, optionID) {
		return nil, domain.WithOp(ErrOptionExists, op)
	}

	o.ID = optionID
	o.AttributeID = attributeID
	if err := s.store.UpdateAttributeOption(ctx, &o); err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.WithOp(ErrOptionNotFound, op)
		}
		return nil, writeErr(err, ErrOptionExists, op)
	}
	return &o, nil
}

func (s *attributeService) DeleteOption(ctx context.Context, attributeID, optionID uuid.UUID) error {
	const op = "attribute.delete_option"

	n, err := s.store.CountOptionUsage(ctx, optionID)
	if err != nil {
		return domain.Internal(err, op, "failed to count option usage")
	}
	if n > 0 {
		return domain.WithOp(ErrOptionInUse, op)
	}
	if err := s.store.DeleteAttributeOption(ctx, attributeID, optionID); err != nil {
		return lookupErr(err, ErrOptionNotFound, op)
	}
	return nil
}

func setAttributeName(a *domain.Attribute, name, slug, op string) error {
	a.Name = strings.TrimSpace(name)
	if a.Name == "" {
		return domain.NewValidationError(op, "name", "is required")
	}
	a.Slug = Slugify(slug)
	if a.Slug == "" {
		a.Slug = Slugify(a.Name)
	}
	if a.Slug == "" {
		return domain.NewValidationError(op, "slug", "must contain letters or digits")
	}
	return nil
}

// newOption validates in. prefix scopes the field name inside a list.
func newOption(in OptionInput, op, prefix string) (domain.AttributeOption, error) {
	field := "value"
	if prefix != "" {
		field = prefix + ".value"
	}
	o := domain.AttributeOption{
		Value:     strings.TrimSpace(in.Value),
		SortOrder: in.SortOrder,
	}
	if o.Value == "" {
		return o, domain.NewValidationError(op, field, "is required")
	}
	o.Slug = Slugify(o.Value)
	if o.Slug == "" {
		return o, domain.NewValidationError(op, field, "must contain letters or digits")
	}
	return o, nil
}

// clashingOption reports whether another option of a, other than except,
// has o's value ignoring case or o's slug. "X L" and "X-L" clash on slug.
func clashingOption(a *domain.Attribute, o domain.AttributeOption, except uuid.UUID) bool {
	for _, other := range a.Options {
		if other.ID == except {
			continue
		}
		if strings.EqualFold(other.Value, o.Value) || other.Slug == o.Slug {
			return true
		}
	}
	return false
}
