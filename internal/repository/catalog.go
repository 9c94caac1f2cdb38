package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// =============================================================================
// Brands
// =============================================================================

const brandColumns = `id, name, slug, description, logo_url, active, created_at, updated_at`

func scanBrand(row rowScanner) (domain.Brand, error) {
	var b domain.Brand
	err := row.Scan(&b.ID, &b.Name, &b.Slug, &b.Description, &b.LogoURL, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (q *Queries) ListBrands(ctx context.Context, activeOnly bool) ([]domain.Brand, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+brandColumns+` FROM brands
		WHERE active OR NOT $1
		ORDER BY lower(name)`, activeOnly)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Brand, error) {
		return scanBrand(r)
	})
}

func (q *Queries) GetBrand(ctx context.Context, id uuid.UUID) (*domain.Brand, error) {
	b, err := scanBrand(q.db.QueryRow(ctx, `SELECT `+brandColumns+` FROM brands WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBrand inserts b and fills its id and timestamps.
func (q *Queries) CreateBrand(ctx context.Context, b *domain.Brand) error {
	return q.db.QueryRow(ctx, `
		INSERT INTO brands (name, slug, description, logo_url, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		b.Name, b.Slug, b.Description, b.LogoURL, b.Active).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (q *Queries) UpdateBrand(ctx context.Context, b *domain.Brand) error {
	return q.db.QueryRow(ctx, `
		UPDATE brands
		SET name = $2, slug = $3, description = $4, logo_url = $5, active = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		b.ID, b.Name, b.Slug, b.Description, b.LogoURL, b.Active).
		Scan(&b.UpdatedAt)
}

func (q *Queries) DeleteBrand(ctx context.Context, id uuid.UUID) error {
	return expectOne(q.db.Exec(ctx, `DELETE FROM brands WHERE id = $1`, id))
}

func (q *Queries) CountProductsByBrand(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := q.db.QueryRow(ctx, `SELECT count(*) FROM products WHERE brand_id = $1`, id).Scan(&n)
	return n, err
}

// =============================================================================
// Categories
// =============================================================================

const categoryColumns = `id, parent_id, name, slug, image_url, sort_order, active, created_at, updated_at`

func scanCategory(row rowScanner) (domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.ParentID, &c.Name, &c.Slug, &c.ImageURL, &c.SortOrder, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func collectCategories(rows pgx.Rows) ([]domain.Category, error) {
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Category, error) {
		return scanCategory(r)
	})
}

// ListCategories returns every category ordered for tree building.
func (q *Queries) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+categoryColumns+` FROM categories
		ORDER BY sort_order, lower(name)`)
	if err != nil {
		return nil, err
	}
	return collectCategories(rows)
}

func (q *Queries) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	c, err := scanCategory(q.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (q *Queries) CreateCategory(ctx context.Context, c *domain.Category) error {
	return q.db.QueryRow(ctx, `
		INSERT INTO categories (parent_id, name, slug, image_url, sort_order, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		c.ParentID, c.Name, c.Slug, c.ImageURL, c.SortOrder, c.Active).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (q *Queries) UpdateCategory(ctx context.Context, c *domain.Category) error {
	return q.db.QueryRow(ctx, `
		UPDATE categories
		SET parent_id = $2, name = $3, slug = $4, image_url = $5, sort_order = $6, active = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		c.ID, c.ParentID, c.Name, c.Slug, c.ImageURL, c.SortOrder, c.Active).
		Scan(&c.UpdatedAt)
}

func (q *Queries) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return expectOne(q.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id))
}

func (q *Queries) CountChildCategories(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := q.db.QueryRow(ctx, `SELECT count(*) FROM categories WHERE parent_id = $1`, id).Scan(&n)
	return n, err
}

func (q *Queries) CountProductsByCategory(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := q.db.QueryRow(ctx, `SELECT count(*) FROM products WHERE category_id = $1`, id).Scan(&n)
	return n, err
}

// CategoryAncestors returns the path from the root down to id, inclusive.
func (q *Queries) CategoryAncestors(ctx context.Context, id uuid.UUID) ([]domain.Category, error) {
	rows, err := q.db.Query(ctx, `
		WITH RECURSIVE path AS (
			SELECT `+categoryColumns+`, 0 AS depth FROM categories WHERE id = $1
			UNION ALL
			SELECT c.id, c.parent_id, c.name, c.slug, c.image_url, c.sort_order, c.active, c.created_at, c.updated_at, p.depth + 1
			FROM categories c
			JOIN path p ON c.id = p.parent_id
			WHERE p.depth < 64
		)
		SELECT `+categoryColumns+` FROM path ORDER BY depth DESC`, id)
	if err != nil {
		return nil, err
	}
	return collectCategories(rows)
}

// CategoryDescendantIDs returns id and the ids of every category below it.
func (q *Queries) CategoryDescendantIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, `
		WITH RECURSIVE tree AS (
			SELECT id, 0 AS depth FROM categories WHERE id = $1
			UNION ALL
			SELECT c.id, t.depth + 1
			FROM categories c
			JOIN tree t ON c.parent_id = t.id
			WHERE t.depth < 64
		)
		SELECT id FROM tree`, id)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

// =============================================================================
// Attributes
// =============================================================================

// attributeSelect aggregates options per attribute in one round trip.
const attributeSelect = `
	SELECT a.id, a.name, a.slug, a.created_at, a.updated_at,
		COALESCE(
			(SELECT json_agg(json_build_object(
				'id', o.id,
				'attribute_id', o.attribute_id,
				'value', o.value,
				'slug', o.slug,
				'sort_order', o.sort_order
			) ORDER BY o.sort_order, lower(o.value))
			FROM attribute_options o WHERE o.attribute_id = a.id),
			'[]'
		) AS options
	FROM attributes a`

func scanAttribute(row rowScanner) (domain.Attribute, error) {
	var (
		a       domain.Attribute
		options []byte
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Slug, &a.CreatedAt, &a.UpdatedAt, &options); err != nil {
		return a, err
	}
	if err := json.Unmarshal(options, &a.Options); err != nil {
		return a, fmt.Errorf("decode attribute options: %w", err)
	}
	return a, nil
}

func collectAttributes(rows pgx.Rows) ([]domain.Attribute, error) {
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Attribute, error) {
		return scanAttribute(r)
	})
}

func (q *Queries) ListAttributes(ctx context.Context) ([]domain.Attribute, error) {
	rows, err := q.db.Query(ctx, attributeSelect+` ORDER BY lower(a.name)`)
	if err != nil {
		return nil, err
	}
	return collectAttributes(rows)
}

func (q *Queries) GetAttribute(ctx context.Context, id uuid.UUID) (*domain.Attribute, error) {
	a, err := scanAttribute(q.db.QueryRow(ctx, attributeSelect+` WHERE a.id = $1`, id))
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (q *Queries) GetAttributesByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Attribute, error) {
	rows, err := q.db.Query(ctx, attributeSelect+` WHERE a.id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	return collectAttributes(rows)
}

// CreateAttribute inserts a and its options in one transaction.
func (s *Store) CreateAttribute(ctx context.Context, a *domain.Attribute) error {
	return s.InTx(ctx, func(q *Queries) error {
		err := q.db.QueryRow(ctx, `
			INSERT INTO attributes (name, slug) VALUES ($1, $2)
			RETURNING id, created_at, updated_at`,
			a.Name, a.Slug).
			Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return err
		}
		for i := range a.Options {
			a.Options[i].AttributeID = a.ID
			if err := q.AddAttributeOption(ctx, &a.Options[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (q *Queries) UpdateAttribute(ctx context.Context, a *domain.Attribute) error {
	return q.db.QueryRow(ctx, `
		UPDATE attributes SET name = $2, slug = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		a.ID, a.Name, a.Slug).
		Scan(&a.UpdatedAt)
}

func (q *Queries) DeleteAttribute(ctx context.Context, id uuid.UUID) error {
	return expectOne(q.db.Exec(ctx, `DELETE FROM attributes WHERE id = $1`, id))
}

func (q *Queries) AddAttributeOption(ctx context.Context, o *domain.AttributeOption) error {
	return q.db.QueryRow(ctx, `
		INSERT INTO attribute_options (attribute_id, value, slug, sort_order)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		o.AttributeID, o.Value, o.Slug, o.SortOrder).
		Scan(&o.ID)
}

func (q *Queries) UpdateAttributeOption(ctx context.Context, o *domain.AttributeOption) error {
	return expectOne(q.db.Exec(ctx, `
		UPDATE attribute_options SET value = $3, slug = $4, sort_order = $5
		WHERE attribute_id = $1 AND id = $2`,
		o.AttributeID, o.ID, o.Value, o.Slug, o.SortOrder))
}

func (q *Queries) DeleteAttributeOption(ctx context.Context, attributeID, optionID uuid.UUID) error {
	return expectOne(q.db.Exec(ctx,
		`DELETE FROM attribute_options WHERE attribute_id = $1 AND id = $2`, attributeID, optionID))
}

// CountOptionUsage counts versions built from the option plus products
// whose variation set still lists it.
func (q *Queries) CountOptionUsage(ctx context.Context, optionID uuid.UUID) (int, error) {
	var n int
	err := q.db.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM product_versions WHERE option_ids @> ARRAY[$1::uuid])
			+
			(SELECT count(*) FROM products p
			 WHERE EXISTS (
				SELECT 1 FROM jsonb_array_elements(p.variations) v
				WHERE v->'option_ids' ? $2
			 ))`, optionID, optionID.String()).Scan(&n)
	return n, err
}

// CountProductsUsingAttribute counts products that vary on the attribute.
func (q *Queries) CountProductsUsingAttribute(ctx context.Context, attributeID uuid.UUID) (int, error) {
	var n int
	err := q.db.QueryRow(ctx, `
		SELECT count(*) FROM products p
		WHERE EXISTS (
			SELECT 1 FROM jsonb_array_elements(p.variations) v
			WHERE v->>'attribute_id' = $1
		)`, attributeID.String()).Scan(&n)
	return n, err
}
