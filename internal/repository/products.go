package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/variant"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// =============================================================================
// Products
// =============================================================================

const productColumns = `p.id, p.name, p.slug, p.description, p.brand_id, p.category_id, p.status,
	p.base_price, p.currency, p.images, p.specs, p.tags, p.variations,
	p.min_price, p.max_price, p.created_at, p.updated_at,
	(SELECT count(*) FROM product_versions v WHERE v.product_id = p.id AND v.active) AS version_count`

func scanProduct(row rowScanner, extra ...any) (domain.Product, error) {
	var (
		p                  domain.Product
		specs, variations  []byte
		minPrice, maxPrice *int64
	)
	dest := []any{
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.BrandID, &p.CategoryID, &p.Status,
		&p.BasePrice, &p.Currency, &p.Images, &specs, &p.Tags, &variations,
		&minPrice, &maxPrice, &p.CreatedAt, &p.UpdatedAt, &p.VersionCount,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return p, err
	}
	if err := json.Unmarshal(specs, &p.Specs); err != nil {
		return p, fmt.Errorf("decode product specs: %w", err)
	}
	if err := json.Unmarshal(variations, &p.Variations); err != nil {
		return p, fmt.Errorf("decode product variations: %w", err)
	}
	if minPrice != nil && maxPrice != nil {
		p.PriceRange = &domain.PriceRange{Min: *minPrice, Max: *maxPrice}
	}
	return p, nil
}

func encodeProduct(p *domain.Product) (specs, variations []byte, err error) {
	if p.Specs == nil {
		p.Specs = map[string]string{}
	}
	if p.Variations == nil {
		p.Variations = []domain.Variation{}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if specs, err = json.Marshal(p.Specs); err != nil {
		return nil, nil, err
	}
	if variations, err = json.Marshal(p.Variations); err != nil {
		return nil, nil, err
	}
	return specs, variations, nil
}

func (q *Queries) CreateProduct(ctx context.Context, p *domain.Product) error {
	specs, variations, err := encodeProduct(p)
	if err != nil {
		return err
	}
	return q.db.QueryRow(ctx, `
		INSERT INTO products (name, slug, description, brand_id, category_id, status,
			base_price, currency, images, specs, tags, variations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`,
		p.Name, p.Slug, p.Description, p.BrandID, p.CategoryID, p.Status,
		p.BasePrice, p.Currency, p.Images, specs, p.Tags, variations).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// CreateProductWithVersions inserts p with its initial versions and price
// range in one transaction.
func (s *Store) CreateProductWithVersions(ctx context.Context, p *domain.Product, versions []domain.Version, r *domain.PriceRange) error {
	return s.InTx(ctx, func(q *Queries) error {
		if err := q.CreateProduct(ctx, p); err != nil {
			return err
		}
		for i := range versions {
			versions[i].ProductID = p.ID
			if err := q.insertVersion(ctx, &versions[i]); err != nil {
				return err
			}
		}
		return q.UpdateProductPriceRange(ctx, p.ID, r)
	})
}

func (q *Queries) UpdateProduct(ctx context.Context, p *domain.Product) error {
	specs, variations, err := encodeProduct(p)
	if err != nil {
		return err
	}
	return q.db.QueryRow(ctx, `
		UPDATE products
		SET name = $2, slug = $3, description = $4, brand_id = $5, category_id = $6, status = $7,
			base_price = $8, currency = $9, images = $10, specs = $11, tags = $12, variations = $13,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Name, p.Slug, p.Description, p.BrandID, p.CategoryID, p.Status,
		p.BasePrice, p.Currency, p.Images, specs, p.Tags, variations).
		Scan(&p.UpdatedAt)
}

func (q *Queries) SetProductStatus(ctx context.Context, id uuid.UUID, status domain.ProductStatus) error {
	return expectOne(q.db.Exec(ctx,
		`UPDATE products SET status = $2, updated_at = now() WHERE id = $1`, id, status))
}

// UpdateProductPriceRange stores the aggregate range; nil clears it.
func (q *Queries) UpdateProductPriceRange(ctx context.Context, id uuid.UUID, r *domain.PriceRange) error {
	var minPrice, maxPrice *int64
	if r != nil {
		minPrice, maxPrice = &r.Min, &r.Max
	}
	return expectOne(q.db.Exec(ctx,
		`UPDATE products SET min_price = $2, max_price = $3 WHERE id = $1`, id, minPrice, maxPrice))
}

func (q *Queries) GetProductByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	p, err := scanProduct(q.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1`, id))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (q *Queries) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	p, err := scanProduct(q.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products p WHERE p.slug = $1`, slug))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// productQuery is a ListProducts statement. CountSQL and CountArgs count
// the same rows without paging.
type productQuery struct {
	SQL       string
	Args      []any
	CountSQL  string
	CountArgs []any
}

func buildProductQuery(f domain.ProductFilter) productQuery {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Query != "" {
		n := arg(f.Query)
		where = append(where, fmt.Sprintf("(p.name ILIKE '%%' || %s || '%%' OR p.description ILIKE '%%' || %s || '%%')", n, n))
	}
	if len(f.CategoryIDs) > 0 {
		where = append(where, "p.category_id = ANY("+arg(f.CategoryIDs)+")")
	}
	if f.BrandID != nil {
		where = append(where, "p.brand_id = "+arg(*f.BrandID))
	}
	if f.Status != nil {
		where = append(where, "p.status = "+arg(*f.Status))
	}
	// Price filters match products whose range overlaps the requested one.
	if f.MinPrice != nil {
		where = append(where, "p.max_price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		where = append(where, "p.min_price <= "+arg(*f.MaxPrice))
	}
	if len(f.Tags) > 0 {
		where = append(where, "p.tags @> "+arg(f.Tags))
	}

	var filter string
	if len(where) > 0 {
		filter = " WHERE " + strings.Join(where, " AND ")
	}
	pq := productQuery{
		CountSQL:  `SELECT count(*) FROM products p` + filter,
		CountArgs: slices.Clone(args),
	}
	pq.SQL = `SELECT ` + productColumns + `, count(*) OVER () AS total FROM products p` + filter +
		" ORDER BY " + productOrder(f.Sort) +
		" LIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset)
	pq.Args = args
	return pq
}

// ListProducts applies f and returns one page plus the unpaged total.
func (q *Queries) ListProducts(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int, error) {
	pq := buildProductQuery(f)
	rows, err := q.db.Query(ctx, pq.SQL, pq.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		products []domain.Product
		total    int
	)
	for rows.Next() {
		p, err := scanProduct(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// An offset past the end returns no rows and so no window total.
	if len(products) == 0 && f.Offset > 0 {
		if err := q.db.QueryRow(ctx, pq.CountSQL, pq.CountArgs...).Scan(&total); err != nil {
			return nil, 0, err
		}
	}
	return products, total, nil
}

func productOrder(s domain.ProductSort) string {
	switch s {
	case domain.SortPriceAsc:
		return "p.min_price ASC NULLS LAST, p.id"
	case domain.SortPriceDesc:
		return "p.max_price DESC NULLS LAST, p.id"
	case domain.SortName:
		return "lower(p.name), p.id"
	default:
		return "p.created_at DESC, p.id"
	}
}

// =============================================================================
// Versions
// =============================================================================

const versionColumns = `id, product_id, sku, options, combination_key, price, stock, active, tiers, created_at, updated_at`

func scanVersion(row rowScanner) (domain.Version, error) {
	var (
		v              domain.Version
		options, tiers []byte
	)
	if err := row.Scan(&v.ID, &v.ProductID, &v.SKU, &options, &v.CombinationKey, &v.Price, &v.Stock, &v.Active, &tiers, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return v, err
	}
	if err := json.Unmarshal(options, &v.Options); err != nil {
		return v, fmt.Errorf("decode version options: %w", err)
	}
	if err := json.Unmarshal(tiers, &v.Tiers); err != nil {
		return v, fmt.Errorf("decode version tiers: %w", err)
	}
	return v, nil
}

func collectVersions(rows pgx.Rows) ([]domain.Version, error) {
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Version, error) {
		return scanVersion(r)
	})
}

// ListVersionsByProduct returns versions ordered by sku.
func (q *Queries) ListVersionsByProduct(ctx context.Context, productID uuid.UUID, activeOnly bool) ([]domain.Version, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+versionColumns+` FROM product_versions
		WHERE product_id = $1 AND (active OR NOT $2)
		ORDER BY sku`, productID, activeOnly)
	if err != nil {
		return nil, err
	}
	return collectVersions(rows)
}

func (q *Queries) GetVersion(ctx context.Context, id uuid.UUID) (*domain.Version, error) {
	v, err := scanVersion(q.db.QueryRow(ctx, `SELECT `+versionColumns+` FROM product_versions WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ErrNoFreeSKU is returned when a generated SKU and all of its suffixed
// forms are taken.
var ErrNoFreeSKU = errors.New("no free sku")

// maxSKUSuffix bounds the search for a free SKU.
const maxSKUSuffix = 50

// insertVersion inserts v. When v.SKU is already held by another version it
// takes the first free suffixed form (SHIRT-RED-2, SHIRT-RED-3, ...) and
// v.SKU is updated to match.
func (q *Queries) insertVersion(ctx context.Context, v *domain.Version) error {
	options, err := json.Marshal(v.Options)
	if err != nil {
		return err
	}
	if v.Tiers == nil {
		v.Tiers = []domain.PriceTier{}
	}
	tiers, err := json.Marshal(v.Tiers)
	if err != nil {
		return err
	}
	optionIDs := make([]uuid.UUID, 0, len(v.Options))
	for _, id := range v.Options {
		optionIDs = append(optionIDs, id)
	}

	base := v.SKU
	for n := 1; n <= maxSKUSuffix; n++ {
		sku := variant.SuffixSKU(base, n)
		err := q.db.QueryRow(ctx, `
			INSERT INTO product_versions (product_id, sku, options, option_ids, combination_key, price, stock, active, tiers)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (sku) DO NOTHING
			RETURNING id, created_at, updated_at`,
			v.ProductID, sku, options, optionIDs, v.CombinationKey, v.Price, v.Stock, v.Active, tiers).
			Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
		switch {
		case err == nil:
			v.SKU = sku
			return nil
		case !errors.Is(err, pgx.ErrNoRows):
			return err
		}
	}
	return fmt.Errorf("%w: %s", ErrNoFreeSKU, base)
}

// UpdateVersion writes the editable fields: sku, price, stock, active, tiers.
func (q *Queries) UpdateVersion(ctx context.Context, v *domain.Version) error {
	if v.Tiers == nil {
		v.Tiers = []domain.PriceTier{}
	}
	tiers, err := json.Marshal(v.Tiers)
	if err != nil {
		return err
	}
	return q.db.QueryRow(ctx, `
		UPDATE product_versions
		SET sku = $2, price = $3, stock = $4, active = $5, tiers = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		v.ID, v.SKU, v.Price, v.Stock, v.Active, tiers).
		Scan(&v.UpdatedAt)
}

// ApplyVersionPlan inserts create, re-activates keep and deactivates
// deactivate in one transaction, then returns every version of the product.
func (s *Store) ApplyVersionPlan(ctx context.Context, productID uuid.UUID, create []domain.Version, keep, deactivate []uuid.UUID) ([]domain.Version, error) {
	var versions []domain.Version
	err := s.InTx(ctx, func(q *Queries) error {
		if len(keep) > 0 {
			if _, err := q.db.Exec(ctx, `
				UPDATE product_versions SET active = TRUE, updated_at = now()
				WHERE product_id = $1 AND id = ANY($2) AND NOT active`,
				productID, keep); err != nil {
				return fmt.Errorf("reactivate versions: %w", err)
			}
		}
		if len(deactivate) > 0 {
			if _, err := q.db.Exec(ctx, `
				UPDATE product_versions SET active = FALSE, updated_at = now()
				WHERE product_id = $1 AND id = ANY($2)`,
				productID, deactivate); err != nil {
				return fmt.Errorf("deactivate versions: %w", err)
			}
		}
		for i := range create {
			create[i].ProductID = productID
			if err := q.insertVersion(ctx, &create[i]); err != nil {
				return err
			}
		}

		var err error
		versions, err = q.ListVersionsByProduct(ctx, productID, false)
		return err
	})
	return versions, err
}
