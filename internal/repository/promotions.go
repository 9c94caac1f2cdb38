package repository

import (
	"context"
	"time"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const promotionColumns = `id, name, kind, value, applies_to_all, product_ids, category_ids, brand_ids,
	starts_at, ends_at, active, created_at, updated_at`

func scanPromotion(row rowScanner) (domain.Promotion, error) {
	var p domain.Promotion
	err := row.Scan(&p.ID, &p.Name, &p.Kind, &p.Value, &p.AppliesToAll, &p.ProductIDs, &p.CategoryIDs, &p.BrandIDs,
		&p.StartsAt, &p.EndsAt, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collectPromotions(rows pgx.Rows) ([]domain.Promotion, error) {
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Promotion, error) {
		return scanPromotion(r)
	})
}

func nonNilIDs(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}

func (q *Queries) CreatePromotion(ctx context.Context, p *domain.Promotion) error {
	p.ProductIDs, p.CategoryIDs, p.BrandIDs = nonNilIDs(p.ProductIDs), nonNilIDs(p.CategoryIDs), nonNilIDs(p.BrandIDs)
	return q.db.QueryRow(ctx, `
		INSERT INTO promotions (name, kind, value, applies_to_all, product_ids, category_ids, brand_ids, starts_at, ends_at, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		p.Name, p.Kind, p.Value, p.AppliesToAll, p.ProductIDs, p.CategoryIDs, p.BrandIDs, p.StartsAt, p.EndsAt, p.Active).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (q *Queries) UpdatePromotion(ctx context.Context, p *domain.Promotion) error {
	p.ProductIDs, p.CategoryIDs, p.BrandIDs = nonNilIDs(p.ProductIDs), nonNilIDs(p.CategoryIDs), nonNilIDs(p.BrandIDs)
	return q.db.QueryRow(ctx, `
		UPDATE promotions
		SET name = $2, kind = $3, value = $4, applies_to_all = $5, product_ids = $6, category_ids = $7,
			brand_ids = $8, starts_at = $9, ends_at = $10, active = $11, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Name, p.Kind, p.Value, p.AppliesToAll, p.ProductIDs, p.CategoryIDs, p.BrandIDs, p.StartsAt, p.EndsAt, p.Active).
		Scan(&p.UpdatedAt)
}

func (q *Queries) GetPromotion(ctx context.Context, id uuid.UUID) (*domain.Promotion, error) {
	p, err := scanPromotion(q.db.QueryRow(ctx, `SELECT `+promotionColumns+` FROM promotions WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (q *Queries) DeletePromotion(ctx context.Context, id uuid.UUID) error {
	return expectOne(q.db.Exec(ctx, `DELETE FROM promotions WHERE id = $1`, id))
}

func (q *Queries) ListPromotions(ctx context.Context) ([]domain.Promotion, error) {
	rows, err := q.db.Query(ctx, `SELECT `+promotionColumns+` FROM promotions ORDER BY starts_at DESC, created_at`)
	if err != nil {
		return nil, err
	}
	return collectPromotions(rows)
}

// ListActivePromotions returns promotions running at t, oldest first.
func (q *Queries) ListActivePromotions(ctx context.Context, t time.Time) ([]domain.Promotion, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+promotionColumns+` FROM promotions
		WHERE active AND starts_at <= $1 AND (ends_at IS NULL OR ends_at > $1)
		ORDER BY created_at`, t)
	if err != nil {
		return nil, err
	}
	return collectPromotions(rows)
}
