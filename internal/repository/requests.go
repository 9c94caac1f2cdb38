package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrRequestEnded is returned when a request was cancelled or closed before
// the statement ran.
var ErrRequestEnded = errors.New("request is no longer open")

const requestColumns = `id, requester_id, title, description, quantity, budget, category_id, attachments, status, created_at, updated_at`

func scanRequest(row rowScanner) (domain.Request, error) {
	var r domain.Request
	err := row.Scan(&r.ID, &r.RequesterID, &r.Title, &r.Description, &r.Quantity, &r.Budget, &r.CategoryID,
		&r.Attachments, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func collectRequests(rows pgx.Rows) ([]domain.Request, error) {
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Request, error) {
		return scanRequest(r)
	})
}

func (q *Queries) CreateRequest(ctx context.Context, r *domain.Request) error {
	if r.Attachments == nil {
		r.Attachments = []string{}
	}
	return q.db.QueryRow(ctx, `
		INSERT INTO requests (requester_id, title, description, quantity, budget, category_id, attachments, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		r.RequesterID, r.Title, r.Description, r.Quantity, r.Budget, r.CategoryID, r.Attachments, r.Status).
		Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
}

func (q *Queries) GetRequest(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	r, err := scanRequest(q.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (q *Queries) ListRequestsByRequester(ctx context.Context, requesterID uuid.UUID) ([]domain.Request, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+requestColumns+` FROM requests
		WHERE requester_id = $1
		ORDER BY created_at DESC`, requesterID)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

// ListRequests pages through all requests, optionally by status.
func (q *Queries) ListRequests(ctx context.Context, status *domain.RequestStatus, limit, offset int) ([]domain.Request, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+requestColumns+` FROM requests
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

// endRequest moves an open or quoted request to status. The row lock it
// takes serialises accept, cancel and close on the same request.
func (q *Queries) endRequest(ctx context.Context, id uuid.UUID, status domain.RequestStatus) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE requests SET status = $2, updated_at = now()
		WHERE id = $1 AND status IN ('open', 'quoted')`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestEnded
	}
	return nil
}

// EndRequest cancels or closes a request and withdraws its sent proposals.
// Returns ErrRequestEnded when the request already left open or quoted.
func (s *Store) EndRequest(ctx context.Context, id uuid.UUID, status domain.RequestStatus) error {
	return s.InTx(ctx, func(q *Queries) error {
		if err := q.endRequest(ctx, id, status); err != nil {
			return err
		}
		if _, err := q.db.Exec(ctx, `
			UPDATE proposals SET status = 'withdrawn', responded_at = now(), updated_at = now()
			WHERE request_id = $1 AND status = 'sent'`, id); err != nil {
			return fmt.Errorf("withdraw sent proposals: %w", err)
		}
		return nil
	})
}
