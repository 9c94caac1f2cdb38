package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const proposalColumns = `id, request_id, author_id, note, valid_until, status, sent_at, responded_at, created_at, updated_at`

func scanProposal(row rowScanner) (domain.Proposal, error) {
	var p domain.Proposal
	err := row.Scan(&p.ID, &p.RequestID, &p.AuthorID, &p.Note, &p.ValidUntil, &p.Status,
		&p.SentAt, &p.RespondedAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (q *Queries) listProposalItems(ctx context.Context, proposalIDs []uuid.UUID) (map[uuid.UUID][]domain.ProposalItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT proposal_id, id, version_id, description, quantity, unit_price
		FROM proposal_items
		WHERE proposal_id = ANY($1)
		ORDER BY proposal_id, position`, proposalIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]domain.ProposalItem)
	for rows.Next() {
		var (
			proposalID uuid.UUID
			it         domain.ProposalItem
		)
		if err := rows.Scan(&proposalID, &it.ID, &it.VersionID, &it.Description, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		items[proposalID] = append(items[proposalID], it)
	}
	return items, rows.Err()
}

func (q *Queries) replaceProposalItems(ctx context.Context, p *domain.Proposal) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM proposal_items WHERE proposal_id = $1`, p.ID); err != nil {
		return fmt.Errorf("clear proposal items: %w", err)
	}
	for i := range p.Items {
		it := &p.Items[i]
		err := q.db.QueryRow(ctx, `
			INSERT INTO proposal_items (proposal_id, position, version_id, description, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			p.ID, i, it.VersionID, it.Description, it.Quantity, it.UnitPrice).
			Scan(&it.ID)
		if err != nil {
			return fmt.Errorf("insert proposal item: %w", err)
		}
	}
	return nil
}

// CreateProposal inserts p and its items in one transaction.
func (s *Store) CreateProposal(ctx context.Context, p *domain.Proposal) error {
	return s.InTx(ctx, func(q *Queries) error {
		err := q.db.QueryRow(ctx, `
			INSERT INTO proposals (request_id, author_id, note, valid_until, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at, updated_at`,
			p.RequestID, p.AuthorID, p.Note, p.ValidUntil, p.Status).
			Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return err
		}
		return q.replaceProposalItems(ctx, p)
	})
}

// UpdateProposal rewrites the note, validity and items of a draft.
func (s *Store) UpdateProposal(ctx context.Context, p *domain.Proposal) error {
	return s.InTx(ctx, func(q *Queries) error {
		err := q.db.QueryRow(ctx, `
			UPDATE proposals SET note = $2, valid_until = $3, updated_at = now()
			WHERE id = $1 AND status = 'draft'
			RETURNING updated_at`,
			p.ID, p.Note, p.ValidUntil).
			Scan(&p.UpdatedAt)
		if err != nil {
			return err
		}
		return q.replaceProposalItems(ctx, p)
	})
}

func (q *Queries) GetProposal(ctx context.Context, id uuid.UUID) (*domain.Proposal, error) {
	p, err := scanProposal(q.db.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	items, err := q.listProposalItems(ctx, []uuid.UUID{p.ID})
	if err != nil {
		return nil, err
	}
	p.Items = items[p.ID]
	return &p, nil
}

// ListProposalsByRequest returns the request's proposals, newest first.
// When onlyVisible is set drafts are left out.
func (q *Queries) ListProposalsByRequest(ctx context.Context, requestID uuid.UUID, onlyVisible bool) ([]domain.Proposal, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+proposalColumns+` FROM proposals
		WHERE request_id = $1 AND (status <> 'draft' OR NOT $2)
		ORDER BY created_at DESC`, requestID, onlyVisible)
	if err != nil {
		return nil, err
	}
	proposals, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Proposal, error) {
		return scanProposal(r)
	})
	if err != nil || len(proposals) == 0 {
		return proposals, err
	}

	ids := make([]uuid.UUID, len(proposals))
	for i := range proposals {
		ids[i] = proposals[i].ID
	}
	items, err := q.listProposalItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range proposals {
		proposals[i].Items = items[proposals[i].ID]
	}
	return proposals, nil
}

// SendProposal moves a draft to sent and an open request to quoted.
// Returns ErrRequestEnded when the request was cancelled or closed.
func (s *Store) SendProposal(ctx context.Context, id, requestID uuid.UUID, at time.Time) error {
	return s.InTx(ctx, func(q *Queries) error {
		if err := expectOne(q.db.Exec(ctx, `
			UPDATE proposals SET status = 'sent', sent_at = $2, updated_at = now()
			WHERE id = $1 AND status = 'draft'`, id, at)); err != nil {
			return err
		}
		tag, err := q.db.Exec(ctx, `
			UPDATE requests SET status = 'quoted', updated_at = now()
			WHERE id = $1 AND status IN ('open', 'quoted')`, requestID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrRequestEnded
		}
		return nil
	})
}

// SetProposalStatus moves a proposal out of from into to. Returns
// pgx.ErrNoRows when the proposal is not in from.
func (q *Queries) SetProposalStatus(ctx context.Context, id uuid.UUID, from, to domain.ProposalStatus, at time.Time) error {
	return expectOne(q.db.Exec(ctx, `
		UPDATE proposals SET status = $3, responded_at = $4, updated_at = now()
		WHERE id = $1 AND status = $2`, id, from, to, at))
}

// AcceptProposal closes the request, accepts a sent proposal and rejects the
// request's other sent proposals in one transaction. Returns ErrRequestEnded
// when the request is no longer open or quoted.
func (s *Store) AcceptProposal(ctx context.Context, id, requestID uuid.UUID, at time.Time) error {
	return s.InTx(ctx, func(q *Queries) error {
		if err := q.endRequest(ctx, requestID, domain.RequestClosed); err != nil {
			return err
		}
		if err := q.SetProposalStatus(ctx, id, domain.ProposalSent, domain.ProposalAccepted, at); err != nil {
			return err
		}
		if _, err := q.db.Exec(ctx, `
			UPDATE proposals SET status = 'rejected', responded_at = $3, updated_at = now()
			WHERE request_id = $1 AND id <> $2 AND status = 'sent'`, requestID, id, at); err != nil {
			return fmt.Errorf("reject sibling proposals: %w", err)
		}
		return nil
	})
}
