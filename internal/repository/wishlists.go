package repository

import (
	"context"
	"time"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const wishListColumns = `w.id, w.owner_id, w.name, w.description, w.created_at, w.updated_at`

func scanWishList(row rowScanner) (domain.WishList, error) {
	var w domain.WishList
	err := row.Scan(&w.ID, &w.OwnerID, &w.Name, &w.Description, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

func (q *Queries) CreateWishList(ctx context.Context, w *domain.WishList) error {
	return q.db.QueryRow(ctx, `
		INSERT INTO wish_lists (owner_id, name, description) VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		w.OwnerID, w.Name, w.Description).
		Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
}

func (q *Queries) UpdateWishList(ctx context.Context, w *domain.WishList) error {
	return q.db.QueryRow(ctx, `
		UPDATE wish_lists SET name = $2, description = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		w.ID, w.Name, w.Description).
		Scan(&w.UpdatedAt)
}

func (q *Queries) DeleteWishList(ctx context.Context, id uuid.UUID) error {
	return expectOne(q.db.Exec(ctx, `DELETE FROM wish_lists WHERE id = $1`, id))
}

// GetWishList loads the list with its items (joined to current version
// prices) and members.
func (q *Queries) GetWishList(ctx context.Context, id uuid.UUID) (*domain.WishList, error) {
	w, err := scanWishList(q.db.QueryRow(ctx, `SELECT `+wishListColumns+` FROM wish_lists w WHERE w.id = $1`, id))
	if err != nil {
		return nil, err
	}

	rows, err := q.db.Query(ctx, `
		SELECT i.id, i.wish_list_id, i.version_id, i.quantity, i.note, i.added_by,
			v.sku, p.name, v.price, i.created_at, i.updated_at
		FROM wish_list_items i
		JOIN product_versions v ON v.id = i.version_id
		JOIN products p ON p.id = v.product_id
		WHERE i.wish_list_id = $1
		ORDER BY i.created_at`, id)
	if err != nil {
		return nil, err
	}
	w.Items, err = pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.WishListItem, error) {
		var it domain.WishListItem
		err := r.Scan(&it.ID, &it.WishListID, &it.VersionID, &it.Quantity, &it.Note, &it.AddedBy,
			&it.SKU, &it.ProductName, &it.UnitPrice, &it.CreatedAt, &it.UpdatedAt)
		return it, err
	})
	if err != nil {
		return nil, err
	}

	w.Members, err = q.ListWishListMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListWishListsForUser returns lists the user owns or is a member of,
// without items.
func (q *Queries) ListWishListsForUser(ctx context.Context, userID uuid.UUID) ([]domain.WishList, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+wishListColumns+` FROM wish_lists w
		WHERE w.owner_id = $1
			OR EXISTS (SELECT 1 FROM wish_list_members m WHERE m.wish_list_id = w.id AND m.user_id = $1)
		ORDER BY w.updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.WishList, error) {
		return scanWishList(r)
	})
}

// AddWishListItem inserts the item or, when the version is already on the
// list, adds to its quantity. it is filled with the stored row.
func (q *Queries) AddWishListItem(ctx context.Context, it *domain.WishListItem) error {
	return q.db.QueryRow(ctx, `
		INSERT INTO wish_list_items (wish_list_id, version_id, quantity, note, added_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (wish_list_id, version_id) DO UPDATE
		SET quantity = wish_list_items.quantity + EXCLUDED.quantity,
			note = CASE WHEN EXCLUDED.note = '' THEN wish_list_items.note ELSE EXCLUDED.note END,
			updated_at = now()
		RETURNING id, quantity, note, added_by, created_at, updated_at`,
		it.WishListID, it.VersionID, it.Quantity, it.Note, it.AddedBy).
		Scan(&it.ID, &it.Quantity, &it.Note, &it.AddedBy, &it.CreatedAt, &it.UpdatedAt)
}

func (q *Queries) UpdateWishListItem(ctx context.Context, it *domain.WishListItem) error {
	return q.db.QueryRow(ctx, `
		UPDATE wish_list_items SET quantity = $3, note = $4, updated_at = now()
		WHERE wish_list_id = $1 AND id = $2
		RETURNING version_id, added_by, created_at, updated_at`,
		it.WishListID, it.ID, it.Quantity, it.Note).
		Scan(&it.VersionID, &it.AddedBy, &it.CreatedAt, &it.UpdatedAt)
}

func (q *Queries) DeleteWishListItem(ctx context.Context, wishListID, itemID uuid.UUID) error {
	return expectOne(q.db.Exec(ctx,
		`DELETE FROM wish_list_items WHERE wish_list_id = $1 AND id = $2`, wishListID, itemID))
}

func (q *Queries) ListWishListMembers(ctx context.Context, wishListID uuid.UUID) ([]domain.WishListMember, error) {
	rows, err := q.db.Query(ctx, `
		SELECT m.wish_list_id, m.user_id, u.email, u.name, m.role, m.joined_at
		FROM wish_list_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.wish_list_id = $1
		ORDER BY m.joined_at`, wishListID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.WishListMember, error) {
		var m domain.WishListMember
		err := r.Scan(&m.WishListID, &m.UserID, &m.Email, &m.Name, &m.Role, &m.JoinedAt)
		return m, err
	})
}

func (q *Queries) UpdateWishListMemberRole(ctx context.Context, wishListID, userID uuid.UUID, role domain.MemberRole) error {
	return expectOne(q.db.Exec(ctx,
		`UPDATE wish_list_members SET role = $3 WHERE wish_list_id = $1 AND user_id = $2`, wishListID, userID, role))
}

func (q *Queries) DeleteWishListMember(ctx context.Context, wishListID, userID uuid.UUID) error {
	return expectOne(q.db.Exec(ctx,
		`DELETE FROM wish_list_members WHERE wish_list_id = $1 AND user_id = $2`, wishListID, userID))
}

// =============================================================================
// Invitations
// =============================================================================

const invitationColumns = `id, wish_list_id, email, role, token, invited_by, expires_at, accepted_at, created_at`

func scanInvitation(row rowScanner) (domain.WishListInvitation, error) {
	var i domain.WishListInvitation
	err := row.Scan(&i.ID, &i.WishListID, &i.Email, &i.Role, &i.Token, &i.InvitedBy, &i.ExpiresAt, &i.AcceptedAt, &i.CreatedAt)
	return i, err
}

func (q *Queries) CreateInvitation(ctx context.Context, inv *domain.WishListInvitation) error {
	return q.db.QueryRow(ctx, `
		INSERT INTO wish_list_invitations (wish_list_id, email, role, token, invited_by, expires_at)
		VALUES ($1, lower($2), $3, $4, $5, $6)
		RETURNING id, email, created_at`,
		inv.WishListID, inv.Email, inv.Role, inv.Token, inv.InvitedBy, inv.ExpiresAt).
		Scan(&inv.ID, &inv.Email, &inv.CreatedAt)
}

func (q *Queries) GetInvitationByToken(ctx context.Context, token string) (*domain.WishListInvitation, error) {
	i, err := scanInvitation(q.db.QueryRow(ctx,
		`SELECT `+invitationColumns+` FROM wish_list_invitations WHERE token = $1`, token))
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// ListPendingInvitations returns unaccepted invitations of a list.
func (q *Queries) ListPendingInvitations(ctx context.Context, wishListID uuid.UUID) ([]domain.WishListInvitation, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+invitationColumns+` FROM wish_list_invitations
		WHERE wish_list_id = $1 AND accepted_at IS NULL
		ORDER BY created_at DESC`, wishListID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.WishListInvitation, error) {
		return scanInvitation(r)
	})
}

// AcceptInvitation marks the invitation used and adds the member. A member
// who already exists keeps the stronger of both roles.
func (s *Store) AcceptInvitation(ctx context.Context, invitationID uuid.UUID, member domain.WishListMember, at time.Time) error {
	return s.InTx(ctx, func(q *Queries) error {
		if err := expectOne(q.db.Exec(ctx, `
			UPDATE wish_list_invitations SET accepted_at = $2
			WHERE id = $1 AND accepted_at IS NULL`, invitationID, at)); err != nil {
			return err
		}
		_, err := q.db.Exec(ctx, `
			INSERT INTO wish_list_members (wish_list_id, user_id, role, joined_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (wish_list_id, user_id) DO UPDATE
			SET role = CASE WHEN wish_list_members.role = 'editor' THEN 'editor' ELSE EXCLUDED.role END`,
			member.WishListID, member.UserID, member.Role, at)
		return err
	})
}
