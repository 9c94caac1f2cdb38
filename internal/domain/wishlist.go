package domain

import (
	"time"

	"github.com/google/uuid"
)

// MemberRole is a collaborator's permission on a shared wish list.
type MemberRole string

const (
	MemberViewer MemberRole = "viewer"
	MemberEditor MemberRole = "editor"
)

// Valid reports whether r is a known role.
func (r MemberRole) Valid() bool {
	return r == MemberViewer || r == MemberEditor
}

// InvitationTTL is how long a wish list invitation can be accepted.
const InvitationTTL = 7 * 24 * time.Hour

// WishList is a named, shareable collection of product versions.
type WishList struct {
	ID          uuid.UUID        `json:"id"`
	OwnerID     uuid.UUID        `json:"owner_id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Items       []WishListItem   `json:"items"`
	Members     []WishListMember `json:"members"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// WishListItem is a version with a desired quantity. Product fields are
// read-side joins.
type WishListItem struct {
	ID          uuid.UUID `json:"id"`
	WishListID  uuid.UUID `json:"wish_list_id"`
	VersionID   uuid.UUID `json:"version_id"`
	Quantity    int       `json:"quantity"`
	Note        string    `json:"note"`
	AddedBy     uuid.UUID `json:"added_by"`
	SKU         string    `json:"sku,omitempty"`
	ProductName string    `json:"product_name,omitempty"`
	UnitPrice   int64     `json:"unit_price"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WishListMember is a collaborator other than the owner.
type WishListMember struct {
	WishListID uuid.UUID  `json:"wish_list_id"`
	UserID     uuid.UUID  `json:"user_id"`
	Email      string     `json:"email,omitempty"`
	Name       string     `json:"name,omitempty"`
	Role       MemberRole `json:"role"`
	JoinedAt   time.Time  `json:"joined_at"`
}

// WishListInvitation invites an email address to collaborate.
type WishListInvitation struct {
	ID         uuid.UUID  `json:"id"`
	WishListID uuid.UUID  `json:"wish_list_id"`
	Email      string     `json:"email"`
	Role       MemberRole `json:"role"`
	Token      string     `json:"-"`
	InvitedBy  uuid.UUID  `json:"invited_by"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Expired reports whether the invitation can no longer be accepted at now.
func (i *WishListInvitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// WishListTotals summarises a list at current version prices.
type WishListTotals struct {
	Items    int   `json:"items"`
	Quantity int   `json:"quantity"`
	Total    int64 `json:"total"`
}

// Access is what a user may do with a wish list.
type Access int

const (
	AccessNone Access = iota
	AccessView
	AccessEdit
	AccessOwner
)

// AccessFor resolves userID's access from ownership and membership.
func (w *WishList) AccessFor(userID uuid.UUID) Access {
	if w.OwnerID == userID {
		return AccessOwner
	}
	for _, m := range w.Members {
		if m.UserID != userID {
			continue
		}
		if m.Role == MemberEditor {
			return AccessEdit
		}
		return AccessView
	}
	return AccessNone
}

// Totals sums item quantities and value.
func (w *WishList) Totals() WishListTotals {
	t := WishListTotals{Items: len(w.Items)}
	for _, item := range w.Items {
		t.Quantity += item.Quantity
		t.Total += int64(item.Quantity) * item.UnitPrice
	}
	return t
}
