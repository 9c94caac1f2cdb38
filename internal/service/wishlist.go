package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/marketplace/internal/auth"
	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/jobs"
	"github.com/dukerupert/marketplace/internal/repository"
	"github.com/dukerupert/marketplace/internal/telemetry"
)

// WishListStore is the persistence WishListService needs.
type WishListStore interface {
	jobs.Enqueuer
	CreateWishList(ctx context.Context, w *domain.WishList) error
	UpdateWishList(ctx context.Context, w *domain.WishList) error
	DeleteWishList(ctx context.Context, id uuid.UUID) error
	GetWishList(ctx context.Context, id uuid.UUID) (*domain.WishList, error)
	ListWishListsForUser(ctx context.Context, userID uuid.UUID) ([]domain.WishList, error)
	AddWishListItem(ctx context.Context, it *domain.WishListItem) error
	UpdateWishListItem(ctx context.Context, it *domain.WishListItem) error
	DeleteWishListItem(ctx context.Context, wishListID, itemID uuid.UUID) error
	UpdateWishListMemberRole(ctx context.Context, wishListID, userID uuid.UUID, role domain.MemberRole) error
	DeleteWishListMember(ctx context.Context, wishListID, userID uuid.UUID) error
	CreateInvitation(ctx context.Context, inv *domain.WishListInvitation) error
	GetInvitationByToken(ctx context.Context, token string) (*domain.WishListInvitation, error)
	ListPendingInvitations(ctx context.Context, wishListID uuid.UUID) ([]domain.WishListInvitation, error)
	AcceptInvitation(ctx context.Context, invitationID uuid.UUID, member domain.WishListMember, at time.Time) error
	GetVersion(ctx context.Context, id uuid.UUID) (*domain.Version, error)
}

// WishListInput names a list.
type WishListInput struct {
	Name        string
	Description string
}

// WishListItemInput adds a version to a list.
type WishListItemInput struct {
	VersionID uuid.UUID
	Quantity  int
	Note      string
}

// WishListItemUpdate changes an item. Nil fields are left alone.
type WishListItemUpdate struct {
	Quantity *int
	Note     *string
}

// WishListService manages shared wish lists. Lists a user cannot see are
// reported as not found.
type WishListService interface {
	Create(ctx context.Context, owner *domain.User, in WishListInput) (*domain.WishList, error)
	Update(ctx context.Context, user *domain.User, id uuid.UUID, in WishListInput) (*domain.WishList, error)
	Delete(ctx context.Context, user *domain.User, id uuid.UUID) error

	// ListMine returns owned lists and lists shared with the user.
	ListMine(ctx context.Context, user *domain.User) ([]domain.WishList, error)
	Get(ctx context.Context, user *domain.User, id uuid.UUID) (*domain.WishList, error)
	Totals(ctx context.Context, user *domain.User, id uuid.UUID) (domain.WishListTotals, error)

	// AddItem merges quantities when the version is already listed.
	AddItem(ctx context.Context, user *domain.User, id uuid.UUID, in WishListItemInput) (*domain.WishListItem, error)
	UpdateItem(ctx context.Context, user *domain.User, id, itemID uuid.UUID, in WishListItemUpdate) (*domain.WishListItem, error)
	RemoveItem(ctx context.Context, user *domain.User, id, itemID uuid.UUID) error

	// Invite emails a single-use link valid for domain.InvitationTTL.
	Invite(ctx context.Context, user *domain.User, id uuid.UUID, email string, role domain.MemberRole) (*domain.WishListInvitation, error)
	Invitations(ctx context.Context, user *domain.User, id uuid.UUID) ([]domain.WishListInvitation, error)
	AcceptInvitation(ctx context.Context, user *domain.User, token string) (*domain.WishList, error)

	ChangeMemberRole(ctx context.Context, user *domain.User, id, memberID uuid.UUID, role domain.MemberRole) error

	// RemoveMember lets the owner remove anyone and members remove themselves.
	RemoveMember(ctx context.Context, user *domain.User, id, memberID uuid.UUID) error
}

type wishListService struct {
	store   WishListStore
	baseURL string
	metrics *telemetry.BusinessMetrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewWishListService creates a new WishListService instance
func NewWishListService(store WishListStore, baseURL string, metrics *telemetry.BusinessMetrics, logger *slog.Logger) WishListService {
	if logger == nil {
		logger = slog.Default()
	}
	return &wishListService{
		store:   store,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

func validateWishList(in WishListInput, op string) (WishListInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return in, domain.NewValidationError(op, "name", "is required")
	}
	if len(in.Name) > 120 {
		return in, domain.NewValidationError(op, "name", "must be at most 120 characters")
	}
	return in, nil
}

func (s *wishListService) Create(ctx context.Context, owner *domain.User, in WishListInput) (*domain.WishList, error) {
	const op = "wishlist.create"

	in, err := validateWishList(in, op)
	if err != nil {
		return nil, err
	}
	w := &domain.WishList{
		OwnerID:     owner.ID,
		Name:        in.Name,
		Description: in.Description,
		Items:       []domain.WishListItem{},
		Members:     []domain.WishListMember{},
	}
	if err := s.store.CreateWishList(ctx, w); err != nil {
		return nil, domain.Internal(err, op, "failed to create wish list")
	}
	s.metrics.WishListCreated()
	return w, nil
}

// load fetches the list and checks user has at least need.
func (s *wishListService) load(ctx context.Context, user *domain.User, id uuid.UUID, need domain.Access, op string) (*domain.WishList, error) {
	w, err := s.store.GetWishList(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrWishListNotFound, op)
	}
	access := w.AccessFor(user.ID)
	switch {
	case access == domain.AccessNone:
		return nil, domain.WithOp(ErrWishListNotFound, op)
	case access >= need:
		return w, nil
	case need == domain.AccessOwner:
		return nil, domain.WithOp(ErrWishListOwnerRequired, op)
	default:
		return nil, domain.WithOp(ErrWishListAccessDenied, op)
	}
}

func (s *wishListService) Update(ctx context.Context, user *domain.User, id uuid.UUID, in WishListInput) (*domain.WishList, error) {
	const op = "wishlist.update"

	in, err := validateWishList(in, op)
	if err != nil {
		return nil, err
	}
	w, err := s.load(ctx, user, id, domain.AccessOwner, op)
	if err != nil {
		return nil, err
	}
	w.Name = in.Name
	w.Description = in.Description
	if err := s.store.UpdateWishList(ctx, w); err != nil {
		return nil, lookupErr(err, ErrWishListNotFound, op)
	}
	return w, nil
}

func (s *wishListService) Delete(ctx context.Context, user *domain.User, id uuid.UUID) error {
	const op = "wishlist.delete"

	if _, err := s.load(ctx, user, id, domain.AccessOwner, op); err != nil {
		return err
	}
	if err := s.store.DeleteWishList(ctx, id); err != nil {
		return lookupErr(err, ErrWishListNotFound, op)
	}
	return nil
}

func (s *wishListService) ListMine(ctx context.Context, user *domain.User) ([]domain.WishList, error) {
	lists, err := s.store.ListWishListsForUser(ctx, user.ID)
	if err != nil {
		return nil, domain.Internal(err, "wishlist.list", "failed to list wish lists")
	}
	return lists, nil
}

func (s *wishListService) Get(ctx context.Context, user *domain.User, id uuid.UUID) (*domain.WishList, error) {
	return s.load(ctx, user, id, domain.AccessView, "wishlist.get")
}

func (s *wishListService) Totals(ctx context.Context, user *domain.User, id uuid.UUID) (domain.WishListTotals, error) {
	w, err := s.load(ctx, user, id, domain.AccessView, "wishlist.totals")
	if err != nil {
		return domain.WishListTotals{}, err
	}
	return w.Totals(), nil
}

func (s *wishListService) AddItem(ctx context.Context, user *domain.User, id uuid.UUID, in WishListItemInput) (*domain.WishListItem, error) {
	const op = "wishlist.add_item"

	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 1 {
		return nil, domain.NewValidationError(op, "quantity", "must be at least 1")
	}
	if _, err := s.load(ctx, user, id, domain.AccessEdit, op); err != nil {
		return nil, err
	}

	v, err := s.store.GetVersion(ctx, in.VersionID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.NewValidationError(op, "version_id", "version does not exist")
		}
		return nil, domain.Internal(err, op, "failed to load version")
	}
	if !v.Active {
		return nil, domain.WithOp(ErrVersionInactive, op)
	}

	item := &domain.WishListItem{
		WishListID: id,
		VersionID:  v.ID,
		Quantity:   in.Quantity,
		Note:       strings.TrimSpace(in.Note),
		AddedBy:    user.ID,
		SKU:        v.SKU,
		UnitPrice:  v.Price,
	}
	if err := s.store.AddWishListItem(ctx, item); err != nil {
		return nil, domain.Internal(err, op, "failed to add item")
	}
	return item, nil
}

func (s *wishListService) UpdateItem(ctx context.Context, user *domain.User, id, itemID uuid.UUID, in WishListItemUpdate) (*domain.WishListItem, error) {
	const op = "wishlist.update_item"

	if in.Quantity != nil && *in.Quantity < 1 {
		return nil, domain.NewValidationError(op, "quantity", "must be at least 1")
	}
	w, err := s.load(ctx, user, id, domain.AccessEdit, op)
	if err != nil {
		return nil, err
	}

	var item *domain.WishListItem
	for i := range w.Items {
		if w.Items[i].ID == itemID {
			item = &w.Items[i]
			break
		}
	}
	if item == nil {
		return nil, domain.WithOp(ErrWishListItemNotFound, op)
	}
	if in.Quantity != nil {
		item.Quantity = *in.Quantity
	}
	if in.Note != nil {
		item.Note = strings.TrimSpace(*in.Note)
	}
	if err := s.store.UpdateWishListItem(ctx, item); err != nil {
		return nil, lookupErr(err, ErrWishListItemNotFound, op)
	}
	return item, nil
}

func (s *wishListService) RemoveItem(ctx context.Context, user *domain.User, id, itemID uuid.UUID) error {
	const op = "wishlist.remove_item"

	if _, err := s.load(ctx, user, id, domain.AccessEdit, op); err != nil {
		return err
	}
	if err := s.store.DeleteWishListItem(ctx, id, itemID); err != nil {
		return lookupErr(err, ErrWishListItemNotFound, op)
	}
	return nil
}

func (s *wishListService) Invite(ctx context.Context, user *domain.User, id uuid.UUID, email string, role domain.MemberRole) (*domain.WishListInvitation, error) {
	const op = "wishlist.invite"

	email = NormalizeEmail(email)
	if role == "" {
		role = domain.MemberViewer
	}
	var verr error
	if err := validateEmail(email, op); err != nil {
		verr = domain.MergeValidation(verr, err)
	}
	if !role.Valid() {
		verr = domain.MergeValidation(verr, domain.NewValidationError(op, "role", "must be viewer or editor"))
	}
	if verr != nil {
		return nil, verr
	}

	w, err := s.load(ctx, user, id, domain.AccessOwner, op)
	if err != nil {
		return nil, err
	}
	if email == NormalizeEmail(user.Email) {
		return nil, domain.WithOp(ErrCannotInviteSelf, op)
	}
	for _, m := range w.Members {
		if NormalizeEmail(m.Email) == email {
			return nil, domain.WithOp(ErrAlreadyMember, op)
		}
	}

	token, err := auth.NewToken()
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create invitation")
	}
	inv := &domain.WishListInvitation{
		WishListID: id,
		Email:      email,
		Role:       role,
		Token:      token,
		InvitedBy:  user.ID,
		ExpiresAt:  s.now().Add(domain.InvitationTTL),
	}
	if err := s.store.CreateInvitation(ctx, inv); err != nil {
		return nil, domain.Internal(err, op, "failed to create invitation")
	}
	s.metrics.Invitation("sent")

	err = jobs.EnqueueWishListInvitation(ctx, s.store, jobs.WishListInvitationPayload{
		InvitationID: inv.ID,
		Email:        inv.Email,
		InviterName:  user.Name,
		WishListName: w.Name,
		Role:         string(inv.Role),
		AcceptURL:    s.baseURL + "/api/wishlists/invitations/" + token + "/accept",
		ExpiresAt:    inv.ExpiresAt,
	})
	if err != nil {
		s.logger.Error("failed to enqueue invitation email", "invitation_id", inv.ID, "error", err)
	}
	return inv, nil
}

func (s *wishListService) Invitations(ctx context.Context, user *domain.User, id uuid.UUID) ([]domain.WishListInvitation, error) {
	const op = "wishlist.invitations"

	if _, err := s.load(ctx, user, id, domain.AccessOwner, op); err != nil {
		return nil, err
	}
	list, err := s.store.ListPendingInvitations(ctx, id)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list invitations")
	}
	return list, nil
}

func (s *wishListService) AcceptInvitation(ctx context.Context, user *domain.User, token string) (*domain.WishList, error) {
	const op = "wishlist.accept_invitation"

	inv, err := s.store.GetInvitationByToken(ctx, token)
	if err != nil {
		return nil, lookupErr(err, ErrInvitationNotFound, op)
	}
	now := s.now()
	switch {
	case inv.AcceptedAt != nil:
		s.metrics.Invitation("rejected")
		return nil, domain.WithOp(ErrInvitationUsed, op)
	case inv.Expired(now):
		s.metrics.Invitation("expired")
		return nil, domain.WithOp(ErrInvitationExpired, op)
	case NormalizeEmail(inv.Email) != NormalizeEmail(user.Email):
		s.metrics.Invitation("rejected")
		return nil, domain.WithOp(ErrInvitationWrongEmail, op)
	}

	member := domain.WishListMember{
		WishListID: inv.WishListID,
		UserID:     user.ID,
		Role:       inv.Role,
	}
	if err := s.store.AcceptInvitation(ctx, inv.ID, member, now); err != nil {
		if repository.IsNotFound(err) {
			// Accepted concurrently.
			return nil, domain.WithOp(ErrInvitationUsed, op)
		}
		return nil, domain.Internal(err, op, "failed to accept invitation")
	}
	s.metrics.Invitation("accepted")

	w, err := s.store.GetWishList(ctx, inv.WishListID)
	if err != nil {
		return nil, lookupErr(err, ErrWishListNotFound, op)
	}
	return w, nil
}

func (s *wishListService) ChangeMemberRole(ctx context.Context, user *domain.User, id, memberID uuid.UUID, role domain.MemberRole) error {
	const op = "wishlist.change_role"

	if !role.Valid() {
		return domain.NewValidationError(op, "role", "must be viewer or editor")
	}
	if _, err := s.load(ctx, user, id, domain.AccessOwner, op); err != nil {
		return err
	}
	if err := s.store.UpdateWishListMemberRole(ctx, id, memberID, role); err != nil {
		return lookupErr(err, ErrMemberNotFound, op)
	}
	return nil
}

func (s *wishListService) RemoveMember(ctx context.Context, user *domain.User, id, memberID uuid.UUID) error {
	const op = "wishlist.remove_member"

	need := domain.AccessOwner
	if memberID == user.ID {
		need = domain.AccessView
	}
	if _, err := s.load(ctx, user, id, need, op); err != nil {
		return err
	}
	if err := s.store.DeleteWishListMember(ctx, id, memberID); err != nil {
		return lookupErr(err, ErrMemberNotFound, op)
	}
	return nil
}
