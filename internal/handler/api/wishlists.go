package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/handler"
	"github.com/dukerupert/marketplace/internal/middleware"
	"github.com/dukerupert/marketplace/internal/service"
)

// WishListHandler serves wish lists, their items and their members. Every
// route requires a signed-in user.
type WishListHandler struct {
	lists service.WishListService
}

// NewWishListHandler creates a new wish list handler
func NewWishListHandler(lists service.WishListService) *WishListHandler {
	return &WishListHandler{lists: lists}
}

type wishListRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
}

type wishListItemRequest struct {
	VersionID uuid.UUID `json:"version_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=0,lte=10000"`
	Note      string    `json:"note" validate:"max=500"`
}

type wishListItemPatch struct {
	Quantity *int    `json:"quantity" validate:"omitempty,gte=1,lte=10000"`
	Note     *string `json:"note" validate:"omitempty,max=500"`
}

type invitationRequest struct {
	Email string            `json:"email" validate:"required,email"`
	Role  domain.MemberRole `json:"role" validate:"omitempty,oneof=viewer editor"`
}

type memberRoleRequest struct {
	Role domain.MemberRole `json:"role" validate:"required,oneof=viewer editor"`
}

// List handles GET /api/wishlists
func (h *WishListHandler) List(w http.ResponseWriter, r *http.Request) {
	lists, err := h.lists.ListMine(r.Context(), middleware.GetUserFromContext(r.Context()))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if lists == nil {
		lists = []domain.WishList{}
	}
	handler.JSON(w, http.StatusOK, lists)
}

// Create handles POST /api/wishlists
func (h *WishListHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req wishListRequest
	if err := handler.Decode(r, &req, "wishlist.create"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	list, err := h.lists.Create(r.Context(), middleware.GetUserFromContext(r.Context()), service.WishListInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusCreated, list)
}

// Get handles GET /api/wishlists/{id}
func (h *WishListHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	list, err := h.lists.Get(r.Context(), middleware.GetUserFromContext(r.Context()), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, list)
}

// Update handles PUT /api/wishlists/{id}
func (h *WishListHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req wishListRequest
	if err := handler.Decode(r, &req, "wishlist.update"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	list, err := h.lists.Update(r.Context(), middleware.GetUserFromContext(r.Context()), id, service.WishListInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, list)
}

// Delete handles DELETE /api/wishlists/{id}
func (h *WishListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.lists.Delete(r.Context(), middleware.GetUserFromContext(r.Context()), id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.NoContent(w)
}

// Totals handles GET /api/wishlists/{id}/totals
func (h *WishListHandler) Totals(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	totals, err := h.lists.Totals(r.Context(), middleware.GetUserFromContext(r.Context()), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, totals)
}

// AddItem handles POST /api/wishlists/{id}/items
func (h *WishListHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req wishListItemRequest
	if err := handler.Decode(r, &req, "wishlist.add_item"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	item, err := h.lists.AddItem(r.Context(), middleware.GetUserFromContext(r.Context()), id, service.WishListItemInput{
		VersionID: req.VersionID,
		Quantity:  req.Quantity,
		Note:      req.Note,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusCreated, item)
}

// UpdateItem handles PATCH /api/wishlists/{id}/items/{itemID}
func (h *WishListHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	itemID, err := handler.PathUUID(r, "itemID")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req wishListItemPatch
	if err := handler.Decode(r, &req, "wishlist.update_item"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	item, err := h.lists.UpdateItem(r.Context(), middleware.GetUserFromContext(r.Context()), id, itemID, service.WishListItemUpdate{
		Quantity: req.Quantity,
		Note:     req.Note,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, item)
}

// RemoveItem handles DELETE /api/wishlists/{id}/items/{itemID}
func (h *WishListHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	itemID, err := handler.PathUUID(r, "itemID")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.lists.RemoveItem(r.Context(), middleware.GetUserFromContext(r.Context()), id, itemID); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.NoContent(w)
}

// Invite handles POST /api/wishlists/{id}/invitations
func (h *WishListHandler) Invite(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req invitationRequest
	if err := handler.Decode(r, &req, "wishlist.invite"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	inv, err := h.lists.Invite(r.Context(), middleware.GetUserFromContext(r.Context()), id, req.Email, req.Role)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusCreated, inv)
}

// Invitations handles GET /api/wishlists/{id}/invitations
func (h *WishListHandler) Invitations(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	invs, err := h.lists.Invitations(r.Context(), middleware.GetUserFromContext(r.Context()), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if invs == nil {
		invs = []domain.WishListInvitation{}
	}
	handler.JSON(w, http.StatusOK, invs)
}

// AcceptInvitation handles POST /api/wishlists/invitations/{token}/accept
func (h *WishListHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	list, err := h.lists.AcceptInvitation(r.Context(), middleware.GetUserFromContext(r.Context()), r.PathValue("token"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, list)
}

// ChangeMemberRole handles PUT /api/wishlists/{id}/members/{userID}
func (h *WishListHandler) ChangeMemberRole(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	memberID, err := handler.PathUUID(r, "userID")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	var req memberRoleRequest
	if err := handler.Decode(r, &req, "wishlist.change_role"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.lists.ChangeMemberRole(r.Context(), middleware.GetUserFromContext(r.Context()), id, memberID, req.Role); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.NoContent(w)
}

// RemoveMember handles DELETE /api/wishlists/{id}/members/{userID}. Members
// may remove themselves.
func (h *WishListHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	memberID, err := handler.PathUUID(r, "userID")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.lists.RemoveMember(r.Context(), middleware.GetUserFromContext(r.Context()), id, memberID); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.NoContent(w)
}
