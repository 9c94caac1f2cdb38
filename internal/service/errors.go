package service

import (
	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/repository"
)

// Account errors
var (
	ErrInvalidCredentials = domain.Errorf(domain.EUNAUTHORIZED, "", "Invalid email or password")
	ErrSessionExpired     = domain.Errorf(domain.EUNAUTHORIZED, "", "Session expired, please log in again")
	ErrEmailTaken         = domain.Errorf(domain.ECONFLICT, "", "An account with this email already exists")
	ErrUserNotFound       = domain.Errorf(domain.ENOTFOUND, "", "User not found")
)

// Catalog errors
var (
	ErrBrandNotFound       = domain.Errorf(domain.ENOTFOUND, "", "Brand not found")
	ErrBrandExists         = domain.Errorf(domain.ECONFLICT, "", "A brand with this name or slug already exists")
	ErrBrandInUse          = domain.Errorf(domain.ECONFLICT, "", "Brand is used by one or more products")
	ErrCategoryNotFound    = domain.Errorf(domain.ENOTFOUND, "", "Category not found")
	ErrCategoryExists      = domain.Errorf(domain.ECONFLICT, "", "A category with this slug already exists")
	ErrCategoryHasChildren = domain.Errorf(domain.ECONFLICT, "", "Category has subcategories")
	ErrCategoryInUse       = domain.Errorf(domain.ECONFLICT, "", "Category is used by one or more products")
	ErrCategoryCycle       = domain.Errorf(domain.EINVALID, "", "A category cannot be moved under itself or its descendants")
	ErrAttributeNotFound   = domain.Errorf(domain.ENOTFOUND, "", "Attribute not found")
	ErrAttributeExists     = domain.Errorf(domain.ECONFLICT, "", "An attribute with this name already exists")
	ErrAttributeInUse      = domain.Errorf(domain.ECONFLICT, "", "Attribute is used by one or more products")
	ErrOptionNotFound      = domain.Errorf(domain.ENOTFOUND, "", "Attribute option not found")
	ErrOptionExists        = domain.Errorf(domain.ECONFLICT, "", "An option with this value or slug already exists on this attribute")
	ErrOptionInUse         = domain.Errorf(domain.ECONFLICT, "", "Option is used by one or more product versions")
)

// Product errors
var (
	ErrProductNotFound  = domain.Errorf(domain.ENOTFOUND, "", "Product not found")
	ErrProductExists    = domain.Errorf(domain.ECONFLICT, "", "A product with this slug already exists")
	ErrProductNotActive = domain.Errorf(domain.EINVALID, "", "Product is not available")
	ErrVersionNotFound  = domain.Errorf(domain.ENOTFOUND, "", "Version not found")
	ErrVersionInactive  = domain.Errorf(domain.EINVALID, "", "Version is not available")
	ErrSKUTaken         = domain.Errorf(domain.ECONFLICT, "", "SKU already in use")
	ErrVersionsBusy     = domain.Errorf(domain.ECONFLICT, "", "Versions for this product are being regenerated, try again shortly")
	ErrPromotionMissing = domain.Errorf(domain.ENOTFOUND, "", "Promotion not found")
)

// Request and proposal errors
var (
	ErrRequestNotFound       = domain.Errorf(domain.ENOTFOUND, "", "Request not found")
	ErrRequestNotQuotable    = domain.Errorf(domain.EINVALID, "", "Request no longer accepts proposals")
	ErrRequestNotCancellable = domain.Errorf(domain.EINVALID, "", "Only open or quoted requests can be cancelled")
	ErrRequestNotClosable    = domain.Errorf(domain.EINVALID, "", "Only open or quoted requests can be closed")
	ErrProposalNotFound      = domain.Errorf(domain.ENOTFOUND, "", "Proposal not found")
	ErrProposalNotDraft      = domain.Errorf(domain.EINVALID, "", "Only draft proposals can be changed or sent")
	ErrProposalNotSent       = domain.Errorf(domain.EINVALID, "", "Proposal is not awaiting a response")
	ErrProposalExpired       = domain.Errorf(domain.EGONE, "", "Proposal has expired")
	ErrProposalNotAccepted   = domain.Errorf(domain.EINVALID, "", "Invoices exist only for accepted proposals")
	ErrPDFDisabled           = domain.Errorf(domain.ENOTIMPL, "", "PDF invoices are not enabled")
)

// Wish list errors
var (
	ErrWishListNotFound      = domain.Errorf(domain.ENOTFOUND, "", "Wish list not found")
	ErrWishListItemNotFound  = domain.Errorf(domain.ENOTFOUND, "", "Wish list item not found")
	ErrMemberNotFound        = domain.Errorf(domain.ENOTFOUND, "", "Member not found")
	ErrInvitationNotFound    = domain.Errorf(domain.ENOTFOUND, "", "Invitation not found")
	ErrInvitationExpired     = domain.Errorf(domain.EGONE, "", "Invitation has expired")
	ErrInvitationUsed        = domain.Errorf(domain.ECONFLICT, "", "Invitation was already accepted")
	ErrInvitationWrongEmail  = domain.Errorf(domain.EFORBIDDEN, "", "Invitation was sent to a different email address")
	ErrAlreadyMember         = domain.Errorf(domain.ECONFLICT, "", "User is already a member of this wish list")
	ErrCannotInviteSelf      = domain.Errorf(domain.EINVALID, "", "You cannot invite yourself")
	ErrWishListAccessDenied  = domain.Errorf(domain.EFORBIDDEN, "", "You do not have permission for this wish list")
	ErrWishListOwnerRequired = domain.Errorf(domain.EFORBIDDEN, "", "Only the owner can do this")
)

// Upload errors
var (
	ErrUploadTooLarge      = domain.Errorf(domain.ETOOLARGE, "", "File exceeds the 10 MB limit")
	ErrUploadEmpty         = domain.Errorf(domain.EINVALID, "", "File is empty")
	ErrUploadTypeForbidden = domain.Errorf(domain.EINVALID, "", "File type not allowed")
)

// lookupErr maps a repository error to notFound when no row matched and to
// an internal error otherwise.
func lookupErr(err error, notFound error, op string) error {
	if repository.IsNotFound(err) {
		return domain.WithOp(notFound, op)
	}
	return domain.Internal(err, op, "database lookup failed")
}

// writeErr maps unique violations to conflict and the rest to internal.
func writeErr(err error, conflict error, op string) error {
	if conflict != nil && repository.IsUniqueViolation(err) {
		return domain.WithOp(conflict, op)
	}
	return domain.Internal(err, op, "database write failed")
}
