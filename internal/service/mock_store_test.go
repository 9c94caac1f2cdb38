package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/repository"
)

// mockStore implements every service store for testing. Unset lookups
// return pgx.ErrNoRows, unset writes succeed.
type mockStore struct {
	enqueued []repository.EnqueueJobParams

	CreateUserFunc                  func(ctx context.Context, arg repository.CreateUserParams) (*domain.User, error)
	GetUserByIDFunc                 func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetUserByEmailFunc              func(ctx context.Context, email string) (*domain.User, error)
	CreateSessionFunc               func(ctx context.Context, s domain.Session) error
	GetSessionFunc                  func(ctx context.Context, token string) (*domain.Session, error)
	DeleteSessionFunc               func(ctx context.Context, token string) error
	ListBrandsFunc                  func(ctx context.Context, activeOnly bool) ([]domain.Brand, error)
	GetBrandFunc                    func(ctx context.Context, id uuid.UUID) (*domain.Brand, error)
	CreateBrandFunc                 func(ctx context.Context, b *domain.Brand) error
	UpdateBrandFunc                 func(ctx context.Context, b *domain.Brand) error
	DeleteBrandFunc                 func(ctx context.Context, id uuid.UUID) error
	CountProductsByBrandFunc        func(ctx context.Context, id uuid.UUID) (int, error)
	ListCategoriesFunc              func(ctx context.Context) ([]domain.Category, error)
	GetCategoryFunc                 func(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	CreateCategoryFunc              func(ctx context.Context, c *domain.Category) error
	UpdateCategoryFunc              func(ctx context.Context, c *domain.Category) error
	DeleteCategoryFunc              func(ctx context.Context, id uuid.UUID) error
	CountChildCategoriesFunc        func(ctx context.Context, id uuid.UUID) (int, error)
	CountProductsByCategoryFunc     func(ctx context.Context, id uuid.UUID) (int, error)
	CategoryAncestorsFunc           func(ctx context.Context, id uuid.UUID) ([]domain.Category, error)
	CategoryDescendantIDsFunc       func(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
	ListAttributesFunc              func(ctx context.Context) ([]domain.Attribute, error)
	GetAttributeFunc                func(ctx context.Context, id uuid.UUID) (*domain.Attribute, error)
	CreateAttributeFunc             func(ctx context.Context, a *domain.Attribute) error
	UpdateAttributeFunc             func(ctx context.Context, a *domain.Attribute) error
	DeleteAttributeFunc             func(ctx context.Context, id uuid.UUID) error
	AddAttributeOptionFunc          func(ctx context.Context, o *domain.AttributeOption) error
	UpdateAttributeOptionFunc       func(ctx context.Context, o *domain.AttributeOption) error
	DeleteAttributeOptionFunc       func(ctx context.Context, attributeID, optionID uuid.UUID) error
	CountOptionUsageFunc            func(ctx context.Context, optionID uuid.UUID) (int, error)
	CountProductsUsingAttributeFunc func(ctx context.Context, attributeID uuid.UUID) (int, error)
	CreatePromotionFunc             func(ctx context.Context, p *domain.Promotion) error
	UpdatePromotionFunc             func(ctx context.Context, p *domain.Promotion) error
	GetPromotionFunc                func(ctx context.Context, id uuid.UUID) (*domain.Promotion, error)
	DeletePromotionFunc             func(ctx context.Context, id uuid.UUID) error
	ListPromotionsFunc              func(ctx context.Context) ([]domain.Promotion, error)
	ListActivePromotionsFunc        func(ctx context.Context, t time.Time) ([]domain.Promotion, error)
	GetProductByIDFunc              func(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetAttributesByIDsFunc          func(ctx context.Context, ids []uuid.UUID) ([]domain.Attribute, error)
	ListVersionsByProductFunc       func(ctx context.Context, productID uuid.UUID, activeOnly bool) ([]domain.Version, error)
	GetVersionFunc                  func(ctx context.Context, id uuid.UUID) (*domain.Version, error)
	UpdateVersionFunc               func(ctx context.Context, v *domain.Version) error
	ApplyVersionPlanFunc            func(ctx context.Context, productID uuid.UUID, create []domain.Version, keep, deactivate []uuid.UUID) ([]domain.Version, error)
	UpdateProductPriceRangeFunc     func(ctx context.Context, id uuid.UUID, r *domain.PriceRange) error
	CreateProductWithVersionsFunc   func(ctx context.Context, p *domain.Product, versions []domain.Version, r *domain.PriceRange) error
	UpdateProductFunc               func(ctx context.Context, p *domain.Product) error
	SetProductStatusFunc            func(ctx context.Context, id uuid.UUID, status domain.ProductStatus) error
	GetProductBySlugFunc            func(ctx context.Context, slug string) (*domain.Product, error)
	ListProductsFunc                func(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int, error)
	CreateRequestFunc               func(ctx context.Context, r *domain.Request) error
	GetRequestFunc                  func(ctx context.Context, id uuid.UUID) (*domain.Request, error)
	ListRequestsByRequesterFunc     func(ctx context.Context, requesterID uuid.UUID) ([]domain.Request, error)
	ListRequestsFunc                func(ctx context.Context, status *domain.RequestStatus, limit, offset int) ([]domain.Request, error)
	EndRequestFunc                  func(ctx context.Context, id uuid.UUID, status domain.RequestStatus) error
	CreateProposalFunc              func(ctx context.Context, p *domain.Proposal) error
	UpdateProposalFunc              func(ctx context.Context, p *domain.Proposal) error
	GetProposalFunc                 func(ctx context.Context, id uuid.UUID) (*domain.Proposal, error)
	ListProposalsByRequestFunc      func(ctx context.Context, requestID uuid.UUID, onlyVisible bool) ([]domain.Proposal, error)
	SendProposalFunc                func(ctx context.Context, id, requestID uuid.UUID, at time.Time) error
	SetProposalStatusFunc           func(ctx context.Context, id uuid.UUID, from, to domain.ProposalStatus, at time.Time) error
	AcceptProposalFunc              func(ctx context.Context, id, requestID uuid.UUID, at time.Time) error
	CreateWishListFunc              func(ctx context.Context, w *domain.WishList) error
	UpdateWishListFunc              func(ctx context.Context, w *domain.WishList) error
	DeleteWishListFunc              func(ctx context.Context, id uuid.UUID) error
	GetWishListFunc                 func(ctx context.Context, id uuid.UUID) (*domain.WishList, error)
	ListWishListsForUserFunc        func(ctx context.Context, userID uuid.UUID) ([]domain.WishList, error)
	AddWishListItemFunc             func(ctx context.Context, it *domain.WishListItem) error
	UpdateWishListItemFunc          func(ctx context.Context, it *domain.WishListItem) error
	DeleteWishListItemFunc          func(ctx context.Context, wishListID, itemID uuid.UUID) error
	UpdateWishListMemberRoleFunc    func(ctx context.Context, wishListID, userID uuid.UUID, role domain.MemberRole) error
	DeleteWishListMemberFunc        func(ctx context.Context, wishListID, userID uuid.UUID) error
	CreateInvitationFunc            func(ctx context.Context, inv *domain.WishListInvitation) error
	GetInvitationByTokenFunc        func(ctx context.Context, token string) (*domain.WishListInvitation, error)
	ListPendingInvitationsFunc      func(ctx context.Context, wishListID uuid.UUID) ([]domain.WishListInvitation, error)
	AcceptInvitationFunc            func(ctx context.Context, invitationID uuid.UUID, member domain.WishListMember, at time.Time) error
}

func (m *mockStore) EnqueueJob(ctx context.Context, arg repository.EnqueueJobParams) (*domain.Job, error) {
	m.enqueued = append(m.enqueued, arg)
	return &domain.Job{ID: uuid.New(), Type: arg.Type, Payload: json.RawMessage(arg.Payload)}, nil
}

func (m *mockStore) CreateUser(ctx context.Context, arg repository.CreateUserParams) (*domain.User, error) {
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(ctx, arg)
	}
	return nil, nil
}

func (m *mockStore) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.GetUserByIDFunc != nil {
		return m.GetUserByIDFunc(ctx, id)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetUserByEmailFunc != nil {
		return m.GetUserByEmailFunc(ctx, email)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) CreateSession(ctx context.Context, s domain.Session) error {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, s)
	}
	return nil
}

func (m *mockStore) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, token)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) DeleteSession(ctx context.Context, token string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, token)
	}
	return nil
}

func (m *mockStore) ListBrands(ctx context.Context, activeOnly bool) ([]domain.Brand, error) {
	if m.ListBrandsFunc != nil {
		return m.ListBrandsFunc(ctx, activeOnly)
	}
	return nil, nil
}

func (m *mockStore) GetBrand(ctx context.Context, id uuid.UUID) (*domain.Brand, error) {
	if m.GetBrandFunc != nil {
		return m.GetBrandFunc(ctx, id)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) CreateBrand(ctx context.Context, b *domain.Brand) error {
	if m.CreateBrandFunc != nil {
		return m.CreateBrandFunc(ctx, b)
	}
	return nil
}

func (m *mockStore) UpdateBrand(ctx context.Context, b *domain.Brand) error {
	if m.UpdateBrandFunc != nil {
		return m.UpdateBrandFunc(ctx, b)
	}
	return nil
}

func (m *mockStore) DeleteBrand(ctx context.Context, id uuid.UUID) error {
	if m.DeleteBrandFunc != nil {
		return m.DeleteBrandFunc(ctx, id)
	}
	return nil
}

func (m *mockStore) CountProductsByBrand(ctx context.Context, id uuid.UUID) (int, error) {
	if m.CountProductsByBrandFunc != nil {
		return m.CountProductsByBrandFunc(ctx, id)
	}
	return 0, nil
}

func (m *mockStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	if m.ListCategoriesFunc != nil {
		return m.ListCategoriesFunc(ctx)
	}
	return nil, nil
}

func (m *mockStore) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	if m.GetCategoryFunc != nil {
		return m.GetCategoryFunc(ctx, id)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) CreateCategory(ctx context.Context, c *domain.Category) error {
	if m.CreateCategoryFunc != nil {
		return m.CreateCategoryFunc(ctx, c)
	}
	return nil
}

func (m *mockStore) UpdateCategory(ctx context.Context, c *domain.Category) error {
	if m.UpdateCategoryFunc != nil {
		return m.UpdateCategoryFunc(ctx, c)
	}
	return nil
}

func (m *mockStore) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if m.DeleteCategoryFunc != nil {
		return m.DeleteCategoryFunc(ctx, id)
	}
	return nil
}

func (m *mockStore) CountChildCategories(ctx context.Context, id uuid.UUID) (int, error) {
	if m.CountChildCategoriesFunc != nil {
		return m.CountChildCategoriesFunc(ctx, id)
	}
	return 0, nil
}

func (m *mockStore) CountProductsByCategory(ctx context.Context, id uuid.UUID) (int, error) {
	if m.CountProductsByCategoryFunc != nil {
		return m.CountProductsByCategoryFunc(ctx, id)
	}
	return 0, nil
}

func (m *mockStore) CategoryAncestors(ctx context.Context, id uuid.UUID) ([]domain.Category, error) {
	if m.CategoryAncestorsFunc != nil {
		return m.CategoryAncestorsFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockStore) CategoryDescendantIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	if m.CategoryDescendantIDsFunc != nil {
		return m.CategoryDescendantIDsFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockStore) ListAttributes(ctx context.Context) ([]domain.Attribute, error) {
	if m.ListAttributesFunc != nil {
		return m.ListAttributesFunc(ctx)
	}
	return nil, nil
}

func (m *mockStore) GetAttribute(ctx context.Context, id uuid.UUID) (*domain.Attribute, error) {
	if m.GetAttributeFunc != nil {
		return m.GetAttributeFunc(ctx, id)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) CreateAttribute(ctx context.Context, a *domain.Attribute) error {
	if m.CreateAttributeFunc != nil {
		return m.CreateAttributeFunc(ctx, a)
	}
	return nil
}

func (m *mockStore) UpdateAttribute(ctx context.Context, a *domain.Attribute) error {
	if m.UpdateAttributeFunc != nil {
		return m.UpdateAttributeFunc(ctx, a)
	}
	return nil
}

func (m *mockStore) DeleteAttribute(ctx context.Context, id uuid.UUID) error {
	if m.DeleteAttributeFunc != nil {
		return m.DeleteAttributeFunc(ctx, id)
	}
	return nil
}

func (m *mockStore) AddAttributeOption(ctx context.Context, o *domain.AttributeOption) error {
	if m.AddAttributeOptionFunc != nil {
		return m.AddAttributeOptionFunc(ctx, o)
	}
	return nil
}

func (m *mockStore) UpdateAttributeOption(ctx context.Context, o *domain.AttributeOption) error {
	if m.UpdateAttributeOptionFunc != nil {
		return m.UpdateAttributeOptionFunc(ctx, o)
	}
	return nil
}

func (m *mockStore) DeleteAttributeOption(ctx context.Context, attributeID, optionID uuid.UUID) error {
	if m.DeleteAttributeOptionFunc != nil {
		return m.DeleteAttributeOptionFunc(ctx, attributeID, optionID)
	}
	return nil
}

func (m *mockStore) CountOptionUsage(ctx context.Context, optionID uuid.UUID) (int, error) {
	if m.CountOptionUsageFunc != nil {
		return m.CountOptionUsageFunc(ctx, optionID)
	}
	return 0, nil
}

func (m *mockStore) CountProductsUsingAttribute(ctx context.Context, attributeID uuid.UUID) (int, error) {
	if m.CountProductsUsingAttributeFunc != nil {
		return m.CountProductsUsingAttributeFunc(ctx, attributeID)
	}
	return 0, nil
}

func (m *mockStore) CreatePromotion(ctx context.Context, p *domain.Promotion) error {
	if m.CreatePromotionFunc != nil {
		return m.CreatePromotionFunc(ctx, p)
	}
	return nil
}

func (m *mockStore) UpdatePromotion(ctx context.Context, p *domain.Promotion) error {
	if m.UpdatePromotionFunc != nil {
		return m.UpdatePromotionFunc(ctx, p)
	}
	return nil
}

func (m *mockStore) GetPromotion(ctx context.Context, id uuid.UUID) (*domain.Promotion, error) {
	if m.GetPromotionFunc != nil {
		return m.GetPromotionFunc(ctx, id)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) DeletePromotion(ctx context.Context, id uuid.UUID) error {
	if m.DeletePromotionFunc != nil {
		return m.DeletePromotionFunc(ctx, id)
	}
	return nil
}

func (m *mockStore) ListPromotions(ctx context.Context) ([]domain.Promotion, error) {
	if m.ListPromotionsFunc != nil {
		return m.ListPromotionsFunc(ctx)
	}
	return nil, nil
}

func (m *mockStore) ListActivePromotions(ctx context.Context, t time.Time) ([]domain.Promotion, error) {
	if m.ListActivePromotionsFunc != nil {
		return m.ListActivePromotionsFunc(ctx, t)
	}
	return nil, nil
}

func (m *mockStore) GetProductByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	if m.GetProductByIDFunc != nil {
		return m.GetProductByIDFunc(ctx, id)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) GetAttributesByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Attribute, error) {
	if m.GetAttributesByIDsFunc != nil {
		return m.GetAttributesByIDsFunc(ctx, ids)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) ListVersionsByProduct(ctx context.Context, productID uuid.UUID, activeOnly bool) ([]domain.Version, error) {
	if m.ListVersionsByProductFunc != nil {
		return m.ListVersionsByProductFunc(ctx, productID, activeOnly)
	}
	return nil, nil
}

func (m *mockStore) GetVersion(ctx context.Context, id uuid.UUID) (*domain.Version, error) {
	if m.GetVersionFunc != nil {
		return m.GetVersionFunc(ctx, id)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) UpdateVersion(ctx context.Context, v *domain.Version) error {
	if m.UpdateVersionFunc != nil {
		return m.UpdateVersionFunc(ctx, v)
	}
	return nil
}

func (m *mockStore) ApplyVersionPlan(ctx context.Context, productID uuid.UUID, create []domain.Version, keep, deactivate []uuid.UUID) ([]domain.Version, error) {
	if m.ApplyVersionPlanFunc != nil {
		return m.ApplyVersionPlanFunc(ctx, productID, create, keep, deactivate)
	}
	return nil, nil
}

func (m *mockStore) UpdateProductPriceRange(ctx context.Context, id uuid.UUID, r *domain.PriceRange) error {
	if m.UpdateProductPriceRangeFunc != nil {
		return m.UpdateProductPriceRangeFunc(ctx, id, r)
	}
	return nil
}

func (m *mockStore) CreateProductWithVersions(ctx context.Context, p *domain.Product, versions []domain.Version, r *domain.PriceRange) error {
	if m.CreateProductWithVersionsFunc != nil {
		return m.CreateProductWithVersionsFunc(ctx, p, versions, r)
	}
	return nil
}

func (m *mockStore) UpdateProduct(ctx context.Context, p *domain.Product) error {
	if m.UpdateProductFunc != nil {
		return m.UpdateProductFunc(ctx, p)
	}
	return nil
}

func (m *mockStore) SetProductStatus(ctx context.Context, id uuid.UUID, status domain.ProductStatus) error {
	if m.SetProductStatusFunc != nil {
		return m.SetProductStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockStore) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	if m.GetProductBySlugFunc != nil {
		return m.GetProductBySlugFunc(ctx, slug)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) ListProducts(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int, error) {
	if m.ListProductsFunc != nil {
		return m.ListProductsFunc(ctx, f)
	}
	return nil, 0, nil
}

func (m *mockStore) CreateRequest(ctx context.Context, r *domain.Request) error {
	if m.CreateRequestFunc != nil {
		return m.CreateRequestFunc(ctx, r)
	}
	return nil
}

func (m *mockStore) GetRequest(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	if m.GetRequestFunc != nil {
		return m.GetRequestFunc(ctx, id)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) ListRequestsByRequester(ctx context.Context, requesterID uuid.UUID) ([]domain.Request, error) {
	if m.ListRequestsByRequesterFunc != nil {
		return m.ListRequestsByRequesterFunc(ctx, requesterID)
	}
	return nil, nil
}

func (m *mockStore) ListRequests(ctx context.Context, status *domain.RequestStatus, limit, offset int) ([]domain.Request, error) {
	if m.ListRequestsFunc != nil {
		return m.ListRequestsFunc(ctx, status, limit, offset)
	}
	return nil, nil
}

func (m *mockStore) EndRequest(ctx context.Context, id uuid.UUID, status domain.RequestStatus) error {
	if m.EndRequestFunc != nil {
		return m.EndRequestFunc(ctx, id, status)
	}
	return nil
}

func (m *mockStore) CreateProposal(ctx context.Context, p *domain.Proposal) error {
	if m.CreateProposalFunc != nil {
		return m.CreateProposalFunc(ctx, p)
	}
	return nil
}

func (m *mockStore) UpdateProposal(ctx context.Context, p *domain.Proposal) error {
	if m.UpdateProposalFunc != nil {
		return m.UpdateProposalFunc(ctx, p)
	}
	return nil
}

func (m *mockStore) GetProposal(ctx context.Context, id uuid.UUID) (*domain.Proposal, error) {
	if m.GetProposalFunc != nil {
		return m.GetProposalFunc(ctx, id)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) ListProposalsByRequest(ctx context.Context, requestID uuid.UUID, onlyVisible bool) ([]domain.Proposal, error) {
	if m.ListProposalsByRequestFunc != nil {
		return m.ListProposalsByRequestFunc(ctx, requestID, onlyVisible)
	}
	return nil, nil
}

func (m *mockStore) SendProposal(ctx context.Context, id, requestID uuid.UUID, at time.Time) error {
	if m.SendProposalFunc != nil {
		return m.SendProposalFunc(ctx, id, requestID, at)
	}
	return nil
}

func (m *mockStore) SetProposalStatus(ctx context.Context, id uuid.UUID, from, to domain.ProposalStatus, at time.Time) error {
	if m.SetProposalStatusFunc != nil {
		return m.SetProposalStatusFunc(ctx, id, from, to, at)
	}
	return nil
}

func (m *mockStore) AcceptProposal(ctx context.Context, id, requestID uuid.UUID, at time.Time) error {
	if m.AcceptProposalFunc != nil {
		return m.AcceptProposalFunc(ctx, id, requestID, at)
	}
	return nil
}

func (m *mockStore) CreateWishList(ctx context.Context, w *domain.WishList) error {
	if m.CreateWishListFunc != nil {
		return m.CreateWishListFunc(ctx, w)
	}
	return nil
}

func (m *mockStore) UpdateWishList(ctx context.Context, w *domain.WishList) error {
	if m.UpdateWishListFunc != nil {
		return m.UpdateWishListFunc(ctx, w)
	}
	return nil
}

func (m *mockStore) DeleteWishList(ctx context.Context, id uuid.UUID) error {
	if m.DeleteWishListFunc != nil {
		return m.DeleteWishListFunc(ctx, id)
	}
	return nil
}

func (m *mockStore) GetWishList(ctx context.Context, id uuid.UUID) (*domain.WishList, error) {
	if m.GetWishListFunc != nil {
		return m.GetWishListFunc(ctx, id)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) ListWishListsForUser(ctx context.Context, userID uuid.UUID) ([]domain.WishList, error) {
	if m.ListWishListsForUserFunc != nil {
		return m.ListWishListsForUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockStore) AddWishListItem(ctx context.Context, it *domain.WishListItem) error {
	if m.AddWishListItemFunc != nil {
		return m.AddWishListItemFunc(ctx, it)
	}
	return nil
}

func (m *mockStore) UpdateWishListItem(ctx context.Context, it *domain.WishListItem) error {
	if m.UpdateWishListItemFunc != nil {
		return m.UpdateWishListItemFunc(ctx, it)
	}
	return nil
}

func (m *mockStore) DeleteWishListItem(ctx context.Context, wishListID, itemID uuid.UUID) error {
	if m.DeleteWishListItemFunc != nil {
		return m.DeleteWishListItemFunc(ctx, wishListID, itemID)
	}
	return nil
}

func (m *mockStore) UpdateWishListMemberRole(ctx context.Context, wishListID, userID uuid.UUID, role domain.MemberRole) error {
	if m.UpdateWishListMemberRoleFunc != nil {
		return m.UpdateWishListMemberRoleFunc(ctx, wishListID, userID, role)
	}
	return nil
}

func (m *mockStore) DeleteWishListMember(ctx context.Context, wishListID, userID uuid.UUID) error {
	if m.DeleteWishListMemberFunc != nil {
		return m.DeleteWishListMemberFunc(ctx, wishListID, userID)
	}
	return nil
}

func (m *mockStore) CreateInvitation(ctx context.Context, inv *domain.WishListInvitation) error {
	if m.CreateInvitationFunc != nil {
		return m.CreateInvitationFunc(ctx, inv)
	}
	return nil
}

func (m *mockStore) GetInvitationByToken(ctx context.Context, token string) (*domain.WishListInvitation, error) {
	if m.GetInvitationByTokenFunc != nil {
		return m.GetInvitationByTokenFunc(ctx, token)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStore) ListPendingInvitations(ctx context.Context, wishListID uuid.UUID) ([]domain.WishListInvitation, error) {
	if m.ListPendingInvitationsFunc != nil {
		return m.ListPendingInvitationsFunc(ctx, wishListID)
	}
	return nil, nil
}

func (m *mockStore) AcceptInvitation(ctx context.Context, invitationID uuid.UUID, member domain.WishListMember, at time.Time) error {
	if m.AcceptInvitationFunc != nil {
		return m.AcceptInvitationFunc(ctx, invitationID, member, at)
	}
	return nil
}
