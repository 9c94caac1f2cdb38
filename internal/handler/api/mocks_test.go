package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/service"
)

// Each mock embeds its interface so tests only stub what they call; an
// unexpected call panics on the nil embedded value.

type mockUserService struct {
	service.UserService
	signupFunc func(ctx context.Context, email, name, password string) (*domain.User, error)
	loginFunc  func(ctx context.Context, email, password string) (*domain.User, *domain.Session, error)
	logoutFunc func(ctx context.Context, token string) error
}

func (m *mockUserService) Signup(ctx context.Context, email, name, password string) (*domain.User, error) {
	return m.signupFunc(ctx, email, name, password)
}

func (m *mockUserService) Login(ctx context.Context, email, password string) (*domain.User, *domain.Session, error) {
	return m.loginFunc(ctx, email, password)
}

func (m *mockUserService) Logout(ctx context.Context, token string) error {
	return m.logoutFunc(ctx, token)
}

type mockProductService struct {
	service.ProductService
	listFunc   func(ctx context.Context, f domain.ProductFilter, public bool) (*domain.ProductList, error)
	detailFunc func(ctx context.Context, slug string, public bool) (*domain.ProductDetail, error)
}

func (m *mockProductService) List(ctx context.Context, f domain.ProductFilter, public bool) (*domain.ProductList, error) {
	return m.listFunc(ctx, f, public)
}

func (m *mockProductService) Detail(ctx context.Context, slug string, public bool) (*domain.ProductDetail, error) {
	return m.detailFunc(ctx, slug, public)
}

type mockVersionService struct {
	service.VersionService
	quoteFunc  func(ctx context.Context, versionID uuid.UUID, quantity int) (*domain.Quote, error)
	updateFunc func(ctx context.Context, id uuid.UUID, in service.VersionInput) (*domain.Version, error)
}

func (m *mockVersionService) Quote(ctx context.Context, versionID uuid.UUID, quantity int) (*domain.Quote, error) {
	return m.quoteFunc(ctx, versionID, quantity)
}

func (m *mockVersionService) Update(ctx context.Context, id uuid.UUID, in service.VersionInput) (*domain.Version, error) {
	return m.updateFunc(ctx, id, in)
}

type mockRequestService struct {
	service.RequestService
	createFunc  func(ctx context.Context, requester *domain.User, in service.RequestInput) (*domain.Request, error)
	listAllFunc func(ctx context.Context, status *domain.RequestStatus, limit, offset int) ([]domain.Request, error)
}

func (m *mockRequestService) Create(ctx context.Context, requester *domain.User, in service.RequestInput) (*domain.Request, error) {
	return m.createFunc(ctx, requester, in)
}

func (m *mockRequestService) ListAll(ctx context.Context, status *domain.RequestStatus, limit, offset int) ([]domain.Request, error) {
	return m.listAllFunc(ctx, status, limit, offset)
}

type mockProposalService struct {
	service.ProposalService
	createFunc      func(ctx context.Context, author *domain.User, requestID uuid.UUID, in service.ProposalInput) (*domain.Proposal, error)
	acceptFunc      func(ctx context.Context, requester *domain.User, id uuid.UUID) (*domain.Proposal, error)
	invoiceHTMLFunc func(ctx context.Context, viewer *domain.User, id uuid.UUID) ([]byte, error)
	invoicePDFFunc  func(ctx context.Context, viewer *domain.User, id uuid.UUID) ([]byte, string, error)
}

func (m *mockProposalService) Create(ctx context.Context, author *domain.User, requestID uuid.UUID, in service.ProposalInput) (*domain.Proposal, error) {
	return m.createFunc(ctx, author, requestID, in)
}

func (m *mockProposalService) Accept(ctx context.Context, requester *domain.User, id uuid.UUID) (*domain.Proposal, error) {
	return m.acceptFunc(ctx, requester, id)
}

func (m *mockProposalService) InvoiceHTML(ctx context.Context, viewer *domain.User, id uuid.UUID) ([]byte, error) {
	return m.invoiceHTMLFunc(ctx, viewer, id)
}

func (m *mockProposalService) InvoicePDF(ctx context.Context, viewer *domain.User, id uuid.UUID) ([]byte, string, error) {
	return m.invoicePDFFunc(ctx, viewer, id)
}

type mockWishListService struct {
	service.WishListService
	addItemFunc func(ctx context.Context, user *domain.User, id uuid.UUID, in service.WishListItemInput) (*domain.WishListItem, error)
	inviteFunc  func(ctx context.Context, user *domain.User, id uuid.UUID, email string, role domain.MemberRole) (*domain.WishListInvitation, error)
	acceptFunc  func(ctx context.Context, user *domain.User, token string) (*domain.WishList, error)
}

func (m *mockWishListService) AddItem(ctx context.Context, user *domain.User, id uuid.UUID, in service.WishListItemInput) (*domain.WishListItem, error) {
	return m.addItemFunc(ctx, user, id, in)
}

func (m *mockWishListService) Invite(ctx context.Context, user *domain.User, id uuid.UUID, email string, role domain.MemberRole) (*domain.WishListInvitation, error) {
	return m.inviteFunc(ctx, user, id, email, role)
}

func (m *mockWishListService) AcceptInvitation(ctx context.Context, user *domain.User, token string) (*domain.WishList, error) {
	return m.acceptFunc(ctx, user, token)
}

type mockUploadService struct {
	uploadFunc func(ctx context.Context, r io.Reader) (*service.Upload, error)
}

func (m *mockUploadService) Upload(ctx context.Context, r io.Reader) (*service.Upload, error) {
	return m.uploadFunc(ctx, r)
}

var (
	customer = &domain.User{
		ID:    uuid.MustParse("8f0c5d6e-1f4a-4c59-9a0e-2b7d3c1e4a10"),
		Email: "cora@example.com",
		Name:  "Cora",
		Role:  domain.RoleCustomer,
	}
	admin = &domain.User{
		ID:    uuid.MustParse("1c2d3e4f-5a6b-4c7d-8e9f-0a1b2c3d4e5f"),
		Email: "ada@example.com",
		Name:  "Ada",
		Role:  domain.RoleAdmin,
	}
	fixedTime = time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
)

// asUser attaches user to the request the way the session middleware does.
func asUser(r *http.Request, user *domain.User) *http.Request {
	return r.WithContext(domain.NewContextWithUser(r.Context(), user))
}

// decodeError reads the JSON error envelope.
func decodeError(t *testing.T, body io.Reader) (code string, fields map[string]string) {
	t.Helper()
	var env struct {
		Error struct {
			Code   string            `json:"code"`
			Fields map[string]string `json:"fields"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&env))
	return env.Error.Code, env.Error.Fields
}
