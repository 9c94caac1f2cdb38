package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/handler/api"
	"github.com/dukerupert/marketplace/internal/router"
)

// newTestRouter registers every route with handlers whose services are nil.
// Only requests stopped by middleware or the mux may be sent through it.
func newTestRouter(t *testing.T, user *domain.User) *router.Router {
	t.Helper()

	asUser := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user != nil {
				r = r.WithContext(domain.NewContextWithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}

	catalog := api.NewCatalogHandler(nil, nil, nil)
	products := api.NewProductHandler(nil, nil)
	promotions := api.NewPromotionHandler(nil)
	requests := api.NewRequestHandler(nil)
	proposals := api.NewProposalHandler(nil)

	r := router.New(asUser)
	require.NotPanics(t, func() {
		RegisterAPIRoutes(r, APIDeps{
			Auth:       api.NewAuthHandler(nil, nil),
			Catalog:    catalog,
			Products:   products,
			Promotions: promotions,
			Requests:   requests,
			Proposals:  proposals,
			WishLists:  api.NewWishListHandler(nil),
			Uploads:    api.NewUploadHandler(nil),
		})
		RegisterAdminRoutes(r, AdminDeps{
			Catalog:    catalog,
			Products:   products,
			Promotions: promotions,
			Requests:   requests,
			Proposals:  proposals,
		})
		RegisterOpsRoutes(r, OpsDeps{
			Health: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTeapot)
			}),
		})
	}, "route patterns must not conflict")
	return r
}

func TestRoutes_AuthGates(t *testing.T) {
	customer := &domain.User{ID: uuid.New(), Email: "ann@example.com", Role: domain.RoleCustomer}
	id := uuid.NewString()

	tests := []struct {
		name   string
		user   *domain.User
		method string
		path   string
		want   int
	}{
		{"me needs a session", nil, http.MethodGet, "/api/me", http.StatusUnauthorized},
		{"wish lists need a session", nil, http.MethodGet, "/api/wishlists", http.StatusUnauthorized},
		{"invoice needs a session", nil, http.MethodGet, "/api/proposals/" + id + "/invoice", http.StatusUnauthorized},
		{"uploads need a session", nil, http.MethodPost, "/api/uploads", http.StatusUnauthorized},
		{"admin needs a session", nil, http.MethodGet, "/api/admin/products", http.StatusUnauthorized},
		{"admin rejects customers", customer, http.MethodGet, "/api/admin/products", http.StatusForbidden},
		{"customers cannot send proposals", customer, http.MethodPost, "/api/admin/proposals/" + id + "/send", http.StatusForbidden},
		{"unknown path", nil, http.MethodGet, "/api/nope", http.StatusNotFound},
		{"wrong method", nil, http.MethodDelete, "/api/products", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, tt.user)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRoutes_Ops(t *testing.T) {
	r := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
