package routes

import (
	"github.com/dukerupert/marketplace/internal/middleware"
	"github.com/dukerupert/marketplace/internal/router"
)

// RegisterAPIRoutes registers the public catalog and the signed-in
// customer routes under /api.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	api := r.Route("/api")
	body := api.Group(middleware.MaxBodySize(middleware.DefaultMaxBodySize))

	// Catalog
	api.Get("/products", deps.Products.List)
	api.Get("/products/{slug}", deps.Products.Detail)
	api.Get("/versions/{id}/quote", deps.Products.Quote)
	api.Get("/categories", deps.Catalog.CategoryTree)
	api.Get("/categories/{id}/path", deps.Catalog.CategoryPath)
	api.Get("/brands", deps.Catalog.ListBrands)
	api.Get("/attributes", deps.Catalog.ListAttributes)
	api.Get("/promotions/active", deps.Promotions.ListActive)

	// Auth
	auth := body
	if deps.AuthRateLimit != nil {
		auth = body.Group(deps.AuthRateLimit)
	}
	auth.Post("/auth/signup", deps.Auth.Signup)
	auth.Post("/auth/login", deps.Auth.Login)
	body.Post("/auth/logout", deps.Auth.Logout)

	user := body.Group(middleware.RequireAuth)
	user.Get("/me", deps.Auth.Me)

	// Requests and the proposals made against them
	user.Post("/requests", deps.Requests.Create)
	user.Get("/requests", deps.Requests.ListMine)
	user.Get("/requests/{id}", deps.Requests.Get)
	user.Post("/requests/{id}/cancel", deps.Requests.Cancel)
	user.Get("/requests/{id}/proposals", deps.Proposals.ListForRequest)
	user.Get("/proposals/{id}", deps.Proposals.Get)
	user.Post("/proposals/{id}/accept", deps.Proposals.Accept)
	user.Post("/proposals/{id}/reject", deps.Proposals.Reject)
	user.Get("/proposals/{id}/invoice", deps.Proposals.Invoice, middleware.Timeout(middleware.PDFTimeout))

	// Wish lists
	user.Get("/wishlists", deps.WishLists.List)
	user.Post("/wishlists", deps.WishLists.Create)
	user.Get("/wishlists/{id}", deps.WishLists.Get)
	user.Put("/wishlists/{id}", deps.WishLists.Update)
	user.Delete("/wishlists/{id}", deps.WishLists.Delete)
	user.Get("/wishlists/{id}/totals", deps.WishLists.Totals)
	user.Post("/wishlists/{id}/items", deps.WishLists.AddItem)
	user.Patch("/wishlists/{id}/items/{itemID}", deps.WishLists.UpdateItem)
	user.Delete("/wishlists/{id}/items/{itemID}", deps.WishLists.RemoveItem)
	user.Get("/wishlists/{id}/invitations", deps.WishLists.Invitations)
	user.Post("/wishlists/{id}/invitations", deps.WishLists.Invite)
	user.Post("/wishlists/invitations/{token}/accept", deps.WishLists.AcceptInvitation)
	user.Put("/wishlists/{id}/members/{userID}", deps.WishLists.ChangeMemberRole)
	user.Delete("/wishlists/{id}/members/{userID}", deps.WishLists.RemoveMember)

	// Uploads carry their own, larger body limit.
	api.Post("/uploads", deps.Uploads.Upload,
		middleware.MaxBodySize(middleware.UploadMaxBodySize),
		middleware.RequireAuth,
	)
}

// RegisterOpsRoutes registers health and metrics outside /api.
func RegisterOpsRoutes(r *router.Router, deps OpsDeps) {
	r.Get("/health", deps.Health)
	if deps.Metrics != nil {
		r.Mount("/metrics", deps.Metrics)
	}
}
