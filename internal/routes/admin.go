package routes

import (
	"github.com/dukerupert/marketplace/internal/middleware"
	"github.com/dukerupert/marketplace/internal/router"
)

// RegisterAdminRoutes registers catalog management, promotions and the
// request desk. All routes are protected by admin authentication middleware.
func RegisterAdminRoutes(r *router.Router, deps AdminDeps) {
	admin := r.Route("/api/admin",
		middleware.RequireAdmin,
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
	)

	// Products and versions
	admin.Get("/products", deps.Products.AdminList)
	admin.Post("/products", deps.Products.Create)
	admin.Get("/products/{id}", deps.Products.AdminDetail)
	admin.Put("/products/{id}", deps.Products.Update)
	admin.Delete("/products/{id}", deps.Products.Archive)
	admin.Get("/products/{id}/versions", deps.Products.ListVersions)
	admin.Post("/products/{id}/versions/generate", deps.Products.GenerateVersions)
	admin.Patch("/versions/{id}", deps.Products.UpdateVersion)

	// Brands
	admin.Get("/brands", deps.Catalog.AdminListBrands)
	admin.Post("/brands", deps.Catalog.CreateBrand)
	admin.Put("/brands/{id}", deps.Catalog.UpdateBrand)
	admin.Delete("/brands/{id}", deps.Catalog.DeleteBrand)

	// Categories
	admin.Get("/categories", deps.Catalog.AdminCategoryTree)
	admin.Post("/categories", deps.Catalog.CreateCategory)
	admin.Put("/categories/{id}", deps.Catalog.UpdateCategory)
	admin.Delete("/categories/{id}", deps.Catalog.DeleteCategory)

	// Attributes and their options
	admin.Get("/attributes", deps.Catalog.ListAttributes)
	admin.Post("/attributes", deps.Catalog.CreateAttribute)
	admin.Put("/attributes/{id}", deps.Catalog.RenameAttribute)
	admin.Delete("/attributes/{id}", deps.Catalog.DeleteAttribute)
	admin.Post("/attributes/{id}/options", deps.Catalog.AddOption)
	admin.Put("/attributes/{id}/options/{optionID}", deps.Catalog.UpdateOption)
	admin.Delete("/attributes/{id}/options/{optionID}", deps.Catalog.DeleteOption)

	// Promotions
	admin.Get("/promotions", deps.Promotions.AdminList)
	admin.Post("/promotions", deps.Promotions.Create)
	admin.Get("/promotions/{id}", deps.Promotions.Get)
	admin.Put("/promotions/{id}", deps.Promotions.Update)
	admin.Delete("/promotions/{id}", deps.Promotions.Delete)

	// Requests and proposals
	admin.Get("/requests", deps.Requests.AdminList)
	admin.Get("/requests/{id}", deps.Requests.Get)
	admin.Post("/requests/{id}/close", deps.Requests.Close)
	admin.Get("/requests/{id}/proposals", deps.Proposals.ListForRequest)
	admin.Post("/requests/{id}/proposals", deps.Proposals.Create)
	admin.Get("/proposals/{id}", deps.Proposals.Get)
	admin.Put("/proposals/{id}", deps.Proposals.Update)
	admin.Post("/proposals/{id}/send", deps.Proposals.Send)
	admin.Post("/proposals/{id}/withdraw", deps.Proposals.Withdraw)
	admin.Get("/proposals/{id}/pdf", deps.Proposals.PDF, middleware.Timeout(middleware.PDFTimeout))
}
