// Package routes maps URL patterns to the API handlers.
package routes

import (
	"net/http"

	"github.com/dukerupert/marketplace/internal/handler/api"
	"github.com/dukerupert/marketplace/internal/router"
)

// APIDeps contains dependencies for public and customer routes
type APIDeps struct {
	Auth       *api.AuthHandler
	Catalog    *api.CatalogHandler
	Products   *api.ProductHandler
	Promotions *api.PromotionHandler
	Requests   *api.RequestHandler
	Proposals  *api.ProposalHandler
	WishLists  *api.WishListHandler
	Uploads    *api.UploadHandler

	// AuthRateLimit throttles signup and login per client IP.
	AuthRateLimit router.Middleware
}

// AdminDeps contains dependencies for /api/admin routes
type AdminDeps struct {
	Catalog    *api.CatalogHandler
	Products   *api.ProductHandler
	Promotions *api.PromotionHandler
	Requests   *api.RequestHandler
	Proposals  *api.ProposalHandler
}

// OpsDeps contains dependencies for operational endpoints
type OpsDeps struct {
	Health  http.HandlerFunc
	Metrics http.Handler
}
