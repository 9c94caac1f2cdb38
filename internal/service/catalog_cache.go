package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/marketplace/internal/cache"
	"github.com/dukerupert/marketplace/internal/telemetry"
)

// productCachePrefix namespaces product detail entries, keyed by slug.
const productCachePrefix = "product:"

// CatalogCache is the read-through cache for product detail. Failures are
// logged and treated as misses so the database stays the source of truth.
type CatalogCache struct {
	cache   cache.Cache
	ttl     time.Duration
	metrics *telemetry.BusinessMetrics
	logger  *slog.Logger
}

// NewCatalogCache wraps c. A nil c disables caching.
func NewCatalogCache(c cache.Cache, ttl time.Duration, metrics *telemetry.BusinessMetrics, logger *slog.Logger) *CatalogCache {
	if c == nil {
		c = cache.Noop{}
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogCache{cache: c, ttl: ttl, metrics: metrics, logger: logger}
}

func (c *CatalogCache) getProduct(ctx context.Context, slug string, dst any) bool {
	ok, err := c.cache.Get(ctx, productCachePrefix+slug, dst)
	if err != nil {
		c.logger.Warn("catalog cache read failed", "slug", slug, "error", err)
		c.metrics.Cache("product", "error")
		return false
	}
	if ok {
		c.metrics.Cache("product", "hit")
	} else {
		c.metrics.Cache("product", "miss")
	}
	return ok
}

func (c *CatalogCache) setProduct(ctx context.Context, slug string, v any) {
	if err := c.cache.Set(ctx, productCachePrefix+slug, v, c.ttl); err != nil {
		c.logger.Warn("catalog cache write failed", "slug", slug, "error", err)
	}
}

func (c *CatalogCache) invalidateProduct(ctx context.Context, slugs ...string) {
	keys := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if s != "" {
			keys = append(keys, productCachePrefix+s)
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := c.cache.Delete(ctx, keys...); err != nil {
		c.logger.Warn("catalog cache invalidation failed", "keys", keys, "error", err)
	}
}

// invalidateAll drops every product entry. Promotion and category changes
// can touch any product.
func (c *CatalogCache) invalidateAll(ctx context.Context) {
	if err := c.cache.DeletePrefix(ctx, productCachePrefix); err != nil {
		c.logger.Warn("catalog cache flush failed", "error", err)
	}
}
