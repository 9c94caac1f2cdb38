package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/dukerupert/marketplace/internal"
	"github.com/dukerupert/marketplace/internal/bootstrap"
	"github.com/dukerupert/marketplace/internal/cache"
	"github.com/dukerupert/marketplace/internal/cookie"
	"github.com/dukerupert/marketplace/internal/domain"
	"github.com/dukerupert/marketplace/internal/email"
	"github.com/dukerupert/marketplace/internal/handler/api"
	"github.com/dukerupert/marketplace/internal/invoice"
	"github.com/dukerupert/marketplace/internal/middleware"
	"github.com/dukerupert/marketplace/internal/notify"
	"github.com/dukerupert/marketplace/internal/repository"
	"github.com/dukerupert/marketplace/internal/router"
	"github.com/dukerupert/marketplace/internal/routes"
	"github.com/dukerupert/marketplace/internal/service"
	"github.com/dukerupert/marketplace/internal/storage"
	"github.com/dukerupert/marketplace/internal/telemetry"
	"github.com/dukerupert/marketplace/internal/worker"
)

const metricsNamespace = "marketplace"

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	// Initialize Sentry
	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled && cfg.Sentry.DSN != "",
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer flushSentry()

	// Run migrations over database/sql, then serve from a pgx pool
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := internal.RunMigrations(ctx, sqlDB, logger); err != nil {
		sqlDB.Close()
		return fmt.Errorf("migration failed: %w", err)
	}
	sqlDB.Close()

	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	store := repository.NewStore(pool)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	businessMetrics := telemetry.NewBusinessMetrics(metricsNamespace, registry)
	httpMetrics := middleware.NewMetrics(metricsNamespace, registry)

	// Redis backs the catalog cache and version locks when configured.
	var catalogBackend cache.Cache = cache.Noop{}
	var locker cache.Locker = cache.NewLocalLocker()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		catalogBackend = cache.NewRedis(rdb, metricsNamespace)
		locker = cache.NewRedisLocker(rdb, 2*time.Second)
		logger.Info("Redis connected", "addr", opts.Addr)
	} else {
		logger.Info("REDIS_URL not set, catalog cache disabled and version locks are in-process")
	}
	catalogCache := service.NewCatalogCache(catalogBackend, cfg.Cache.TTL, businessMetrics, logger)

	// File storage
	fileStorage, err := storage.NewStorage(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.Info("Storage initialized", "provider", cfg.Storage.Provider)

	// PDF rendering is optional; without it invoices are HTML only.
	var pdf invoice.PDFRenderer
	if cfg.Invoice.PDFEnabled {
		chrome := invoice.NewChromePDF(cfg.Invoice.ChromeBin, cfg.Invoice.Timeout, logger)
		defer chrome.Close()
		pdf = chrome
		logger.Info("Invoice PDF rendering enabled")
	}

	// Email
	var sender email.Sender = &email.LogSender{Logger: logger}
	if cfg.Email.Host != "" {
		sender = email.NewSMTPSender(&email.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     int(cfg.Email.Port),
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			FromName: cfg.Email.FromName,
		}, logger)
	}
	mailer, err := email.NewService(sender, cfg.Email.From, cfg.Email.FromName)
	if err != nil {
		return fmt.Errorf("failed to initialize email service: %w", err)
	}

	slack := notify.NewSlack(notify.Config{
		WebhookURL: cfg.Slack.WebhookURL,
		Channel:    cfg.Slack.Channel,
		HTTPClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: &telemetry.HTTPTransport{Transport: http.DefaultTransport},
		},
	}, logger)

	// Services
	userService := service.NewUserService(store, cfg.Session.TTL, businessMetrics)
	brandService := service.NewBrandService(store)
	categoryService := service.NewCategoryService(store, catalogCache)
	attributeService := service.NewAttributeService(store)
	versionService := service.NewVersionService(store, locker, catalogCache, businessMetrics, logger)
	productService := service.NewProductService(store, versionService, catalogCache)
	promotionService := service.NewPromotionService(store, catalogCache)
	requestService := service.NewRequestService(store, cfg.BaseURL, businessMetrics, logger)
	proposalService := service.NewProposalService(store, pdf, cfg.BaseURL, "USD", businessMetrics, logger)
	wishListService := service.NewWishListService(store, cfg.BaseURL, businessMetrics, logger)
	uploadService := service.NewUploadService(fileStorage, businessMetrics)

	// Bootstrap admin account
	if err := bootstrap.EnsureAdmin(ctx, store, &bootstrap.AdminConfig{
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
		Name:     cfg.Admin.Name,
	}, logger); err != nil {
		return fmt.Errorf("admin bootstrap failed: %w", err)
	}

	// Background worker
	var wg sync.WaitGroup
	if cfg.Worker.Enabled {
		deps := worker.Deps{
			Mailer:  mailer,
			Slack:   slack,
			Metrics: businessMetrics,
		}
		if pdf != nil {
			deps.PDF = proposalService
		}
		w := worker.NewWorker(store, deps, worker.Config{
			PollInterval:   cfg.Worker.PollInterval,
			MaxConcurrency: cfg.Worker.Concurrency,
		}, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("worker stopped", "error", err)
			}
		}()
	} else {
		logger.Info("Background worker disabled")
	}

	// Rate limiters
	apiLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer apiLimiter.Stop()
	authLimiter := middleware.NewRateLimiter(middleware.AuthRateLimiterConfig())
	defer authLimiter.Stop()

	// Router with global middleware, outermost first
	r := router.New(
		middleware.RequestID,
		middleware.Recover,
		middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.Env == "prod")),
		middleware.WithRequestLogger(logger),
		middleware.WithUser(userService),
		telemetry.SentryContextMiddleware(sentryUser),
		router.Logger(logger, "/health", "/metrics"),
		httpMetrics.Middleware,
		apiLimiter.Middleware,
	)

	cookies := cookie.NewConfig("", cfg.Session.CookieSecure)
	catalogHandler := api.NewCatalogHandler(brandService, categoryService, attributeService)
	productHandler := api.NewProductHandler(productService, versionService)
	promotionHandler := api.NewPromotionHandler(promotionService)
	requestHandler := api.NewRequestHandler(requestService)
	proposalHandler := api.NewProposalHandler(proposalService)

	routes.RegisterAPIRoutes(r, routes.APIDeps{
		Auth:          api.NewAuthHandler(userService, cookies),
		Catalog:       catalogHandler,
		Products:      productHandler,
		Promotions:    promotionHandler,
		Requests:      requestHandler,
		Proposals:     proposalHandler,
		WishLists:     api.NewWishListHandler(wishListService),
		Uploads:       api.NewUploadHandler(uploadService),
		AuthRateLimit: authLimiter.Middleware,
	})
	routes.RegisterAdminRoutes(r, routes.AdminDeps{
		Catalog:    catalogHandler,
		Products:   productHandler,
		Promotions: promotionHandler,
		Requests:   requestHandler,
		Proposals:  proposalHandler,
	})
	routes.RegisterOpsRoutes(r, routes.OpsDeps{
		Health:  healthHandler(pool),
		Metrics: httpMetrics.Handler(),
	})
	if cfg.Storage.Provider == "local" || cfg.Storage.Provider == "" {
		r.Static(cfg.Storage.LocalURL, cfg.Storage.LocalPath)
	}

	// CORS wraps the mux so preflight requests never hit method routing.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router.CORS(cfg.CORSOrigins, 10*time.Minute)(r),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			stop()
			wg.Wait()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	wg.Wait()
	logger.Info("Server stopped")
	return nil
}

// sentryUser tags Sentry events with the signed-in user.
func sentryUser(ctx context.Context) *telemetry.UserInfo {
	user := domain.UserFromContext(ctx)
	if user == nil {
		return nil
	}
	return &telemetry.UserInfo{ID: user.ID.String(), Email: user.Email}
}

// healthHandler reports 503 when the database is unreachable.
func healthHandler(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		w.Header().Set("Content-Type", "application/json")
		if err := pool.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
