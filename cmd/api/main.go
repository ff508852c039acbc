package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"marketplace-rest-api/internal/cache"
	"marketplace-rest-api/internal/config"
	"marketplace-rest-api/internal/handler"
	"marketplace-rest-api/internal/middleware"
	"marketplace-rest-api/internal/repository"
	"marketplace-rest-api/internal/router"
	"marketplace-rest-api/internal/service"
	"marketplace-rest-api/internal/supabase"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting marketplace API",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version))

	// Supabase client
	db, err := supabase.New(supabase.Config{
		URL:            cfg.Supabase.URL,
		AnonKey:        cfg.Supabase.AnonKey,
		ServiceRoleKey: cfg.Supabase.ServiceRoleKey,
		Timeout:        cfg.Supabase.Timeout,
	})
	if err != nil {
		logger.Fatal("failed to create supabase client", zap.Error(err))
	}
	if cfg.Supabase.JWTSecret == "" {
		logger.Warn("SUPABASE_JWT_SECRET not set; every token is verified against the auth server")
	}
	if cfg.App.IsProduction() && !cfg.Security.CookieSecure {
		logger.Warn("COOKIE_SECURE is off in production; session cookies will be sent over plain HTTP")
	}

	// Repositories
	listingRepo := repository.NewSupabaseListingRepository(db)
	categoryRepo := repository.NewSupabaseCategoryRepository(db)
	profileRepo := repository.NewSupabaseProfileRepository(db)
	conversationRepo := repository.NewSupabaseConversationRepository(db, logger)
	transactionRepo := repository.NewSupabaseTransactionRepository(db)
	socialRepo := repository.NewSupabaseSocialRepository(db)
	planRepo := repository.NewSupabasePlanRepository(db)
	reviewRepo := repository.NewSupabaseReviewRepository(db)

	auditRepo := newAuditRepository(cfg, db, logger)
	defer auditRepo.Close()

	// Shared cache
	sharedCache, cacheType := newCache(cfg, logger)
	defer sharedCache.Close()

	// Services
	reviewService := service.NewReviewService(reviewRepo,
		cache.NewReviewCache(cfg.Cache.ReviewCacheSize, cfg.Cache.ReviewCacheTTL))
	exchangeService := service.NewExchangeRateService(service.ExchangeConfig{
		APIURL:   cfg.Exchange.APIURL,
		APIKey:   cfg.Exchange.APIKey,
		CacheTTL: cfg.Exchange.CacheTTL,
		Timeout:  cfg.Exchange.Timeout,
	}, sharedCache, logger)
	mfaService := service.NewMFAService(db.Auth(), cfg.App.Name)

	expiry, err := service.NewExpiryScheduler(listingRepo, cfg.Jobs.ExpirySchedule, logger)
	if err != nil {
		logger.Fatal("invalid expiry schedule", zap.Error(err))
	}
	expiry.Start()
	defer expiry.Stop()

	trustedProxies, err := middleware.ParseTrustedProxies(cfg.Security.TrustedProxyList())
	if err != nil {
		logger.Fatal("invalid TRUSTED_PROXIES", zap.Error(err))
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics(registry)

	rateLimiter := middleware.NewRateLimiter(cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst)
	defer rateLimiter.Close()

	// Handlers
	healthHandler := handler.New(cfg.App.Name, cfg.App.Version,
		handler.ReadinessCheck{
			Name: "supabase",
			Check: func(ctx context.Context) error {
				_, err := categoryRepo.ListCategories(ctx)
				return err
			},
		},
		handler.ReadinessCheck{
			Name:  "cache",
			Check: sharedCache.Ping,
		},
	)

	avatarDomains := cfg.Security.AvatarDomains()
	if u, err := url.Parse(db.BaseURL()); err == nil && u.Hostname() != "" {
		avatarDomains = append(avatarDomains, strings.ToLower(u.Hostname()))
	}

	r := router.New(router.Config{
		Logger:       logger,
		Health:       healthHandler,
		Catalog:      handler.NewCatalogHandler(categoryRepo, planRepo, sharedCache, cfg.Cache.TTL, logger),
		Listings:     handler.NewListingHandler(listingRepo, socialRepo, logger),
		Social:       handler.NewSocialHandler(socialRepo, reviewService, logger),
		Conversation: handler.NewConversationHandler(conversationRepo, listingRepo, logger),
		Payments:     handler.NewPaymentHandler(transactionRepo, logger),
		Profiles:     handler.NewProfileHandler(profileRepo, db.Storage(), avatarDomains, []string{cfg.Supabase.StorageBucket}, logger),
		Exchange:     handler.NewExchangeHandler(exchangeService, logger),
		Auth: handler.NewAuthHandler(handler.AuthConfig{
			Sessions:     db.Auth(),
			MFA:          mfaService,
			CookieSecure: cfg.Security.CookieSecure,
			SiteURL:      cfg.App.SiteURL,
			Logger:       logger,
		}),
		Cron: handler.NewCronHandler(expiry, logger),
		Admin: handler.NewAdminHandler(handler.AdminConfig{
			Profiles:  profileRepo,
			Listings:  listingRepo,
			Audit:     auditRepo,
			Cache:     sharedCache,
			AuditType: cfg.Audit.Type,
			CacheType: cacheType,
			Logger:    logger,
		}),

		// Auth middleware with injected dependencies (no globals)
		AuthMiddleware: middleware.NewAuthMiddleware(middleware.AuthConfig{
			JWTSecret: cfg.Supabase.JWTSecret,
			Verifier:  db.Auth(),
			Logger:    logger,
		}),
		AdminOnly:   middleware.RequireAdmin(profileRepo, cfg.Security.MFARequiredForAdmin, logger),
		CronSecret:  middleware.CronSecret(cfg.Security.CronSecret),
		RateLimiter: rateLimiter,
		Metrics:     metrics,
		Gatherer:    registry,
		CORSOrigins: cfg.Security.CORSOrigins(),

		TrustedProxies: trustedProxies,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Address()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.App.IsDevelopment() || cfg.App.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger.With(zap.String("service", cfg.App.Name))
}

// newAuditRepository picks the audit store. A store that cannot be opened
// is fatal, since admin actions must be recorded somewhere.
func newAuditRepository(cfg *config.Config, db *supabase.Client, logger *zap.Logger) repository.AuditRepository {
	switch strings.ToLower(cfg.Audit.Type) {
	case "mongodb", "mongo":
		repo, err := repository.NewMongoAuditRepository(cfg.Audit.MongoURI, cfg.Audit.MongoDatabase, cfg.Audit.MongoCollection)
		if err != nil {
			logger.Fatal("failed to initialize mongodb audit store", zap.Error(err))
		}
		logger.Info("mongodb audit store initialized")
		return repo
	case "sqlite", "postgres", "postgresql", "mysql":
		repo, err := repository.NewSQLAuditRepository(strings.ToLower(cfg.Audit.Type), cfg.Audit.DSN())
		if err != nil {
			logger.Fatal("failed to initialize sql audit store",
				zap.String("type", cfg.Audit.Type),
				zap.Error(err))
		}
		logger.Info("sql audit store initialized", zap.String("type", cfg.Audit.Type))
		return repo
	default:
		return repository.NewSupabaseAuditRepository(db)
	}
}

// newCache returns redis when configured and reachable, else the in-memory cache.
func newCache(cfg *config.Config, logger *zap.Logger) (cache.Cache, string) {
	if strings.EqualFold(cfg.Cache.Type, "redis") {
		rc, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:      cfg.Cache.RedisAddress(),
			Password:  cfg.Cache.RedisPassword,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: cfg.Cache.RedisPrefix,
		})
		if err == nil {
			logger.Info("redis cache initialized", zap.String("addr", cfg.Cache.RedisAddress()))
			return rc, "redis"
		}
		logger.Warn("redis unavailable, falling back to memory cache", zap.Error(err))
	}
	return cache.NewMemoryCache(cfg.Cache.RedisPrefix, time.Minute), "memory"
}
