package router

import (
	"net/http"
	"net/netip"

	"marketplace-rest-api/internal/handler"
	"marketplace-rest-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Config holds the configuration for creating a router.
type Config struct {
	Logger *zap.Logger

	Health       *handler.Handler
	Catalog      *handler.CatalogHandler
	Listings     *handler.ListingHandler
	Social       *handler.SocialHandler
	Conversation *handler.ConversationHandler
	Payments     *handler.PaymentHandler
	Profiles     *handler.ProfileHandler
	Exchange     *handler.ExchangeHandler
	Auth         *handler.AuthHandler
	Cron         *handler.CronHandler
	Admin        *handler.AdminHandler

	AuthMiddleware func(http.Handler) http.Handler
	AdminOnly      func(http.Handler) http.Handler
	CronSecret     func(http.Handler) http.Handler
	RateLimiter    *middleware.RateLimiter
	Metrics        *middleware.Metrics
	Gatherer       prometheus.Gatherer
	CORSOrigins    []string
	// TrustedProxies may set the client address through forwarding headers.
	TrustedProxies []netip.Prefix
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.TrustedRealIP(cfg.TrustedProxies))
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Handler)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	withSession := func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}
	}
	rateLimited := func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Handler)
		}
	}

	if cfg.Auth != nil {
		r.Route("/auth", func(r chi.Router) {
			rateLimited(r)
			r.Get("/callback", cfg.Auth.Callback)
			r.Post("/refresh", cfg.Auth.Refresh)
		})
	}

	r.Route("/api", func(r chi.Router) {
		// CRON routes authenticate with the shared secret, not a session
		if cfg.Cron != nil && cfg.CronSecret != nil {
			r.With(cfg.CronSecret).Get("/cron/expire-listings", cfg.Cron.ExpireListings)
			r.With(cfg.CronSecret).Post("/cron/expire-listings", cfg.Cron.ExpireListings)
		}

		r.Group(func(r chi.Router) {
			withSession(r)

			// PUBLIC routes
			if cfg.Health != nil {
				r.Get("/status", cfg.Health.Status)
				r.Get("/health", cfg.Health.Health)
				r.Get("/ready", cfg.Health.Ready)
			}
			if cfg.Catalog != nil {
				r.Get("/categories", cfg.Catalog.ListCategories)
				r.Get("/subcategories", cfg.Catalog.ListSubcategories)
				r.Get("/plans", cfg.Catalog.ListPlans)
			}
			if cfg.Listings != nil {
				r.Get("/listings", cfg.Listings.List)
				r.Get("/listings/{id}", cfg.Listings.Get)
				r.Post("/listings/{id}/views", cfg.Listings.RecordView)
			}
			if cfg.Social != nil {
				r.Get("/users/{id}/reviews", cfg.Social.Reviews)
				r.Get("/users/{id}/reviews/count", cfg.Social.ReviewCount)
				r.Get("/users/{id}/followers/count", cfg.Social.FollowerCount)
			}
			if cfg.Exchange != nil {
				r.Get("/exchange-rates", cfg.Exchange.Rates)
				r.Get("/prices/convert", cfg.Exchange.Convert)
			}

			// AUTHENTICATED routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireUser)

				if cfg.Catalog != nil {
					r.Get("/subscription", cfg.Catalog.CurrentSubscription)
				}
				if cfg.Listings != nil {
					r.Post("/listings", cfg.Listings.Create)
					r.Delete("/listings/{id}", cfg.Listings.Delete)
					r.Post("/listings/{id}/like", cfg.Listings.Like)
					r.Delete("/listings/{id}/like", cfg.Listings.Unlike)
				}
				if cfg.Social != nil {
					r.Post("/users/{id}/follow", cfg.Social.Follow)
					r.Delete("/users/{id}/follow", cfg.Social.Unfollow)
				}
				if cfg.Conversation != nil {
					r.Get("/conversations", cfg.Conversation.List)
					r.Post("/conversations", cfg.Conversation.Start)
					r.Get("/conversations/{id}/messages", cfg.Conversation.Messages)
					r.Post("/conversations/{id}/messages", cfg.Conversation.Send)
				}
				if cfg.Payments != nil {
					r.Get("/payments/{id}/status", cfg.Payments.Status)
				}
				if cfg.Profiles != nil {
					r.Get("/profile", cfg.Profiles.Me)
					r.Patch("/profile/avatar", cfg.Profiles.UpdateAvatar)
					r.Delete("/storage/images", cfg.Profiles.DeleteImage)
				}
				if cfg.Auth != nil {
					r.Route("/auth", func(r chi.Router) {
						rateLimited(r)
						r.Post("/signout", cfg.Auth.SignOut)
						r.Post("/mfa/enroll", cfg.Auth.MFAEnroll)
						r.Post("/mfa/verify", cfg.Auth.MFAVerify)
						r.Get("/mfa/factors", cfg.Auth.MFAFactors)
						r.Delete("/mfa/factors/{id}", cfg.Auth.MFAUnenroll)
					})
				}

				// ADMIN routes
				if cfg.Admin != nil && cfg.AdminOnly != nil {
					r.Route("/admin", func(r chi.Router) {
						r.Use(cfg.AdminOnly)
						r.Get("/users/search", cfg.Admin.SearchUsers)
						r.Post("/listings/{id}/approve", cfg.Admin.Approve)
						r.Post("/listings/{id}/reject", cfg.Admin.Reject)
						r.Get("/audit-logs", cfg.Admin.AuditLogs)
						r.Get("/stats", cfg.Admin.Stats)
					})
				}
			})
		})
	})

	return r
}
