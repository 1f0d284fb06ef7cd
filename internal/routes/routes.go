package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/apps"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Handlers groups the HTTP handlers mounted under /api.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Health       *handlers.HealthHandler
	Subscription *handlers.SubscriptionHandler
	Feature      *handlers.FeatureHandler
	Webhook      *handlers.WebhookHandler
}

// Setup mounts every route. limiterStorage may be nil for in-memory rate
// limit counters.
func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	h Handlers,
	features middleware.FeatureLedger,
	limiterStorage fiber.Storage,
	plugins []apps.Plugin,
) {
	api := app.Group("/api")

	// General API rate limit: 60 req/min per IP
	api.Use(middleware.RateLimit("api", 60, time.Minute, limiterStorage))

	// Stricter limit for credential and checkout endpoints: 5 per 5 min per IP
	sensitive := func(name string) fiber.Handler {
		return middleware.RateLimit(name, 5, 5*time.Minute, limiterStorage)
	}

	api.Get("/health", h.Health.Check)

	// Auth (public)
	api.Post("/auth/register", sensitive("register"), h.Auth.Register)
	api.Post("/auth/login", sensitive("login"), h.Auth.Login)

	// Stripe webhook (signature verified, no JWT)
	api.Post("/webhook/stripe", h.Webhook.HandleStripe)

	// Protected routes get the middleware individually so public routes and
	// unknown paths never pass through JWT validation.
	jwt := middleware.JWTProtected(cfg)
	user := middleware.CurrentUser(db)

	api.Get("/user/profile", jwt, user, h.Auth.Profile)

	api.Get("/subscription/status", jwt, user, h.Subscription.Status)
	api.Post("/subscription/start-trial", jwt, user, h.Subscription.StartTrial)
	api.Post("/subscription/create-checkout-session", sensitive("checkout"), jwt, user, h.Subscription.CreateCheckoutSession)
	api.Post("/subscription/cancel", jwt, user, h.Subscription.Cancel)

	api.Get("/feature-access/:name", jwt, user, h.Feature.Access)
	api.Post("/feature-usage/:name", jwt, user, h.Feature.Use)
	api.Get("/usage-analytics", jwt, user, h.Feature.Analytics)

	api.Get("/premium/insights", jwt, user, middleware.RequireTier(entitlement.TierPremium, cfg), h.Feature.Insights)
	api.Get("/analytics/usage", jwt, user,
		middleware.FeatureGate(entitlement.FeatureAdvancedAnalytics, features, cfg), h.Feature.DetailedAnalytics)

	for _, p := range plugins {
		p.RegisterRoutes(api.Group("/"+p.ID(), jwt, user), db, cfg)
	}
}
