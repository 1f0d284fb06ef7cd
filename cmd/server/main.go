package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/oklog/ulid/v2"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/apps"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/apps/dopamine"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/payment"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/ratelimit"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	cfg := config.Load()

	// Sentry error tracking (before logging so ERROR records are forwarded)
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		}
	}

	logging.Setup(cfg)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBDriver == "postgres" && cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	plugins := []apps.Plugin{
		dopamine.New(),
	}
	if err := database.Migrate(database.DB, apps.Models(plugins)...); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// Database log handler (ERROR+ async batch)
	dbLogHandler := logging.NewDBHandler(database.DB, 5*time.Second)
	logging.Attach(dbLogHandler)

	// Log cleanup (30-day retention)
	ctx, cancel := context.WithCancel(context.Background())
	logging.StartCleanup(ctx, database.DB, logging.DefaultRetention)

	// Redis-backed rate limit counters are optional
	var limiterStorage fiber.Storage
	rdb, err := database.OpenRedis(cfg)
	if err != nil {
		slog.Error("redis unavailable, using in-memory rate limits", "error", err)
	} else if rdb != nil {
		limiterStorage = ratelimit.NewStorage(rdb, "")
		slog.Info("redis connected")
	}

	var provider payment.Provider
	if cfg.StripeSecretKey != "" {
		provider = payment.NewStripeProvider(cfg)
	} else {
		slog.Warn("STRIPE_SECRET_KEY not set, checkout and webhooks are disabled")
	}

	// Services
	authService := services.NewAuthService(database.DB, cfg)
	subscriptionService := services.NewSubscriptionService(database.DB, cfg, provider)
	usageService := services.NewUsageService(database.DB)

	h := routes.Handlers{
		Auth:         handlers.NewAuthHandler(authService),
		Health:       handlers.NewHealthHandler(rdb),
		Subscription: handlers.NewSubscriptionHandler(subscriptionService),
		Feature:      handlers.NewFeatureHandler(usageService, cfg),
		Webhook:      handlers.NewWebhookHandler(subscriptionService, provider),
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: func() string { return ulid.Make().String() },
	}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())

	routes.Setup(app, cfg, database.DB, h, usageService, limiterStorage, plugins)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	cancel()
	dbLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}
