package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type FeatureHandler struct {
	usageService *services.UsageService
	cfg          *config.Config
}

func NewFeatureHandler(usageService *services.UsageService, cfg *config.Config) *FeatureHandler {
	return &FeatureHandler{usageService: usageService, cfg: cfg}
}

// Access handles GET /feature-access/:name. It never records a use.
func (h *FeatureHandler) Access(c *fiber.Ctx) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	decision, err := h.usageService.Check(user, c.Params("name"))
	if err != nil {
		return writeError(c, err)
	}

	ent := user.Entitlement(time.Now())
	resp := dto.FeatureAccessResponse{
		Decision:       decision,
		CurrentTier:    user.Tier,
		IsPremium:      ent.IsPremium,
		IsProfessional: ent.IsProfessional,
		Limits:         entitlement.Limits(ent),
	}
	if !decision.Allowed {
		resp.UpgradeURL = h.cfg.UpgradeURL()
	}
	return c.JSON(resp)
}

// Use handles POST /feature-usage/:name: checks access and records the use
// atomically, or answers 403 when the user is over their limit.
func (h *FeatureHandler) Use(c *fiber.Ctx) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	decision, err := h.usageService.Consume(user, c.Params("name"))
	if err != nil {
		return writeError(c, err)
	}
	if !decision.Allowed {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error:        "Access denied",
			Message:      decision.Message,
			Feature:      decision.Feature,
			RequiredTier: decision.RequiredTier.String(),
			CurrentTier:  user.Tier.String(),
			UpgradeURL:   h.cfg.UpgradeURL(),
		})
	}

	return c.JSON(dto.FeatureUsageResponse{
		Success:    true,
		Message:    "Usage tracked successfully",
		Feature:    decision.Feature,
		UsageCount: decision.Used,
		Limit:      decision.Limit,
	})
}

// Analytics handles GET /usage-analytics.
func (h *FeatureHandler) Analytics(c *fiber.Ctx) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	resp, err := h.usageService.Analytics(user)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(resp)
}

// Insights handles GET /premium/insights, mounted behind RequireTier.
func (h *FeatureHandler) Insights(c *fiber.Ctx) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	resp, err := h.usageService.SubscriptionValue(user)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(resp)
}

// DetailedAnalytics handles GET /analytics/usage, mounted behind the
// advanced_analytics feature gate.
func (h *FeatureHandler) DetailedAnalytics(c *fiber.Ctx) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	usage, err := h.usageService.Analytics(user)
	if err != nil {
		return writeError(c, err)
	}
	value, err := h.usageService.SubscriptionValue(user)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.DetailedUsageResponse{
		UsageAnalyticsResponse: *usage,
		TotalFeaturesUsed:      len(usage.FeatureUsage),
		SubscriptionValue:      value,
	})
}
