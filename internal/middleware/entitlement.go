package middleware

import (
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// FeatureLedger checks feature access and records uses.
type FeatureLedger interface {
	Check(user *models.User, feature string) (entitlement.Decision, error)
	Track(userID uuid.UUID, feature string, tierRequired entitlement.Tier) (*models.FeatureUsage, error)
}

// RequireTier only lets through users whose current entitlement reaches tier.
// It must run after CurrentUser.
func RequireTier(tier entitlement.Tier, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "Unauthorized"})
		}

		ent := user.Entitlement(time.Now())
		switch tier {
		case entitlement.TierProfessional:
			if ent.IsProfessional {
				return c.Next()
			}
			return upgradeRequired(c, cfg, user, "", "Professional subscription required", tier)
		case entitlement.TierPremium:
			if ent.IsPremium {
				return c.Next()
			}
			return upgradeRequired(c, cfg, user, "", "Premium subscription required", tier)
		default:
			return c.Next()
		}
	}
}

// FeatureGate rejects the request when the ledger says the user has no
// access to feature, and records one use before passing it on.
func FeatureGate(feature string, ledger FeatureLedger, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "Unauthorized"})
		}

		decision, err := ledger.Check(user, feature)
		if err != nil {
			slog.Error("feature check failed", append(LogAttrs(c), "feature", feature, "error", err)...)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "Internal server error"})
		}
		if !decision.Allowed {
			return upgradeRequired(c, cfg, user, feature, decision.Message, decision.RequiredTier)
		}
		if _, err := ledger.Track(user.ID, feature, decision.RequiredTier); err != nil {
			slog.Error("feature tracking failed", append(LogAttrs(c), "feature", feature, "error", err)...)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "Internal server error"})
		}
		return c.Next()
	}
}

func upgradeRequired(c *fiber.Ctx, cfg *config.Config, user *models.User, feature, message string, required entitlement.Tier) error {
	return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
		Error:        "Upgrade required",
		Message:      message,
		Feature:      feature,
		RequiredTier: required.String(),
		CurrentTier:  user.Tier.String(),
		UpgradeURL:   cfg.UpgradeURL(),
	})
}
