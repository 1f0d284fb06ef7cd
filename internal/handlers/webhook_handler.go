package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/payment"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type WebhookHandler struct {
	subscriptionService *services.SubscriptionService
	provider            payment.Provider
}

func NewWebhookHandler(subscriptionService *services.SubscriptionService, provider payment.Provider) *WebhookHandler {
	return &WebhookHandler{
		subscriptionService: subscriptionService,
		provider:            provider,
	}
}

// HandleStripe handles POST /webhook/stripe. Payloads whose Stripe-Signature
// does not verify are rejected with 400 and never applied.
func (h *WebhookHandler) HandleStripe(c *fiber.Ctx) error {
	if h.provider == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Error: "Payments are not configured"})
	}

	signature := c.Get("Stripe-Signature")
	if signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Missing Stripe-Signature header"})
	}

	event, err := h.provider.ParseWebhook(c.Body(), signature)
	if err != nil {
		if errors.Is(err, payment.ErrNotConfigured) {
			slog.Error("stripe webhook secret not configured")
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Error: "Payments are not configured"})
		}
		slog.Warn("webhook signature rejected", "provider", h.provider.Name(), "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Invalid signature"})
	}

	if err := h.subscriptionService.HandleEvent(c.UserContext(), event); err != nil {
		slog.Error("webhook processing failed", "event_id", event.ID, "event_type", event.Type, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "Failed to process webhook event"})
	}

	slog.Info("webhook processed", "event_id", event.ID, "event_type", event.Type)
	return c.JSON(fiber.Map{"received": true})
}
