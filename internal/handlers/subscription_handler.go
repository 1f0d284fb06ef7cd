package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type SubscriptionHandler struct {
	subscriptionService *services.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

// Status handles GET /subscription/status.
func (h *SubscriptionHandler) Status(c *fiber.Ctx) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	resp, err := h.subscriptionService.Status(user)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(resp)
}

// StartTrial handles POST /subscription/start-trial.
func (h *SubscriptionHandler) StartTrial(c *fiber.Ctx) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	updated, err := h.subscriptionService.StartTrial(user.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.UserEnvelope{
		Message: "Trial started successfully",
		User:    dto.NewUserResponse(updated, time.Now()),
	})
}

// CreateCheckoutSession handles POST /subscription/create-checkout-session.
// An empty body asks for monthly premium.
func (h *SubscriptionHandler) CreateCheckoutSession(c *fiber.Ctx) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req dto.CheckoutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Invalid request body"})
		}
	}

	session, err := h.subscriptionService.CreateCheckout(c.UserContext(), user, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.CheckoutResponse{CheckoutURL: session.URL, SessionID: session.ID})
}

// Cancel handles POST /subscription/cancel.
func (h *SubscriptionHandler) Cancel(c *fiber.Ctx) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	updated, err := h.subscriptionService.Cancel(c.UserContext(), user.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.UserEnvelope{
		Message: "Subscription cancelled successfully",
		User:    dto.NewUserResponse(updated, time.Now()),
	})
}
