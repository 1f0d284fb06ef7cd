package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// writeError maps service errors to status codes. Anything unrecognised is
// logged with the request attributes and answered with a generic 500.
func writeError(c *fiber.Ctx, err error) error {
	if v, ok := services.AsValidation(err); ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: v.Message, Field: v.Field})
	}

	switch {
	case errors.Is(err, services.ErrEmailTaken):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: "User already exists"})
	case errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "Invalid credentials"})
	case errors.Is(err, services.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "User not found"})
	case errors.Is(err, services.ErrTrialUsed):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Trial already used"})
	case errors.Is(err, services.ErrNoActiveSubscription):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "No active subscription found"})
	case errors.Is(err, services.ErrPaymentProvider):
		slog.Error("payment provider request failed", append(middleware.LogAttrs(c), "error", err)...)
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: "Payment provider unavailable"})
	}

	slog.Error("request failed", append(middleware.LogAttrs(c), "error", err)...)
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "Internal server error"})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "Unauthorized"})
}

// ErrorHandler is the Fiber fallback for errors returned by handlers and
// middleware. Client errors keep their message; server errors do not.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	if code >= fiber.StatusInternalServerError {
		slog.Error("unhandled server error", append(middleware.LogAttrs(c), "error", err.Error())...)
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{Error: message})
}
