package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Invalid request body"})
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Invalid request body"})
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(resp)
}

// Profile handles GET /user/profile.
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	return c.JSON(dto.UserEnvelope{User: dto.NewUserResponse(user, time.Now())})
}
