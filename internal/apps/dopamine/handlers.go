package dopamine

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type GoalHandler struct {
	goalService *GoalService
}

func NewGoalHandler(goalService *GoalService) *GoalHandler {
	return &GoalHandler{goalService: goalService}
}

// Dashboard handles GET /dopamine/dashboard.
func (h *GoalHandler) Dashboard(c *fiber.Ctx) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	resp, err := h.goalService.Dashboard(user.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}

// ListGoals handles GET /dopamine/goals?status=&category=.
func (h *GoalHandler) ListGoals(c *fiber.Ctx) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	goals, err := h.goalService.ListGoals(user.ID, c.Query("status"), c.Query("category"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"goals": newGoalResponses(goals, h.goalService.now()),
		"total": len(goals),
	})
}

// CreateGoal handles POST /dopamine/goals.
func (h *GoalHandler) CreateGoal(c *fiber.Ctx) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req CreateGoalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Invalid request body"})
	}

	goal, achievement, err := h.goalService.CreateGoal(user.ID, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(CreateGoalResponse{
		Message:     "Goal created successfully",
		Goal:        NewGoalResponse(goal, h.goalService.now()),
		Achievement: achievement,
	})
}

// UpdateGoal handles PUT /dopamine/goals/:id.
func (h *GoalHandler) UpdateGoal(c *fiber.Ctx) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	goalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Invalid goal ID", Field: "id"})
	}

	var req UpdateGoalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Invalid request body"})
	}

	goal, err := h.goalService.UpdateGoal(user.ID, goalID, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Goal updated successfully",
		"goal":    NewGoalResponse(goal, h.goalService.now()),
	})
}

// RecordProgress handles POST /dopamine/goals/:id/progress. An empty body
// records an increment of 1.
func (h *GoalHandler) RecordProgress(c *fiber.Ctx) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	goalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Invalid goal ID", Field: "id"})
	}

	var req ProgressRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Invalid request body"})
		}
	}

	resp, err := h.goalService.RecordProgress(user.ID, goalID, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}

// CompleteGoal handles POST /dopamine/goals/:id/complete.
func (h *GoalHandler) CompleteGoal(c *fiber.Ctx) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	goalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Invalid goal ID", Field: "id"})
	}

	resp, err := h.goalService.CompleteGoal(user.ID, goalID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}

// Achievements handles GET /dopamine/achievements?limit=&offset=.
func (h *GoalHandler) Achievements(c *fiber.Ctx) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	resp, err := h.goalService.Achievements(user.ID, c.QueryInt("limit", defaultAchievements), c.QueryInt("offset", 0))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}

// Stats handles GET /dopamine/stats.
func (h *GoalHandler) Stats(c *fiber.Ctx) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	resp, err := h.goalService.StatsAnalytics(user.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}

func (h *GoalHandler) fail(c *fiber.Ctx, err error) error {
	if v, ok := services.AsValidation(err); ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: v.Message, Field: v.Field})
	}

	switch {
	case errors.Is(err, ErrGoalNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "Goal not found"})
	case errors.Is(err, ErrGoalCompleted):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Goal already completed"})
	case errors.Is(err, ErrGoalArchived):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: "Goal is archived"})
	case errors.Is(err, ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: "Invalid status transition"})
	}

	slog.Error("goal tracker request failed", append(middleware.LogAttrs(c), "error", err)...)
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "Internal server error"})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "Unauthorized"})
}
