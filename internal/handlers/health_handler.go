package handlers

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	redis *redis.Client
}

// NewHealthHandler reports on the database and, when rdb is non-nil, Redis.
func NewHealthHandler(rdb *redis.Client) *HealthHandler {
	return &HealthHandler{redis: rdb}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := "ok"
	code := fiber.StatusOK

	dbStatus := "ok"
	if err := database.Ping(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}

	var redisStatus string
	if h.redis != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		redisStatus = "ok"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy: " + err.Error()
			status = "degraded"
		}
	}

	return c.Status(code).JSON(dto.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		Redis:     redisStatus,
	})
}
