package dopamine

import (
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// DopaminePlugin mounts the goal and progress tracker.
type DopaminePlugin struct{}

func New() *DopaminePlugin {
	return &DopaminePlugin{}
}

func (p *DopaminePlugin) ID() string { return "dopamine" }

func (p *DopaminePlugin) Models() []interface{} {
	return []interface{}{
		&Goal{},
		&GoalProgress{},
		&Achievement{},
		&Stats{},
	}
}

func (p *DopaminePlugin) RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	svc := NewGoalService(db, cfg)
	handler := NewGoalHandler(svc)

	router.Get("/dashboard", handler.Dashboard)
	router.Get("/goals", handler.ListGoals)
	router.Post("/goals", handler.CreateGoal)
	router.Put("/goals/:id", handler.UpdateGoal)
	router.Post("/goals/:id/progress", handler.RecordProgress)
	router.Post("/goals/:id/complete", handler.CompleteGoal)
	router.Get("/achievements", handler.Achievements)
	router.Get("/stats", handler.Stats)
}
