package apps

import (
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Plugin is a self-contained feature area with its own tables and routes.
type Plugin interface {
	ID() string

	// Models returns the GORM model pointers to migrate.
	Models() []interface{}

	// RegisterRoutes mounts the plugin on router, a group at /api/<ID> that
	// is already behind JWT authentication with the current user loaded.
	RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config)
}

// Models collects the models of every plugin for migration.
func Models(plugins []Plugin) []interface{} {
	var out []interface{}
	for _, p := range plugins {
		out = append(out, p.Models()...)
	}
	return out
}
