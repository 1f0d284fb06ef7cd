// Package cli holds the admin commands run by cmd/admin.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/apps"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/apps/dopamine"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/services"
	"gorm.io/gorm"
)

// Context is passed to every command's Run method.
type Context struct {
	DB      *gorm.DB
	Config  *config.Config
	Out     io.Writer
	Plugins []apps.Plugin
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *Context) error {
	if err := database.Migrate(ctx.DB, apps.Models(ctx.Plugins)...); err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, "migrations applied")
	return nil
}

// ResetPointsCmd is meant to be run by an external scheduler at the start of
// each week or month.
type ResetPointsCmd struct {
	Period string `help:"Bucket to reset." enum:"weekly,monthly" required:""`
}

func (c *ResetPointsCmd) Run(ctx *Context) error {
	n, err := dopamine.NewGoalService(ctx.DB, ctx.Config).ResetPoints(c.Period)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "reset %s points for %d users\n", c.Period, n)
	return nil
}

type GrantCmd struct {
	Email string `help:"Account email." required:""`
	Tier  string `help:"Tier to grant." enum:"premium,professional" default:"premium"`
	Days  int    `help:"Length of the grant in days." default:"30"`
}

func (c *GrantCmd) Run(ctx *Context) error {
	svc := services.NewSubscriptionService(ctx.DB, ctx.Config, nil)
	user, err := svc.Grant(c.Email, entitlement.ParseTier(c.Tier), c.Days)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "granted %s to %s until %s\n", user.Tier, user.Email, formatTime(user.ExpiresAt))
	return nil
}

type StartTrialCmd struct {
	Email string `help:"Account email." required:""`
}

func (c *StartTrialCmd) Run(ctx *Context) error {
	svc := services.NewSubscriptionService(ctx.DB, ctx.Config, nil)
	user, err := svc.FindByEmail(c.Email)
	if err != nil {
		return err
	}
	user, err = svc.StartTrial(user.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "trial started for %s until %s\n", user.Email, formatTime(user.TrialEndsAt))
	return nil
}

type PruneLogsCmd struct {
	Days int `help:"Keep logs newer than this many days." default:"30"`
}

func (c *PruneLogsCmd) Run(ctx *Context) error {
	retention := logging.DefaultRetention
	if c.Days > 0 {
		retention = time.Duration(c.Days) * 24 * time.Hour
	}
	n, err := logging.PruneSystemLogs(context.Background(), ctx.DB, retention)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "deleted %d system logs\n", n)
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.UTC().Format(time.RFC3339)
}
