package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/apps"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/apps/dopamine"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/cli"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/logging"
)

var CLI struct {
	Migrate     cli.MigrateCmd     `cmd:"" help:"Create or update database tables."`
	ResetPoints cli.ResetPointsCmd `cmd:"" help:"Zero the weekly or monthly point buckets."`
	Grant       cli.GrantCmd       `cmd:"" help:"Grant a paid tier without payment."`
	StartTrial  cli.StartTrialCmd  `cmd:"" help:"Start the one-time trial for an account."`
	PruneLogs   cli.PruneLogsCmd   `cmd:"" help:"Delete old system logs."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("admin"),
		kong.Description("Maintenance commands for the self-hypnosis backend"),
		kong.UsageOnError(),
	)

	cfg := config.Load()
	logging.Setup(cfg)

	if err := database.Connect(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	err := ctx.Run(&cli.Context{
		DB:      database.DB,
		Config:  cfg,
		Out:     os.Stdout,
		Plugins: []apps.Plugin{dopamine.New()},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
