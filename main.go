package main

import (
	"context"
	"os"

	"github.com/paularlott/cli"
	"github.com/paularlott/cli/env"

	"github.com/martinsuchenak/subnetplan/cmd/plan"
	"github.com/martinsuchenak/subnetplan/cmd/server"
	"github.com/martinsuchenak/subnetplan/cmd/snapshot"
	"github.com/martinsuchenak/subnetplan/internal/log"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Load .env file if it exists
	env.Load()

	// Initialize structured logging
	log.Configure("info", "console")

	rootCmd := &cli.Command{
		Name:        "subnetplan",
		Version:     version,
		Usage:       "Deterministic IP and VLAN allocation planner",
		Description: "Computes subnet, IP range, and VLAN assignments from a YAML network schema. Re-running with the previous output keeps existing assignments stable.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:         "log-level",
				Usage:        "Log level (trace, debug, info, warn, error)",
				DefaultValue: "info",
				EnvVars:      []string{"SP_LOG_LEVEL"},
				Global:       true,
			},
			&cli.StringFlag{
				Name:         "log-format",
				Usage:        "Log format (console, json)",
				DefaultValue: "console",
				EnvVars:      []string{"SP_LOG_FORMAT"},
				Global:       true,
			},
		},
		PreRun: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logLevel := cmd.GetString("log-level")
			logFormat := cmd.GetString("log-format")
			log.Configure(logLevel, logFormat)
			return ctx, nil
		},
		Commands: []*cli.Command{
			plan.Command(),
			server.Command(),
			{
				Name:        "snapshot",
				Usage:       "Snapshot store commands",
				Description: "Inspect stored allocation runs",
				Commands:    snapshot.Commands(),
			},
		},
	}

	if err := rootCmd.Execute(context.Background()); err != nil {
		log.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
