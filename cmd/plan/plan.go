// Package plan implements the plan command: parse a network schema, replay
// the previous run, allocate anything new, and print the result.
package plan

import (
	"context"
	"fmt"
	"os"

	"github.com/paularlott/cli"

	"github.com/martinsuchenak/subnetplan/internal/config"
	"github.com/martinsuchenak/subnetplan/internal/log"
	"github.com/martinsuchenak/subnetplan/internal/model"
	"github.com/martinsuchenak/subnetplan/internal/planner"
	"github.com/martinsuchenak/subnetplan/internal/render"
	"github.com/martinsuchenak/subnetplan/internal/schema"
	"github.com/martinsuchenak/subnetplan/internal/snapshot"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:        "plan",
		Usage:       "Compute IP and VLAN allocations from a schema file",
		Description: "Parses a YAML network schema, replays the previous allocation run so existing assignments stay stable, allocates new entries, and prints the result.",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "schema", Required: true},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:         "output",
				Aliases:      []string{"o"},
				Usage:        "Output format (human, json, yaml-anchors)",
				DefaultValue: "human",
			},
			&cli.StringFlag{
				Name:    "previous",
				Aliases: []string{"p"},
				Usage:   "Previous allocation run as a JSON file (overrides the snapshot store)",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Data directory for the snapshot store",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Snapshot backend (file, sqlite)",
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "Save the resulting run to the snapshot store",
			},
			&cli.BoolFlag{
				Name:  "pools",
				Usage: "Print residual pool state after the table (human output only)",
			},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.Load(&config.Config{
				DataDir:         cmd.GetString("data-dir"),
				SnapshotBackend: cmd.GetString("backend"),
			})

			store, err := snapshot.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			return run(cmd, cfg, store)
		},
	}
}

func run(cmd *cli.Command, cfg *config.Config, store snapshot.Store) error {
	schemaPath := cmd.GetStringArg("schema")
	s, err := schema.ParseFile(schemaPath)
	if err != nil {
		return fmt.Errorf("parsing schema %s: %w", schemaPath, err)
	}

	prior, err := loadPrior(cmd, store)
	if err != nil {
		return err
	}

	p, err := planner.Run(s, prior)
	if err != nil {
		return err
	}

	if cmd.GetBool("save") {
		id, err := store.Save(snapshot.FromPlan(p))
		if err != nil {
			return fmt.Errorf("saving run: %w", err)
		}
		if id != "" {
			log.Info("Run saved", "id", id, "backend", cfg.SnapshotBackend)
		} else {
			log.Info("Run saved", "backend", cfg.SnapshotBackend)
		}
	}

	return emit(cmd, p)
}

func loadPrior(cmd *cli.Command, store snapshot.Store) (*model.Snapshot, error) {
	if path := cmd.GetString("previous"); path != "" {
		doc, err := snapshot.LoadFile(path)
		if err != nil {
			return nil, err
		}
		return doc.Snapshot()
	}

	doc, err := store.Latest()
	if err != nil {
		return nil, fmt.Errorf("loading previous run: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	return doc.Snapshot()
}

func emit(cmd *cli.Command, p *model.Plan) error {
	switch format := cmd.GetString("output"); format {
	case "json":
		data, err := render.JSON(p)
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
	case "yaml-anchors":
		fmt.Println(render.Anchors(p))
	case "human":
		fmt.Println(render.Human(p))
		if cmd.GetBool("pools") {
			fmt.Println()
			fmt.Println(render.Pools(p))
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
	return nil
}
