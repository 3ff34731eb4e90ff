// Package snapshot implements the snapshot command for inspecting stored
// allocation runs.
package snapshot

import (
	"context"
	"fmt"
	"os"

	"github.com/paularlott/cli"

	"github.com/martinsuchenak/subnetplan/internal/config"
	"github.com/martinsuchenak/subnetplan/internal/snapshot"
)

func Commands() []*cli.Command {
	return []*cli.Command{
		listCommand(),
		showCommand(),
	}
}

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "data-dir",
			Usage: "Data directory for the snapshot store",
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Snapshot backend (file, sqlite)",
		},
	}
}

func openStore(cmd *cli.Command) (snapshot.Store, error) {
	cfg := config.Load(&config.Config{
		DataDir:         cmd.GetString("data-dir"),
		SnapshotBackend: cmd.GetString("backend"),
	})
	return snapshot.Open(cfg)
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:        "list",
		Usage:       "List stored runs",
		Description: "List stored allocation runs, newest first. Run history requires the sqlite backend; the file backend only keeps the latest run.",
		Flags:       storeFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			hs, ok := store.(snapshot.HistoryStore)
			if !ok {
				doc, err := store.Latest()
				if err != nil {
					return err
				}
				if doc == nil {
					fmt.Println("No runs stored.")
					return nil
				}
				fmt.Printf("latest  %d entries (file backend keeps only the latest run)\n", doc.Count())
				return nil
			}

			runs, err := hs.Runs()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No runs stored.")
				return nil
			}
			for _, r := range runs {
				fmt.Printf("%s  %s  %d entries\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Entries)
			}
			return nil
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:        "show",
		Usage:       "Print a stored run as JSON",
		Description: "Print the full document of a stored run. Without an id the latest run is printed.",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags: storeFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			var doc snapshot.Document
			if id := cmd.GetStringArg("id"); id != "" {
				hs, ok := store.(snapshot.HistoryStore)
				if !ok {
					return fmt.Errorf("run lookup by id requires the sqlite backend")
				}
				doc, err = hs.GetRun(id)
			} else {
				doc, err = store.Latest()
			}
			if err != nil {
				return err
			}
			if doc == nil {
				return fmt.Errorf("no runs stored")
			}

			data, err := snapshot.Encode(doc)
			if err != nil {
				return err
			}
			os.Stdout.Write(data)
			return nil
		},
	}
}
