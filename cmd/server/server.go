// Package server implements the server command: an HTTP server exposing
// stored allocation runs over MCP.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/paularlott/cli"

	"github.com/martinsuchenak/subnetplan/internal/config"
	"github.com/martinsuchenak/subnetplan/internal/log"
	"github.com/martinsuchenak/subnetplan/internal/mcp"
	"github.com/martinsuchenak/subnetplan/internal/snapshot"
)

// ServerConfig holds everything needed to run the server
type ServerConfig struct {
	Config    *config.Config
	Store     snapshot.Store
	MCPServer *mcp.Server
}

// RunServer starts the HTTP server with the given configuration
func RunServer(cfg *ServerConfig) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	// MCP endpoint
	mux.HandleFunc("/mcp", cfg.MCPServer.GetHTTPHandler())

	server := &http.Server{
		Addr:    cfg.Config.ListenAddr,
		Handler: mux,
	}

	// Handle shutdown gracefully
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Info("Shutting down server...")
		server.Close()
	}()

	log.Info("Starting subnetplan server", "addr", cfg.Config.ListenAddr)
	log.Info("MCP available", "url", "http://localhost"+cfg.Config.ListenAddr+"/mcp")
	log.Info("Snapshot backend", "backend", cfg.Config.SnapshotBackend, "data_dir", cfg.Config.DataDir)
	cfg.MCPServer.LogStartup()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("Server error", "error", err)
		return err
	}

	log.Info("Server stopped")
	return nil
}

func Command() *cli.Command {
	return &cli.Command{
		Name:        "server",
		Usage:       "Start the allocation server",
		Description: "Start the HTTP server exposing stored allocation runs over MCP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (e.g. :8080)",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Data directory for the snapshot store",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Snapshot backend (file, sqlite)",
			},
			&cli.StringFlag{
				Name:  "token",
				Usage: "Bearer token required for MCP requests",
			},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.Load(&config.Config{
				DataDir:         cmd.GetString("data-dir"),
				ListenAddr:      cmd.GetString("addr"),
				BearerToken:     cmd.GetString("token"),
				SnapshotBackend: cmd.GetString("backend"),
			})
			log.Info("Configuration loaded", "source", cfg.String())

			store, err := snapshot.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			return RunServer(&ServerConfig{
				Config:    cfg,
				Store:     store,
				MCPServer: mcp.NewServer(store, cfg.BearerToken),
			})
		},
	}
}
