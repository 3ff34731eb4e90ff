package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Snapshot store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config holds the application configuration
type Config struct {
	DataDir         string
	ListenAddr      string
	BearerToken     string
	SnapshotBackend string // "file" or "sqlite" (default: "file")
	ConfigFile      string // Path to .env file (if loaded)
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Command-line parameters (passed as opts)
// 2. .env file (if exists)
// 3. Environment variables
// 4. Default values
func Load(opts *Config) *Config {
	cfg := &Config{
		DataDir:         "./data",
		ListenAddr:      ":8080",
		BearerToken:     "",
		SnapshotBackend: "file",
	}

	// First, try to load from .env file
	envFile := ".env"
	if _, err := os.Stat(envFile); err == nil {
		if err := loadFromEnvFile(cfg, envFile); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to load .env file: %v\n", err)
		} else {
			cfg.ConfigFile = envFile
		}
	}

	// Then environment variables (only if not already set by .env)
	cfg.DataDir = coalesce(cfg.DataDir, os.Getenv("SP_DATA_DIR"), "./data")
	cfg.ListenAddr = coalesce(cfg.ListenAddr, os.Getenv("SP_LISTEN_ADDR"), ":8080")
	cfg.BearerToken = coalesce(cfg.BearerToken, os.Getenv("SP_BEARER_TOKEN"), "")
	cfg.SnapshotBackend = coalesce(cfg.SnapshotBackend, os.Getenv("SP_SNAPSHOT_BACKEND"), "file")

	// Finally, apply CLI opts if provided (highest priority)
	if opts != nil {
		if opts.DataDir != "" {
			cfg.DataDir = opts.DataDir
		}
		if opts.ListenAddr != "" {
			cfg.ListenAddr = opts.ListenAddr
		}
		if opts.BearerToken != "" {
			cfg.BearerToken = opts.BearerToken
		}
		if opts.SnapshotBackend != "" {
			cfg.SnapshotBackend = opts.SnapshotBackend
		}
	}

	if cfg.SnapshotBackend != BackendFile && cfg.SnapshotBackend != BackendSQLite {
		cfg.SnapshotBackend = BackendFile
	}

	return cfg
}

// loadFromEnvFile loads configuration from a .env file
func loadFromEnvFile(cfg *Config, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), "\"")

		switch key {
		case "SP_DATA_DIR":
			cfg.DataDir = value
		case "SP_LISTEN_ADDR":
			cfg.ListenAddr = value
		case "SP_BEARER_TOKEN":
			cfg.BearerToken = value
		case "SP_SNAPSHOT_BACKEND":
			cfg.SnapshotBackend = value
		}
	}

	return scanner.Err()
}

// String returns a string representation of the config source
func (c *Config) String() string {
	if c.ConfigFile != "" {
		return fmt.Sprintf(".env file (%s)", c.ConfigFile)
	}
	return "environment variables"
}

// coalesce returns the first non-empty string value
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
