package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"bde/internal/config"
	"bde/internal/logging"
	"bde/internal/registry"
)

// resolveRoot returns the absolute project root from a positional argument,
// defaulting to the working directory.
func resolveRoot(args []string) (string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project root: %w", err)
	}
	return abs, nil
}

// mustResolveRoot returns the project root or exits on error.
func mustResolveRoot(args []string) string {
	root, err := resolveRoot(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return root
}

// loadConfig loads .bde/config.json, falling back to defaults.
func loadConfig(root string, logger *logging.Logger) *config.Config {
	cfg, err := config.LoadConfig(root)
	if err != nil {
		logger.Warn("Failed to load config, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		return config.DefaultConfig()
	}
	return cfg
}

// loadRegistry loads the issue registry configured for the root, or an
// empty one when no document exists so diagnosis still runs.
func loadRegistry(root string, cfg *config.Config, override string, logger *logging.Logger) *registry.Registry {
	path := override
	if path == "" {
		path = cfg.Registry.Path
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	if _, err := os.Stat(path); err != nil {
		logger.Debug("No issue registry found, using empty catalog", map[string]interface{}{
			"path": path,
		})
		return registry.Empty()
	}
	reg, warnings, err := registry.Load(path, logger)
	if err != nil {
		logger.Warn("Failed to load issue registry, using empty catalog", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return registry.Empty()
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "registry warning: %s\n", w)
	}
	return reg
}

// newContext creates a new context for command execution.
func newContext() context.Context {
	return context.Background()
}

// newLogger creates a logger with the specified format.
func newLogger(format string) *logging.Logger {
	logFormat := logging.HumanFormat
	if format == "json" {
		logFormat = logging.JSONFormat
	}
	level := logging.ParseLevel(os.Getenv("BDE_LOG_LEVEL"))
	return logging.NewLogger(logging.Config{
		Format: logFormat,
		Level:  level,
	})
}

// outputJSON renders v as indented JSON on stdout.
func outputJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
