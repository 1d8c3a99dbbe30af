// Package cmd implements the lastapp command line.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/actionsum/lastapp/internal/client"
	"github.com/actionsum/lastapp/internal/config"
	"github.com/actionsum/lastapp/internal/logger"
	"github.com/actionsum/lastapp/internal/version"
)

var (
	// configPath to the YAML settings file; empty uses ~/.config/lastapp/config.yaml
	configPath string
	// logLevel overrides the configured level when set
	logLevel string

	rootCmd = &cobra.Command{
		Use:   "lastapp",
		Short: "Switch back to the previously focused application.",
		Long: `lastapp watches which application holds focus and, on request, brings
back the one that was focused just before it.

Bind "lastapp switch" to a key. The daemon ("lastapp serve" or
"lastapp start") must be running so it can observe focus changes.

Environment variables (LASTAPP_*) override the settings file.`,
		SilenceUsage: true,
	}
)

// Execute runs the lastapp CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// loadConfig reads defaults, the settings file and the environment, then
// applies the global log level
func loadConfig() (*config.Config, error) {
	cfg, err := config.New(configPath)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Daemon.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if level, ok := logger.ParseLogLevel(cfg.Daemon.LogLevel); ok {
		logger.SetLevel(level)
	} else {
		logger.Warnf(context.Background(), "unknown log level %q, using %s", cfg.Daemon.LogLevel, logger.Level())
	}
	return cfg, nil
}

func newClient(cfg *config.Config) *client.Client {
	return client.New(cfg.APIAddress())
}
