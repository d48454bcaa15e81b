// Package cmd defines and implements the CLI commands for the waterzone
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/keepnetics/waterzone/internal/config"
	"github.com/keepnetics/waterzone/internal/logging"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "waterzone",
		Short: "Build and query a water quality database by postcode",
		Long: `waterzone ingests water supply zone quality reports published as
PDFs, extracts the measurement tables, classifies the parameters, and
stores everything in a SQLite database keyed by postcode.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; env vars use the WATERZONE_ prefix)")

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newLookupCmd())

	return cmd
}

// loadConfigAndLogger builds the shared config and logger pair every
// subcommand starts from.
func loadConfigAndLogger() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
