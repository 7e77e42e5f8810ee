package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskengine/internal/config"
	"github.com/phrazzld/taskengine/internal/platform/logger"
	"github.com/spf13/cobra"
)

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "taskengine",
		Short: "Background task execution engine",
		Long: `taskengine runs fire-and-forget work items on a bounded worker pool.

Work is admitted through a FIFO queue with a configurable full-queue policy,
executed by a fixed number of workers and drained on shutdown within a
bounded window. Completed jobs publish events to the configured sink.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"config file path (default: ./taskengine.yaml or /etc/taskengine/taskengine.yaml)")

	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newMigrateCommand(opts))
	rootCmd.AddCommand(newTokenCommand(opts))

	return rootCmd
}

// loadConfig loads and validates configuration, then installs the default logger.
func (o *rootOptions) loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFrom(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	return cfg, log, nil
}
