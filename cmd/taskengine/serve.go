package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the task engine and its admin HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.loadConfig()
			if err != nil {
				return err
			}

			log.Info("server configuration loaded",
				"port", cfg.Server.Port,
				"log_level", cfg.Server.LogLevel,
				"workers", cfg.Engine.MaxConcurrentWorkers,
				"channel_capacity", cfg.Engine.ChannelCapacity,
				"channel_full_mode", cfg.Engine.ChannelFullMode,
				"notifier_sink", cfg.Notifier.Sink)

			ctx := cmd.Context()
			app, err := newApplication(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := app.close(closeCtx); err != nil {
					log.Error("failed to release resources", "error", err)
				}
			}()

			return app.run(ctx)
		},
	}
}
