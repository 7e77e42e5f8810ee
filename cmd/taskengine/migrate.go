package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/phrazzld/taskengine/internal/platform/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [" + strings.Join(postgres.MigrationCommands, "|") + "]",
		Short: "Manage the event outbox schema",
		Long: `Runs goose migrations for the event outbox table against database.url.
Without an argument, applies all pending migrations.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: postgres.MigrationCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}

			cfg, log, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("database.url must be set to run migrations")
			}

			if err := postgres.Migrate(cmd.Context(), cfg.Database.URL, command, log); err != nil {
				return fmt.Errorf("migrate %s: %w", command, err)
			}
			return nil
		},
	}
}
