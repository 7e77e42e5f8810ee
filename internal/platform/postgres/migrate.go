package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"slices"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/pressly/goose/v3"
)

// MigrationTableName is the table goose uses to track applied versions.
const MigrationTableName = "schema_migrations"

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationCommands lists the commands accepted by Migrate.
var MigrationCommands = []string{"up", "down", "reset", "status", "version"}

// gooseLogger adapts the goose logger interface to slog.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

// Fatalf logs at error level; it does not exit so callers can return the error.
func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func configureGoose(logger *slog.Logger) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{logger: logger})
	goose.SetTableName(MigrationTableName)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	return nil
}

// Migrate runs a goose command against the embedded outbox migrations.
func Migrate(ctx context.Context, databaseURL, command string, logger *slog.Logger) error {
	if !slices.Contains(MigrationCommands, command) {
		return fmt.Errorf("unknown migration command: %s (expected one of %v)", command, MigrationCommands)
	}
	log := logger.With("component", "migrations", "command", command)

	if err := configureGoose(log); err != nil {
		return err
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Warn("failed to close database connection", "error", closeErr)
		}
	}()

	switch command {
	case "up":
		err = goose.UpContext(ctx, db, migrationsDir)
	case "down":
		err = goose.DownContext(ctx, db, migrationsDir)
	case "reset":
		err = goose.ResetContext(ctx, db, migrationsDir)
	case "status":
		err = goose.StatusContext(ctx, db, migrationsDir)
	case "version":
		err = goose.VersionContext(ctx, db, migrationsDir)
	}
	if err != nil {
		log.Error("migration command failed", "error", err)
		return fmt.Errorf("migration %s failed: %w", command, err)
	}

	log.Info("migration command completed")
	return nil
}
