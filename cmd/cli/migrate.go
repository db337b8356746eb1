package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/goescrow/internal/infrastructure/config"
	"github.com/iho/goescrow/internal/infrastructure/postgres"
)

// migrator is the part of postgres.Migrator the CLI drives.
type migrator interface {
	Up() error
	Down() error
}

var newMigrator = func(cfg *config.Config, logger zerolog.Logger) migrator {
	return postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, logger)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations (uses DATABASE_URL and MIGRATIONS_PATH)",
	}

	run := func(step func(migrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
			return step(newMigrator(cfg, logger))
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE:  run(migrator.Up),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			Args:  cobra.NoArgs,
			RunE:  run(migrator.Down),
		},
	)

	return cmd
}
