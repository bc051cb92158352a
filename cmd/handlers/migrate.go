package handlers

import (
	"context"
	"fmt"
	"newsroom/internal/config"
	"newsroom/internal/logger"
	"newsroom/internal/persistence"

	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate command for database migrations
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Manage database schema migrations.

Subcommands:
  up       Apply all pending migrations
  status   Show migration status

The migration system tracks applied migrations in the schema_migrations table
and applies new migrations in sequential order. PostgreSQL and SQLite each
have their own embedded migration set.

Examples:
  newsroom migrate up
  newsroom migrate status`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateUp(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateStatus(cmd.Context())
		},
	})

	return cmd
}

func runMigrateUp(ctx context.Context) error {
	logger.Info("Starting database migration")

	db, err := openDatabase(ctx, config.Get(), false)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Println(okStyle.Render("All migrations applied successfully"))
	return nil
}

func runMigrateStatus(ctx context.Context) error {
	db, err := openDatabase(ctx, config.Get(), false)
	if err != nil {
		return err
	}
	defer db.Close()

	status, err := persistence.NewMigrationManager(db).Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	if len(status) == 0 {
		fmt.Println("No migrations found")
		return nil
	}

	fmt.Println(titleStyle.Render("Migration Status"))
	fmt.Printf("%-10s %-10s %s\n", "Version", "Status", "Description")

	pending := 0
	for _, m := range status {
		state := okStyle.Render(fmt.Sprintf("%-10s", "applied"))
		if !m.Applied {
			state = warnStyle.Render(fmt.Sprintf("%-10s", "pending"))
			pending++
		}
		fmt.Printf("%-10d %s %s\n", m.Version, state, m.Description)
	}

	fmt.Printf("\nApplied: %d | Pending: %d | Total: %d\n", len(status)-pending, pending, len(status))
	if pending > 0 {
		fmt.Println("Run 'newsroom migrate up' to apply pending migrations")
	}
	return nil
}
