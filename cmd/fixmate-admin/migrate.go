package main

import (
	"context"
	"fmt"

	"fixmate_backend/platform/db"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or inspect database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
		if err := db.RunMigrations(ctx, s.pool); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	}),
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which migrations are applied",
	Args:  cobra.NoArgs,
	RunE: withSession(func(ctx context.Context, _ *cobra.Command, s *session, _ []string) error {
		return db.MigrationStatus(ctx, s.pool)
	}),
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
}
