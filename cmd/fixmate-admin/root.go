package main

import (
	"context"
	"fmt"

	"fixmate_backend/internal/bootstrap"
	"fixmate_backend/platform/config"
	"fixmate_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

const app = "fixmate-admin"

// Actual version can be specified in build command.
var version = "unknown"

var rootCmd = &cobra.Command{
	Use:           app,
	Short:         "fixmate-admin manages the FixMate database, fixers and reports",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s version: %s\n", app, version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.AddCommand(versionCmd, migrateCmd, fixersCmd, clientsCmd, exportCmd)
}

// session is what every command needs: config, a logger and the pool.
type session struct {
	cfg  *config.Config
	log  *logger.Logger
	pool *pgxpool.Pool
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	env := "development"
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		env = "production"
	}
	log := logger.New(env)

	pool, err := bootstrap.ConnectDatabase(cmd.Context(), cfg, log)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &session{cfg: cfg, log: log, pool: pool}, nil
}

func (s *session) Close() {
	s.pool.Close()
}

func withSession(fn func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(cmd.Context(), cmd, s, args)
	}
}
