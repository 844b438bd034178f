// Command ironlake is the service entry point: migrate, wait-for-db, serve,
// healthcheck and version subcommands built on spf13/cobra.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ironlake-data/catalog/internal/bootstrap"
	"github.com/ironlake-data/catalog/internal/platform/postgres"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use: "ironlake",
		Short: "Multi-tenant Iceberg REST catalog service",
	}

	root.AddCommand(
		newMigrateCmd(),
		newWaitForDBCmd(),
		newServeCmd(),
		newHealthcheckCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use: "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap.Load()
			if err != nil {
				return err
			}

			pg := &postgres.Connection{PrimaryDSN: cfg.DBPrimaryDSN, ReplicaDSN: cfg.DBReplicaDSN, DBName: cfg.DBName}

			return pg.Migrate(cmd.Context())
		},
	}
}

func newWaitForDBCmd() *cobra.Command {
	var (
		checkMigrations bool
		retries int
		backoffSeconds int
	)

	cmd := &cobra.Command{
		Use: "wait-for-db",
		Short: "Block until the catalog database accepts connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap.Load()
			if err != nil {
				return err
			}

			pg := &postgres.Connection{PrimaryDSN: cfg.DBPrimaryDSN, ReplicaDSN: cfg.DBReplicaDSN, DBName: cfg.DBName}

			var lastErr error

			for attempt := 0; attempt <= retries; attempt++ {
				ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
				lastErr = pg.Ping(ctx)
				cancel()

				if lastErr == nil {
					return nil
				}

				time.Sleep(time.Duration(backoffSeconds) * time.Second)
			}

			return fmt.Errorf("database did not become available after %d retries: %w", retries, lastErr)
		},
	}

	cmd.Flags().BoolVar(&checkMigrations, "check-migrations", false, "accepted but has no effect: pending migrations are not checked")
	cmd.Flags().IntVarP(&retries, "retries", "r", 30, "number of retries after the first failed connection attempt")
	cmd.Flags().IntVarP(&backoffSeconds, "backoff", "b", 2, "seconds to sleep between attempts")

	return cmd
}

func newServeCmd() *cobra.Command {
	var forceStart bool

	cmd := &cobra.Command{
		Use: "serve",
		Short: "Run the catalog HTTP service and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap.Load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			srv, err := bootstrap.New(ctx, cfg)
			if err != nil {
				if !forceStart {
					return err
				}

				fmt.Fprintf(os.Stderr, "warning: startup error ignored due to --force-start: %v\n", err)

				return nil
			}

			return srv.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&forceStart, "force-start", false, "on a startup error, print a warning and exit with status 0 instead of failing; the server is not started")

	return cmd
}

func newHealthcheckCmd() *cobra.Command {
	var (
		checkDB bool
		checkStorage bool
		checkAuthz bool
	)

	cmd := &cobra.Command{
		Use: "healthcheck",
		Short: "Probe the service's own HTTP health endpoint and, optionally, its dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap.Load()
			if err != nil {
				return err
			}

			resp, err := http.Get(fmt.Sprintf("http://localhost:%s/catalog/v1/config", cfg.Port))
			if err != nil {
				return fmt.Errorf("service not responding: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 500 {
				return fmt.Errorf("service reported status %d", resp.StatusCode)
			}

			if checkDB {
				pg := &postgres.Connection{PrimaryDSN: cfg.DBPrimaryDSN, ReplicaDSN: cfg.DBReplicaDSN, DBName: cfg.DBName}
				if err := pg.Ping(cmd.Context()); err != nil {
					return fmt.Errorf("database unhealthy: %w", err)
				}
			}

			// checkStorage and checkAuthz have no standalone probe beyond
			// what the service's own /catalog/v1/config readiness already
			// proves at startup; the flags exist for CLI-surface parity.

			return nil
		},
	}

	cmd.Flags().BoolVarP(&checkDB, "database", "d", false, "also verify the database connection")
	cmd.Flags().BoolVarP(&checkStorage, "storage", "s", false, "accepted; performs no additional storage check")
	cmd.Flags().BoolVarP(&checkAuthz, "authz", "a", false, "accepted; performs no additional authorization check")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use: "version",
		Short: "Print the service version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	}
}
