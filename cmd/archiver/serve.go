package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/archiver/internal/platform/sqldb"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newServeCmd(opts *options) *cobra.Command {
	var withWorker bool
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and console observer",
		Long: `Run the HTTP API for enqueueing and inspecting downloads together with the
console observer that receives relayed status messages. With --worker the
queue worker runs in the same process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			app, err := newApplication(ctx, cfg, log, appOptions{migrate: migrate, handlers: withWorker})
			if err != nil {
				return err
			}
			defer func() {
				if err := app.close(); err != nil {
					log.Error("shutdown cleanup failed", "error", err)
				}
			}()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return app.runHTTPServer(gctx, app.setupRouter())
			})
			if withWorker {
				w := app.newWorker()
				g.Go(func() error {
					return w.Run(gctx)
				})
			}

			return g.Wait()
		},
	}

	cmd.Flags().BoolVar(&withWorker, "worker", false, "also run the queue worker")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations on startup")
	return cmd
}

func newWorkerCmd(opts *options) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the queue worker",
		Long: `Poll the download queue and hand every item to the handler registered for
its origin until interrupted. Exits with an error if the destination root is
missing or the worker is otherwise misconfigured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			app, err := newApplication(ctx, cfg, log, appOptions{migrate: migrate, handlers: true})
			if err != nil {
				return err
			}
			defer func() {
				if err := app.close(); err != nil {
					log.Error("shutdown cleanup failed", "error", err)
				}
			}()

			return app.newWorker().Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations on startup")
	return cmd
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|reset|status|version]",
		Short:     "Manage the database schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "reset", "status", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}

			dialect, err := sqldb.ParseDialect(cfg.Database.Driver)
			if err != nil {
				return err
			}

			db, err := sqldb.Open(cmd.Context(), dialect, cfg.Database.URL, log)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = db.Close() }()

			if args[0] == "version" {
				version, err := sqldb.CurrentVersion(cmd.Context(), db, dialect)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\n", version)
				return nil
			}

			return sqldb.Migrate(cmd.Context(), db, dialect, args[0], log)
		},
	}
}
