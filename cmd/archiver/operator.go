package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/archiver/internal/api"
	"github.com/phrazzld/archiver/internal/auth"
	"github.com/phrazzld/archiver/internal/domain"
	"github.com/phrazzld/archiver/internal/platform/sqldb"
	"github.com/phrazzld/archiver/internal/store"
	"github.com/spf13/cobra"
)

// withRepository opens the configured database, runs fn and closes it again.
func withRepository(cmd *cobra.Command, opts *options, fn func(ctx context.Context, repo store.Repository, log *slog.Logger) error) error {
	cfg, log, err := opts.load()
	if err != nil {
		return err
	}

	dialect, err := sqldb.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := sqldb.Open(ctx, dialect, cfg.Database.URL, log)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database", "error", err)
		}
	}()

	return fn(ctx, sqldb.NewRepository(db, dialect, log), log)
}

func newEnqueueCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue <url>...",
		Short: "Add URLs to the download queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd, opts, func(ctx context.Context, repo store.Repository, log *slog.Logger) error {
				return enqueue(ctx, repo, cmd.OutOrStdout(), args)
			})
		},
	}
}

// enqueue validates every URL before adding any of them.
func enqueue(ctx context.Context, repo store.Repository, out io.Writer, urls []string) error {
	items := make([]*domain.QueueItem, 0, len(urls))
	for _, raw := range urls {
		item, err := domain.NewQueueItem(raw)
		if err != nil {
			return fmt.Errorf("invalid url %q: %w", raw, err)
		}
		items = append(items, item)
	}

	for _, item := range items {
		if err := repo.Queue().Add(ctx, item); err != nil {
			return fmt.Errorf("failed to enqueue %s: %w", item.URL, err)
		}
		fmt.Fprintf(out, "%s\t%s\n", item.ID, item.URL)
	}
	return nil
}

func newQueueCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and edit the download queue",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List pending downloads, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd, opts, func(ctx context.Context, repo store.Repository, log *slog.Logger) error {
				items, err := repo.Queue().List(ctx)
				if err != nil {
					return err
				}
				return printQueue(cmd.OutOrStdout(), items)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a pending download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withRepository(cmd, opts, func(ctx context.Context, repo store.Repository, log *slog.Logger) error {
				return repo.Queue().Remove(ctx, id)
			})
		},
	})

	return cmd
}

func newFailedCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "failed",
		Short: "Inspect, retry and delete failed downloads",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List failed downloads, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd, opts, func(ctx context.Context, repo store.Repository, log *slog.Logger) error {
				failures, err := repo.Failures().List(ctx)
				if err != nil {
					return err
				}
				return printFailures(cmd.OutOrStdout(), failures)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "retry <id>",
		Short: "Move a failed download back to the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withRepository(cmd, opts, func(ctx context.Context, repo store.Repository, log *slog.Logger) error {
				item, err := api.Retry(ctx, repo, id)
				if err != nil {
					return err
				}
				log.Info("failed download requeued", "failure_id", id, "item_id", item.ID)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", item.ID, item.URL)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a failed download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withRepository(cmd, opts, func(ctx context.Context, repo store.Repository, log *slog.Logger) error {
				return repo.Failures().Remove(ctx, id)
			})
		},
	})

	return cmd
}

func newTokenCmd(opts *options) *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator token for the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not set; the API does not require tokens")
			}

			svc, err := auth.NewJWTService(cfg.Auth)
			if err != nil {
				return err
			}

			token, err := svc.GenerateToken(cmd.Context(), subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	return cmd
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", raw, err)
	}
	return id, nil
}

func printQueue(out io.Writer, items []*domain.QueueItem) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tURL")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\n", item.ID, item.CreatedAt.Format(time.RFC3339), item.URL)
	}
	return w.Flush()
}

func printFailures(out io.Writer, failures []*domain.FailedDownload) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFAILED\tURL\tERROR")
	for _, f := range failures {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.ID, f.CreatedAt.Format(time.RFC3339), f.URL, f.ErrorMessage)
	}
	return w.Flush()
}
