package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/phrazzld/archiver/internal/config"
	"github.com/phrazzld/archiver/internal/platform/logger"
	"github.com/phrazzld/archiver/internal/redact"
	"github.com/spf13/cobra"
)

// options holds the flags shared by every command.
type options struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "archiver",
		Short: "Archiver - queue driven downloader with pluggable site handlers",
		Long: `Archiver drains a queue of URLs, hands each one to the handler registered
for its origin and reports progress to a console observer and push
notifications. Failed downloads are kept for an operator to retry or delete.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "",
		"config file (YAML, TOML or JSON); environment variables prefixed with "+config.EnvPrefix+"_ override it")

	root.AddCommand(
		newServeCmd(opts),
		newWorkerCmd(opts),
		newMigrateCmd(opts),
		newEnqueueCmd(opts),
		newQueueCmd(opts),
		newFailedCmd(opts),
		newTokenCmd(opts),
	)

	return root
}

// load reads the configuration and installs the process logger.
func (o *options) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(logger.LoggerConfig{Level: cfg.Server.LogLevel, Output: os.Stderr})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Debug("configuration loaded",
		"port", cfg.Server.Port,
		"database_driver", cfg.Database.Driver,
		"database_url", redact.URL(cfg.Database.URL),
		"relay_enabled", cfg.Relay.URL != "",
		"notify_enabled", cfg.Notify.URL != "",
		"library_enabled", cfg.Library.BaseURL != "",
		"auth_enabled", cfg.Auth.JWTSecret != "")

	return cfg, log, nil
}
