package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/phrazzld/archiver/internal/auth"
	"github.com/phrazzld/archiver/internal/config"
	"github.com/phrazzld/archiver/internal/events"
	"github.com/phrazzld/archiver/internal/handler"
	"github.com/phrazzld/archiver/internal/handler/direct"
	"github.com/phrazzld/archiver/internal/handler/fetch"
	"github.com/phrazzld/archiver/internal/library"
	"github.com/phrazzld/archiver/internal/monitor"
	"github.com/phrazzld/archiver/internal/notify"
	"github.com/phrazzld/archiver/internal/platform/sqldb"
	"github.com/phrazzld/archiver/internal/relay"
	"github.com/phrazzld/archiver/internal/store"
	"github.com/phrazzld/archiver/internal/worker"
)

// application holds the process-wide singletons.
type application struct {
	config     *config.Config
	logger     *slog.Logger
	db         *sql.DB
	repo       store.Repository
	relay      *relay.Client
	registry   *handler.Registry
	emitter    *events.Dispatcher
	jwtService auth.JWTService
	observer   *monitor.Observer
}

// appOptions selects the optional parts of the bootstrap.
type appOptions struct {
	// migrate applies pending migrations after the database is opened.
	migrate bool
	// handlers loads the handler registry and the outcome subscribers.
	handlers bool
}

// newApplication builds the application in dependency order. On error every
// resource opened so far is released.
func newApplication(ctx context.Context, cfg *config.Config, log *slog.Logger, opts appOptions) (app *application, err error) {
	app = &application{config: cfg, logger: log}
	defer func() {
		if err != nil {
			if cerr := app.close(); cerr != nil {
				log.Error("failed to release resources after startup error", "error", cerr)
			}
			app = nil
		}
	}()

	dialect, err := sqldb.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return app, err
	}

	app.db, err = sqldb.Open(ctx, dialect, cfg.Database.URL, log)
	if err != nil {
		return app, fmt.Errorf("failed to open database: %w", err)
	}

	if opts.migrate {
		if err = sqldb.Migrate(ctx, app.db, dialect, "up", log); err != nil {
			return app, fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	app.repo = sqldb.NewRepository(app.db, dialect, log)

	app.relay = relay.New(relayConfig(cfg.Relay), nil, os.Stdout, log)
	app.relay.Start()

	if cfg.Auth.JWTSecret != "" {
		app.jwtService, err = auth.NewJWTService(cfg.Auth)
		if err != nil {
			return app, fmt.Errorf("failed to create JWT service: %w", err)
		}
	}

	app.observer = monitor.NewObserver(monitor.NewHistory(monitor.DefaultHistorySize), os.Stdout, log)

	if opts.handlers {
		if err = app.setupHandlers(); err != nil {
			return app, err
		}
	}

	return app, nil
}

// setupHandlers builds the handler registry and registers the outcome
// subscribers.
func (app *application) setupHandlers() error {
	cfg := app.config

	app.registry = handler.NewRegistry(app.logger, handler.PluginLoader{})

	client := fetch.NewClient(fetch.DefaultConfig(), nil, app.logger)
	regs, err := direct.Registrations(cfg.Plugins.DirectOrigins, client)
	if err != nil {
		return fmt.Errorf("failed to configure direct handler: %w", err)
	}
	for _, reg := range regs {
		if err := app.registry.Register(reg); err != nil {
			return fmt.Errorf("failed to register direct handler: %w", err)
		}
	}

	if err := app.registry.Initialize(cfg.Plugins.Dir); err != nil {
		return fmt.Errorf("failed to load handler plugins: %w", err)
	}

	app.emitter = events.NewDispatcher(app.logger)

	pusher := notify.New(cfg.Notify.URL, nil, app.logger)
	if pusher.Enabled() {
		app.emitter.Subscribe(pusher)
	}

	scanner := library.NewScanner(library.Config{
		BaseURL:    cfg.Library.BaseURL,
		APIKey:     cfg.Library.APIKey,
		PluginName: cfg.Library.PluginName,
		LibraryID:  cfg.Library.LibraryID,
		ForceScan:  cfg.Library.ForceScan,
		ScanDelay:  cfg.Library.ScanDelay,
	}, nil, app.logger)
	if scanner.Enabled() {
		app.emitter.Subscribe(scanner)
	}

	return nil
}

// newWorker creates the queue worker from the application's singletons.
func (app *application) newWorker() *worker.Worker {
	return worker.New(worker.Config{
		RootDir:    app.config.Worker.ShareLocation,
		MaxThreads: app.config.Worker.MaxConcurrentThreads,
		Interval:   app.config.Worker.PollInterval,
	}, worker.Deps{
		Store:    app.repo,
		Registry: app.registry,
		Relay:    app.relay,
		Events:   app.emitter,
		Logger:   app.logger,
	})
}

// close stops the relay drain loop and closes the database, collecting every
// error.
func (app *application) close() error {
	var result *multierror.Error

	if app.relay != nil {
		app.relay.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close database: %w", err))
		}
	}

	return result.ErrorOrNil()
}

func relayConfig(cfg config.RelayConfig) relay.Config {
	return relay.Config{
		ObserverURL:    cfg.URL,
		MaxRetries:     cfg.MaxRetries,
		RetryDelay:     cfg.RetryDelay,
		CircuitTimeout: cfg.CircuitTimeout,
		BufferSize:     cfg.BufferSize,
		DrainInterval:  cfg.DrainInterval,
		RequestTimeout: cfg.RequestTimeout,
	}
}
