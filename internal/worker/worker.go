package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/phrazzld/archiver/internal/domain"
	"github.com/phrazzld/archiver/internal/events"
	"github.com/phrazzld/archiver/internal/handler"
	"github.com/phrazzld/archiver/internal/relay"
	"github.com/phrazzld/archiver/internal/store"
)

// Source is the relay source name used for every worker message.
const Source = "Worker"

// DefaultInterval is the poll interval used when Config.Interval is unset.
const DefaultInterval = 10 * time.Second

// blankFailureMessage replaces an empty message from a failing handler, since
// failure records always carry a message.
const blankFailureMessage = "download failed without a message"

// ErrConfig marks a configuration fault. It is the only error that stops the
// worker.
var ErrConfig = errors.New("invalid worker configuration")

// Config holds the worker settings.
type Config struct {
	// RootDir is the destination root passed to every handler. It must exist.
	RootDir string

	// MaxThreads bounds the parallelism a handler may use internally.
	MaxThreads int

	// Interval is the pause between passes. Defaults to DefaultInterval.
	Interval time.Duration
}

// Resolver maps a URL to a freshly constructed handler.
type Resolver interface {
	Resolve(rawURL string) (handler.Handler, error)
}

// Reporter receives human-readable status messages.
type Reporter interface {
	Send(ctx context.Context, level relay.Level, source, message string)
}

// Deps are the collaborators a Worker needs.
type Deps struct {
	Store    store.Repository
	Registry Resolver
	Relay    Reporter
	Events   events.EventEmitter
	Logger   *slog.Logger
}

// Worker drains the queue one item at a time.
type Worker struct {
	cfg      Config
	store    store.Repository
	registry Resolver
	relay    Reporter
	events   events.EventEmitter
	logger   *slog.Logger
}

// New creates a Worker. Missing optional dependencies are replaced with
// no-op implementations; Validate reports missing required ones.
func New(cfg Config, deps Deps) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	emitter := deps.Events
	if emitter == nil {
		emitter = events.NopEmitter{}
	}

	reporter := deps.Relay
	if reporter == nil {
		reporter = nopReporter{}
	}

	return &Worker{
		cfg:      cfg,
		store:    deps.Store,
		registry: deps.Registry,
		relay:    reporter,
		events:   emitter,
		logger:   logger.With("component", "queue_worker"),
	}
}

// Validate checks the startup preconditions. Every error wraps ErrConfig.
func (w *Worker) Validate() error {
	if w.store == nil {
		return fmt.Errorf("%w: store is required", ErrConfig)
	}
	if w.registry == nil {
		return fmt.Errorf("%w: handler registry is required", ErrConfig)
	}
	if strings.TrimSpace(w.cfg.RootDir) == "" {
		return fmt.Errorf("%w: destination root directory is not set", ErrConfig)
	}

	info, err := os.Stat(w.cfg.RootDir)
	if err != nil {
		return fmt.Errorf("%w: destination root %q: %w", ErrConfig, w.cfg.RootDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: destination root %q is not a directory", ErrConfig, w.cfg.RootDir)
	}

	if w.cfg.MaxThreads <= 0 {
		return fmt.Errorf("%w: max threads must be positive, got %d", ErrConfig, w.cfg.MaxThreads)
	}

	return nil
}

// Run validates the configuration and then processes the queue every
// Interval until ctx is cancelled. It returns nil on cancellation and an
// ErrConfig error if the configuration is invalid. A failing pass is logged
// and does not stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.Validate(); err != nil {
		return err
	}

	w.logger.Info("worker started",
		"root_dir", w.cfg.RootDir,
		"max_threads", w.cfg.MaxThreads,
		"interval", w.cfg.Interval)
	w.relay.Send(ctx, relay.LevelInformation, Source, "Background download worker started successfully")

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped")
			return nil
		case <-ticker.C:
			if err := w.ProcessOnce(ctx); err != nil {
				w.logger.Error("queue pass failed", "error", err)
			}
		}
	}
}

// ProcessOnce performs a single pass over a snapshot of the queue. Items
// added while the pass runs are picked up by the next pass.
func (w *Worker) ProcessOnce(ctx context.Context) error {
	w.relay.Send(ctx, relay.LevelDebug, Source, "Checking for items to download...")

	items, err := w.store.Queue().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list queue: %w", err)
	}

	if len(items) == 0 {
		return nil
	}

	w.logger.Info("processing queue", "item_count", len(items))
	w.relay.Send(ctx, relay.LevelInformation, Source,
		fmt.Sprintf("Found %d items in download queue", len(items)))

	pending := &changeset{}
	for i, item := range items {
		if ctx.Err() != nil {
			w.logger.Info("pass cancelled, skipping remaining items",
				"skipped", len(items)-i)
			break
		}
		w.processItem(ctx, item, pending)
	}

	// Pending changes are committed even when ctx was cancelled mid-pass.
	return w.flush(context.WithoutCancel(ctx), pending)
}

func (w *Worker) processItem(ctx context.Context, item *domain.QueueItem, pending *changeset) {
	logger := w.logger.With("item_id", item.ID, "url", item.URL)
	w.relay.Send(ctx, relay.LevelInformation, Source, "Starting download: "+item.URL)

	h, err := w.registry.Resolve(item.URL)
	switch {
	case errors.Is(err, handler.ErrNotFound):
		logger.Warn("no handler found")
		w.relay.Send(ctx, relay.LevelWarning, Source, "No download handler found for URL: "+item.URL)
		w.recordFailure(ctx, logger, item, pending, events.KindUnhandled, "",
			"No handler found for "+item.URL)
		return
	case errors.Is(err, handler.ErrInvalidURL):
		logger.Warn("invalid url", "error", err)
		w.relay.Send(ctx, relay.LevelWarning, Source, "Invalid URL: "+item.URL)
		w.recordFailure(ctx, logger, item, pending, events.KindUnhandled, "",
			fmt.Sprintf("Invalid URL %s: %v", item.URL, err))
		return
	case err != nil:
		w.fault(ctx, logger, item, pending, "", err, nil)
		return
	}

	name := handler.Describe(h)
	logger = logger.With("handler", name)
	w.relay.Send(ctx, relay.LevelDebug, Source, "Using download handler: "+name)

	started := time.Now()
	res, stack, err := w.invoke(ctx, h, item.URL)
	if err != nil {
		w.fault(ctx, logger, item, pending, name, err, stack)
		return
	}

	logger = logger.With("duration", time.Since(started))

	if res.Success {
		logger.Info("download completed", "message", res.Message)
		w.relay.Send(ctx, relay.LevelInformation, Source, "Download completed successfully: "+res.Message)
		pending.remove(item.ID)
		w.emit(ctx, logger, events.NewOutcomeEvent(item.ID, item.URL, events.KindCompleted, name, res.Message))
		return
	}

	message := res.Message
	if strings.TrimSpace(message) == "" {
		message = blankFailureMessage
	}
	logger.Warn("download failed", "message", message)
	w.relay.Send(ctx, relay.LevelError, Source, "Download failed: "+message)
	w.recordFailure(ctx, logger, item, pending, events.KindFailed, name, message)
}

// invoke runs the handler, converting a panic into an error and returning the
// panicking goroutine's stack.
func (w *Worker) invoke(ctx context.Context, h handler.Handler, url string) (res handler.Result, stack []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			stack = debug.Stack()
			err = fmt.Errorf("handler panicked: %v", p)
		}
	}()

	res, err = h.Download(ctx, url, w.cfg.RootDir, w.cfg.MaxThreads)
	return res, nil, err
}

// fault handles an error or panic during invocation: the item becomes a
// failure record and the changes gathered so far are saved.
func (w *Worker) fault(ctx context.Context, logger *slog.Logger, item *domain.QueueItem, pending *changeset, name string, cause error, stack []byte) {
	message := cause.Error()
	logger.Error("handler fault", "error", cause)
	w.relay.Send(ctx, relay.LevelCritical, Source, "Exception during download: "+message)
	if len(stack) > 0 {
		w.relay.Send(ctx, relay.LevelDebug, Source, "Stack trace: "+string(stack))
	}

	w.recordFailure(ctx, logger, item, pending, events.KindFaulted, name, message)

	if err := w.flush(context.WithoutCancel(ctx), pending); err != nil {
		logger.Error("failed to save changes after fault", "error", err)
	}
}

func (w *Worker) recordFailure(ctx context.Context, logger *slog.Logger, item *domain.QueueItem, pending *changeset, kind events.Kind, name, message string) {
	pending.remove(item.ID)

	failure, err := domain.NewFailedDownload(item.URL, message)
	if err != nil {
		// Only reachable for a corrupt queue row; the item is still removed.
		logger.Error("failed to build failure record", "error", err)
	} else {
		pending.fail(failure)
	}

	w.emit(ctx, logger, events.NewOutcomeEvent(item.ID, item.URL, kind, name, message))
}

func (w *Worker) emit(ctx context.Context, logger *slog.Logger, event *events.OutcomeEvent) {
	if err := w.events.EmitEvent(ctx, event); err != nil {
		logger.Warn("outcome subscriber failed", "event_kind", event.Kind, "error", err)
	}
}

// flush commits the pending changes in one transaction and clears them.
func (w *Worker) flush(ctx context.Context, pending *changeset) error {
	if pending.empty() {
		return nil
	}

	err := w.store.InTx(ctx, pending.apply)
	if err != nil {
		return fmt.Errorf("failed to save queue changes: %w", err)
	}

	w.logger.Debug("saved queue changes",
		"removed", len(pending.removals),
		"failed", len(pending.failures))
	pending.reset()
	return nil
}

type nopReporter struct{}

func (nopReporter) Send(context.Context, relay.Level, string, string) {}
