package handler

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Registry resolves URLs to handlers by origin.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Registration
	loader  Loader
	logger  *slog.Logger
}

// NewRegistry creates an empty registry. A nil loader disables plugin
// discovery; a nil logger uses slog.Default().
func NewRegistry(logger *slog.Logger, loader Loader) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		entries: make(map[string]Registration),
		loader:  loader,
		logger:  logger.With(slog.String("component", "handler_registry")),
	}
}

// Register adds a registration, replacing any existing one for the same origin.
func (r *Registry) Register(reg Registration) error {
	reg, err := reg.validate()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.entries[reg.Origin]; ok {
		r.logger.Info("handler registration replaced",
			"origin", reg.Origin,
			"previous", prev.Name,
			"handler", reg.Name)
	}
	r.entries[reg.Origin] = reg
	return nil
}

// Initialize loads every *.so plugin in pluginDir, in lexical order, on top
// of the registrations already made. A missing or unreadable directory is
// skipped, and a broken plugin is logged and skipped. The built-in
// registrations always remain usable.
func (r *Registry) Initialize(pluginDir string) error {
	if pluginDir != "" && r.loader != nil {
		r.loadPlugins(pluginDir)
	}

	r.logSummary()
	return nil
}

func (r *Registry) loadPlugins(dir string) {
	r.logger.Info("loading plugins", "dir", dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Info("plugin directory does not exist, skipping", "dir", dir)
			return
		}
		r.logger.Warn("plugin directory unreadable, skipping", "dir", dir, "error", err)
		return
	}

	// os.ReadDir returns entries sorted by filename.
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".so") {
			continue
		}
		r.loadPlugin(filepath.Join(dir, entry.Name()))
	}
}

func (r *Registry) loadPlugin(path string) {
	log := r.logger.With("plugin", path)

	regs, err := r.discover(path)
	if err != nil {
		log.Error("failed to load plugin", "error", err)
		return
	}

	loaded := 0
	for _, reg := range regs {
		if err := r.Register(reg); err != nil {
			log.Warn("skipping invalid plugin registration", "error", err)
			continue
		}
		loaded++
	}
	log.Info("plugin loaded", "handlers", loaded)
}

// discover calls the loader, turning a panic into an error.
func (r *Registry) discover(path string) (regs []Registration, err error) {
	defer func() {
		if p := recover(); p != nil {
			regs = nil
			err = fmt.Errorf("plugin panicked during discovery: %v", p)
		}
	}()
	return r.loader.Load(path)
}

func (r *Registry) logSummary() {
	origins := r.Origins()

	keys := make([]string, 0, len(origins))
	for origin := range origins {
		keys = append(keys, origin)
	}
	sort.Strings(keys)

	attrs := make([]any, 0, len(keys))
	for _, origin := range keys {
		attrs = append(attrs, slog.String(origin, origins[origin]))
	}

	r.logger.Info(fmt.Sprintf("loaded %d handlers", len(keys)),
		"count", len(keys),
		slog.Group("handlers", attrs...))
}

// Lookup returns the registration for rawURL's origin.
func (r *Registry) Lookup(rawURL string) (Registration, error) {
	origin, err := Origin(rawURL)
	if err != nil {
		return Registration{}, err
	}

	r.mu.RLock()
	reg, ok := r.entries[origin]
	r.mu.RUnlock()
	if !ok {
		return Registration{}, fmt.Errorf("%w: %s", ErrNotFound, origin)
	}
	return reg, nil
}

// Resolve returns a fresh handler instance for rawURL.
//
// It returns ErrInvalidURL for an unparseable URL, ErrNotFound for an unknown
// origin and ErrConstruct when the constructor panics or returns nil.
func (r *Registry) Resolve(rawURL string) (Handler, error) {
	reg, err := r.Lookup(rawURL)
	if err != nil {
		return nil, err
	}
	return r.construct(reg)
}

func (r *Registry) construct(reg Registration) (h Handler, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("handler constructor panicked",
				"origin", reg.Origin,
				"handler", reg.Name,
				"panic", fmt.Sprint(p))
			h = nil
			err = fmt.Errorf("%w: %s: panic: %v", ErrConstruct, reg.Name, p)
		}
	}()

	h = reg.New()
	if h == nil {
		r.logger.Error("handler constructor returned nil",
			"origin", reg.Origin,
			"handler", reg.Name)
		return nil, fmt.Errorf("%w: %s returned nil", ErrConstruct, reg.Name)
	}
	return h, nil
}

// Origins returns a copy of the origin to handler name mapping.
func (r *Registry) Origins() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.entries))
	for origin, reg := range r.entries {
		out[origin] = reg.Name
	}
	return out
}

// Len returns the number of registered origins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
