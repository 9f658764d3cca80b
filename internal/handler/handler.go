package handler

import (
	"context"
	"errors"
	"fmt"
)

// Registry errors.
var (
	// ErrNotFound means no handler is registered for the URL's origin.
	// It is an expected outcome, not a fault.
	ErrNotFound = errors.New("no handler registered for origin")

	// ErrInvalidURL means the URL is empty or cannot be parsed into an origin.
	ErrInvalidURL = errors.New("invalid url")

	// ErrConstruct means the registered constructor panicked or returned nil.
	ErrConstruct = errors.New("handler construction failed")
)

// Result is the outcome a handler reports for an ordinary (non-fault) run.
type Result struct {
	Success bool
	Message string
}

// Succeeded returns a successful Result with the given message.
func Succeeded(format string, args ...any) Result {
	return Result{Success: true, Message: fmt.Sprintf(format, args...)}
}

// Failed returns a failed Result with the given message.
func Failed(format string, args ...any) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

// Handler downloads one URL into destinationRoot.
//
// Ordinary failures are reported as Result{Success: false}. A non-nil error
// (or a panic) is a fault. maxThreads bounds any parallelism the handler
// uses internally.
type Handler interface {
	Download(ctx context.Context, url, destinationRoot string, maxThreads int) (Result, error)
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(ctx context.Context, url, destinationRoot string, maxThreads int) (Result, error)

// Download calls f.
func (f HandlerFunc) Download(ctx context.Context, url, destinationRoot string, maxThreads int) (Result, error) {
	return f(ctx, url, destinationRoot, maxThreads)
}

// Named is implemented by handlers that report a display name.
type Named interface {
	Name() string
}

// Describe returns a display name for h.
func Describe(h Handler) string {
	if n, ok := h.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	return fmt.Sprintf("%T", h)
}

// Registration binds an origin ("scheme://host") to a handler constructor.
// New is called once per download; the handler is discarded afterwards.
type Registration struct {
	Origin string
	Name   string
	New    func() Handler
}

// validate normalizes the registration's origin and fills in a default name.
func (r Registration) validate() (Registration, error) {
	origin, err := Origin(r.Origin)
	if err != nil {
		return r, fmt.Errorf("registration %q: %w", r.Origin, err)
	}
	if r.New == nil {
		return r, fmt.Errorf("registration %q: nil constructor", r.Origin)
	}
	r.Origin = origin
	if r.Name == "" {
		r.Name = origin
	}
	return r, nil
}
