package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Dispatcher delivers outcome events to its subscribers synchronously, in
// subscription order. It is safe for concurrent use.
type Dispatcher struct {
	mu          sync.RWMutex
	subscribers []EventHandler
	logger      *slog.Logger
}

// NewDispatcher creates a Dispatcher with no subscribers.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger.With("component", "outcome_dispatcher")}
}

// Subscribe adds h to the end of the delivery order.
func (d *Dispatcher) Subscribe(h EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers = append(d.subscribers, h)
	d.logger.Debug("subscriber added", "subscriber", fmt.Sprintf("%T", h), "count", len(d.subscribers))
}

// Len returns the number of subscribers.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}

// EmitEvent delivers event to every subscriber. A subscriber that fails or
// panics does not stop delivery to the rest; all failures are returned
// together.
func (d *Dispatcher) EmitEvent(ctx context.Context, event *OutcomeEvent) error {
	d.mu.RLock()
	subscribers := make([]EventHandler, len(d.subscribers))
	copy(subscribers, d.subscribers)
	d.mu.RUnlock()

	if len(subscribers) == 0 {
		d.logger.Debug("no subscribers for outcome", "event_id", event.ID, "event_kind", event.Kind)
		return nil
	}

	var result *multierror.Error
	for _, h := range subscribers {
		if err := deliver(ctx, h, event); err != nil {
			d.logger.Error("subscriber failed to handle outcome",
				"subscriber", fmt.Sprintf("%T", h),
				"event_id", event.ID,
				"event_kind", event.Kind,
				"error", err)
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func deliver(ctx context.Context, h EventHandler, event *OutcomeEvent) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("subscriber %T panicked: %v", h, p)
		}
	}()
	return h.HandleEvent(ctx, event)
}
