package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind classifies the outcome of processing a queue item.
type Kind string

// Outcome kinds.
const (
	// KindCompleted means the handler reported success.
	KindCompleted Kind = "completed"
	// KindFailed means the handler reported an ordinary failure.
	KindFailed Kind = "failed"
	// KindUnhandled means no handler was registered for the URL.
	KindUnhandled Kind = "unhandled"
	// KindFaulted means the handler returned an error or panicked.
	KindFaulted Kind = "faulted"
)

// OutcomeEvent describes what happened to one queue item.
type OutcomeEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// ItemID is the queue item the event refers to
	ItemID uuid.UUID `json:"item_id"`

	URL     string `json:"url"`
	Kind    Kind   `json:"kind"`
	Handler string `json:"handler,omitempty"`
	Message string `json:"message"`

	// OccurredAt is the timestamp when the outcome was determined
	OccurredAt time.Time `json:"occurred_at"`
}

// NewOutcomeEvent creates an OutcomeEvent stamped with the current time.
func NewOutcomeEvent(itemID uuid.UUID, url string, kind Kind, handler, message string) *OutcomeEvent {
	return &OutcomeEvent{
		ID:         uuid.New(),
		ItemID:     itemID,
		URL:        url,
		Kind:       kind,
		Handler:    handler,
		Message:    message,
		OccurredAt: time.Now().UTC(),
	}
}

// Succeeded reports whether the event records a completed download.
func (e *OutcomeEvent) Succeeded() bool {
	return e.Kind == KindCompleted
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *OutcomeEvent) error
}

// EventHandlerFunc adapts a function to the EventHandler interface.
type EventHandlerFunc func(ctx context.Context, event *OutcomeEvent) error

// HandleEvent calls f.
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *OutcomeEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows the worker to publish outcomes without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *OutcomeEvent) error
}

// NopEmitter discards every event.
type NopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NopEmitter) EmitEvent(context.Context, *OutcomeEvent) error { return nil }
