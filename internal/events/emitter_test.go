package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvent() *OutcomeEvent {
	return NewOutcomeEvent(uuid.New(), "https://example.com/file.zip", KindCompleted, "DirectDownload", "saved")
}

func TestDispatcher_NoSubscribers(t *testing.T) {
	d := NewDispatcher(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	assert.NoError(t, d.EmitEvent(context.Background(), newTestEvent()))
	assert.Zero(t, d.Len())
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	d := NewDispatcher(nil)

	var order []string
	d.Subscribe(EventHandlerFunc(func(context.Context, *OutcomeEvent) error {
		order = append(order, "notify")
		return nil
	}))
	d.Subscribe(EventHandlerFunc(func(context.Context, *OutcomeEvent) error {
		order = append(order, "library")
		return nil
	}))

	first := &MockEventHandler{}
	d.Subscribe(first)

	event := newTestEvent()
	require.NoError(t, d.EmitEvent(context.Background(), event))

	assert.Equal(t, []string{"notify", "library"}, order)
	assert.Equal(t, 1, first.HandledCount)
	assert.Same(t, event, first.LastEvent)
	assert.Equal(t, 3, d.Len())
}

func TestDispatcher_FailuresDoNotStopDelivery(t *testing.T) {
	d := NewDispatcher(slog.New(slog.NewJSONHandler(io.Discard, nil)))

	errNotify := errors.New("ntfy unreachable")
	failing := &MockEventHandler{HandlerError: errNotify}
	panicking := EventHandlerFunc(func(context.Context, *OutcomeEvent) error {
		panic("scanner exploded")
	})
	last := &MockEventHandler{}

	d.Subscribe(failing)
	d.Subscribe(panicking)
	d.Subscribe(last)

	err := d.EmitEvent(context.Background(), newTestEvent())
	require.Error(t, err)
	assert.ErrorIs(t, err, errNotify)
	assert.Contains(t, err.Error(), "scanner exploded")

	assert.Equal(t, 1, failing.HandledCount)
	assert.Equal(t, 1, last.HandledCount)
}
