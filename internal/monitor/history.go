package monitor

import (
	"sync"

	"github.com/phrazzld/archiver/internal/relay"
)

// DefaultHistorySize is the number of messages retained by default.
const DefaultHistorySize = 1000

// History retains the most recent messages. It is safe for concurrent use.
type History struct {
	mu       sync.RWMutex
	items    []relay.Message
	capacity int
}

// NewHistory creates a History holding at most capacity messages.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{
		items:    make([]relay.Message, 0, capacity),
		capacity: capacity,
	}
}

// Add appends m, discarding the oldest message when full.
func (h *History) Add(m relay.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.items) == h.capacity {
		copy(h.items, h.items[1:])
		h.items = h.items[:len(h.items)-1]
	}
	h.items = append(h.items, m)
}

// Recent returns up to n of the newest messages, oldest first.
func (h *History) Recent(n int) []relay.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 || n > len(h.items) {
		n = len(h.items)
	}
	out := make([]relay.Message, n)
	copy(out, h.items[len(h.items)-n:])
	return out
}

// Len returns the number of retained messages.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.items)
}
