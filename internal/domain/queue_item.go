package domain

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// QueueItem is one pending download request awaiting processing.
type QueueItem struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// NewQueueItem creates a validated QueueItem for the given URL.
// IDs are UUIDv7 so that they sort in insertion order.
func NewQueueItem(rawURL string) (*QueueItem, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	item := &QueueItem{
		ID:        id,
		URL:       strings.TrimSpace(rawURL),
		CreatedAt: time.Now().UTC(),
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks that the item has an ID and an absolute URL.
func (q *QueueItem) Validate() error {
	if q.ID == uuid.Nil {
		return ErrEmptyItemID
	}
	return ValidateURL(q.URL)
}

// ValidateURL reports whether raw is a non-empty absolute URL.
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return ErrEmptyURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return errors.Join(ErrInvalidFormat, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return ErrNotAbsoluteURL
	}

	return nil
}
