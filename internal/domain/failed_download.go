package domain

import (
	"time"

	"github.com/google/uuid"
)

// FailedDownload is a terminal record of a queue item that could not be completed.
// It is only removed by an operator, either by retrying it or deleting it.
type FailedDownload struct {
	ID           uuid.UUID `json:"id"`
	URL          string    `json:"url"`
	ErrorMessage string    `json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewFailedDownload creates a validated FailedDownload.
func NewFailedDownload(rawURL, errorMessage string) (*FailedDownload, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	f := &FailedDownload{
		ID:           id,
		URL:          rawURL,
		ErrorMessage: errorMessage,
		CreatedAt:    time.Now().UTC(),
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}

	return f, nil
}

// Validate checks the failure record. The URL is only required to be
// non-empty here: malformed URLs end up as failures too.
func (f *FailedDownload) Validate() error {
	if f.ID == uuid.Nil {
		return ErrEmptyItemID
	}

	if f.URL == "" {
		return ErrEmptyURL
	}

	if f.ErrorMessage == "" {
		return ErrEmptyErrorMessage
	}

	return nil
}
