package store

import (
	"errors"
	"fmt"
)

// Errors returned by every store implementation. Driver errors are mapped
// onto these so callers never need to import a driver package.
var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an insert collides with an existing ID.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when a row fails validation before it is
	// written, or violates a database constraint.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrQueueItemNotFound indicates that the requested queue item does not exist.
	ErrQueueItemNotFound = fmt.Errorf("%w: queue item", ErrNotFound)

	// ErrFailedDownloadNotFound indicates that the requested failure record does not exist.
	ErrFailedDownloadNotFound = fmt.Errorf("%w: failed download", ErrNotFound)
)

// IsNotFoundError reports whether err is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
