package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/archiver/internal/domain"
)

// QueueStore defines persistence for pending download requests.
type QueueStore interface {
	// Add inserts a new queue item.
	// Returns ErrInvalidEntity if the item fails validation.
	Add(ctx context.Context, item *domain.QueueItem) error

	// List returns every queued item, oldest first.
	List(ctx context.Context) ([]*domain.QueueItem, error)

	// Get retrieves a queue item by ID.
	// Returns ErrQueueItemNotFound if it does not exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.QueueItem, error)

	// Remove deletes a queue item by ID.
	// Returns ErrQueueItemNotFound if it does not exist.
	Remove(ctx context.Context, id uuid.UUID) error

	// Count returns the number of queued items.
	Count(ctx context.Context) (int, error)

	// WithTx returns a QueueStore bound to the given transaction.
	WithTx(tx *sql.Tx) QueueStore
}

// FailureStore defines persistence for the failed download log.
type FailureStore interface {
	// Add records a failed download.
	// Returns ErrInvalidEntity if the record fails validation.
	Add(ctx context.Context, failure *domain.FailedDownload) error

	// List returns every failure record, oldest first.
	List(ctx context.Context) ([]*domain.FailedDownload, error)

	// Get retrieves a failure record by ID.
	// Returns ErrFailedDownloadNotFound if it does not exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.FailedDownload, error)

	// Remove deletes a failure record by ID.
	// Returns ErrFailedDownloadNotFound if it does not exist.
	Remove(ctx context.Context, id uuid.UUID) error

	// Count returns the number of failure records.
	Count(ctx context.Context) (int, error)

	// WithTx returns a FailureStore bound to the given transaction.
	WithTx(tx *sql.Tx) FailureStore
}

// TxFunc is executed by Repository.InTx with stores bound to one transaction.
type TxFunc func(ctx context.Context, queue QueueStore, failures FailureStore) error

// Repository groups both tables so that a processing pass, or an operator
// retry, can change them atomically.
type Repository interface {
	Queue() QueueStore
	Failures() FailureStore

	// InTx runs fn inside a single transaction. The transaction is rolled
	// back if fn returns an error or panics.
	InTx(ctx context.Context, fn TxFunc) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error
}
