package sqldb

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/archiver/internal/store"
)

// Repository implements store.Repository on top of a *sql.DB.
type Repository struct {
	db       *sql.DB
	queue    *QueueStore
	failures *FailureStore
}

// Ensure Repository implements store.Repository interface
var _ store.Repository = (*Repository)(nil)

// NewRepository creates a Repository for the given connection pool and dialect.
func NewRepository(db *sql.DB, dialect Dialect, logger *slog.Logger) *Repository {
	if db == nil {
		panic("db cannot be nil")
	}
	return &Repository{
		db:       db,
		queue:    NewQueueStore(db, dialect, logger),
		failures: NewFailureStore(db, dialect, logger),
	}
}

// Queue implements store.Repository.Queue
func (r *Repository) Queue() store.QueueStore {
	return r.queue
}

// Failures implements store.Repository.Failures
func (r *Repository) Failures() store.FailureStore {
	return r.failures
}

// InTx implements store.Repository.InTx
func (r *Repository) InTx(ctx context.Context, fn store.TxFunc) error {
	return store.RunInTransaction(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, r.queue.WithTx(tx), r.failures.WithTx(tx))
	})
}

// Ping implements store.Repository.Ping
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
