package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/archiver/internal/domain"
	"github.com/phrazzld/archiver/internal/platform/logger"
	"github.com/phrazzld/archiver/internal/store"
)

// QueueStore implements store.QueueStore over the download_queue_items table.
type QueueStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

// Ensure QueueStore implements store.QueueStore interface
var _ store.QueueStore = (*QueueStore)(nil)

// NewQueueStore creates a QueueStore. It accepts a database connection or
// transaction that is initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewQueueStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *QueueStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &QueueStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "queue_store")),
	}
}

// Add implements store.QueueStore.Add
func (s *QueueStore) Add(ctx context.Context, item *domain.QueueItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := item.Validate(); err != nil {
		log.Warn("queue item validation failed during add",
			slog.String("error", err.Error()),
			slog.String("url", item.URL))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := s.dialect.Rebind(`
		INSERT INTO download_queue_items (id, url, created_at)
		VALUES (?, ?, ?)
	`)
	if _, err := s.db.ExecContext(ctx, query, item.ID.String(), item.URL, item.CreatedAt.UTC()); err != nil {
		log.Error("failed to add queue item",
			slog.String("error", err.Error()),
			slog.String("item_id", item.ID.String()))
		return MapError(err)
	}

	log.Debug("queue item added",
		slog.String("item_id", item.ID.String()),
		slog.String("url", item.URL))
	return nil
}

// List implements store.QueueStore.List
func (s *QueueStore) List(ctx context.Context) ([]*domain.QueueItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, url, created_at
		FROM download_queue_items
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to list queue items", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*domain.QueueItem, 0)
	for rows.Next() {
		var item domain.QueueItem
		if err := rows.Scan(&item.ID, &item.URL, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan queue item: %w", err)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return items, nil
}

// Get implements store.QueueStore.Get
func (s *QueueStore) Get(ctx context.Context, id uuid.UUID) (*domain.QueueItem, error) {
	query := s.dialect.Rebind(`
		SELECT id, url, created_at
		FROM download_queue_items
		WHERE id = ?
	`)

	var item domain.QueueItem
	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(&item.ID, &item.URL, &item.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, store.ErrQueueItemNotFound
		}
		return nil, MapError(err)
	}

	return &item, nil
}

// Remove implements store.QueueStore.Remove
func (s *QueueStore) Remove(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := s.dialect.Rebind(`DELETE FROM download_queue_items WHERE id = ?`)
	result, err := s.db.ExecContext(ctx, query, id.String())
	if err != nil {
		log.Error("failed to remove queue item",
			slog.String("error", err.Error()),
			slog.String("item_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrQueueItemNotFound); err != nil {
		return err
	}

	log.Debug("queue item removed", slog.String("item_id", id.String()))
	return nil
}

// Count implements store.QueueStore.Count
func (s *QueueStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM download_queue_items`).Scan(&n); err != nil {
		return 0, MapError(err)
	}
	return n, nil
}

// WithTx implements store.QueueStore.WithTx
func (s *QueueStore) WithTx(tx *sql.Tx) store.QueueStore {
	return &QueueStore{
		db:      tx,
		dialect: s.dialect,
		logger:  s.logger,
	}
}
