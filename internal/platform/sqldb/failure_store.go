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

// FailureStore implements store.FailureStore over the failed_downloads table.
type FailureStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

// Ensure FailureStore implements store.FailureStore interface
var _ store.FailureStore = (*FailureStore)(nil)

// NewFailureStore creates a FailureStore.
// If logger is nil, a default logger will be used.
func NewFailureStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *FailureStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &FailureStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "failure_store")),
	}
}

// Add implements store.FailureStore.Add
func (s *FailureStore) Add(ctx context.Context, f *domain.FailedDownload) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := f.Validate(); err != nil {
		log.Warn("failed download validation failed during add",
			slog.String("error", err.Error()),
			slog.String("url", f.URL))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := s.dialect.Rebind(`
		INSERT INTO failed_downloads (id, url, error_message, created_at)
		VALUES (?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query, f.ID.String(), f.URL, f.ErrorMessage, f.CreatedAt.UTC())
	if err != nil {
		log.Error("failed to record failed download",
			slog.String("error", err.Error()),
			slog.String("failure_id", f.ID.String()))
		return MapError(err)
	}

	log.Debug("failed download recorded",
		slog.String("failure_id", f.ID.String()),
		slog.String("url", f.URL))
	return nil
}

// List implements store.FailureStore.List
func (s *FailureStore) List(ctx context.Context) ([]*domain.FailedDownload, error) {
	query := `
		SELECT id, url, error_message, created_at
		FROM failed_downloads
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	failures := make([]*domain.FailedDownload, 0)
	for rows.Next() {
		var f domain.FailedDownload
		if err := rows.Scan(&f.ID, &f.URL, &f.ErrorMessage, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan failed download: %w", err)
		}
		failures = append(failures, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return failures, nil
}

// Get implements store.FailureStore.Get
func (s *FailureStore) Get(ctx context.Context, id uuid.UUID) (*domain.FailedDownload, error) {
	query := s.dialect.Rebind(`
		SELECT id, url, error_message, created_at
		FROM failed_downloads
		WHERE id = ?
	`)

	var f domain.FailedDownload
	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(&f.ID, &f.URL, &f.ErrorMessage, &f.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, store.ErrFailedDownloadNotFound
		}
		return nil, MapError(err)
	}

	return &f, nil
}

// Remove implements store.FailureStore.Remove
func (s *FailureStore) Remove(ctx context.Context, id uuid.UUID) error {
	query := s.dialect.Rebind(`DELETE FROM failed_downloads WHERE id = ?`)
	result, err := s.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrFailedDownloadNotFound)
}

// Count implements store.FailureStore.Count
func (s *FailureStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM failed_downloads`).Scan(&n); err != nil {
		return 0, MapError(err)
	}
	return n, nil
}

// WithTx implements store.FailureStore.WithTx
func (s *FailureStore) WithTx(tx *sql.Tx) store.FailureStore {
	return &FailureStore{
		db:      tx,
		dialect: s.dialect,
		logger:  s.logger,
	}
}
