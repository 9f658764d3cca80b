package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phrazzld/archiver/internal/api/shared"
	"github.com/phrazzld/archiver/internal/domain"
	"github.com/phrazzld/archiver/internal/platform/logger"
	"github.com/phrazzld/archiver/internal/store"
)

// statusPingTimeout bounds the database probe made by the status endpoint.
const statusPingTimeout = 3 * time.Second

// QueueHandler handles queue and failed-download requests.
type QueueHandler struct {
	repo      store.Repository
	validator *validator.Validate
	logger    *slog.Logger
}

// NewQueueHandler creates a new QueueHandler.
func NewQueueHandler(repo store.Repository, logger *slog.Logger) *QueueHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueHandler{
		repo:      repo,
		validator: validator.New(),
		logger:    logger.With("component", "queue_handler"),
	}
}

func (h *QueueHandler) log(r *http.Request) *slog.Logger {
	return logger.FromContextOrDefault(r.Context(), h.logger)
}

// Enqueue handles POST /api/download requests.
func (h *QueueHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	req, err := decodeEnqueueRequest(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	item, err := domain.NewQueueItem(req.URL)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.repo.Queue().Add(r.Context(), item); err != nil {
		h.log(r).Error("failed to enqueue download", "error", err)
		HandleAPIError(w, r, err, "Failed to enqueue download")
		return
	}

	h.log(r).Info("download enqueued", "item_id", item.ID, "url", item.URL)
	shared.RespondWithJSON(w, r, http.StatusCreated, queueItemToResponse(item))
}

// ListQueue handles GET /api/queue requests.
func (h *QueueHandler) ListQueue(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.Queue().List(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list queue")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, queueItemsToResponse(items))
}

// DeleteQueueItem handles DELETE /api/queue/{id} requests.
func (h *QueueHandler) DeleteQueueItem(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.repo.Queue().Remove(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	h.log(r).Info("queue item deleted", "item_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// ListFailed handles GET /api/failed requests.
func (h *QueueHandler) ListFailed(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.Failures().List(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list failed downloads")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, failedDownloadsToResponse(list))
}

// RetryFailed handles POST /api/failed/{id}/retry requests. The failure
// record is replaced by a new queue item for the same URL in one transaction.
func (h *QueueHandler) RetryFailed(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	item, err := Retry(r.Context(), h.repo, id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	h.log(r).Info("failed download requeued", "failure_id", id, "item_id", item.ID, "url", item.URL)
	shared.RespondWithJSON(w, r, http.StatusCreated, queueItemToResponse(item))
}

// DeleteFailed handles DELETE /api/failed/{id} requests.
func (h *QueueHandler) DeleteFailed(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.repo.Failures().Remove(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	h.log(r).Info("failed download deleted", "failure_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// Status handles GET /api/status requests. It always answers 200 so that
// dashboards can show a degraded state instead of an error.
func (h *QueueHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Database: DatabaseHealthy,
		Status:   StatusHealthy,
	}

	ctx, cancel := context.WithTimeout(r.Context(), statusPingTimeout)
	defer cancel()

	degrade := func(what string, err error) {
		h.log(r).Warn("status check failed", "check", what, "error", err)
		resp.Database = DatabaseUnhealthy
		resp.Status = StatusDegraded
	}

	if err := h.repo.Ping(ctx); err != nil {
		degrade("ping", err)
	} else {
		if n, err := h.repo.Queue().Count(ctx); err != nil {
			degrade("queue_count", err)
		} else {
			resp.QueueCount = n
		}
		if n, err := h.repo.Failures().Count(ctx); err != nil {
			degrade("failed_count", err)
		} else {
			resp.FailedCount = n
		}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Retry atomically moves a failure record back onto the queue and returns
// the new queue item.
func Retry(ctx context.Context, repo store.Repository, failureID uuid.UUID) (*domain.QueueItem, error) {
	var item *domain.QueueItem
	err := repo.InTx(ctx, func(ctx context.Context, queue store.QueueStore, failures store.FailureStore) error {
		failure, err := failures.Get(ctx, failureID)
		if err != nil {
			return err
		}
		if err := failures.Remove(ctx, failureID); err != nil {
			return err
		}

		item, err = domain.NewQueueItem(failure.URL)
		if err != nil {
			return err
		}
		return queue.Add(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}
