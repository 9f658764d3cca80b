package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/archiver/internal/domain"
	"github.com/phrazzld/archiver/internal/relay"
)

// EnqueueRequest defines the payload for adding a URL to the queue.
type EnqueueRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// QueueItemResponse is the API representation of a queued download.
type QueueItemResponse struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// FailedDownloadResponse is the API representation of a failure record.
type FailedDownloadResponse struct {
	ID           uuid.UUID `json:"id"`
	URL          string    `json:"url"`
	ErrorMessage string    `json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
}

// Database health values reported by the status endpoint.
const (
	DatabaseHealthy   = "healthy"
	DatabaseUnhealthy = "unhealthy"

	StatusHealthy  = "Healthy"
	StatusDegraded = "Degraded"
)

// StatusResponse summarizes the queue for dashboards and probes.
type StatusResponse struct {
	QueueCount  int    `json:"queue_count"`
	FailedCount int    `json:"failed_count"`
	Database    string `json:"database"`
	Status      string `json:"status"`
}

// RelayStatusResponse describes the relay's delivery state.
type RelayStatusResponse struct {
	Enabled     bool `json:"enabled"`
	CircuitOpen bool `json:"circuit_open"`
	Buffered    int  `json:"buffered"`
}

// RelayDrainResponse carries the messages taken from the replay buffer.
type RelayDrainResponse struct {
	Messages  []relay.Message `json:"messages"`
	Remaining int             `json:"remaining"`
}

func queueItemToResponse(item *domain.QueueItem) QueueItemResponse {
	return QueueItemResponse{
		ID:        item.ID,
		URL:       item.URL,
		CreatedAt: item.CreatedAt,
	}
}

func queueItemsToResponse(items []*domain.QueueItem) []QueueItemResponse {
	out := make([]QueueItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, queueItemToResponse(item))
	}
	return out
}

func failedDownloadToResponse(f *domain.FailedDownload) FailedDownloadResponse {
	return FailedDownloadResponse{
		ID:           f.ID,
		URL:          f.URL,
		ErrorMessage: f.ErrorMessage,
		CreatedAt:    f.CreatedAt,
	}
}

func failedDownloadsToResponse(list []*domain.FailedDownload) []FailedDownloadResponse {
	out := make([]FailedDownloadResponse, 0, len(list))
	for _, f := range list {
		out = append(out, failedDownloadToResponse(f))
	}
	return out
}
