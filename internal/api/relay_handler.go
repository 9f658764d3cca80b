package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/phrazzld/archiver/internal/api/shared"
	"github.com/phrazzld/archiver/internal/platform/logger"
	"github.com/phrazzld/archiver/internal/relay"
)

// Bounds for the count accepted by the relay drain endpoint.
const (
	DefaultDrainCount = 100
	MaxDrainCount     = 1000
)

// RelayBuffer is the part of the relay client the operator endpoints use.
type RelayBuffer interface {
	Enabled() bool
	CircuitOpen() bool
	Buffered() int
	DrainRecent(n int) []relay.Message
}

// RelayHandler exposes the relay's replay buffer to operators.
type RelayHandler struct {
	relay  RelayBuffer
	logger *slog.Logger
}

// NewRelayHandler creates a new RelayHandler.
func NewRelayHandler(buffer RelayBuffer, logger *slog.Logger) *RelayHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RelayHandler{
		relay:  buffer,
		logger: logger.With("component", "relay_handler"),
	}
}

// Status handles GET /api/relay requests.
func (h *RelayHandler) Status(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, RelayStatusResponse{
		Enabled:     h.relay.Enabled(),
		CircuitOpen: h.relay.CircuitOpen(),
		Buffered:    h.relay.Buffered(),
	})
}

// Drain handles POST /api/relay/drain?n= requests. It takes the n most recent
// undelivered messages out of the replay buffer so an operator can read what
// the observer missed.
func (h *RelayHandler) Drain(w http.ResponseWriter, r *http.Request) {
	n := DefaultDrainCount
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > MaxDrainCount {
			shared.RespondWithError(w, r, http.StatusBadRequest,
				"Invalid count: must be between 1 and "+strconv.Itoa(MaxDrainCount))
			return
		}
		n = parsed
	}

	messages := h.relay.DrainRecent(n)
	if messages == nil {
		messages = []relay.Message{}
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("relay buffer drained",
		"requested", n,
		"drained", len(messages))

	shared.RespondWithJSON(w, r, http.StatusOK, RelayDrainResponse{
		Messages:  messages,
		Remaining: h.relay.Buffered(),
	})
}
