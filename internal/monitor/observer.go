package monitor

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/archiver/internal/api/shared"
	"github.com/phrazzld/archiver/internal/relay"
)

// DefaultRecent is the number of messages returned by /recent without ?n=.
const DefaultRecent = 100

// UnknownSource is recorded for messages posted without a source.
const UnknownSource = "Unknown"

// ConsoleRequest is the body accepted by POST /api/console.
type ConsoleRequest struct {
	Level     string    `json:"level"`
	Source    string    `json:"source"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse is returned by GET /api/console/health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Observer receives relayed console messages.
type Observer struct {
	history *History
	console *relay.Console
	logger  *slog.Logger
	now     func() time.Time
}

// NewObserver creates an Observer that prints received messages to out.
func NewObserver(history *History, out io.Writer, logger *slog.Logger) *Observer {
	if history == nil {
		history = NewHistory(DefaultHistorySize)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{
		history: history,
		console: relay.NewConsole(out),
		logger:  logger.With("component", "observer"),
		now:     time.Now,
	}
}

// History returns the observer's message history.
func (o *Observer) History() *History {
	return o.history
}

// Routes mounts the observer endpoints under /api/console.
func (o *Observer) Routes(r chi.Router) {
	r.Post(relay.ConsolePath, o.Receive)
	r.Get(relay.HealthPath, o.Health)
	r.Get(relay.ConsolePath+"/recent", o.Recent)
}

// Receive handles POST /api/console.
func (o *Observer) Receive(w http.ResponseWriter, r *http.Request) {
	var req ConsoleRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Message is required")
		return
	}

	level, ok := relay.ParseLevel(req.Level)
	if !ok {
		level = relay.LevelInformation
	}

	m := relay.Message{
		Level:     level,
		Source:    req.Source,
		Message:   req.Message,
		Timestamp: req.Timestamp,
	}
	if strings.TrimSpace(m.Source) == "" {
		m.Source = UnknownSource
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = o.now()
	}

	o.history.Add(m)
	o.console.Write(m)

	w.WriteHeader(http.StatusOK)
}

// Health handles GET /api/console/health.
func (o *Observer) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: o.now().UTC(),
	})
}

// Recent handles GET /api/console/recent?n=.
func (o *Observer) Recent(w http.ResponseWriter, r *http.Request) {
	n := DefaultRecent
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "n must be a positive integer")
			return
		}
		n = parsed
	}

	shared.RespondWithJSON(w, r, http.StatusOK, o.history.Recent(n))
}
