// Package notify sends push notifications for download outcomes.
//
// Notifications are posted as plain text to an ntfy-style endpoint, with the
// title and comma separated tags carried in request headers. Delivery is best
// effort: an unconfigured or failing endpoint never produces an error.
package notify

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/archiver/internal/events"
)

// Notification titles and tags.
const (
	TitleSuccess = "Download Successful"
	TitleFailure = "Download Failed"
	TitleFault   = "Error Downloading"

	TagSuccess = "white_check_mark"
	TagFailure = "x"
)

// DefaultTimeout bounds a single push request.
const DefaultTimeout = 10 * time.Second

// Pusher posts notifications to a single endpoint.
type Pusher struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// New creates a Pusher. An empty url yields a disabled Pusher whose Notify
// always returns false. A nil client gets DefaultTimeout.
func New(url string, client *http.Client, logger *slog.Logger) *Pusher {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pusher{
		url:    strings.TrimSpace(url),
		client: client,
		logger: logger.With("component", "notification_pusher"),
	}
}

// Enabled reports whether an endpoint is configured.
func (p *Pusher) Enabled() bool {
	return p.url != ""
}

// Notify posts body with the given title and tags. It returns true only when
// the endpoint accepted the notification.
func (p *Pusher) Notify(ctx context.Context, title, body string, tags ...string) bool {
	if !p.Enabled() {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, strings.NewReader(body))
	if err != nil {
		p.logger.Warn("failed to build notification request", "error", err)
		return false
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", title)
	if len(tags) > 0 {
		req.Header.Set("Tags", strings.Join(tags, ","))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("failed to send notification", "title", title, "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Warn("notification endpoint rejected notification",
			"title", title,
			"status", resp.StatusCode)
		return false
	}
	return true
}

// HandleEvent turns an outcome into a notification. It never returns an
// error, so a failed push cannot affect other subscribers.
func (p *Pusher) HandleEvent(ctx context.Context, event *events.OutcomeEvent) error {
	if !p.Enabled() {
		return nil
	}

	title, tag := Describe(event)
	p.Notify(ctx, title, event.Message, tag)
	return nil
}

// Describe returns the notification title and tag for an outcome.
func Describe(event *events.OutcomeEvent) (title, tag string) {
	switch event.Kind {
	case events.KindCompleted:
		return TitleSuccess, TagSuccess
	case events.KindFaulted:
		return TitleFault, TagFailure
	default:
		return TitleFailure, TagFailure
	}
}
