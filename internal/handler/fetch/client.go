package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-retry"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Config controls Client behaviour.
type Config struct {
	// Timeout bounds a single request attempt.
	Timeout time.Duration
	// MaxAttempts is the total number of attempts per request.
	MaxAttempts int
	// BaseDelay is the first backoff interval; it doubles on each retry.
	BaseDelay time.Duration
	// UserAgent is sent with every request when set.
	UserAgent string
}

// DefaultConfig returns the settings used by handlers that do not override them.
func DefaultConfig() Config {
	return Config{
		Timeout:     5 * time.Minute,
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		UserAgent:   "archiver/1.0",
	}
}

// Client is an HTTP client that retries transport errors and 5xx responses
// with exponential backoff. 4xx responses are returned immediately.
type Client struct {
	http   *http.Client
	cfg    Config
	logger *slog.Logger
}

// NewClient creates a Client. A nil httpClient gets one built from cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	defaults := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaults.BaseDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		http:   httpClient,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "fetch")),
	}
}

// Get performs a GET request, retrying as described on Client. On success the
// caller owns the response body.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	backoff := retry.WithMaxRetries(uint64(c.cfg.MaxAttempts-1), retry.NewExponential(c.cfg.BaseDelay))

	attempt := 0
	return retry.DoValue(ctx, backoff, func(ctx context.Context) (*http.Response, error) {
		attempt++

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		if c.cfg.UserAgent != "" {
			req.Header.Set("User-Agent", c.cfg.UserAgent)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			c.logger.Debug("request failed", "url", url, "attempt", attempt, "error", err)
			return nil, retry.RetryableError(err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		drain(resp.Body)
		statusErr := &StatusError{URL: url, StatusCode: resp.StatusCode}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			c.logger.Debug("retryable status", "url", url, "attempt", attempt, "status", resp.StatusCode)
			return nil, retry.RetryableError(statusErr)
		}
		return nil, statusErr
	})
}

// DownloadFile saves the body of url to path, creating parent directories.
// The file is written to a temporary name and renamed into place, so a failed
// download never leaves a partial file at path.
func (c *Client) DownloadFile(ctx context.Context, url, path string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create directory for %s: %w", path, err)
	}

	resp, err := c.Get(ctx, url)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	n, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, fmt.Errorf("write %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return n, fmt.Errorf("move %s into place: %w", path, err)
	}

	c.logger.Debug("file downloaded", "url", url, "path", path, "bytes", n)
	return n, nil
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
