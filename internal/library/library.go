// Package library asks a Kavita-compatible media server to rescan its library
// after a download completes, so new files show up without a manual scan.
package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/archiver/internal/events"
	"github.com/phrazzld/archiver/internal/redact"
)

// API paths relative to Config.BaseURL.
const (
	AuthenticatePath = "/api/Plugin/authenticate"
	ScanPath         = "/api/Library/scan"
)

// ErrNoToken is returned when authentication succeeds but no token is issued.
var ErrNoToken = errors.New("library server returned no token")

// Config configures the scanner. The scanner is disabled when BaseURL is empty.
type Config struct {
	BaseURL    string
	APIKey     string
	PluginName string
	LibraryID  int
	ForceScan  bool

	// ScanDelay is how long to wait after requesting a scan, giving the
	// server time to pick up the new files before the next download.
	ScanDelay time.Duration
}

// authResponse is the subset of the authenticate response we use.
type authResponse struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// Scanner triggers library scans.
type Scanner struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewScanner creates a Scanner. A nil client uses http.DefaultClient.
func NewScanner(cfg Config, client *http.Client, logger *slog.Logger) *Scanner {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	return &Scanner{
		cfg:    cfg,
		client: client,
		logger: logger.With("component", "library_scanner"),
		sleep:  sleepContext,
	}
}

// Enabled reports whether a library server is configured.
func (s *Scanner) Enabled() bool {
	return s.cfg.BaseURL != ""
}

// Authenticate exchanges the API key for a bearer token.
func (s *Scanner) Authenticate(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("apiKey", s.cfg.APIKey)
	q.Set("pluginName", s.cfg.PluginName)

	body, err := s.post(ctx, AuthenticatePath, q, "")
	if err != nil {
		return "", fmt.Errorf("failed to authenticate: %w", err)
	}

	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode authenticate response: %w", err)
	}
	if resp.Token == "" {
		return "", ErrNoToken
	}

	s.logger.Debug("obtained library token", "username", resp.Username)
	return resp.Token, nil
}

// Scan requests a scan of the configured library.
func (s *Scanner) Scan(ctx context.Context, token string) error {
	q := url.Values{}
	q.Set("libraryId", strconv.Itoa(s.cfg.LibraryID))
	q.Set("force", strconv.FormatBool(s.cfg.ForceScan))

	if _, err := s.post(ctx, ScanPath, q, token); err != nil {
		return fmt.Errorf("failed to request library scan: %w", err)
	}
	return nil
}

// Refresh authenticates, requests a scan and then waits ScanDelay.
func (s *Scanner) Refresh(ctx context.Context) error {
	token, err := s.Authenticate(ctx)
	if err != nil {
		return err
	}
	if err := s.Scan(ctx, token); err != nil {
		return err
	}

	s.logger.Info("library scan requested",
		"library_id", s.cfg.LibraryID,
		"force", s.cfg.ForceScan)

	if s.cfg.ScanDelay > 0 {
		return s.sleep(ctx, s.cfg.ScanDelay)
	}
	return nil
}

// HandleEvent refreshes the library after a completed download. Failures are
// logged and never returned.
func (s *Scanner) HandleEvent(ctx context.Context, event *events.OutcomeEvent) error {
	if !s.Enabled() || !event.Succeeded() {
		return nil
	}

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("library refresh failed",
			"item_id", event.ItemID,
			"error", redact.Error(err))
	}
	return nil
}

func (s *Scanner) post(ctx context.Context, path string, query url.Values, token string) ([]byte, error) {
	endpoint := s.cfg.BaseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("library server returned %d", resp.StatusCode)
	}
	return body, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
