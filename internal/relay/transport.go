package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Observer API paths.
const (
	ConsolePath = "/api/console"
	HealthPath  = "/api/console/health"
)

// Transport delivers messages to an observer.
type Transport interface {
	// Deliver makes a single delivery attempt.
	Deliver(ctx context.Context, m Message) error
	// Health checks whether the observer is reachable and healthy.
	Health(ctx context.Context) error
}

// HTTPTransport posts messages as JSON to <base>/api/console.
type HTTPTransport struct {
	base   string
	client *http.Client
}

// NewHTTPTransport creates a transport for the observer at baseURL. A nil
// client gets one with a 30 second timeout.
func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPTransport{
		base:   strings.TrimRight(baseURL, "/"),
		client: client,
	}
}

// Deliver implements Transport.
func (t *HTTPTransport) Deliver(ctx context.Context, m Message) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.base+ConsolePath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return t.do(req)
}

// Health implements Transport.
func (t *HTTPTransport) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.base+HealthPath, nil)
	if err != nil {
		return err
	}
	return t.do(req)
}

func (t *HTTPTransport) do(req *http.Request) error {
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("observer returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
