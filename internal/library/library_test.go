package library

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/archiver/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type scanRequest struct {
	LibraryID string
	Force     string
	Auth      string
}

// newLibraryServer fakes the authenticate and scan endpoints.
func newLibraryServer(t *testing.T, authStatus int) (*httptest.Server, <-chan scanRequest) {
	t.Helper()
	scans := make(chan scanRequest, 4)

	mux := http.NewServeMux()
	mux.HandleFunc(AuthenticatePath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Query().Get("apiKey") != "secret-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if authStatus != http.StatusOK {
			w.WriteHeader(authStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"username":"archiver","token":"tok-123","kavitaVersion":"0.8"}`)
	})
	mux.HandleFunc(ScanPath, func(w http.ResponseWriter, r *http.Request) {
		scans <- scanRequest{
			LibraryID: r.URL.Query().Get("libraryId"),
			Force:     r.URL.Query().Get("force"),
			Auth:      r.Header.Get("Authorization"),
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, scans
}

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:    baseURL + "/",
		APIKey:     "secret-key",
		PluginName: "archiver",
		LibraryID:  5,
		ForceScan:  true,
		ScanDelay:  time.Minute,
	}
}

func TestRefresh(t *testing.T) {
	srv, scans := newLibraryServer(t, http.StatusOK)
	s := NewScanner(testConfig(srv.URL), srv.Client(), quietLogger())

	var slept time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		slept = d
		return nil
	}

	require.NoError(t, s.Refresh(context.Background()))

	got := <-scans
	assert.Equal(t, "5", got.LibraryID)
	assert.Equal(t, "true", got.Force)
	assert.Equal(t, "Bearer tok-123", got.Auth)
	assert.Equal(t, time.Minute, slept)
}

func TestAuthenticate_Failures(t *testing.T) {
	srv, _ := newLibraryServer(t, http.StatusInternalServerError)
	s := NewScanner(testConfig(srv.URL), srv.Client(), quietLogger())

	_, err := s.Authenticate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	cfg := testConfig(srv.URL)
	cfg.APIKey = "wrong"
	_, err = NewScanner(cfg, srv.Client(), quietLogger()).Authenticate(context.Background())
	assert.Error(t, err)
}

func TestAuthenticate_NoToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"username":"archiver"}`)
	}))
	defer srv.Close()

	_, err := NewScanner(testConfig(srv.URL), srv.Client(), quietLogger()).Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestHandleEvent_OnlyCompletedTriggersScan(t *testing.T) {
	var scans atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == ScanPath {
			scans.Add(1)
			return
		}
		_, _ = io.WriteString(w, `{"token":"t"}`)
	}))
	defer srv.Close()

	s := NewScanner(testConfig(srv.URL), srv.Client(), quietLogger())
	s.sleep = func(context.Context, time.Duration) error { return nil }

	ctx := context.Background()
	for _, kind := range []events.Kind{events.KindFailed, events.KindUnhandled, events.KindFaulted} {
		require.NoError(t, s.HandleEvent(ctx, events.NewOutcomeEvent(uuid.New(), "https://a.example", kind, "", "x")))
	}
	assert.Equal(t, int32(0), scans.Load())

	require.NoError(t, s.HandleEvent(ctx, events.NewOutcomeEvent(uuid.New(), "https://a.example", events.KindCompleted, "", "ok")))
	assert.Equal(t, int32(1), scans.Load())
}

func TestHandleEvent_DisabledAndUnreachable(t *testing.T) {
	event := events.NewOutcomeEvent(uuid.New(), "https://a.example", events.KindCompleted, "", "ok")

	disabled := NewScanner(Config{}, nil, quietLogger())
	assert.False(t, disabled.Enabled())
	assert.NoError(t, disabled.HandleEvent(context.Background(), event))

	closed := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := closed.URL
	closed.Close()
	unreachable := NewScanner(testConfig(base), nil, quietLogger())
	assert.NoError(t, unreachable.HandleEvent(context.Background(), event))
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
}
