package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/archiver/internal/config"
	"github.com/phrazzld/archiver/internal/domain"
	"github.com/phrazzld/archiver/internal/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-operator-secret-that-is-long-enough"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server:   config.ServerConfig{Port: 8080, LogLevel: "error"},
		Database: config.DatabaseConfig{Driver: "sqlite3", URL: ":memory:"},
		Worker: config.WorkerConfig{
			ShareLocation:        t.TempDir(),
			MaxConcurrentThreads: 2,
			PollInterval:         time.Hour,
		},
		Plugins: config.PluginsConfig{
			Dir:           t.TempDir(),
			DirectOrigins: []string{"https://files.example.com"},
		},
		Relay: config.RelayConfig{
			MaxRetries:     1,
			CircuitTimeout: time.Minute,
			BufferSize:     10,
			DrainInterval:  time.Hour,
			RequestTimeout: time.Second,
		},
		Auth: config.AuthConfig{TokenLifetime: time.Hour},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *application {
	t.Helper()
	app, err := newApplication(context.Background(), cfg, quietLogger(), appOptions{migrate: true, handlers: true})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, app.close()) })
	return app
}

func TestNewApplication_WiresComponents(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	assert.NotNil(t, app.repo)
	assert.NotNil(t, app.relay)
	assert.NotNil(t, app.observer)
	assert.Nil(t, app.jwtService, "auth is disabled without a secret")
	require.NotNil(t, app.registry)
	assert.Equal(t, 1, app.registry.Len())

	h, err := app.registry.Resolve("https://files.example.com/a.zip")
	require.NoError(t, err)
	assert.NotNil(t, h)

	require.NoError(t, app.newWorker().Validate())
}

func TestNewApplication_InvalidDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "mysql"

	app, err := newApplication(context.Background(), cfg, quietLogger(), appOptions{})
	assert.Error(t, err)
	assert.Nil(t, app)
}

func TestNewApplication_WeakSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.JWTSecret = "short"

	app, err := newApplication(context.Background(), cfg, quietLogger(), appOptions{migrate: true})
	assert.Error(t, err)
	assert.Nil(t, app)
}

func TestRouter_HealthAndQueue(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	server := httptest.NewServer(app.setupRouter())
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

	resp, err = http.Post(server.URL+"/api/download", "application/json",
		strings.NewReader(`{"url":"https://files.example.com/a.zip"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	items, err := app.repo.Queue().List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://files.example.com/a.zip", items[0].URL)
}

func TestRouter_ObserverMounted(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	server := httptest.NewServer(app.setupRouter())
	defer server.Close()

	resp, err := http.Post(server.URL+relay.ConsolePath, "application/json",
		strings.NewReader(`{"level":"Warning","source":"Worker","message":"hello"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, app.observer.History().Len())

	resp, err = http.Get(server.URL + relay.HealthPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_RelayEndpoints(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.JWTSecret = testSecret
	app := newTestApp(t, cfg)
	server := httptest.NewServer(app.setupRouter())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/relay")
	require.NoError(t, err)
	var status map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, status["enabled"], "no observer configured")

	resp, err = http.Post(server.URL+"/api/relay/drain", "", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "draining is an operator action")
}

func TestRouter_AuthProtectsMutations(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.JWTSecret = testSecret
	app := newTestApp(t, cfg)
	require.NotNil(t, app.jwtService)

	server := httptest.NewServer(app.setupRouter())
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/download?url=https://files.example.com/a.zip", "", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(server.URL + "/api/queue")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "reads stay public")

	token, err := app.jwtService.GenerateToken(context.Background(), "ops")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/download?url=https://files.example.com/a.zip", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var item map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&item))
	assert.Equal(t, "https://files.example.com/a.zip", item["url"])
}

func TestRunHTTPServer_StopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Port = 0
	app := newTestApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.runHTTPServer(ctx, app.setupRouter()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestEnqueue_ValidatesAllBeforeAdding(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	ctx := context.Background()

	var out bytes.Buffer
	err := enqueue(ctx, app.repo, &out, []string{"https://a.example.com/1", "not a url"})
	require.Error(t, err)

	count, err := app.repo.Queue().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, enqueue(ctx, app.repo, &out, []string{"https://a.example.com/1", "https://a.example.com/2"}))
	assert.Equal(t, 2, strings.Count(out.String(), "\n"))

	count, err = app.repo.Queue().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestPrintTables(t *testing.T) {
	item, err := domain.NewQueueItem("https://a.example.com/1")
	require.NoError(t, err)
	failure, err := domain.NewFailedDownload("https://b.example.com/2", "HTTP 403")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printQueue(&out, []*domain.QueueItem{item}))
	assert.Contains(t, out.String(), "ID")
	assert.Contains(t, out.String(), item.ID.String())
	assert.Contains(t, out.String(), "https://a.example.com/1")

	out.Reset()
	require.NoError(t, printFailures(&out, []*domain.FailedDownload{failure}))
	assert.Contains(t, out.String(), "ERROR")
	assert.Contains(t, out.String(), "HTTP 403")
}

func TestParseID(t *testing.T) {
	_, err := parseID("nope")
	assert.Error(t, err)

	item, err := domain.NewQueueItem("https://a.example.com/1")
	require.NoError(t, err)
	id, err := parseID(item.ID.String())
	require.NoError(t, err)
	assert.Equal(t, item.ID, id)
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "worker", "migrate", "enqueue", "queue", "failed", "token"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestNewApplication_SubscribesOutcomeHandlers(t *testing.T) {
	cfg := testConfig(t)
	app := newTestApp(t, cfg)
	assert.Zero(t, app.emitter.Len(), "nothing configured")

	cfg = testConfig(t)
	cfg.Notify.URL = "http://ntfy.local/archiver"
	cfg.Library = config.LibraryConfig{BaseURL: "http://kavita.local", APIKey: "key", LibraryID: 1}
	app = newTestApp(t, cfg)
	assert.Equal(t, 2, app.emitter.Len())
}
