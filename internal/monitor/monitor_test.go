package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/archiver/internal/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func msg(i int) relay.Message {
	return relay.Message{Level: relay.LevelInformation, Source: "Worker", Message: fmt.Sprintf("m%d", i)}
}

func TestHistory_EvictsOldest(t *testing.T) {
	h := NewHistory(3)
	for i := 1; i <= 5; i++ {
		h.Add(msg(i))
	}

	assert.Equal(t, 3, h.Len())
	recent := h.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "m3", recent[0].Message)
	assert.Equal(t, "m5", recent[2].Message)

	last := h.Recent(2)
	require.Len(t, last, 2)
	assert.Equal(t, "m4", last[0].Message)
	assert.Equal(t, "m5", last[1].Message)

	assert.Len(t, h.Recent(10), 3)
}

func TestHistory_DefaultCapacity(t *testing.T) {
	h := NewHistory(0)
	for i := 0; i < DefaultHistorySize+10; i++ {
		h.Add(msg(i))
	}
	assert.Equal(t, DefaultHistorySize, h.Len())
}

func newObserverServer(t *testing.T) (*Observer, *httptest.Server, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	o := NewObserver(NewHistory(10), &out, quietLogger())
	o.now = func() time.Time { return time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC) }

	r := chi.NewRouter()
	o.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return o, srv, &out
}

func postConsole(t *testing.T, srv *httptest.Server, body string) int {
	t.Helper()
	resp, err := http.Post(srv.URL+relay.ConsolePath, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode
}

func TestObserver_Receive(t *testing.T) {
	o, srv, out := newObserverServer(t)

	assert.Equal(t, http.StatusOK, postConsole(t, srv,
		`{"level":"Warning","source":"Worker","message":"No download handler found","timestamp":"2026-05-01T09:00:00Z"}`))
	assert.Equal(t, http.StatusOK, postConsole(t, srv, `{"message":"bare"}`))
	assert.Equal(t, http.StatusBadRequest, postConsole(t, srv, `{"level":"Error","message":"  "}`))
	assert.Equal(t, http.StatusBadRequest, postConsole(t, srv, `not json`))

	recent := o.History().Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, relay.LevelWarning, recent[0].Level)
	assert.Equal(t, relay.LevelInformation, recent[1].Level)
	assert.Equal(t, UnknownSource, recent[1].Source)
	assert.Equal(t, o.now(), recent[1].Timestamp)

	assert.Contains(t, out.String(), "[WARNING] [Worker] No download handler found")
	assert.Contains(t, out.String(), "[INFORMATION] [Unknown] bare")
}

func TestObserver_Health(t *testing.T) {
	_, srv, _ := newObserverServer(t)

	resp, err := http.Get(srv.URL + relay.HealthPath)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
}

func TestObserver_Recent(t *testing.T) {
	o, srv, _ := newObserverServer(t)
	for i := 1; i <= 4; i++ {
		o.History().Add(msg(i))
	}

	get := func(query string) (int, []relay.Message) {
		resp, err := http.Get(srv.URL + relay.ConsolePath + "/recent" + query)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		var msgs []relay.Message
		if resp.StatusCode == http.StatusOK {
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&msgs))
		}
		return resp.StatusCode, msgs
	}

	status, msgs := get("")
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, msgs, 4)

	status, msgs = get("?n=2")
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m3", msgs[0].Message)

	status, _ = get("?n=abc")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestObserver_RelayRoundTrip(t *testing.T) {
	o, srv, _ := newObserverServer(t)

	client := relay.New(relay.Config{ObserverURL: srv.URL, RetryDelay: time.Millisecond}, nil, io.Discard, quietLogger())
	client.Info(context.Background(), "Worker", "Starting download: https://siteA.com/x")

	assert.True(t, client.IsHealthy(context.Background()))
	recent := o.History().Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, "Starting download: https://siteA.com/x", recent[0].Message)
	assert.False(t, client.CircuitOpen())
}
