package direct

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/phrazzld/archiver/internal/handler"
	"github.com/phrazzld/archiver/internal/handler/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *fetch.Client {
	return fetch.NewClient(
		fetch.Config{MaxAttempts: 2, BaseDelay: time.Millisecond},
		nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestHandler_DownloadSavesUnderHostDirectory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "archive bytes")
	}))
	defer srv.Close()

	root := t.TempDir()
	res, err := New(testClient()).Download(context.Background(), srv.URL+"/files/Report%5Bdraft%5D.pdf", root, 4)
	require.NoError(t, err)
	assert.True(t, res.Success)

	u, _ := url.Parse(srv.URL)
	saved := filepath.Join(root, DownloadsDir, u.Hostname(), "Report.pdf")
	data, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Equal(t, "archive bytes", string(data))
	assert.Contains(t, res.Message, saved)
}

func TestHandler_DownloadClientErrorIsOrdinaryFailure(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusNotFound} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		res, err := New(testClient()).Download(context.Background(), srv.URL+"/x", t.TempDir(), 1)
		srv.Close()

		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, strconv.Itoa(status), res.Message)
	}
}

func TestHandler_DownloadServerErrorIsFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(testClient()).Download(context.Background(), srv.URL+"/x", t.TempDir(), 1)
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	tests := map[string]string{
		"https://example.com/a/b/file.zip": "file.zip",
		"https://example.com/a/b/":         "b",
		"https://example.com":              "download",
		"https://example.com/":             "download",
		"https://example.com/%5Btag%5D":    "download",
	}
	for raw, want := range tests {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, want, FileName(u), raw)
	}
}

func TestRegistrations(t *testing.T) {
	regs, err := Registrations([]string{"https://Files.Example.com", "bogus"}, testClient())
	assert.ErrorIs(t, err, handler.ErrInvalidURL)
	require.Len(t, regs, 1)
	assert.Equal(t, "https://files.example.com", regs[0].Origin)
	assert.Equal(t, Name, regs[0].Name)

	r := handler.NewRegistry(nil, nil)
	require.NoError(t, r.Register(regs[0]))

	h, err := r.Resolve("https://files.example.com/a.bin")
	require.NoError(t, err)
	assert.Equal(t, Name, handler.Describe(h))
}
