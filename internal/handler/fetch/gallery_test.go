package fetch_test

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/archiver/internal/handler"
	"github.com/phrazzld/archiver/internal/handler/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// galleryHandler is the shape of a typical plugin: list the pages of a
// gallery, fetch them in parallel and leave one archive behind.
func galleryHandler(client *fetch.Client, pages int) handler.Handler {
	return handler.HandlerFunc(func(ctx context.Context, rawURL, root string, maxThreads int) (handler.Result, error) {
		name := fetch.SanitizeFileName(filepath.Base(rawURL))
		dir := filepath.Join(root, "Galleries", name)

		if done, err := fetch.ExistsWithAnyExtension(filepath.Dir(dir), name); err == nil && done {
			return handler.Succeeded("%s already archived", name), nil
		}

		files := make([]fetch.File, 0, pages)
		for i := 1; i <= pages; i++ {
			files = append(files, fetch.File{
				URL:  fmt.Sprintf("%s/page-%d.jpg", rawURL, i),
				Path: filepath.Join(dir, fmt.Sprintf("%03d.jpg", i)),
			})
		}
		if err := client.DownloadAll(ctx, files, maxThreads); err != nil {
			return handler.Result{}, err
		}

		archive, err := fetch.ZipDirectory(dir)
		if err != nil {
			return handler.Result{}, err
		}
		if err := os.RemoveAll(dir); err != nil {
			return handler.Result{}, err
		}
		return handler.Succeeded("archived %s", archive), nil
	})
}

func TestGalleryHandler_DownloadsPagesAndArchives(t *testing.T) {
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		_, _ = io.WriteString(w, r.URL.Path)
	}))
	defer srv.Close()

	client := fetch.NewClient(fetch.Config{MaxAttempts: 2, BaseDelay: time.Millisecond, Timeout: 5 * time.Second},
		nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := galleryHandler(client, 6)
	root := t.TempDir()
	url := srv.URL + "/gallery/Summer_Trip"

	res, err := h.Download(context.Background(), url, root, 3)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.LessOrEqual(t, peak.Load(), int32(3))

	archive := filepath.Join(root, "Galleries", "Summer_Trip.zip")
	zr, err := zip.OpenReader(archive)
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 6)
	for _, f := range zr.File {
		assert.True(t, strings.HasSuffix(f.Name, ".jpg"), f.Name)
	}

	res, err = h.Download(context.Background(), url, root, 3)
	require.NoError(t, err)
	assert.Equal(t, "Summer_Trip already archived", res.Message)
}
