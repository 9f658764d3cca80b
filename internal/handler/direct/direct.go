// Package direct implements the built-in handler that saves a URL's response
// body as a single file.
package direct

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/phrazzld/archiver/internal/handler"
	"github.com/phrazzld/archiver/internal/handler/fetch"
)

// Name is the display name of the direct handler.
const Name = "DirectDownload"

// DownloadsDir is the directory under the destination root that receives files.
const DownloadsDir = "Downloads"

// Handler downloads a URL to <root>/Downloads/<host>/<file name>.
type Handler struct {
	client *fetch.Client
}

// New creates a Handler using client for transfers.
func New(client *fetch.Client) *Handler {
	return &Handler{client: client}
}

// Name implements handler.Named.
func (h *Handler) Name() string {
	return Name
}

// Download implements handler.Handler.
func (h *Handler) Download(ctx context.Context, rawURL, destinationRoot string, _ int) (handler.Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return handler.Result{}, fmt.Errorf("parse %s: %w", rawURL, err)
	}

	target := filepath.Join(destinationRoot, DownloadsDir, strings.ToLower(u.Hostname()), FileName(u))

	n, err := h.client.DownloadFile(ctx, rawURL, target)
	if err != nil {
		if code := fetch.StatusCode(err); code >= 400 && code < 500 {
			return handler.Failed("%d", code), nil
		}
		if errors.Is(err, context.Canceled) {
			return handler.Failed("download cancelled"), nil
		}
		return handler.Result{}, err
	}

	return handler.Succeeded("saved %s (%d bytes)", target, n), nil
}

// FileName derives the local file name from the last path segment of u,
// falling back to "download".
func FileName(u *url.URL) string {
	name := SanitizedBase(u.Path)
	if name == "" {
		return "download"
	}
	return name
}

// SanitizedBase returns the sanitized last segment of a decoded URL path.
func SanitizedBase(p string) string {
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	return fetch.SanitizeFileName(path.Base(p))
}

// Registrations returns one registration per origin, all served by the
// direct handler. Invalid origins are returned as an error alongside the
// valid registrations.
func Registrations(origins []string, client *fetch.Client) ([]handler.Registration, error) {
	regs := make([]handler.Registration, 0, len(origins))
	var result *multierror.Error

	for _, o := range origins {
		origin, err := handler.Origin(o)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		regs = append(regs, handler.Registration{
			Origin: origin,
			Name:   Name,
			New:    func() handler.Handler { return New(client) },
		})
	}

	return regs, result.ErrorOrNil()
}

