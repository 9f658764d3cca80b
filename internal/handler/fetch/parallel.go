package fetch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// File is one unit of work for DownloadAll.
type File struct {
	URL  string
	Path string
}

// DownloadAll downloads files with at most maxThreads requests in flight.
// The first failure cancels the remaining downloads and is returned.
func (c *Client) DownloadAll(ctx context.Context, files []File, maxThreads int) error {
	if maxThreads < 1 {
		maxThreads = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxThreads)

	for _, f := range files {
		g.Go(func() error {
			if _, err := c.DownloadFile(gctx, f.URL, f.Path); err != nil {
				return fmt.Errorf("download %s: %w", f.URL, err)
			}
			return nil
		})
	}

	return g.Wait()
}
