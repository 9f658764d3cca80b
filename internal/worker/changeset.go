package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/archiver/internal/domain"
	"github.com/phrazzld/archiver/internal/store"
)

// changeset collects the store mutations of one pass so they can be committed
// in a single transaction.
type changeset struct {
	removals []uuid.UUID
	failures []*domain.FailedDownload
}

func (c *changeset) remove(id uuid.UUID) {
	c.removals = append(c.removals, id)
}

func (c *changeset) fail(f *domain.FailedDownload) {
	c.failures = append(c.failures, f)
}

func (c *changeset) empty() bool {
	return len(c.removals) == 0 && len(c.failures) == 0
}

func (c *changeset) reset() {
	c.removals = nil
	c.failures = nil
}

// apply writes the pending changes using tx-bound stores. A queue item that
// is already gone (deleted by an operator mid-pass) is not an error.
func (c *changeset) apply(ctx context.Context, queue store.QueueStore, failures store.FailureStore) error {
	for _, f := range c.failures {
		if err := failures.Add(ctx, f); err != nil {
			return fmt.Errorf("failed to record failure for %s: %w", f.URL, err)
		}
	}

	for _, id := range c.removals {
		err := queue.Remove(ctx, id)
		if err != nil && !errors.Is(err, store.ErrQueueItemNotFound) {
			return fmt.Errorf("failed to remove queue item %s: %w", id, err)
		}
	}

	return nil
}
