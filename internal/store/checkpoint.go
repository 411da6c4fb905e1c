package store

import (
	"context"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Checkpointer persists the dataset snapshot and running stats of one run
// after each processed row.
type Checkpointer struct {
	store Store
	runID string
}

// NewCheckpointer returns a Checkpointer writing to s under runID.
func NewCheckpointer(s Store, runID string) *Checkpointer {
	return &Checkpointer{store: s, runID: runID}
}

// Name identifies the checkpointer in logs.
func (c *Checkpointer) Name() string { return "store:" + c.runID }

// Checkpoint saves the snapshot, then the stats.
func (c *Checkpointer) Checkpoint(ctx context.Context, ds *model.Dataset, stats model.Stats) error {
	if err := c.store.SaveSnapshot(ctx, c.runID, ds); err != nil {
		return err
	}
	return c.store.UpdateRun(ctx, c.runID, RunUpdate{Status: model.RunStatusRunning, Stats: stats})
}
