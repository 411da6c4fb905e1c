// Package store persists run records and dataset snapshots so interrupted
// runs can be inspected and resumed.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// ErrNotFound is returned when a run or its snapshot does not exist.
var ErrNotFound = eris.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// RunUpdate carries the mutable fields of a run record.
type RunUpdate struct {
	Status     model.RunStatus
	Stats      model.Stats
	OutputPath string // unchanged when empty
	Error      string
}

// Store defines the persistence interface for batch runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, run model.Run) (*model.Run, error)
	UpdateRun(ctx context.Context, runID string, upd RunUpdate) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Snapshots
	SaveSnapshot(ctx context.Context, runID string, ds *model.Dataset) error
	LoadSnapshot(ctx context.Context, runID string) (*model.Dataset, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

// snapshotColumns are the per-row columns written for a snapshot.
var snapshotColumns = []string{"run_id", "row_index", "company", "website", "industry", "email_body", "extra"}
