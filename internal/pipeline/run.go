package pipeline

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/sells-group/outreach-cli/internal/model"
)

// RunContext holds the state of one batch run. It replaces process-wide
// session state: create one per run and discard it afterwards.
type RunContext struct {
	ID      string
	Dataset *model.Dataset
	Cache   *Cache

	running         atomic.Bool
	cancelRequested atomic.Bool
}

// NewRunContext creates a run context. An empty id gets a fresh UUID.
func NewRunContext(id string, ds *model.Dataset) *RunContext {
	if id == "" {
		id = uuid.NewString()
	}
	return &RunContext{ID: id, Dataset: ds, Cache: NewCache()}
}

// Cancel asks the run to stop at the next row boundary. Safe to call from
// any goroutine.
func (rc *RunContext) Cancel() { rc.cancelRequested.Store(true) }

// CancelRequested reports whether Cancel has been called.
func (rc *RunContext) CancelRequested() bool { return rc.cancelRequested.Load() }

// Running reports whether a batch is currently using this context.
func (rc *RunContext) Running() bool { return rc.running.Load() }
