package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/generate"
	"github.com/sells-group/outreach-cli/internal/model"
)

// ErrRunInProgress is returned when a run context is already being processed.
var ErrRunInProgress = eris.New("pipeline: run already in progress")

// Checkpointer persists a snapshot of the dataset.
type Checkpointer interface {
	Name() string
	Checkpoint(ctx context.Context, ds *model.Dataset, stats model.Stats) error
}

// Event reports progress after each row.
type Event struct {
	Index     int
	Total     int
	Company   string
	Outcome   model.Outcome
	Attempted bool
	Stats     model.Stats
}

// Options tune a batch run.
type Options struct {
	// Limit caps how many unprocessed rows are handled; 0 means no cap.
	Limit int
	// RetryErrors clears ERROR: bodies before the run so those rows are
	// processed again.
	RetryErrors bool
	// Progress, when set, is called after every row.
	Progress func(Event)
}

// Summary describes a finished run.
type Summary struct {
	RunID              string
	Status             model.RunStatus
	Stats              model.Stats
	Outcomes           map[model.Outcome]int
	Attempted          int
	TransientErrors    int
	ClearedErrors      int
	Limited            bool
	CheckpointFailures int
	Duration           time.Duration
}

// Runner drives the row processor over a dataset in index order.
type Runner struct {
	processor     RowProcessor
	checkpointers []Checkpointer
	opts          Options
}

// NewRunner creates a Runner.
func NewRunner(p RowProcessor, opts Options, checkpointers ...Checkpointer) *Runner {
	return &Runner{processor: p, checkpointers: checkpointers, opts: opts}
}

// Run processes every row of rc.Dataset one at a time. Cancellation, either
// rc.Cancel or ctx, is observed between rows. If ctx is cancelled while a row
// is in flight, that row's original body is restored.
func (r *Runner) Run(ctx context.Context, rc *RunContext) (*Summary, error) {
	if !rc.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer func() {
		rc.cancelRequested.Store(false)
		rc.running.Store(false)
	}()

	start := time.Now()
	ds := rc.Dataset
	log := zap.L().With(zap.String("run_id", rc.ID))

	sum := &Summary{
		RunID:    rc.ID,
		Status:   model.RunStatusCompleted,
		Outcomes: make(map[model.Outcome]int),
	}

	if r.opts.RetryErrors {
		sum.ClearedErrors = ClearErrors(ds)
		if sum.ClearedErrors > 0 {
			log.Info("pipeline: cleared error rows for retry", zap.Int("rows", sum.ClearedErrors))
		}
	}

	log.Info("pipeline: starting run", zap.Int("rows", ds.Len()))

	handled := 0
	for i, row := range ds.Rows {
		if rc.CancelRequested() || ctx.Err() != nil {
			sum.Status = model.RunStatusCancelled
			log.Info("pipeline: cancellation observed", zap.Int("next_row", i))
			break
		}
		if r.opts.Limit > 0 && handled >= r.opts.Limit && !model.IsProcessedBody(row.EmailBody) {
			sum.Limited = true
			log.Info("pipeline: row limit reached", zap.Int("limit", r.opts.Limit))
			break
		}

		original := row.EmailBody
		res := r.processor.ProcessRow(ctx, row, rc.Cache)

		if res.Outcome != model.OutcomeSkipped && ctx.Err() != nil {
			row.EmailBody = original
			sum.Status = model.RunStatusCancelled
			log.Warn("pipeline: run interrupted mid-row, row restored", zap.Int("row", i))
			break
		}

		sum.Outcomes[res.Outcome]++
		if res.Attempted {
			sum.Attempted++
		}
		var genErr *generate.GenerationError
		if errors.As(res.Err, &genErr) && genErr.Transient {
			sum.TransientErrors++
		}

		stats := model.ComputeStats(ds)
		if res.Outcome != model.OutcomeSkipped {
			handled++
			r.logRow(log, i, row, res)
			sum.CheckpointFailures += r.checkpoint(ctx, ds, stats)
		}

		if r.opts.Progress != nil {
			r.opts.Progress(Event{
				Index:     i,
				Total:     ds.Len(),
				Company:   row.Company,
				Outcome:   res.Outcome,
				Attempted: res.Attempted,
				Stats:     stats,
			})
		}
	}

	sum.Stats = model.ComputeStats(ds)
	sum.CheckpointFailures += r.checkpoint(context.WithoutCancel(ctx), ds, sum.Stats)
	sum.Duration = time.Since(start)

	log.Info("pipeline: run finished",
		zap.String("status", string(sum.Status)),
		zap.Int("generated", sum.Stats.Generated),
		zap.Int("errors", sum.Stats.Errors),
		zap.Int("total_rows", sum.Stats.TotalRows),
		zap.Int("cached_companies", rc.Cache.Len()),
		zap.Duration("duration", sum.Duration),
	)

	return sum, nil
}

func (r *Runner) logRow(log *zap.Logger, i int, row *model.Row, res RowResult) {
	fields := []zap.Field{
		zap.Int("row", i),
		zap.String("company", row.Company),
		zap.String("outcome", string(res.Outcome)),
	}
	if res.Outcome.IsError() {
		if res.Err != nil {
			fields = append(fields, zap.Error(res.Err))
		}
		log.Warn("pipeline: row failed", fields...)
		return
	}
	log.Info("pipeline: row processed", fields...)
}

// checkpoint writes a snapshot to every checkpointer and returns the number
// of failures.
func (r *Runner) checkpoint(ctx context.Context, ds *model.Dataset, stats model.Stats) int {
	failures := 0
	for _, cp := range r.checkpointers {
		if err := cp.Checkpoint(ctx, ds, stats); err != nil {
			failures++
			zap.L().Error("pipeline: checkpoint failed", zap.String("checkpointer", cp.Name()), zap.Error(err))
		}
	}
	return failures
}

// ClearErrors empties every ERROR: body and returns how many were cleared.
func ClearErrors(ds *model.Dataset) int {
	n := 0
	for _, row := range ds.Rows {
		if model.IsErrorBody(row.EmailBody) {
			row.EmailBody = ""
			n++
		}
	}
	return n
}
