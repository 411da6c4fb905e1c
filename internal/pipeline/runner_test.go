package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sells-group/outreach-cli/internal/generate"
	"github.com/sells-group/outreach-cli/internal/model"
)

func TestRun_EndToEndScenarios(t *testing.T) {
	f := new(mockFetcher)
	g := new(mockGenerator)
	f.On("FetchText", mock.Anything, "https://acme.com").Return("Acme makes robot arms.", nil).Once()
	f.On("FetchText", mock.Anything, "https://dead.example").Return("", errors.New("timeout"))
	g.On("Generate", mock.Anything, mock.Anything).Return("We loved your robot arms.", nil).Once()

	ds := dataset(
		[]string{"Acme Corp", "https://acme.com", "automation", ""},
		[]string{"Acme", "ftp://acme.com", "automation", ""},
		[]string{"Dead Co", "https://dead.example", "industrial", ""},
		[]string{" acme corp ", "https://acme.com", "automation", ""},
		[]string{"Done Inc", "https://done.com", "aerospace", "An email that was written before."},
	)
	rc := NewRunContext("", ds)
	assert.NotEmpty(t, rc.ID)

	var events []Event
	cp := &recordingCheckpointer{name: "memory"}
	runner := NewRunner(newTestProcessor(t, f, g, nil), Options{
		Progress: func(e Event) { events = append(events, e) },
	}, cp)

	sum, err := runner.Run(context.Background(), rc)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"We loved your robot arms.",
		"ERROR: Invalid website URL",
		"ERROR: Could not fetch website",
		"We loved your robot arms.",
		"An email that was written before.",
	}, bodies(ds))

	assert.Equal(t, model.RunStatusCompleted, sum.Status)
	assert.Equal(t, model.Stats{Generated: 3, Errors: 2, TotalProcessed: 5, TotalRows: 5}, sum.Stats)
	assert.Equal(t, map[model.Outcome]int{
		model.OutcomeGenerated:  1,
		model.OutcomeInvalidURL: 1,
		model.OutcomeFetchError: 1,
		model.OutcomeCacheHit:   1,
		model.OutcomeSkipped:    1,
	}, sum.Outcomes)
	assert.Equal(t, 1, sum.Attempted)

	require.Len(t, events, 5)
	for i, e := range events {
		assert.Equal(t, i, e.Index)
		assert.Equal(t, 5, e.Total)
	}
	assert.Equal(t, model.OutcomeCacheHit, events[3].Outcome)

	// One snapshot per non-skipped row plus the final one.
	assert.Len(t, cp.snapshots, 5)
	assert.Equal(t, bodies(ds), cp.snapshots[len(cp.snapshots)-1])

	g.AssertNumberOfCalls(t, "Generate", 1)
	assert.False(t, rc.Running())
}

func TestRun_CooperativeCancelLeavesLaterRowsUntouched(t *testing.T) {
	f := new(mockFetcher)
	g := new(mockGenerator)
	f.On("FetchText", mock.Anything, mock.Anything).Return("site text", nil)
	g.On("Generate", mock.Anything, mock.Anything).Return("A generated email body.", nil)

	ds := dataset(
		[]string{"A", "https://a.com", "x", ""},
		[]string{"B", "https://b.com", "x", ""},
		[]string{"C", "https://c.com", "x", "short"},
		[]string{"D", "https://d.com", "x", ""},
	)
	rc := NewRunContext("run-1", ds)

	const k = 2
	runner := NewRunner(newTestProcessor(t, f, g, nil), Options{
		Progress: func(e Event) {
			if e.Index == k-1 {
				rc.Cancel()
			}
		},
	})

	sum, err := runner.Run(context.Background(), rc)
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusCancelled, sum.Status)
	assert.Equal(t, []string{"A generated email body.", "A generated email body.", "short", ""}, bodies(ds))
	g.AssertNumberOfCalls(t, "Generate", k)
	assert.False(t, rc.CancelRequested(), "flags reset when the run ends")
}

func TestRun_HardCancelRestoresInFlightRow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := new(mockFetcher)
	g := new(mockGenerator)
	f.On("FetchText", mock.Anything, "https://a.com").Return("site text", nil)
	f.On("FetchText", mock.Anything, "https://b.com").
		Run(func(mock.Arguments) { cancel() }).
		Return("", context.Canceled)
	g.On("Generate", mock.Anything, mock.Anything).Return("A generated email body.", nil)

	ds := dataset(
		[]string{"A", "https://a.com", "x", ""},
		[]string{"B", "https://b.com", "x", "old"},
		[]string{"C", "https://c.com", "x", ""},
	)
	cp := &recordingCheckpointer{name: "memory"}
	sum, err := NewRunner(newTestProcessor(t, f, g, nil), Options{}, cp).Run(ctx, NewRunContext("", ds))
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusCancelled, sum.Status)
	assert.Equal(t, []string{"A generated email body.", "old", ""}, bodies(ds))
	// The final snapshot is still written after cancellation.
	assert.Equal(t, bodies(ds), cp.snapshots[len(cp.snapshots)-1])
	f.AssertNotCalled(t, "FetchText", mock.Anything, "https://c.com")
}

func TestRun_RefusesConcurrentRun(t *testing.T) {
	rc := NewRunContext("", dataset())
	rc.running.Store(true)

	_, err := NewRunner(newTestProcessor(t, new(mockFetcher), new(mockGenerator), nil), Options{}).Run(context.Background(), rc)
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestRun_CheckpointFailureDoesNotStopRun(t *testing.T) {
	f := new(mockFetcher)
	g := new(mockGenerator)

	ds := dataset(
		[]string{"A", "ftp://a", "x", ""},
		[]string{"B", "ftp://b", "x", ""},
	)
	broken := &recordingCheckpointer{name: "broken", err: errors.New("disk full")}
	ok := &recordingCheckpointer{name: "ok"}

	sum, err := NewRunner(newTestProcessor(t, f, g, nil), Options{}, broken, ok).Run(context.Background(), NewRunContext("", ds))
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusCompleted, sum.Status)
	assert.Equal(t, 3, sum.CheckpointFailures)
	assert.Len(t, ok.snapshots, 3)
	assert.Equal(t, 2, sum.Stats.Errors)
}

func TestRun_Limit(t *testing.T) {
	f := new(mockFetcher)
	g := new(mockGenerator)

	ds := dataset(
		[]string{"Done", "https://done.com", "x", "Written earlier, long enough."},
		[]string{"A", "ftp://a", "x", ""},
		[]string{"B", "ftp://b", "x", ""},
		[]string{"C", "ftp://c", "x", ""},
	)
	sum, err := NewRunner(newTestProcessor(t, f, g, nil), Options{Limit: 2}).Run(context.Background(), NewRunContext("", ds))
	require.NoError(t, err)

	assert.True(t, sum.Limited)
	assert.Equal(t, model.RunStatusCompleted, sum.Status)
	assert.Equal(t, "", ds.Rows[3].EmailBody)
	assert.Equal(t, model.BodyInvalidURL, ds.Rows[2].EmailBody)
}

func TestRun_RetryErrors(t *testing.T) {
	f := new(mockFetcher)
	g := new(mockGenerator)
	f.On("FetchText", mock.Anything, "https://a.com").Return("site text", nil)
	g.On("Generate", mock.Anything, mock.Anything).Return("Second time lucky email.", nil)

	ds := dataset(
		[]string{"A", "https://a.com", "x", "ERROR: quota exceeded"},
		[]string{"B", "https://b.com", "x", "Generated previously and kept."},
	)

	// Without RetryErrors the error row is long enough to count as processed.
	sum, err := NewRunner(newTestProcessor(t, f, g, nil), Options{}).Run(context.Background(), NewRunContext("", ds))
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Outcomes[model.OutcomeSkipped])
	g.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)

	sum, err = NewRunner(newTestProcessor(t, f, g, nil), Options{RetryErrors: true}).Run(context.Background(), NewRunContext("", ds))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.ClearedErrors)
	assert.Equal(t, []string{"Second time lucky email.", "Generated previously and kept."}, bodies(ds))
}

func TestRun_CountsTransientGenerationErrors(t *testing.T) {
	f := new(mockFetcher)
	g := new(mockGenerator)
	f.On("FetchText", mock.Anything, mock.Anything).Return("site text", nil)
	g.On("Generate", mock.Anything, mock.Anything).
		Return("", &generate.GenerationError{Provider: "gemini", Err: errors.New("Error 503"), Transient: true}).Once()
	g.On("Generate", mock.Anything, mock.Anything).
		Return("", &generate.GenerationError{Provider: "gemini", Err: errors.New("Error 400")}).Once()

	ds := dataset(
		[]string{"A", "https://a.com", "x", ""},
		[]string{"B", "https://b.com", "x", ""},
	)
	sum, err := NewRunner(newTestProcessor(t, f, g, nil), Options{}).Run(context.Background(), NewRunContext("", ds))
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Outcomes[model.OutcomeGenerationError])
	assert.Equal(t, 1, sum.TransientErrors)
	assert.Equal(t, "ERROR: gemini generation failed: Error 503", ds.Rows[0].EmailBody)
}

func TestClearErrors(t *testing.T) {
	ds := dataset(
		[]string{"A", "", "", "ERROR: x"},
		[]string{"B", "", "", "fine body text here"},
		[]string{"C", "", "", ""},
	)
	assert.Equal(t, 1, ClearErrors(ds))
	assert.Equal(t, []string{"", "fine body text here", ""}, bodies(ds))
}

func TestRun_LogsCachedCompanies(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	f := new(mockFetcher)
	g := new(mockGenerator)
	f.On("FetchText", mock.Anything, mock.Anything).Return("They build carts.", nil)
	g.On("Generate", mock.Anything, mock.Anything).Return("We admire your carts.", nil)

	ds := dataset(
		[]string{"Acme", "https://acme.com", "automation", ""},
		[]string{"Globex", "https://globex.com", "aerospace", ""},
		[]string{"ACME ", "https://acme.com", "automation", ""},
	)
	rc := NewRunContext("run-log", ds)
	_, err := NewRunner(newTestProcessor(t, f, g, nil), Options{}).Run(context.Background(), rc)
	require.NoError(t, err)

	assert.Equal(t, 2, rc.Cache.Len())
	finished := logs.FilterMessage("pipeline: run finished").All()
	require.Len(t, finished, 1)
	assert.Equal(t, int64(2), finished[0].ContextMap()["cached_companies"])
}
