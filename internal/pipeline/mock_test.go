package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/prompt"
)

// --- Fetcher Mock ---

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchText(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.Error(1)
}

// --- Generator Mock ---

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, p string) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

// --- Checkpointer Mock ---

type recordingCheckpointer struct {
	name      string
	err       error
	snapshots [][]string // Email Body column per checkpoint
}

func (c *recordingCheckpointer) Name() string { return c.name }

func (c *recordingCheckpointer) Checkpoint(_ context.Context, ds *model.Dataset, _ model.Stats) error {
	bodies := make([]string, ds.Len())
	for i, r := range ds.Rows {
		bodies[i] = r.EmailBody
	}
	c.snapshots = append(c.snapshots, bodies)
	return c.err
}

func testKnowledge() *model.Knowledge {
	return &model.Knowledge{
		Profile:  "We machine precision parts.",
		Examples: []model.Example{{Industry: "automation", EmailBody: "Your line impressed us."}},
	}
}

func newTestProcessor(t *testing.T, f TextFetcher, g Generator, pacer *Pacer) *Processor {
	t.Helper()
	asm, err := prompt.NewAssembler(config.PromptConfig{})
	require.NoError(t, err)
	return NewProcessor(f, asm, g, testKnowledge(), pacer)
}

func dataset(rows ...[]string) *model.Dataset {
	return model.NewDataset(
		[]string{model.ColumnCompany, model.ColumnWebsite, model.ColumnIndustry, model.ColumnEmailBody},
		rows,
	)
}

func bodies(ds *model.Dataset) []string {
	out := make([]string, ds.Len())
	for i, r := range ds.Rows {
		out[i] = r.EmailBody
	}
	return out
}
