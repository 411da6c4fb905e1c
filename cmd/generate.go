package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/cost"
	"github.com/sells-group/outreach-cli/internal/generate"
	"github.com/sells-group/outreach-cli/internal/knowledge"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/pipeline"
	"github.com/sells-group/outreach-cli/internal/prompt"
	"github.com/sells-group/outreach-cli/internal/sheet"
	"github.com/sells-group/outreach-cli/internal/store"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an outreach email for every company in a spreadsheet",
	Long: "Processes rows in order: rows that already have an email are skipped, " +
		"each website is scraped once, and the output file is rewritten after every row. " +
		"Press Ctrl-C once to stop after the current row, twice to stop immediately.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()

		input, _ := flags.GetString("input")
		output, _ := flags.GetString("output")
		resume, _ := flags.GetString("resume")
		keyLabel, _ := flags.GetString("key")
		addKeys, _ := flags.GetStringArray("add-key")
		limit, _ := flags.GetInt("limit")
		retryErrors, _ := flags.GetBool("retry-errors")
		noStore, _ := flags.GetBool("no-store")

		if flags.Changed("delay") {
			cfg.Batch.DelaySecs, _ = flags.GetInt("delay")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if (input == "") == (resume == "") {
			return eris.New("generate: pass exactly one of --input or --resume")
		}
		if resume != "" && noStore {
			return eris.New("generate: --resume needs the run store, drop --no-store")
		}

		label, apiKey, err := resolveCredential(cfg.Credentials, addKeys, keyLabel)
		if err != nil {
			return err
		}

		k, err := knowledge.Load(cfg.Knowledge.ProfilePath, cfg.Knowledge.ExamplesPath)
		if err != nil {
			return eris.Wrap(err, "generate: load knowledge")
		}

		st, err := initStore(ctx, noStore)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		} else if resume != "" {
			return eris.New("generate: --resume needs a run store (store.driver is none)")
		}

		job, err := prepareJob(ctx, st, input, output, resume)
		if err != nil {
			return err
		}

		usage := cost.NewTracker(cost.NewCalculator(cost.DefaultRates()))
		gen, err := generate.New(ctx, cfg.Generation, apiKey, generate.WithUsageRecorder(usage))
		if err != nil {
			return eris.Wrap(err, "generate: init generator")
		}
		fetcher, err := newFetcher(cfg)
		if err != nil {
			return err
		}
		asm, err := prompt.NewAssembler(cfg.Prompt)
		if err != nil {
			return err
		}

		pacer := pipeline.NewPacer(time.Duration(cfg.Batch.DelaySecs) * time.Second)
		zap.L().Info("generate: starting",
			zap.String("run_id", job.runID),
			zap.String("input", job.inputPath),
			zap.String("output", job.outputPath),
			zap.String("provider", gen.Provider()),
			zap.String("model", gen.Model()),
			zap.String("credential", label),
			zap.Duration("delay", pacer.Delay()),
		)

		proc := pipeline.NewProcessor(fetcher, asm, gen, k, pacer)

		checkpointers := []pipeline.Checkpointer{
			&sheet.FileCheckpointer{Path: job.outputPath, Opts: sheet.WriteOptions{SheetName: cfg.Output.SheetName}},
		}
		if st != nil {
			if err := job.register(ctx, st, gen); err != nil {
				return err
			}
			checkpointers = append(checkpointers, store.NewCheckpointer(st, job.runID))
		}

		runner := pipeline.NewRunner(proc, pipeline.Options{
			Limit:       limit,
			RetryErrors: retryErrors,
			Progress:    progressPrinter(cmd.ErrOrStderr()),
		}, checkpointers...)
		rc := pipeline.NewRunContext(job.runID, job.dataset)

		sigs := make(chan os.Signal, 2)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigs)

		sum, runErr := runWithSignals(ctx, runner, rc, sigs)

		if st != nil {
			upd := store.RunUpdate{Status: model.RunStatusFailed, OutputPath: job.outputPath}
			if sum != nil {
				upd.Status, upd.Stats = sum.Status, sum.Stats
			}
			if runErr != nil {
				upd.Status, upd.Error = model.RunStatusFailed, runErr.Error()
			}
			if err := st.UpdateRun(context.WithoutCancel(ctx), job.runID, upd); err != nil {
				zap.L().Error("generate: record run result", zap.String("run_id", job.runID), zap.Error(err))
			}
		}
		if runErr != nil {
			return eris.Wrap(runErr, "generate: run")
		}

		printSummary(cmd.OutOrStdout(), sum, job.outputPath, usage.Usage())
		return nil
	},
}

func init() {
	f := generateCmd.Flags()
	f.String("input", "", "input spreadsheet (.csv or .xlsx)")
	f.String("output", "", "output spreadsheet (default generated_emails_<unix>.xlsx)")
	f.String("resume", "", "resume a stored run by ID")
	f.String("key", "", "label of the API credential to use")
	f.StringArray("add-key", nil, "session-only credential as label=value (repeatable)")
	f.Int("delay", 2, fmt.Sprintf("seconds between generation calls (%d-%d)", config.MinDelaySecs, config.MaxDelaySecs))
	f.Int("limit", 0, "max rows to process this run (0 = all)")
	f.Bool("retry-errors", false, "clear ERROR: rows so they are processed again")
	f.Bool("no-store", false, "do not record the run in the run store")
	rootCmd.AddCommand(generateCmd)
}

// job is a dataset plus where it came from and where it goes.
type job struct {
	runID      string
	inputPath  string
	outputPath string
	dataset    *model.Dataset
	resumed    bool
}

// prepareJob loads the dataset from the input file, or from the stored
// snapshot when resuming.
func prepareJob(ctx context.Context, st store.Store, input, output, resumeID string) (*job, error) {
	if resumeID != "" {
		run, err := st.GetRun(ctx, resumeID)
		if err != nil {
			return nil, eris.Wrapf(err, "generate: resume %s", resumeID)
		}
		ds, err := st.LoadSnapshot(ctx, resumeID)
		if err != nil {
			return nil, eris.Wrapf(err, "generate: load snapshot for %s", resumeID)
		}
		if output == "" {
			output = run.OutputPath
		}
		if output == "" {
			output = defaultOutputPath(time.Now())
		}
		if _, err := sheet.FormatOf(output); err != nil {
			return nil, err
		}
		return &job{runID: run.ID, inputPath: run.InputPath, outputPath: output, dataset: ds, resumed: true}, nil
	}

	ds, err := sheet.ReadFile(input)
	if err != nil {
		return nil, eris.Wrap(err, "generate: read input")
	}
	if output == "" {
		output = defaultOutputPath(time.Now())
	}
	if _, err := sheet.FormatOf(output); err != nil {
		return nil, err
	}
	return &job{runID: uuid.NewString(), inputPath: input, outputPath: output, dataset: ds}, nil
}

// register records a new run, or marks a resumed one as running again.
func (j *job) register(ctx context.Context, st store.Store, gen generate.Generator) error {
	stats := model.ComputeStats(j.dataset)
	if j.resumed {
		return eris.Wrap(st.UpdateRun(ctx, j.runID, store.RunUpdate{
			Status:     model.RunStatusRunning,
			Stats:      stats,
			OutputPath: j.outputPath,
		}), "generate: reopen run")
	}

	run, err := st.CreateRun(ctx, model.Run{
		ID:         j.runID,
		InputPath:  j.inputPath,
		OutputPath: j.outputPath,
		Provider:   gen.Provider(),
		Model:      gen.Model(),
		Stats:      stats,
	})
	if err != nil {
		return eris.Wrap(err, "generate: record run")
	}
	j.runID = run.ID
	return nil
}

func defaultOutputPath(now time.Time) string {
	return fmt.Sprintf("generated_emails_%d.xlsx", now.Unix())
}

// runWithSignals runs the batch next to a signal watcher. The first signal
// requests a stop at the next row boundary; the second cancels ctx.
func runWithSignals(ctx context.Context, runner *pipeline.Runner, rc *pipeline.RunContext, sigs <-chan os.Signal) (*pipeline.Summary, error) {
	ctx, hardStop := context.WithCancel(ctx)
	defer hardStop()

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	var sum *pipeline.Summary
	g.Go(func() error {
		defer close(done)
		s, err := runner.Run(gctx, rc)
		sum = s
		return err
	})
	g.Go(func() error {
		watchSignals(sigs, done, rc, hardStop)
		return nil
	})

	err := g.Wait()
	return sum, err
}

func watchSignals(sigs <-chan os.Signal, done <-chan struct{}, rc *pipeline.RunContext, hardStop context.CancelFunc) {
	received := 0
	for {
		select {
		case <-done:
			return
		case sig := <-sigs:
			received++
			if received == 1 {
				zap.L().Warn("generate: stop requested, finishing current row (repeat to stop now)", zap.String("signal", sig.String()))
				rc.Cancel()
				continue
			}
			zap.L().Warn("generate: stopping immediately", zap.String("signal", sig.String()))
			hardStop()
			return
		}
	}
}

func progressPrinter(w io.Writer) func(pipeline.Event) {
	return func(e pipeline.Event) {
		if e.Outcome == model.OutcomeSkipped {
			return
		}
		_, _ = fmt.Fprintf(w, "[%d/%d] %s: %s (generated %d, errors %d)\n",
			e.Index+1, e.Total, e.Company, e.Outcome, e.Stats.Generated, e.Stats.Errors)
	}
}

func printSummary(out io.Writer, s *pipeline.Summary, outputPath string, u cost.Usage) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", s.RunID)
	_, _ = fmt.Fprintf(w, "Status:\t%s\n", s.Status)
	_, _ = fmt.Fprintf(w, "Output:\t%s\n", outputPath)
	_, _ = fmt.Fprintf(w, "Generated:\t%d\n", s.Stats.Generated)
	_, _ = fmt.Fprintf(w, "Errors:\t%d\n", s.Stats.Errors)
	_, _ = fmt.Fprintf(w, "Processed:\t%d / %d\n", s.Stats.TotalProcessed, s.Stats.TotalRows)
	_, _ = fmt.Fprintf(w, "Generation calls:\t%d\n", s.Attempted)
	if u.Calls > 0 {
		_, _ = fmt.Fprintf(w, "Tokens:\t%d in / %d out\n", u.InputTokens, u.OutputTokens)
		if u.Priced {
			_, _ = fmt.Fprintf(w, "Estimated cost:\t$%.4f\n", u.CostUSD)
		}
	}
	if s.TransientErrors > 0 {
		_, _ = fmt.Fprintf(w, "  Transient failures:\t%d (rerun with --retry-errors)\n", s.TransientErrors)
	}
	if s.ClearedErrors > 0 {
		_, _ = fmt.Fprintf(w, "Retried error rows:\t%d\n", s.ClearedErrors)
	}
	if s.Limited {
		_, _ = fmt.Fprintln(w, "Stopped at --limit:\tyes")
	}
	if s.CheckpointFailures > 0 {
		_, _ = fmt.Fprintf(w, "Checkpoint failures:\t%d\n", s.CheckpointFailures)
	}
	_, _ = fmt.Fprintf(w, "Duration:\t%s\n", s.Duration.Round(time.Second))
	_ = w.Flush()
}
