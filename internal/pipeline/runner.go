package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/mikey/mail-lens/internal/adapters/export"
	"github.com/mikey/mail-lens/internal/categories"
	"github.com/mikey/mail-lens/internal/config"
	"github.com/mikey/mail-lens/internal/core"
	"github.com/mikey/mail-lens/internal/metrics"
	"github.com/mikey/mail-lens/internal/ports"
	"github.com/mikey/mail-lens/internal/report"
	"go.uber.org/zap"
)

var (
	// ErrNoEmails is returned when the input folder holds no parseable email
	ErrNoEmails = errors.New("no emails found in input folder")
	// ErrRunInProgress is returned by TryRun while another run is active
	ErrRunInProgress = errors.New("a classification run is already in progress")
)

// Outcome is everything one pipeline run produced
type Outcome struct {
	Batch       *core.BatchResult
	Files       map[string]string
	Summary     report.Summary
	Metrics     *metrics.Report
	MetricsFile string
}

// Runner executes the batch pipeline: clear output, parse, load categories,
// classify, export, summarize, evaluate.
type Runner struct {
	paths     config.PathsConfig
	export    config.ExportConfig
	metrics   config.MetricsConfig
	opts      core.BatchOptions
	source    ports.EmailSource
	loader    *categories.Loader
	service   *core.ClassifierService
	exporter  *export.Manager
	evaluator *metrics.Evaluator
	logger    *zap.Logger
	out       io.Writer

	active atomic.Int32
}

// NewRunner creates a new pipeline runner. Summaries are printed to out.
func NewRunner(
	cfg *config.Config,
	opts core.BatchOptions,
	source ports.EmailSource,
	loader *categories.Loader,
	service *core.ClassifierService,
	exporter *export.Manager,
	logger *zap.Logger,
	out io.Writer,
) *Runner {
	return &Runner{
		paths:     cfg.GetPaths(),
		export:    cfg.GetExport(),
		metrics:   cfg.GetMetrics(),
		opts:      opts,
		source:    source,
		loader:    loader,
		service:   service,
		exporter:  exporter,
		evaluator: metrics.NewEvaluator(service.Policy().OtherCategory, logger),
		logger:    logger,
		out:       out,
	}
}

// Paths returns the folder layout the runner works on
func (r *Runner) Paths() config.PathsConfig {
	return r.paths
}

// ExportPrefix returns the file name prefix of exported results
func (r *Runner) ExportPrefix() string {
	return r.export.Prefix
}

// MetricsPrefix returns the file name prefix of the saved metrics
func (r *Runner) MetricsPrefix() string {
	return r.metrics.Prefix
}

// Active reports whether a run is in progress
func (r *Runner) Active() bool {
	return r.active.Load() > 0
}

// TryRun starts a run unless one is already active
func (r *Runner) TryRun(ctx context.Context) (*Outcome, error) {
	if !r.active.CompareAndSwap(0, 1) {
		return nil, ErrRunInProgress
	}
	defer r.active.Add(-1)
	return r.run(ctx)
}

// Start launches a run in the background unless one is already active.
// done, when not nil, receives the result of the run.
func (r *Runner) Start(ctx context.Context, done func(*Outcome, error)) error {
	if !r.active.CompareAndSwap(0, 1) {
		return ErrRunInProgress
	}
	go func() {
		defer r.active.Add(-1)
		outcome, err := r.run(ctx)
		if err != nil {
			r.logger.Error("Background run failed", zap.Error(err))
		}
		if done != nil {
			done(outcome, err)
		}
	}()
	return nil
}

// Run executes one run unconditionally. The run counts as active while it executes.
func (r *Runner) Run(ctx context.Context) (*Outcome, error) {
	r.active.Add(1)
	defer r.active.Add(-1)
	return r.run(ctx)
}

func (r *Runner) run(ctx context.Context) (*Outcome, error) {
	if r.paths.ClearOutput {
		if err := clearFolder(r.paths.OutputDir); err != nil {
			return nil, fmt.Errorf("failed to clear output folder: %w", err)
		}
		r.logger.Info("Output folder cleared", zap.String("dir", r.paths.OutputDir))
	}

	emails, err := r.source.LoadDir(ctx, r.paths.InputDir)
	if err != nil {
		return nil, err
	}
	if len(emails) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoEmails, r.paths.InputDir)
	}
	r.logger.Info("Emails loaded", zap.Int("count", len(emails)), zap.String("dir", r.paths.InputDir))

	categorySet, err := r.loader.LoadFile(r.paths.CategoriesFile)
	if err != nil {
		return nil, err
	}

	batch, err := r.service.ClassifyBatch(ctx, emails, categorySet, r.opts)
	if err != nil {
		return nil, err
	}

	files, err := r.exporter.ExportAll(ctx, batch, r.paths.OutputDir, r.export.Prefix, r.export.Formats)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		Batch:   batch,
		Files:   files,
		Summary: report.Generate(batch.Results),
	}
	report.Print(r.out, outcome.Summary)
	report.PrintRunStats(r.out, &batch.Stats)

	if r.metrics.Enabled {
		r.evaluate(outcome)
	}

	return outcome, nil
}

// evaluate computes and saves quality metrics; failures never fail the run
func (r *Runner) evaluate(outcome *Outcome) {
	rep, err := r.evaluator.Evaluate(outcome.Batch.Results)
	if err != nil {
		if errors.Is(err, metrics.ErrNoLabelledResults) {
			r.logger.Warn("Skipping metrics, no labelled results")
		} else {
			r.logger.Error("Failed to compute metrics", zap.Error(err))
		}
		return
	}

	path, err := metrics.Save(rep, r.paths.OutputDir, r.metrics.Prefix)
	if err != nil {
		r.logger.Error("Failed to save metrics", zap.Error(err))
		return
	}

	outcome.Metrics = rep
	outcome.MetricsFile = path
	fmt.Fprintf(r.out, "\nAccuracy: %.3f (macro F1 %.3f) over %d labelled emails\n",
		rep.Accuracy, rep.MacroAvg.F1, len(rep.YTrue))
	r.logger.Info("Metrics saved", zap.String("file", path), zap.Float64("accuracy", rep.Accuracy))
}

// clearFolder removes the contents of dir, creating it when missing
func clearFolder(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return os.MkdirAll(dir, 0755)
	}
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}
