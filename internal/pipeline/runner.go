package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/prayertimes/internal/config"
	"github.com/nao1215/prayertimes/internal/model"
)

// Runner scrapes every district of a catalog.
type Runner struct {
	fetcher     PageFetcher
	extractor   TableExtractor
	concurrency int
	logger      *slog.Logger
	baseURL     string

	// progress receives one human readable line per district.
	progress io.Writer
	mu       sync.Mutex
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets a custom logger for the run.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithConcurrency sets the maximum number of districts processed at once.
// The fetcher's pacer still spaces out request starts.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithProgress sets the writer for per-district progress lines.
func WithProgress(w io.Writer) RunnerOption {
	return func(r *Runner) {
		if w != nil {
			r.progress = w
		}
	}
}

// WithBaseURL records the base URL in the run summary.
func WithBaseURL(baseURL string) RunnerOption {
	return func(r *Runner) {
		r.baseURL = baseURL
	}
}

// NewRunner creates a Runner. Each district gets a fresh pipeline of a
// FetchStep followed by an ExtractStep.
func NewRunner(f PageFetcher, e TableExtractor, opts ...RunnerOption) *Runner {
	r := &Runner{
		fetcher:     f,
		extractor:   e,
		concurrency: 1,
		progress:    io.Discard,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r
}

func (r *Runner) newPipeline() *Pipeline {
	p := New(WithLogger(r.logger))
	p.AddSteps(NewFetchStep(r.fetcher), NewExtractStep(r.extractor))
	return p
}

// Run processes the districts and returns the document and run summary.
//
// Districts that fail are absent from the document and reported in the
// summary; they never make Run fail. Run returns an error only for an
// empty catalog or when ctx is cancelled. Results are recorded in catalog
// order regardless of concurrency.
func (r *Runner) Run(ctx context.Context, districts []model.DistrictID) (*model.Document, *model.RunSummary, error) {
	if len(districts) == 0 {
		return nil, nil, config.ErrEmptyCatalog
	}

	summary := &model.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		BaseURL:   r.baseURL,
		Outcomes:  make([]model.Outcome, 0, len(districts)),
	}
	agg := NewAggregator()

	r.logger.Info("starting run",
		"run_id", summary.RunID,
		"districts", len(districts),
		"concurrency", r.concurrency,
	)

	var jobs []*Job
	var err error
	if r.concurrency <= 1 {
		jobs, err = r.runSequential(ctx, districts)
	} else {
		jobs, err = r.runConcurrent(ctx, districts)
	}
	if err != nil {
		return nil, nil, err
	}

	for _, job := range jobs {
		summary.Outcomes = append(summary.Outcomes, job.Outcome)
		if job.Succeeded() {
			agg.Record(job.District, job.Record)
		}
	}
	summary.FinishedAt = time.Now()

	r.logger.Info("run complete",
		"run_id", summary.RunID,
		"succeeded", summary.Succeeded(),
		"skipped", summary.Skipped(),
		"elapsed", summary.Duration(),
	)

	return agg.Document(), summary, nil
}

func (r *Runner) runSequential(ctx context.Context, districts []model.DistrictID) ([]*Job, error) {
	jobs := make([]*Job, 0, len(districts))
	for i, district := range districts {
		job := r.process(ctx, i, len(districts), district)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (r *Runner) runConcurrent(ctx context.Context, districts []model.DistrictID) ([]*Job, error) {
	// Pre-allocate so results keep catalog order.
	jobs := make([]*Job, len(districts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, district := range districts {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			jobs[i] = r.process(gctx, i, len(districts), district)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

// process runs one district's pipeline. Failures are kept in the job.
func (r *Runner) process(ctx context.Context, index, total int, district model.DistrictID) *Job {
	job := NewJob(district, r.fetcher.URLFor(district))
	r.printf("Scraping: %s -> %s\n", district, job.URL)

	r.logger.Debug("processing district",
		"district", district,
		"index", index+1,
		"total", total,
	)

	err := r.newPipeline().Execute(ctx, job)
	job.Outcome.Duration = time.Since(job.Outcome.StartedAt)
	if err != nil && ctx.Err() == nil {
		switch job.Outcome.Status {
		case model.StatusNoTable:
			r.printf("No table found for %s\n", district)
		default:
			r.printf("Error fetching data for %s: %v\n", district, err)
		}
		r.logger.Warn("district skipped",
			"district", district,
			"status", job.Outcome.Status.String(),
			"error", err,
		)
	}
	return job
}

func (r *Runner) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.progress, format, args...)
}
