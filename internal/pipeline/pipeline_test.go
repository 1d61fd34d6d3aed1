package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/nao1215/prayertimes/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, job *Job) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, job *Job) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, job)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()

		if p == nil {
			t.Fatal("expected non-nil pipeline")
		}
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies WithLogger option", func(t *testing.T) {
		t.Parallel()

		logger := slog.New(slog.DiscardHandler)
		p := New(WithLogger(logger))

		if p.logger != logger {
			t.Error("expected custom logger")
		}
	})
}

// TestPipelineAddStep tests adding steps to the pipeline.
func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddStep(&mockStep{name: "a"})
	p.AddSteps(&mockStep{name: "b"}, &mockStep{name: "c"})

	if p.StepCount() != 3 {
		t.Fatalf("expected 3 steps, got %d", p.StepCount())
	}

	names := p.StepNames()
	want := []string{"a", "b", "c"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("StepNames()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

// TestPipelineExecute tests step execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("runs all steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		step := func(name string) *mockStep {
			return &mockStep{name: name, doFunc: func(_ context.Context, _ *Job) error {
				order = append(order, name)
				return nil
			}}
		}

		p := New(WithLogger(slog.New(slog.DiscardHandler)))
		p.AddSteps(step("first"), step("second"))

		job := NewJob("dhaka", "https://example.com/dhaka")
		if err := p.Execute(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(order) != 2 || order[0] != "first" || order[1] != "second" {
			t.Errorf("execution order = %v", order)
		}
		if len(job.PerformedSteps) != 2 {
			t.Errorf("PerformedSteps = %v", job.PerformedSteps)
		}
		if !job.Succeeded() {
			t.Error("expected job to succeed")
		}
	})

	t.Run("stops at the first failure", func(t *testing.T) {
		t.Parallel()

		errBoom := errors.New("boom")
		failing := &mockStep{name: "failing", doFunc: func(_ context.Context, job *Job) error {
			job.Outcome.Status = model.StatusFetchFailed
			return errBoom
		}}
		after := &mockStep{name: "after"}

		p := New(WithLogger(slog.New(slog.DiscardHandler)))
		p.AddSteps(failing, after)

		job := NewJob("dhaka", "https://example.com/dhaka")
		err := p.Execute(context.Background(), job)
		if !errors.Is(err, errBoom) {
			t.Fatalf("expected errBoom, got %v", err)
		}
		if after.callCount != 0 {
			t.Error("step after the failure should not run")
		}
		if !errors.Is(job.Err, errBoom) {
			t.Errorf("job.Err = %v", job.Err)
		}
		if job.Outcome.Error != "boom" {
			t.Errorf("Outcome.Error = %q, want %q", job.Outcome.Error, "boom")
		}
		if job.Succeeded() {
			t.Error("expected job to fail")
		}
	})

	t.Run("keeps a diagnostic set by the step", func(t *testing.T) {
		t.Parallel()

		p := New(WithLogger(slog.New(slog.DiscardHandler)))
		p.AddStep(&mockStep{name: "extract", doFunc: func(_ context.Context, job *Job) error {
			job.Outcome.Status = model.StatusNoTable
			job.Outcome.Error = "No table found for dhaka"
			return errors.New("no table")
		}})

		job := NewJob("dhaka", "")
		_ = p.Execute(context.Background(), job)
		if job.Outcome.Error != "No table found for dhaka" {
			t.Errorf("Outcome.Error = %q", job.Outcome.Error)
		}
	})

	t.Run("checks cancellation before each step", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := &mockStep{name: "never"}
		p := New(WithLogger(slog.New(slog.DiscardHandler)))
		p.AddStep(step)

		err := p.Execute(ctx, NewJob("dhaka", ""))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("step should not run after cancellation")
		}
	})

	t.Run("empty pipeline succeeds", func(t *testing.T) {
		t.Parallel()

		if err := New().Execute(context.Background(), NewJob("dhaka", "")); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

// TestAggregator tests document aggregation.
func TestAggregator(t *testing.T) {
	t.Parallel()

	t.Run("keeps first insertion order and overwrites", func(t *testing.T) {
		t.Parallel()

		agg := NewAggregator()
		agg.Record("dhaka", model.DistrictRecord{model.NewTableRow(model.Field{Label: "Day", Value: "1"})})
		agg.Record("sylhet", model.DistrictRecord{})
		agg.Record("dhaka", model.DistrictRecord{model.NewTableRow(model.Field{Label: "Day", Value: "2"})})

		if agg.Len() != 2 {
			t.Fatalf("Len() = %d, want 2", agg.Len())
		}

		doc := agg.Document()
		districts := doc.Districts()
		if districts[0] != "dhaka" || districts[1] != "sylhet" {
			t.Errorf("Districts() = %v", districts)
		}
		rec, _ := doc.Get("dhaka")
		if v, _ := rec[0].Get("Day"); v != "2" {
			t.Errorf("dhaka Day = %q, want 2", v)
		}
	})
}
