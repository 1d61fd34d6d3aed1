package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/prayertimes/internal/extractor"
	"github.com/nao1215/prayertimes/internal/model"
)

// PageFetcher retrieves one district page. *fetcher.Fetcher implements it.
type PageFetcher interface {
	Fetch(ctx context.Context, district model.DistrictID) (*model.RawPage, error)
	URLFor(district model.DistrictID) string
}

// TableExtractor reads the table of a fetched page.
// *extractor.Extractor implements it.
type TableExtractor interface {
	ExtractPage(ctx context.Context, page *model.RawPage) (model.DistrictRecord, error)
}

// FetchStep retrieves the district page.
type FetchStep struct {
	fetcher PageFetcher
}

// NewFetchStep creates a FetchStep.
func NewFetchStep(f PageFetcher) *FetchStep {
	return &FetchStep{fetcher: f}
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return "fetch"
}

// Do fetches the page into job.Page.
func (s *FetchStep) Do(ctx context.Context, job *Job) error {
	page, err := s.fetcher.Fetch(ctx, job.District)
	if err != nil {
		job.Outcome.Status = model.StatusFetchFailed
		job.Outcome.Error = err.Error()
		return err
	}

	job.Page = page
	if !page.FetchedAt.IsZero() {
		job.Outcome.StartedAt = page.FetchedAt
	}
	return nil
}

// ExtractStep reads the first table of job.Page.
type ExtractStep struct {
	extractor TableExtractor
}

// NewExtractStep creates an ExtractStep.
func NewExtractStep(e TableExtractor) *ExtractStep {
	return &ExtractStep{extractor: e}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do extracts the table rows into job.Record.
func (s *ExtractStep) Do(ctx context.Context, job *Job) error {
	if job.Page == nil {
		job.Outcome.Status = model.StatusFetchFailed
		return fmt.Errorf("no page fetched for %s", job.District)
	}

	record, err := s.extractor.ExtractPage(ctx, job.Page)
	if err != nil {
		job.Outcome.Status = model.StatusNoTable
		if errors.Is(err, extractor.ErrNoTable) {
			job.Outcome.Error = fmt.Sprintf("No table found for %s", job.District)
		} else {
			job.Outcome.Error = err.Error()
		}
		return err
	}

	job.Record = record
	job.Outcome.Rows = len(record)
	return nil
}
