package pipeline

import (
	"time"

	"github.com/nao1215/prayertimes/internal/model"
)

// Job carries one district through the pipeline.
type Job struct {
	District model.DistrictID
	URL      string

	// Page is set by FetchStep.
	Page *model.RawPage

	// Record is set by ExtractStep.
	Record model.DistrictRecord

	// Outcome is what ends up in the run summary.
	Outcome model.Outcome

	// Err is the error of the failing step, if any.
	Err error

	// PerformedSteps lists the steps that completed successfully.
	PerformedSteps []string
}

// NewJob creates a job for district. The outcome starts as StatusOK and is
// downgraded by the step that fails.
func NewJob(district model.DistrictID, url string) *Job {
	return &Job{
		District: district,
		URL:      url,
		Outcome: model.Outcome{
			District:  district,
			URL:       url,
			Status:    model.StatusOK,
			StartedAt: time.Now(),
		},
		PerformedSteps: make([]string, 0),
	}
}

// Succeeded reports whether every step completed.
func (j *Job) Succeeded() bool {
	return j.Err == nil && j.Outcome.Status == model.StatusOK
}
