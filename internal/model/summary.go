package model

import "time"

// RunSummary describes one scraping run. It is what the report writers
// render and what the history database stores next to the document.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	BaseURL    string    `json:"base_url"`

	// Outcomes are in catalog order.
	Outcomes []Outcome `json:"outcomes"`

	// PrimaryLocation is where the document was written. Empty if the
	// run has not been published.
	PrimaryLocation string `json:"primary_location,omitempty"`

	// MirrorLocation is the mirror target, empty when no mirror is configured.
	MirrorLocation string `json:"mirror_location,omitempty"`

	// MirrorError is set when the mirror copy could not be written.
	// A mirror failure never fails the run.
	MirrorError string `json:"mirror_error,omitempty"`
}

// Total returns the number of districts attempted.
func (s *RunSummary) Total() int {
	return len(s.Outcomes)
}

// Succeeded returns the number of districts recorded in the document.
func (s *RunSummary) Succeeded() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == StatusOK {
			n++
		}
	}
	return n
}

// Skipped returns the number of districts absent from the document.
func (s *RunSummary) Skipped() int {
	return s.Total() - s.Succeeded()
}

// CountByStatus returns how many outcomes have the given status.
func (s *RunSummary) CountByStatus(status OutcomeStatus) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// SkippedOutcomes returns the outcomes of skipped districts in catalog order.
func (s *RunSummary) SkippedOutcomes() []Outcome {
	out := make([]Outcome, 0)
	for _, o := range s.Outcomes {
		if o.Skipped() {
			out = append(out, o)
		}
	}
	return out
}

// Duration returns the wall time of the run.
func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// MirrorFailed reports whether a configured mirror could not be written.
func (s *RunSummary) MirrorFailed() bool {
	return s.MirrorLocation != "" && s.MirrorError != ""
}
