package model

import (
	"fmt"
	"strings"
	"time"
)

// OutcomeStatus is the result of processing one district.
type OutcomeStatus int

const (
	// StatusOK means the district was fetched, a table was found and the
	// record was stored in the document.
	StatusOK OutcomeStatus = iota

	// StatusFetchFailed means the page could not be retrieved.
	StatusFetchFailed

	// StatusNoTable means the page was retrieved but contained no table.
	StatusNoTable
)

// String returns the status label used in logs, reports and the database.
func (s OutcomeStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFetchFailed:
		return "fetch_failed"
	case StatusNoTable:
		return "no_table"
	default:
		return "unknown"
	}
}

// ParseOutcomeStatus is the inverse of OutcomeStatus.String.
func ParseOutcomeStatus(s string) (OutcomeStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ok":
		return StatusOK, nil
	case "fetch_failed":
		return StatusFetchFailed, nil
	case "no_table":
		return StatusNoTable, nil
	default:
		return 0, fmt.Errorf("unknown outcome status %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s OutcomeStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *OutcomeStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseOutcomeStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Outcome records what happened to one district during a run.
type Outcome struct {
	District DistrictID    `json:"district"`
	URL      string        `json:"url"`
	Status   OutcomeStatus `json:"status"`

	// Rows is the number of rows recorded. Zero unless Status is StatusOK.
	Rows int `json:"rows"`

	// Error is the diagnostic for a skipped district.
	Error string `json:"error,omitempty"`

	// StartedAt is the instant the fetch was released by the pacer.
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Skipped reports whether the district is absent from the document.
func (o Outcome) Skipped() bool {
	return o.Status != StatusOK
}
