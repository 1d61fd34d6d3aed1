package report

import (
	"io"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/prayertimes/internal/model"
)

// Writer renders a run summary.
type Writer interface {
	// WriteSummary outputs the summary to the configured destination.
	// Returns the number of bytes written and any error encountered.
	WriteSummary(summary *model.RunSummary) (int, error)
}

// MultiWriter writes to multiple Writers in order.
// Our Writer renders summaries, not raw bytes, so io.MultiWriter does not
// fit.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteSummary outputs the summary to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) WriteSummary(summary *model.RunSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteSummary(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

var titleCaser = cases.Title(language.English)

// DisplayName returns a district id in title case, e.g. "Coxsbazar".
func DisplayName(district model.DistrictID) string {
	return titleCaser.String(string(district))
}
