package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/prayertimes/internal/model"
)

// SimpleWriter outputs a plain text run summary for the terminal.
type SimpleWriter struct {
	baseWriter

	// verbose lists every district, not only the skipped ones.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists every district in the output.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteSummary outputs the summary in human-readable format.
func (w *SimpleWriter) WriteSummary(summary *model.RunSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeSkipped(&sb, summary)
	if w.verbose {
		w.writeDistricts(&sb, summary)
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.RunSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                     PRAYER TIMES SCRAPE SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Run ID:     %s\n", summary.RunID)
	fmt.Fprintf(sb, "Started:    %s\n", summary.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:   %s\n", summary.Duration().Round(time.Millisecond))
	fmt.Fprintf(sb, "Base URL:   %s\n", summary.BaseURL)
	fmt.Fprintf(sb, "Districts:  %d scraped, %d skipped, %d total\n",
		summary.Succeeded(), summary.Skipped(), summary.Total())
	if summary.PrimaryLocation != "" {
		fmt.Fprintf(sb, "Output:     %s\n", summary.PrimaryLocation)
	}
	switch {
	case summary.MirrorFailed():
		fmt.Fprintf(sb, "Mirror:     FAILED %s (%s)\n", summary.MirrorLocation, summary.MirrorError)
	case summary.MirrorLocation != "":
		fmt.Fprintf(sb, "Mirror:     %s\n", summary.MirrorLocation)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSkipped(sb *strings.Builder, summary *model.RunSummary) {
	skipped := summary.SkippedOutcomes()
	if len(skipped) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\nSKIPPED DISTRICTS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, o := range skipped {
		fmt.Fprintf(sb, "  [!] %-16s %-13s %s\n", o.District, o.Status, o.Error)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeDistricts(sb *strings.Builder, summary *model.RunSummary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\nDISTRICTS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, o := range summary.Outcomes {
		mark := "+"
		if o.Skipped() {
			mark = "!"
		}
		fmt.Fprintf(sb, "  [%s] %-16s %3d rows  %s\n", mark, o.District, o.Rows, o.Duration.Round(time.Millisecond))
	}
	sb.WriteString("\n")
}
