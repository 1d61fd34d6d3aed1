package report

import (
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/nao1215/prayertimes/internal/model"
)

// TableWriter renders summaries and district records as terminal tables.
type TableWriter struct {
	baseWriter
	style table.Style
}

// NewTableWriter creates a TableWriter that outputs to the given writer.
func NewTableWriter(output io.Writer) *TableWriter {
	return &TableWriter{
		baseWriter: newBaseWriter(output),
		style:      table.StyleRounded,
	}
}

func (w *TableWriter) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w.output)
	t.SetStyle(w.style)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

// WriteSummary renders one line per district.
func (w *TableWriter) WriteSummary(summary *model.RunSummary) (int, error) {
	t := w.newTable("Run " + summary.RunID)
	t.AppendHeader(table.Row{"#", "District", "Status", "Rows", "Duration", "Detail"})
	for i, o := range summary.Outcomes {
		t.AppendRow(table.Row{
			i + 1,
			DisplayName(o.District),
			o.Status.String(),
			o.Rows,
			o.Duration.Round(time.Millisecond).String(),
			truncateString(o.Error, 60),
		})
	}
	t.AppendFooter(table.Row{
		"", "Total", strconv.Itoa(summary.Succeeded()) + "/" + strconv.Itoa(summary.Total()) + " ok",
		"", summary.Duration().Round(time.Millisecond).String(), "",
	})
	return len(t.Render()), nil
}

// WriteRecord renders the rows of one district with the union of their
// labels as the header. Missing cells are left blank.
func (w *TableWriter) WriteRecord(district model.DistrictID, record model.DistrictRecord) int {
	labels := record.Labels()
	header := make(table.Row, len(labels))
	for i, label := range labels {
		header[i] = label
	}

	t := w.newTable(DisplayName(district))
	t.AppendHeader(header)
	for _, row := range record {
		r := make(table.Row, len(labels))
		for i, label := range labels {
			v, _ := row.Get(label)
			r[i] = v
		}
		t.AppendRow(r)
	}
	return len(t.Render())
}

// WriteTable renders a generic table of strings.
func (w *TableWriter) WriteTable(title string, header []string, rows [][]string) int {
	t := w.newTable(title)

	h := make(table.Row, len(header))
	for i, v := range header {
		h[i] = v
	}
	t.AppendHeader(h)

	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, v := range row {
			r[i] = v
		}
		t.AppendRow(r)
	}
	return len(t.Render())
}
