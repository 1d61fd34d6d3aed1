package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/prayertimes/internal/model"
)

// MarkdownWriter outputs run summaries as GitHub flavored Markdown with
// tables, an alert and a mermaid pie chart.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteSummary outputs the summary in Markdown format.
func (w *MarkdownWriter) WriteSummary(summary *model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeOutcomes(md, summary)
	w.writeDistricts(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.RunSummary) {
	md.H1("Prayer Times Scrape Report")
	md.PlainText("")

	rows := [][]string{
		{"Run ID", "`" + summary.RunID + "`"},
		{"Started", summary.StartedAt.Format("2006-01-02 15:04:05 MST")},
		{"Duration", summary.Duration().String()},
		{"Base URL", summary.BaseURL},
	}
	if summary.PrimaryLocation != "" {
		rows = append(rows, []string{"Output", "`" + summary.PrimaryLocation + "`"})
	}
	if summary.MirrorLocation != "" {
		mirror := "`" + summary.MirrorLocation + "`"
		if summary.MirrorFailed() {
			mirror += " (failed: " + summary.MirrorError + ")"
		}
		rows = append(rows, []string{"Mirror", mirror})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeOutcomes(md *markdown.Markdown, summary *model.RunSummary) {
	md.H2("Outcome")
	md.PlainText("")

	noTable := summary.CountByStatus(model.StatusNoTable)
	fetchFailed := summary.CountByStatus(model.StatusFetchFailed)

	md.Table(markdown.TableSet{
		Header: []string{"Status", "Districts"},
		Rows: [][]string{
			{"✅ Scraped", strconv.Itoa(summary.Succeeded())},
			{"❌ No table", strconv.Itoa(noTable)},
			{"⚠️ Fetch failed", strconv.Itoa(fetchFailed)},
			{"**Total**", "**" + strconv.Itoa(summary.Total()) + "**"},
		},
	})
	md.PlainText("")

	if summary.Total() > 0 {
		w.writePieChart(md, summary.Succeeded(), noTable, fetchFailed)
	}
	w.writeAlert(md, summary)
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, scraped, noTable, fetchFailed int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("District Outcomes"),
		piechart.WithShowData(true),
	)

	if scraped > 0 {
		chart.LabelAndIntValue("Scraped", uint64(scraped))
	}
	if noTable > 0 {
		chart.LabelAndIntValue("No table", uint64(noTable))
	}
	if fetchFailed > 0 {
		chart.LabelAndIntValue("Fetch failed", uint64(fetchFailed))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *model.RunSummary) {
	switch {
	case summary.Total() > 0 && summary.Succeeded() == 0:
		md.Cautionf("No district could be scraped. The document is empty.")
	case summary.Skipped() > 0:
		md.Warningf("%d of %d district(s) were skipped and are absent from the document.",
			summary.Skipped(), summary.Total())
	case summary.MirrorFailed():
		md.Importantf("The mirror copy could not be written: %s", summary.MirrorError)
	default:
		md.Tip("Every district was scraped.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeDistricts(md *markdown.Markdown, summary *model.RunSummary) {
	md.H2("Districts")
	md.PlainText("")

	if len(summary.Outcomes) == 0 {
		md.PlainText("No districts were processed.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(summary.Outcomes))
	for i, o := range summary.Outcomes {
		detail := o.Error
		if detail == "" {
			detail = "-"
		}
		rows[i] = []string{
			DisplayName(o.District),
			o.Status.String(),
			strconv.Itoa(o.Rows),
			truncateString(detail, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"District", "Status", "Rows", "Detail"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [prayertimes](https://github.com/nao1215/prayertimes)*")
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
