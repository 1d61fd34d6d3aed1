package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nao1215/prayertimes/internal/model"
)

// DefaultSelector matches the first table of the page.
const DefaultSelector = "table"

// ErrNoTable is returned when the page contains no table.
var ErrNoTable = errors.New("no table found")

var tracer = otel.Tracer("prayertimes/internal/extractor")

// Extractor reads the first table matching its selector.
// The zero value is not usable; call New.
type Extractor struct {
	selector string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithSelector sets the CSS selector of the table to read. The first match
// is used. Empty keeps DefaultSelector.
func WithSelector(selector string) Option {
	return func(e *Extractor) {
		if strings.TrimSpace(selector) != "" {
			e.selector = selector
		}
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{selector: DefaultSelector}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses r and returns one TableRow per data row of the table.
// A table with a header row only yields an empty, non-nil record.
func (e *Extractor) Extract(r io.Reader) (model.DistrictRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	table := doc.Find(e.selector).First()
	if table.Length() == 0 {
		return nil, ErrNoTable
	}

	labels := table.Find("th").Map(func(_ int, th *goquery.Selection) string {
		return strings.TrimSpace(th.Text())
	})

	record := model.DistrictRecord{}
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return
		}
		record = append(record, zipRow(labels, tr.Find("td")))
	})
	return record, nil
}

// ExtractString is Extract for an in-memory page.
func (e *Extractor) ExtractString(html string) (model.DistrictRecord, error) {
	return e.Extract(strings.NewReader(html))
}

// ExtractPage extracts the table of a fetched page and traces the call.
func (e *Extractor) ExtractPage(ctx context.Context, page *model.RawPage) (model.DistrictRecord, error) {
	_, span := tracer.Start(ctx, "Extract", trace.WithAttributes(
		attribute.String("district", page.District.String()),
	))
	defer span.End()

	record, err := e.Extract(bytes.NewReader(page.Body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("rows", len(record)))
	return record, nil
}

// zipRow pairs labels and cells by position, stopping at the shorter list.
func zipRow(labels []string, cells *goquery.Selection) model.TableRow {
	var row model.TableRow
	n := min(len(labels), cells.Length())
	for i := 0; i < n; i++ {
		row.Set(labels[i], strings.TrimSpace(cells.Eq(i).Text()))
	}
	return row
}
