package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/prayertimes/internal/model"
	"github.com/nao1215/prayertimes/internal/report"
	"github.com/nao1215/prayertimes/internal/sink"
)

// Publisher writes the finished document. The primary write is the only
// failure that fails a run; the mirror is best effort.
type Publisher struct {
	primary  sink.Sink
	mirror   sink.Sink
	logger   *slog.Logger
	progress io.Writer
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithMirror adds a best-effort second destination.
func WithMirror(s sink.Sink) PublisherOption {
	return func(p *Publisher) {
		p.mirror = s
	}
}

// WithPublisherLogger sets a custom logger.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithPublisherProgress sets the writer for confirmation lines.
func WithPublisherProgress(w io.Writer) PublisherOption {
	return func(p *Publisher) {
		if w != nil {
			p.progress = w
		}
	}
}

// NewPublisher creates a Publisher writing to primary.
func NewPublisher(primary sink.Sink, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		primary:  primary,
		progress: io.Discard,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Publish encodes doc once and writes the same bytes to every destination.
// The outcome of each write is recorded in summary when it is non-nil.
func (p *Publisher) Publish(ctx context.Context, doc *model.Document, summary *model.RunSummary) ([]byte, error) {
	if summary == nil {
		summary = &model.RunSummary{}
	}

	data, err := report.EncodeDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	if err := p.primary.Write(ctx, data); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", p.primary.Location(), err)
	}
	summary.PrimaryLocation = p.primary.Location()
	fmt.Fprintf(p.progress, "JSON file created successfully: %s\n", p.primary.Location())
	p.logger.Info("document written",
		"location", p.primary.Location(),
		"districts", doc.Len(),
		"bytes", len(data),
	)

	if p.mirror != nil {
		p.writeMirror(ctx, data, summary)
	}
	return data, nil
}

func (p *Publisher) writeMirror(ctx context.Context, data []byte, summary *model.RunSummary) {
	location := p.mirror.Location()
	summary.MirrorLocation = location

	fail := func(err error) {
		summary.MirrorError = err.Error()
		fmt.Fprintf(p.progress, "Mirror copy skipped: %s: %v\n", location, err)
		p.logger.Warn("mirror write failed", "location", location, "error", err)
	}

	if checker, ok := p.mirror.(sink.Checker); ok {
		if err := checker.Available(ctx); err != nil {
			fail(err)
			return
		}
	}
	if err := p.mirror.Write(ctx, data); err != nil {
		fail(err)
		return
	}
	fmt.Fprintf(p.progress, "JSON file also saved in mirror: %s\n", location)
	p.logger.Info("mirror written", "location", location)
}
