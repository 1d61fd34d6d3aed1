package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/nao1215/prayertimes/internal/model"
)

// DocumentIndent is the indentation of the persisted document.
const DocumentIndent = "    "

// EncodeDocument serializes doc the way it is persisted: UTF-8 JSON, four
// space indentation, non-ASCII and HTML characters left as they are, and a
// trailing newline.
func EncodeDocument(doc *model.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewDocumentWriter(&buf).Write(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DocumentWriter writes the persisted document form.
type DocumentWriter struct {
	baseWriter
}

// NewDocumentWriter creates a DocumentWriter.
func NewDocumentWriter(output io.Writer) *DocumentWriter {
	return &DocumentWriter{baseWriter: newBaseWriter(output)}
}

// Write encodes doc to the output.
func (w *DocumentWriter) Write(doc *model.Document) error {
	if doc == nil {
		doc = model.NewDocument()
	}
	enc := json.NewEncoder(w.output)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", DocumentIndent)
	return enc.Encode(doc)
}

// JSONWriter outputs run summaries in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteSummary outputs the summary in JSON format.
func (w *JSONWriter) WriteSummary(summary *model.RunSummary) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(summary, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(summary)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
