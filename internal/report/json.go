package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/linkhound/internal/model"
)

// JSONWriter outputs reports as JSON for tool integration.
//
// Design decision: standard encoding/json rather than a third-party
// library. The report is written once per run; encoding speed is
// irrelevant and the standard library behaves consistently across Go
// versions.
type JSONWriter struct {
	baseWriter

	// version stamps the generating linkhound version into the document.
	version string

	// indent enables pretty-printed output.
	indent bool

	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON with the given prefix and
// per-level indent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// A convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = ""
		w.indentString = "  "
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
		version:    version,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport is the document shape of the JSON output.
//
// Design decision: a wrapper rather than marshaling CrawlReport directly,
// so output-specific fields like the version stamp do not pollute the
// core data structure.
type JSONReport struct {
	// Version is the linkhound version that produced the report.
	Version string `json:"version"`

	// Success is true when no validated URL failed.
	Success bool `json:"success"`

	// Stats are the aggregate counts for the run.
	Stats model.ReportStats `json:"stats"`

	// Entries lists every checked URL sorted by URL.
	Entries []model.ReportEntry `json:"entries"`
}

// Write renders the report as one JSON document.
func (w *JSONWriter) Write(report *model.CrawlReport) (int, error) {
	doc := JSONReport{
		Version: w.version,
		Success: report.Success(),
		Stats:   report.Stats(),
		Entries: report.Entries(),
	}

	var data []byte
	var err error
	if w.indent {
		data, err = json.MarshalIndent(doc, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return 0, err
	}

	// Trailing newline for terminal output and line-oriented consumers.
	data = append(data, '\n')
	return w.output.Write(data)
}
