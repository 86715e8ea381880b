package report

import (
	"io"

	"github.com/nao1215/linkhound/internal/model"
)

// Writer renders a crawl report to a configured destination.
//
// Design decision: We use an interface so different formats and
// destinations share one API. This enables writing to files, stdout, or
// both at once with the same caller code.
type Writer interface {
	// Write renders the report. Returns the number of bytes written and
	// any error encountered.
	Write(report *model.CrawlReport) (int, error)
}

// MultiWriter renders a report through multiple Writers, for example a
// terminal summary plus a JSON file.
//
// Design decision: a separate type rather than io.MultiWriter because our
// Writer renders reports, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write renders the report through every writer, stopping on the first
// error. Returns the total bytes written.
func (m *MultiWriter) Write(report *model.CrawlReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides the shared output destination for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
