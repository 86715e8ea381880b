package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/linkhound/internal/model"
)

// SimpleWriter outputs a human-readable text report.
//
// Design decision: plain text with ASCII formatting rather than ANSI
// colors, because it works in every terminal and pipes cleanly to files
// and other tools.
type SimpleWriter struct {
	baseWriter

	// verbose lists every validated URL instead of only the problems.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists every validated URL, not just failures and skips.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write renders the report: a summary block, then the URLs that need
// attention, each with the pages that link to it.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	stats := report.Stats()
	w.writeSummary(&sb, report, stats)
	w.writeEntries(&sb, report)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.CrawlReport, stats model.ReportStats) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("LINK VALIDATION REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "URLs checked:   %d\n", stats.Total)
	fmt.Fprintf(sb, "Accepted:       %d\n", stats.Accepted)
	fmt.Fprintf(sb, "Rejected:       %d\n", stats.Rejected)
	fmt.Fprintf(sb, "Errored:        %d\n", stats.Errored)
	fmt.Fprintf(sb, "Excluded:       %d\n", stats.Excluded)
	if stats.Skipped > 0 {
		fmt.Fprintf(sb, "Skipped:        %d (run ended early)\n", stats.Skipped)
	}
	fmt.Fprintf(sb, "From cache:     %d\n", stats.FromCache)
	fmt.Fprintf(sb, "Duration:       %s\n", stats.Duration.Round(time.Millisecond))

	if report.Success() {
		sb.WriteString("Result:         OK\n")
	} else {
		sb.WriteString("Result:         BROKEN LINKS FOUND\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeEntries(sb *strings.Builder, report *model.CrawlReport) {
	var shown bool
	for _, entry := range report.Entries() {
		if !w.verbose && !entry.Outcome.Failed() && entry.Outcome.Kind != model.OutcomeSkipped {
			continue
		}
		if !shown {
			sb.WriteString(strings.Repeat("-", 70))
			sb.WriteString("\n")
			if w.verbose {
				sb.WriteString("ALL URLS\n")
			} else {
				sb.WriteString("PROBLEMS\n")
			}
			sb.WriteString(strings.Repeat("-", 70))
			sb.WriteString("\n\n")
			shown = true
		}

		fmt.Fprintf(sb, "  [%s] %s\n", entry.Outcome.Kind, entry.URL)
		if entry.Outcome.Reason != "" {
			fmt.Fprintf(sb, "      reason: %s\n", entry.Outcome.Reason)
		}
		if entry.Outcome.StatusCode != 0 && entry.Outcome.Kind != model.OutcomeAccepted {
			fmt.Fprintf(sb, "      status: %d\n", entry.Outcome.StatusCode)
		}
		for _, ref := range entry.Referrers {
			fmt.Fprintf(sb, "      linked from: %s\n", ref)
		}
	}
	if shown {
		sb.WriteString("\n")
	}
}
