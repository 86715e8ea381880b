package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/linkhound/internal/model"
)

// MarkdownWriter outputs reports in Markdown, suited for CI job summaries
// and committing next to documentation.
//
// Design decision: the nao1215/markdown library rather than hand-rolled
// string building, for type-safe tables, GitHub-flavored alerts, and
// mermaid chart support.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given
// writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write renders the report in Markdown.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	stats := report.Stats()
	w.writeSummary(md, report, stats)
	w.writeProblems(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.CrawlReport, stats model.ReportStats) {
	md.H1("Link Validation Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"URLs checked", strconv.Itoa(stats.Total)},
			{"Accepted", strconv.Itoa(stats.Accepted)},
			{"Rejected", strconv.Itoa(stats.Rejected)},
			{"Errored", strconv.Itoa(stats.Errored)},
			{"Excluded", strconv.Itoa(stats.Excluded)},
			{"Skipped", strconv.Itoa(stats.Skipped)},
			{"From cache", strconv.Itoa(stats.FromCache)},
			{"Duration", stats.Duration.Round(time.Millisecond).String()},
		},
	})
	md.PlainText("")

	if stats.Total > 0 {
		w.writePieChart(md, stats)
	}

	broken := stats.Rejected + stats.Errored
	switch {
	case broken > 0:
		md.Cautionf("%d broken link(s) found.", broken)
	case stats.Skipped > 0:
		md.Warningf("No broken links found, but %d URL(s) were skipped when the run ended early.", stats.Skipped)
	default:
		md.Tip("All links are healthy.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, stats model.ReportStats) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Outcome Distribution"),
		piechart.WithShowData(true),
	)

	if stats.Accepted > 0 {
		chart.LabelAndIntValue("Accepted", uint64(stats.Accepted))
	}
	if stats.Rejected > 0 {
		chart.LabelAndIntValue("Rejected", uint64(stats.Rejected))
	}
	if stats.Errored > 0 {
		chart.LabelAndIntValue("Errored", uint64(stats.Errored))
	}
	if stats.Excluded > 0 {
		chart.LabelAndIntValue("Excluded", uint64(stats.Excluded))
	}
	if stats.Skipped > 0 {
		chart.LabelAndIntValue("Skipped", uint64(stats.Skipped))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeProblems(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Problems")
	md.PlainText("")

	var rows [][]string
	for _, entry := range report.Entries() {
		if !entry.Outcome.Failed() && entry.Outcome.Kind != model.OutcomeSkipped {
			continue
		}

		detail := entry.Outcome.Reason
		if entry.Outcome.StatusCode != 0 {
			detail = "HTTP " + strconv.Itoa(entry.Outcome.StatusCode)
		}
		referrers := "-"
		if len(entry.Referrers) > 0 {
			parts := make([]string, len(entry.Referrers))
			for i, ref := range entry.Referrers {
				parts[i] = "`" + string(ref) + "`"
			}
			referrers = strings.Join(parts, "<br>")
		}

		rows = append(rows, []string{
			"`" + string(entry.URL) + "`",
			string(entry.Outcome.Kind),
			truncateString(detail, 50),
			truncateString(referrers, 120),
		})
	}

	if len(rows) == 0 {
		md.PlainText("No problems found.")
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Outcome", "Detail", "Linked from"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [linkhound](https://github.com/nao1215/linkhound)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
