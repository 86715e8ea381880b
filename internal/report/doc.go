// Package report renders a completed crawl report in the supported output
// formats: human-readable text for terminal display, JSON for tool
// integration, and Markdown for documentation and CI summaries.
//
// Design decision: report rendering is separate from the report data
// structures (which live in the model package) so new output formats can
// be added without touching the crawl itself. Writers implement one
// interface and can be composed for multi-destination output.
package report
