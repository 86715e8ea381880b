// Package extractor pulls candidate link URLs out of HTML documents.
// It walks the parsed tree once, resolves every reference against the
// page URL (honoring a <base href> when present), and leaves
// normalization and scope decisions to the caller.
package extractor
