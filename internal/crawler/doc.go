// Package crawler runs the validation crawl: it seeds the frontier,
// drives a bounded worker pool over the pending URLs, and assembles the
// crawl report. Each worker takes one URL through the same path:
// exclusion check, robots check, cache lookup, fetch, classification,
// and, for in-scope HTML pages, link discovery back into the frontier.
package crawler
