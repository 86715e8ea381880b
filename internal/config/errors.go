package config

import "errors"

// Configuration validation errors returned by Config.Validate.
//
// Design decision: package-level sentinel errors rather than error values
// created inside Validate. Callers can use errors.Is for programmatic
// handling while the messages stay human-readable.
var (
	// ErrNoSeeds is returned when no seed URL is supplied.
	ErrNoSeeds = errors.New("no seed URLs: provide one or more URLs to check")

	// ErrInvalidTimeout is returned when the per-request timeout is not
	// positive; a zero timeout would fail every request immediately.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the worker count is not
	// positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidMaxRedirects is returned when the redirect limit is
	// negative; use 0 to refuse all redirects.
	ErrInvalidMaxRedirects = errors.New("invalid max redirects: must be non-negative")

	// ErrInvalidMaxDepth is returned when the recursion depth is negative;
	// use 0 to validate seeds only.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidCrawlDelay is returned when the per-host delay is negative.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidCacheTTL is returned when the cache TTL is negative; use 0
	// for entries that never go stale.
	ErrInvalidCacheTTL = errors.New("invalid cache TTL: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are requested.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
