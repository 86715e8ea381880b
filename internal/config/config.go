package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. Network defaults follow common crawler
// etiquette; concurrency is additionally capped by the process's open-file
// budget at validation time.
const (
	// DefaultTimeout is the per-request timeout. 30 seconds tolerates slow
	// origins without stalling a worker for long when a host is dead.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRedirects bounds the redirect chain per URL. Sixteen hops
	// is far beyond any legitimate chain while still terminating quickly
	// on redirect loops.
	DefaultMaxRedirects = 16

	// DefaultMaxDepth is the maximum link recursion depth from a seed.
	DefaultMaxDepth = 10

	// DefaultConcurrency is the worker count used when the file-descriptor
	// limit cannot be read. Each worker holds at most one connection.
	DefaultConcurrency = 64

	// MinConcurrency is the floor applied after the file-descriptor cap.
	MinConcurrency = 16

	// DefaultCacheTTL is how long a validation outcome stays fresh. Links
	// rarely flip state within minutes, and a short TTL keeps repeated CI
	// runs honest.
	DefaultCacheTTL = 10 * time.Minute

	// DefaultMaxSitemapURLs caps how many sitemap-declared URLs are seeded,
	// bounding the frontier on sites with very large sitemaps.
	DefaultMaxSitemapURLs = 1000

	// DefaultMaxBodySize limits how much of an HTML response body is read
	// for link extraction. 5MB covers real pages while bounding memory.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultUserAgent identifies linkhound in HTTP requests, including
	// robots.txt and sitemap retrieval.
	DefaultUserAgent = "linkhound/1.0 (+https://github.com/nao1215/linkhound)"

	// AppName is the application name used for XDG directory paths.
	AppName = "linkhound"
)

// Config holds all settings for one validation run. It is populated from
// CLI flags and passed through the application by dependency injection
// rather than global state, the same way every component takes its logger.
type Config struct {
	// Seeds is the list of URLs the crawl starts from. In list mode every
	// seed is validated and nothing is extracted from the responses.
	Seeds []string

	// ListMode disables recursive link extraction; the seeds are treated
	// as a pre-enumerated URL list.
	ListMode bool

	// AcceptedStatuses is the set of HTTP status codes considered healthy.
	// Empty means the whole 2xx range.
	AcceptedStatuses []int

	// ExcludePatterns are regular expressions matched against normalized
	// URLs before any network call; matches are reported as excluded.
	ExcludePatterns []string

	// MaxDepth is the maximum recursion depth. Zero validates seeds only.
	MaxDepth int

	// ValidateExternal controls host scope. When true, links leaving the
	// seed host are validated (one hop) but never recursed into. When
	// false, external links are not followed at all.
	ValidateExternal bool

	// Concurrency is the worker pool size. Validate caps it at half the
	// process's file-descriptor limit to avoid socket exhaustion.
	Concurrency int

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// MaxRedirects bounds the redirect chain followed per URL.
	MaxRedirects int

	// RespectRobots enables robots.txt permission checks and sitemap
	// expansion. On by default.
	RespectRobots bool

	// CrawlDelay is the minimum spacing between requests to one host.
	// A robots.txt crawl-delay larger than this takes precedence.
	CrawlDelay time.Duration

	// MaxSitemapURLs caps sitemap-declared seeds per run.
	MaxSitemapURLs int

	// DurableCache enables the on-disk cache tier persisting outcomes
	// across runs.
	DurableCache bool

	// CacheDir is the directory for the durable cache store. Empty means
	// the XDG cache directory.
	CacheDir string

	// CacheTTL is how long cached outcomes stay fresh, in both tiers.
	// Zero means entries never go stale.
	CacheTTL time.Duration

	// Deadline is the optional wall-clock budget for the whole run. When
	// it elapses the crawl drains and unattempted URLs are reported as
	// skipped. Zero means no deadline.
	Deadline time.Duration

	// MaxBodySize is the largest HTML body read for link extraction.
	MaxBodySize int64

	// UserAgent is the User-Agent header for all outbound requests.
	UserAgent string

	// CheckResources extends extraction beyond anchors to resource-bearing
	// tags (img, script, link, iframe, source).
	CheckResources bool

	// Verbose enables slog.LevelDebug output.
	Verbose bool

	// JSONReport, MarkdownReport select the report format; both false
	// means the simple text report. Mutually exclusive.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// ConfigFilePath is an explicit .linkhound file path. Empty triggers
	// discovery in the working directory and then the home directory.
	ConfigFilePath string

	// Sites holds per-site overrides loaded from the config file.
	Sites *File
}

// NewConfig creates a Config with defaults. Many defaults are non-zero, so
// callers must start from here rather than a zero value.
func NewConfig() *Config {
	return &Config{
		MaxDepth:       DefaultMaxDepth,
		Concurrency:    defaultConcurrency(),
		Timeout:        DefaultTimeout,
		MaxRedirects:   DefaultMaxRedirects,
		RespectRobots:  true,
		MaxSitemapURLs: DefaultMaxSitemapURLs,
		CacheTTL:       DefaultCacheTTL,
		MaxBodySize:    DefaultMaxBodySize,
		UserAgent:      DefaultUserAgent,
		Sites:          &File{Sites: make(map[string]SiteConfig)},
	}
}

// defaultConcurrency derives the worker count from the process's
// file-descriptor budget: half of NOFILE, floored at MinConcurrency.
// Platforms where the limit cannot be read fall back to
// DefaultConcurrency.
func defaultConcurrency() int {
	limit, ok := fdLimit()
	if !ok {
		return DefaultConcurrency
	}
	n := limit / 2
	if n < MinConcurrency {
		return MinConcurrency
	}
	return n
}

// XDGCacheDir returns the default durable-cache directory.
// On Linux: ~/.cache/linkhound
// On macOS: ~/Library/Caches/linkhound
// On Windows: %LOCALAPPDATA%\linkhound\cache
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// XDGConfigDir returns the XDG config directory for linkhound.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration before any crawling begins. It returns
// the first problem found as a sentinel error usable with errors.Is; fixing
// one error often makes the rest irrelevant.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeeds
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.MaxRedirects < 0 {
		return ErrInvalidMaxRedirects
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.CacheTTL < 0 {
		return ErrInvalidCacheTTL
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	// Cap workers at half the file-descriptor budget so concurrent
	// sockets cannot exhaust the process limit.
	if limit, ok := fdLimit(); ok && c.Concurrency > limit/2 {
		c.Concurrency = limit / 2
		if c.Concurrency < 1 {
			c.Concurrency = 1
		}
	}
	return nil
}
