package model

import "time"

// CrawlTarget is a unit of work for the crawl: one URL to validate, with
// the page that referenced it and the discovery depth. Targets are created
// when a link is discovered and never mutated afterwards. The frontier
// suppresses duplicate work per URL, not duplicate edges, so the same URL
// may appear in many targets while only one reaches a worker.
type CrawlTarget struct {
	// URL is the normalized URL to validate.
	URL NormalizedURL

	// Referrer is the normalized URL of the page that linked here.
	// Empty for seed URLs.
	Referrer NormalizedURL

	// Depth is the recursion depth at which the URL was discovered.
	// Seeds and sitemap-declared URLs are depth 0.
	Depth int
}

// SiteRules holds the crawl directives parsed from one host's robots.txt.
// One instance exists per host per run, immutable after parsing. A missing
// or unreadable robots.txt yields permit-all rules.
type SiteRules struct {
	// Host is the host (including port, if any) the rules apply to.
	Host string

	// CrawlDelay is the per-host minimum spacing between requests, when
	// robots.txt declares one. Zero means no delay was declared.
	CrawlDelay time.Duration

	// Sitemaps lists sitemap URLs declared by robots.txt, in order.
	Sitemaps []string

	// allowAll short-circuits permission checks when no robots.txt was
	// found or it could not be parsed.
	allowAll bool

	// permits answers path permission checks against the parsed rule
	// group for our user agent.
	permits func(path string) bool
}

// NewSiteRules creates rules backed by a permission function. The robots
// package is the only producer; the function wraps the parsed rule group
// for the configured user agent.
func NewSiteRules(host string, permits func(path string) bool, crawlDelay time.Duration, sitemaps []string) SiteRules {
	return SiteRules{
		Host:       host,
		CrawlDelay: crawlDelay,
		Sitemaps:   sitemaps,
		permits:    permits,
	}
}

// PermitAll creates rules that allow every path, used when robots.txt is
// absent or unreadable.
func PermitAll(host string) SiteRules {
	return SiteRules{Host: host, allowAll: true}
}

// Permits reports whether the given URL path may be fetched.
func (r SiteRules) Permits(path string) bool {
	if r.allowAll || r.permits == nil {
		return true
	}
	return r.permits(path)
}
