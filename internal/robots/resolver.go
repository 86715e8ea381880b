package robots

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/nao1215/linkhound/internal/config"
	"github.com/nao1215/linkhound/internal/model"
	"github.com/temoto/robotstxt"
)

// maxRobotsSize caps the robots.txt bytes read per host.
const maxRobotsSize = 1 << 20

// Resolver fetches, parses, and memoizes robots.txt rules per host.
// The robots.txt request itself is never checked against robots rules,
// and each host is fetched at most once per run regardless of how many
// workers ask concurrently.
type Resolver struct {
	cfg    *config.Config
	client *http.Client
	logger *slog.Logger

	mu    sync.Mutex
	hosts map[string]*hostEntry
}

// hostEntry memoizes one host's rules. The once gate makes concurrent
// first lookups collapse into a single fetch.
type hostEntry struct {
	once  sync.Once
	rules model.SiteRules
}

// NewResolver creates a resolver using the run's timeout and user agent.
func NewResolver(cfg *config.Config, logger *slog.Logger) *Resolver {
	return &Resolver{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
		hosts:  make(map[string]*hostEntry),
	}
}

// Rules returns the robots rules for a host, fetching and parsing its
// robots.txt on first use. Fetch or parse failures log a warning and
// return permit-all rules; an unreachable robots.txt must not take a
// whole site out of the crawl.
func (r *Resolver) Rules(ctx context.Context, scheme, host string) model.SiteRules {
	if !r.cfg.RespectRobots {
		return model.PermitAll(host)
	}

	r.mu.Lock()
	entry, ok := r.hosts[host]
	if !ok {
		entry = &hostEntry{}
		r.hosts[host] = entry
	}
	r.mu.Unlock()

	entry.once.Do(func() {
		entry.rules = r.fetch(ctx, scheme, host)
	})
	return entry.rules
}

// fetch retrieves and parses one host's robots.txt.
func (r *Resolver) fetch(ctx context.Context, scheme, host string) model.SiteRules {
	robotsURL := &url.URL{Scheme: scheme, Host: host, Path: "/robots.txt"}

	data, err := r.retrieve(ctx, robotsURL)
	if err != nil {
		r.logger.Warn("robots.txt unavailable, allowing all paths",
			slog.String("host", host),
			slog.String("error", err.Error()))
		return model.PermitAll(host)
	}

	group := data.FindGroup(r.cfg.UserAgent)
	if group == nil {
		return model.PermitAll(host)
	}

	r.logger.Debug("parsed robots.txt",
		slog.String("host", host),
		slog.Duration("crawl_delay", group.CrawlDelay),
		slog.Int("sitemaps", len(data.Sitemaps)))

	permits := func(path string) bool { return group.Test(path) }
	return model.NewSiteRules(host, permits, group.CrawlDelay, data.Sitemaps)
}

func (r *Resolver) retrieve(ctx context.Context, robotsURL *url.URL) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", robotsURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", robotsURL, err)
	}

	// FromStatusAndBytes encodes the conventional status semantics:
	// 4xx means no restrictions, 5xx means disallow-all until reachable.
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", robotsURL, err)
	}
	return data, nil
}
