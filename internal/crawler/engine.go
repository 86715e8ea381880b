package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/linkhound/internal/cache"
	"github.com/nao1215/linkhound/internal/config"
	"github.com/nao1215/linkhound/internal/extractor"
	"github.com/nao1215/linkhound/internal/fetcher"
	"github.com/nao1215/linkhound/internal/frontier"
	"github.com/nao1215/linkhound/internal/model"
	"github.com/nao1215/linkhound/internal/policy"
	"github.com/nao1215/linkhound/internal/robots"
	"github.com/nao1215/linkhound/internal/urlnorm"
)

// Engine orchestrates one validation run. It owns the frontier, the
// worker pool, and the report; every other component is injected so tests
// can substitute them.
type Engine struct {
	cfg       *config.Config
	logger    *slog.Logger
	policy    *policy.Policy
	robots    *robots.Resolver
	client    *fetcher.Client
	store     cache.Cache
	extractor *extractor.Extractor
	frontier  *frontier.Frontier
	report    *model.CrawlReport

	// seedHosts are the hosts of the seed URLs. Only pages on these
	// hosts are recursed into; everything else is validated at most one
	// hop deep.
	seedHosts map[string]struct{}
}

// New assembles an engine from the run configuration. store may be nil
// when caching is disabled entirely.
func New(cfg *config.Config, store cache.Cache, logger *slog.Logger) (*Engine, error) {
	p, err := policy.New(cfg)
	if err != nil {
		return nil, err
	}

	limiter := fetcher.NewHostLimiter(cfg.CrawlDelay)
	return &Engine{
		cfg:       cfg,
		logger:    logger,
		policy:    p,
		robots:    robots.NewResolver(cfg, logger),
		client:    fetcher.NewClient(cfg, limiter, logger),
		store:     store,
		extractor: extractor.New(cfg.CheckResources),
		frontier:  frontier.New(),
		report:    model.NewCrawlReport(),
		seedHosts: make(map[string]struct{}),
	}, nil
}

// Run validates the configured seeds and everything reachable from them
// within scope, returning the completed report. A deadline or context
// cancellation ends the run early: in-flight fetches finish or abort, and
// every still-queued URL is reported as skipped. Only unusable seeds make
// Run itself fail.
func (e *Engine) Run(ctx context.Context) (*model.CrawlReport, error) {
	if e.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Deadline)
		defer cancel()
	}

	seeds, err := e.seed()
	if err != nil {
		return nil, err
	}
	e.seedSitemaps(ctx, seeds)

	// When the run is cut short, closing the frontier releases every
	// worker blocked on Pop.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			e.frontier.Close()
		case <-watchDone:
		}
	}()

	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)
	for i := 0; i < e.cfg.Concurrency; i++ {
		g.Go(func() error {
			e.work(ctx)
			return nil
		})
	}
	_ = g.Wait()
	close(watchDone)
	e.frontier.Close()

	for _, target := range e.frontier.Drain() {
		e.report.Record(target.URL, model.Skipped(), target.Referrer, false)
	}
	e.report.Finalize()

	stats := e.report.Stats()
	e.logger.Info("crawl finished",
		slog.Int("total", stats.Total),
		slog.Int("accepted", stats.Accepted),
		slog.Int("rejected", stats.Rejected),
		slog.Int("errored", stats.Errored),
		slog.Int("skipped", stats.Skipped),
		slog.Int("from_cache", stats.FromCache),
		slog.Duration("duration", stats.Duration))
	return e.report, nil
}

// seed normalizes and enqueues the configured seed URLs. Unlike
// discovered links, an unusable seed is an operator mistake and fails
// the run.
func (e *Engine) seed() ([]*url.URL, error) {
	seeds := make([]*url.URL, 0, len(e.cfg.Seeds))
	for _, raw := range e.cfg.Seeds {
		u, err := urlnorm.Parse(raw, nil)
		if err != nil {
			return nil, fmt.Errorf("seed %q: %w", raw, err)
		}
		seeds = append(seeds, u)
		e.seedHosts[u.Host] = struct{}{}

		normalized := model.NormalizedURL(u.String())
		if e.frontier.TryClaim(normalized) {
			e.frontier.Push(model.CrawlTarget{URL: normalized, Depth: 0})
		}
	}
	return seeds, nil
}

// seedSitemaps resolves robots rules for every seed host, installs their
// crawl delays, and enqueues sitemap-declared URLs as additional seeds.
// List mode validates exactly the given URLs, so discovery is skipped.
func (e *Engine) seedSitemaps(ctx context.Context, seeds []*url.URL) {
	if !e.cfg.RespectRobots || e.cfg.ListMode {
		return
	}

	done := make(map[string]struct{}, len(seeds))
	for _, seed := range seeds {
		if _, ok := done[seed.Host]; ok {
			continue
		}
		done[seed.Host] = struct{}{}

		rules := e.robots.Rules(ctx, seed.Scheme, seed.Host)
		e.client.Limiter().SetDelay(seed.Host, rules.CrawlDelay)

		for _, u := range e.robots.Sitemaps(ctx, rules) {
			if e.frontier.TryClaim(u) {
				e.frontier.Push(model.CrawlTarget{URL: u, Depth: 0})
			}
		}
	}
}

// work is one worker's loop: pop, validate, repeat until the frontier
// reports the crawl complete.
func (e *Engine) work(ctx context.Context) {
	for {
		target, ok := e.frontier.Pop()
		if !ok {
			return
		}
		e.validate(ctx, target)
		e.frontier.TaskDone()
	}
}

// validate takes one target through the full path: exclusion, robots,
// cache, fetch, classification, and link discovery.
func (e *Engine) validate(ctx context.Context, target model.CrawlTarget) {
	u, err := url.Parse(string(target.URL))
	if err != nil {
		e.report.Record(target.URL, model.Malformed(err.Error()), target.Referrer, false)
		return
	}

	if rule, hit := e.policy.ExcludedBy(u); hit {
		e.report.Record(target.URL, model.Excluded(rule), target.Referrer, false)
		return
	}

	if e.cfg.RespectRobots {
		rules := e.robots.Rules(ctx, u.Scheme, u.Host)
		e.client.Limiter().SetDelay(u.Host, rules.CrawlDelay)
		if !rules.Permits(u.Path) {
			e.report.Record(target.URL, model.ExcludedByRobots(), target.Referrer, false)
			return
		}
	}

	if e.store != nil {
		if entry, found, err := e.store.Get(ctx, target.URL); err == nil && found {
			e.logger.Debug("cache hit", slog.String("url", string(target.URL)))
			e.report.Record(target.URL, entry.Outcome, target.Referrer, true)
			return
		}
	}

	wantBody := e.recurses(target, u)
	result, err := e.client.Fetch(ctx, u, wantBody, e.gate(ctx))

	var blocked *gateError
	if errors.As(err, &blocked) {
		e.report.Record(target.URL, blocked.outcome, target.Referrer, false)
		return
	}
	if err != nil && ctx.Err() != nil {
		// The run was cut short mid-fetch; this URL was never decided.
		e.report.Record(target.URL, model.Skipped(), target.Referrer, false)
		return
	}

	outcome := e.policy.Classify(result, err)
	e.report.Record(target.URL, outcome, target.Referrer, false)
	e.logger.Debug("validated",
		slog.String("url", string(target.URL)),
		slog.String("outcome", outcome.String()))

	if e.store != nil && (outcome.Kind == model.OutcomeAccepted || outcome.Kind == model.OutcomeRejected) {
		entry := model.CacheEntry{
			Outcome:       outcome,
			RecordedAt:    time.Now(),
			CheckedStatus: outcome.StatusCode,
		}
		if err := e.store.Put(ctx, target.URL, entry); err != nil {
			e.logger.Warn("cache write failed",
				slog.String("url", string(target.URL)),
				slog.String("error", err.Error()))
		}
	}

	if wantBody && result != nil && len(result.Body) > 0 {
		e.discover(target, result)
	}
}

// gateError carries the outcome for a URL blocked mid-redirect.
type gateError struct {
	outcome model.ValidationOutcome
}

func (g *gateError) Error() string { return g.outcome.String() }

// gate builds the per-hop admission check for redirect chains. The first
// hop passes trivially; the checks matter when a redirect lands on a URL
// the crawl would never have fetched directly.
func (e *Engine) gate(ctx context.Context) fetcher.Gate {
	return func(hop *url.URL) error {
		if rule, hit := e.policy.ExcludedBy(hop); hit {
			return &gateError{outcome: model.Excluded(rule)}
		}
		if e.cfg.RespectRobots {
			rules := e.robots.Rules(ctx, hop.Scheme, hop.Host)
			e.client.Limiter().SetDelay(hop.Host, rules.CrawlDelay)
			if !rules.Permits(hop.Path) {
				return &gateError{outcome: model.ExcludedByRobots()}
			}
		}
		return nil
	}
}

// recurses reports whether links found on this target's page should be
// followed: recursion is off in list mode, limited by the host's depth
// budget, and never leaves the seed hosts.
func (e *Engine) recurses(target model.CrawlTarget, u *url.URL) bool {
	if e.cfg.ListMode {
		return false
	}
	if _, seedHost := e.seedHosts[u.Host]; !seedHost {
		return false
	}
	return target.Depth < e.maxDepthFor(u.Host)
}

// maxDepthFor returns the recursion depth budget for a host, honoring a
// per-site override from the config file.
func (e *Engine) maxDepthFor(host string) int {
	if site := e.cfg.Sites.SiteFor(host); site.Depth > 0 {
		return site.Depth
	}
	return e.cfg.MaxDepth
}

// discover extracts links from a fetched page and feeds the in-scope ones
// back into the frontier. Claiming happens here, at discovery: the claim
// winner enqueues the URL and everyone else just adds a referrer edge.
func (e *Engine) discover(target model.CrawlTarget, result *fetcher.Result) {
	links, err := e.extractor.Extract(bytes.NewReader(result.Body), result.ContentType, result.FinalURL)
	if err != nil {
		e.logger.Warn("link extraction failed",
			slog.String("url", string(target.URL)),
			slog.String("error", err.Error()))
		return
	}

	pageURL := target.URL
	for _, link := range links {
		child, err := urlnorm.Normalize(link, nil)
		if err != nil {
			// Non-http links and malformed hrefs are page findings worth
			// reporting once, not work for the frontier.
			outcome := model.Malformed(err.Error())
			if errors.Is(err, urlnorm.ErrUnsupportedScheme) {
				outcome = model.Excluded("non-http scheme")
			}
			bad := model.NormalizedURL(link)
			if e.frontier.TryClaim(bad) {
				e.report.Record(bad, outcome, pageURL, false)
			} else {
				e.report.AddReferrer(bad, pageURL)
			}
			continue
		}

		childURL, err := url.Parse(string(child))
		if err != nil {
			continue
		}
		if _, seedHost := e.seedHosts[childURL.Host]; !seedHost && !e.cfg.ValidateExternal {
			continue
		}

		if !e.frontier.TryClaim(child) {
			e.report.AddReferrer(child, pageURL)
			continue
		}
		accepted := e.frontier.Push(model.CrawlTarget{
			URL:      child,
			Referrer: pageURL,
			Depth:    target.Depth + 1,
		})
		if !accepted {
			// The frontier closed between the claim and the push. The claim
			// is ours, so the report must still account for the URL.
			e.report.Record(child, model.Skipped(), pageURL, false)
		}
	}
}
