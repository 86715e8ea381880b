package model

import (
	"sort"
	"sync"
	"time"
)

// ReportEntry is one validated URL in the crawl report, together with
// every page that referenced it.
type ReportEntry struct {
	// URL is the validated URL.
	URL NormalizedURL `json:"url"`

	// Outcome is the recorded verdict.
	Outcome ValidationOutcome `json:"outcome"`

	// Referrers lists the pages that linked to this URL, sorted.
	Referrers []NormalizedURL `json:"referrers,omitempty"`

	// CheckedAt is when the outcome was recorded.
	CheckedAt time.Time `json:"checked_at"`

	// FromCache is true when the outcome was served from the result cache
	// without a network request.
	FromCache bool `json:"from_cache,omitempty"`
}

// CrawlReport accumulates validation outcomes for a run. Entries arrive in
// completion order from many workers concurrently; Entries() sorts by URL
// so rendering is deterministic.
//
// Design decision: the report owns its lock rather than relying on the
// orchestrator to serialize writes. Workers record outcomes directly, and
// late discoverers of an already-claimed URL add referrers without going
// through the frontier again.
type CrawlReport struct {
	mu        sync.Mutex
	entries   map[NormalizedURL]*reportRecord
	startedAt time.Time
	doneAt    time.Time
}

type reportRecord struct {
	outcome   ValidationOutcome
	referrers map[NormalizedURL]struct{}
	checkedAt time.Time
	fromCache bool
}

// NewCrawlReport creates an empty report stamped with the current time.
func NewCrawlReport() *CrawlReport {
	return &CrawlReport{
		entries:   make(map[NormalizedURL]*reportRecord),
		startedAt: time.Now(),
	}
}

// Record stores the outcome for a URL. The first outcome for a URL wins;
// outcomes are produced exactly once per URL per run, so a second call for
// the same URL only merges the referrer. The record may already exist with
// referrers only, when other pages linked to the URL while it was queued.
func (r *CrawlReport) Record(url NormalizedURL, outcome ValidationOutcome, referrer NormalizedURL, fromCache bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.entries[url]
	if !ok {
		rec = &reportRecord{referrers: make(map[NormalizedURL]struct{})}
		r.entries[url] = rec
	}
	if rec.checkedAt.IsZero() {
		rec.outcome = outcome
		rec.checkedAt = time.Now()
		rec.fromCache = fromCache
	}
	if referrer != "" {
		rec.referrers[referrer] = struct{}{}
	}
}

// AddReferrer registers an additional page linking to an already-recorded
// (or soon to be recorded) URL. Safe to call before Record: the referrer
// is kept and merged when the outcome arrives.
func (r *CrawlReport) AddReferrer(url, referrer NormalizedURL) {
	if referrer == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.entries[url]
	if !ok {
		rec = &reportRecord{referrers: make(map[NormalizedURL]struct{})}
		r.entries[url] = rec
	}
	rec.referrers[referrer] = struct{}{}
}

// Finalize stamps the report's end time. Called once by the orchestrator
// when the frontier is exhausted or the run is cancelled.
func (r *CrawlReport) Finalize() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doneAt = time.Now()
}

// Entries returns all report entries sorted by URL.
func (r *CrawlReport) Entries() []ReportEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]ReportEntry, 0, len(r.entries))
	for url, rec := range r.entries {
		refs := make([]NormalizedURL, 0, len(rec.referrers))
		for ref := range rec.referrers {
			refs = append(refs, ref)
		}
		sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })
		entries = append(entries, ReportEntry{
			URL:       url,
			Outcome:   rec.outcome,
			Referrers: refs,
			CheckedAt: rec.checkedAt,
			FromCache: rec.fromCache,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].URL < entries[j].URL })
	return entries
}

// Success reports whether every non-excluded URL validated against the
// acceptance policy. The CLI derives the process exit code from this.
func (r *CrawlReport) Success() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.entries {
		if rec.outcome.Failed() {
			return false
		}
	}
	return true
}

// ReportStats summarizes a report for the simple writer and final log line.
type ReportStats struct {
	Total     int           `json:"total"`
	Accepted  int           `json:"accepted"`
	Rejected  int           `json:"rejected"`
	Excluded  int           `json:"excluded"`
	Errored   int           `json:"errored"`
	Skipped   int           `json:"skipped"`
	FromCache int           `json:"from_cache"`
	Duration  time.Duration `json:"duration"`
}

// Stats computes aggregate counts over the report.
func (r *CrawlReport) Stats() ReportStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := ReportStats{Total: len(r.entries)}
	for _, rec := range r.entries {
		switch rec.outcome.Kind {
		case OutcomeAccepted:
			stats.Accepted++
		case OutcomeRejected:
			stats.Rejected++
		case OutcomeExcluded, OutcomeExcludedByRobots:
			stats.Excluded++
		case OutcomeSkipped:
			stats.Skipped++
		default:
			stats.Errored++
		}
		if rec.fromCache {
			stats.FromCache++
		}
	}
	end := r.doneAt
	if end.IsZero() {
		end = time.Now()
	}
	stats.Duration = end.Sub(r.startedAt)
	return stats
}
