package frontier

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/nao1215/linkhound/internal/model"
)

// Frontier is the crawl's pending-work queue and dedup set, shared by all
// workers.
//
// Claiming and queuing are separate on purpose: TryClaim settles URL
// ownership at discovery time, so two pages linking to the same URL race
// on the claim rather than both enqueuing it. Only the claim winner may
// Push the target.
type Frontier struct {
	// claimed holds every URL ever claimed this run. Entries are never
	// removed; the set is the crawl's fetch-once guarantee.
	claimed mapset.Set[string]

	mu   sync.Mutex
	cond *sync.Cond

	// queue holds claimed targets not yet handed to a worker.
	queue []model.CrawlTarget

	// inFlight counts targets handed out but not yet finished. The crawl
	// is complete when the queue is empty and inFlight is zero: no
	// pending work and nobody left who could discover more.
	inFlight int

	closed bool
}

// New creates an empty frontier.
func New() *Frontier {
	f := &Frontier{
		claimed: mapset.NewSet[string](),
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// TryClaim claims a URL for fetching. It returns true exactly once per
// URL per run; every later call for the same URL returns false.
func (f *Frontier) TryClaim(url model.NormalizedURL) bool {
	return f.claimed.Add(string(url))
}

// Push enqueues a claimed target. It returns false after Close: a
// draining crawl accepts no new work, and the caller must account for
// the refused target itself since it will never reach a worker or Drain.
func (f *Frontier) Push(target model.CrawlTarget) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.queue = append(f.queue, target)
	f.cond.Signal()
	return true
}

// Pop blocks until a target is available and hands it to the caller,
// incrementing the in-flight count. It returns ok=false when the crawl is
// complete or the frontier is closed; workers treat that as their exit
// signal. Every successful Pop must be paired with a TaskDone.
func (f *Frontier) Pop() (model.CrawlTarget, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.queue) == 0 && !f.closed && f.inFlight > 0 {
		f.cond.Wait()
	}
	if len(f.queue) == 0 || f.closed {
		return model.CrawlTarget{}, false
	}

	target := f.queue[0]
	f.queue = f.queue[1:]
	f.inFlight++
	return target, true
}

// TaskDone marks one popped target as finished. When the last in-flight
// target finishes with nothing queued, every blocked Pop wakes and
// returns ok=false.
func (f *Frontier) TaskDone() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if f.inFlight == 0 && len(f.queue) == 0 {
		f.cond.Broadcast()
	}
}

// Close stops the frontier: blocked Pops return, later Pushes are
// dropped. Queued targets stay put for Drain.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.cond.Broadcast()
}

// Drain removes and returns every still-queued target. Called after
// Close when a deadline or interrupt ends the crawl early, so the
// never-attempted URLs can be reported rather than silently lost.
func (f *Frontier) Drain() []model.CrawlTarget {
	f.mu.Lock()
	defer f.mu.Unlock()
	remaining := f.queue
	f.queue = nil
	return remaining
}

// Claimed returns how many distinct URLs were claimed this run.
func (f *Frontier) Claimed() int {
	return f.claimed.Cardinality()
}

// Len returns the number of queued targets.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}
