package fetcher

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter spaces successive requests to the same host by at least the
// host's crawl delay. Each host gets its own token bucket, so contention
// on one slow host never blocks crawling of other hosts.
type HostLimiter struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	defaultDelay time.Duration
}

// NewHostLimiter creates a limiter with the configured default per-host
// delay. A zero delay means hosts without a robots crawl-delay are not
// paced at all.
func NewHostLimiter(defaultDelay time.Duration) *HostLimiter {
	return &HostLimiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultDelay: defaultDelay,
	}
}

// SetDelay installs a host's crawl delay, typically from its robots.txt.
// The larger of the configured default and the robots delay wins. Calling
// SetDelay again for the same host is a no-op: rules are parsed once per
// host per run.
func (l *HostLimiter) SetDelay(host string, delay time.Duration) {
	if delay < l.defaultDelay {
		delay = l.defaultDelay
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.limiters[host]; exists {
		return
	}
	l.limiters[host] = newLimiter(delay)
}

// Wait blocks until the host's next request slot, respecting the context.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	l.mu.Lock()
	limiter, ok := l.limiters[host]
	if !ok {
		limiter = newLimiter(l.defaultDelay)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()

	return limiter.Wait(ctx)
}

func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}
