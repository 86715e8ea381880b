package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/linkhound/internal/model"
)

// TwoTier layers the memory tier over an optional durable tier. Reads try
// memory first and fall back to the durable store, promoting durable hits
// into memory. Writes go to both, but a durable write failure is logged
// and swallowed: a broken disk cache degrades to re-fetching, it never
// fails the run.
type TwoTier struct {
	memory  Cache
	durable Cache
	ttl     time.Duration
	logger  *slog.Logger

	// now is stubbed in tests.
	now func() time.Time
}

// NewTwoTier creates the layered cache. durable may be nil when the run
// has no persistent cache; ttl of zero means entries never go stale.
func NewTwoTier(memory, durable Cache, ttl time.Duration, logger *slog.Logger) *TwoTier {
	return &TwoTier{
		memory:  memory,
		durable: durable,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// Get implements Cache. Stale entries in either tier are reported as
// misses; freshness is evaluated here, at read time, so entries written
// by an earlier run age out without any background sweeping.
func (t *TwoTier) Get(ctx context.Context, url model.NormalizedURL) (model.CacheEntry, bool, error) {
	entry, found, err := t.memory.Get(ctx, url)
	if err != nil {
		return model.CacheEntry{}, false, err
	}
	if found && entry.Fresh(t.ttl, t.now()) {
		return entry, true, nil
	}

	if t.durable == nil {
		return model.CacheEntry{}, false, nil
	}

	entry, found, err = t.durable.Get(ctx, url)
	if err != nil {
		t.logger.Warn("durable cache read failed",
			slog.String("url", string(url)),
			slog.String("error", err.Error()))
		return model.CacheEntry{}, false, nil
	}
	if !found || !entry.Fresh(t.ttl, t.now()) {
		return model.CacheEntry{}, false, nil
	}

	if err := t.memory.Put(ctx, url, entry); err != nil {
		t.logger.Warn("cache promotion failed",
			slog.String("url", string(url)),
			slog.String("error", err.Error()))
	}
	return entry, true, nil
}

// Put implements Cache, writing through to both tiers.
func (t *TwoTier) Put(ctx context.Context, url model.NormalizedURL, entry model.CacheEntry) error {
	if err := t.memory.Put(ctx, url, entry); err != nil {
		return err
	}
	if t.durable == nil {
		return nil
	}
	if err := t.durable.Put(ctx, url, entry); err != nil {
		t.logger.Warn("durable cache write failed",
			slog.String("url", string(url)),
			slog.String("error", err.Error()))
	}
	return nil
}

// Close implements Cache, closing both tiers.
func (t *TwoTier) Close() error {
	err := t.memory.Close()
	if t.durable != nil {
		if derr := t.durable.Close(); err == nil {
			err = derr
		}
	}
	return err
}
