package cache

import (
	"context"
	"errors"
	"time"

	"github.com/allegro/bigcache/v3"

	"github.com/nao1215/linkhound/internal/model"
)

// defaultLifeWindow bounds memory-tier residency when no TTL is set.
// Freshness is still decided at read time from the entry's timestamp;
// the life window only limits how long dead entries occupy memory.
const defaultLifeWindow = 24 * time.Hour

// Memory is the in-process cache tier. It is safe for concurrent use by
// all workers and holds entries only for the lifetime of the process.
type Memory struct {
	store *bigcache.BigCache
}

// NewMemory creates the memory tier. ttl of zero keeps entries for the
// default life window.
func NewMemory(ttl time.Duration) (*Memory, error) {
	lifeWindow := ttl
	if lifeWindow <= 0 {
		lifeWindow = defaultLifeWindow
	}

	store, err := bigcache.New(context.Background(), bigcache.DefaultConfig(lifeWindow))
	if err != nil {
		return nil, err
	}
	return &Memory{store: store}, nil
}

// Get implements Cache. An undecodable entry is treated as a miss.
func (m *Memory) Get(_ context.Context, url model.NormalizedURL) (model.CacheEntry, bool, error) {
	data, err := m.store.Get(string(url))
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return model.CacheEntry{}, false, nil
		}
		return model.CacheEntry{}, false, err
	}

	entry, err := decode(data)
	if err != nil {
		return model.CacheEntry{}, false, nil
	}
	return entry, true, nil
}

// Put implements Cache.
func (m *Memory) Put(_ context.Context, url model.NormalizedURL, entry model.CacheEntry) error {
	data, err := encode(entry)
	if err != nil {
		return err
	}
	return m.store.Set(string(url), data)
}

// Close implements Cache.
func (m *Memory) Close() error {
	return m.store.Close()
}
