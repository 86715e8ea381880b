package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"

	"github.com/nao1215/linkhound/internal/model"
)

// Cache is one tier of outcome storage. Implementations return found=false
// for both absent and undecodable entries; a cache can only ever cause a
// re-fetch, never a wrong outcome.
type Cache interface {
	// Get looks up the stored entry for a normalized URL.
	Get(ctx context.Context, url model.NormalizedURL) (entry model.CacheEntry, found bool, err error)

	// Put stores the entry for a normalized URL, replacing any previous
	// one.
	Put(ctx context.Context, url model.NormalizedURL, entry model.CacheEntry) error

	// Close releases the tier's resources.
	Close() error
}

// encode serializes a cache entry for storage. Both tiers share one binary
// format so entries can move between them unchanged.
func encode(entry model.CacheEntry) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}
	return buf.Bytes(), nil
}

// decode deserializes a stored cache entry.
func decode(data []byte) (model.CacheEntry, error) {
	var entry model.CacheEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
		return model.CacheEntry{}, fmt.Errorf("decode cache entry: %w", err)
	}
	return entry, nil
}
