// Package urlnorm canonicalizes URLs into the single form used as the
// frontier, cache, and report key. Normalization is idempotent: feeding a
// normalized URL back through Normalize yields the same value.
package urlnorm
