// Package cache stores validation outcomes so repeated runs and repeated
// links skip the network. Two tiers exist: an in-process memory tier for
// the current run and an optional SQLite tier persisting outcomes across
// runs. Freshness is decided at read time from the recorded timestamp, so
// a stale durable entry is simply a miss rather than a wrong answer.
package cache
