// Package model defines the core data types shared across the link
// validation engine: crawl targets, validation outcomes, cache entries,
// per-host site rules, and the aggregate crawl report.
package model
