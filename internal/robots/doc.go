// Package robots retrieves and caches robots.txt rules so each host is
// asked exactly once per run, and expands the sitemaps those rules declare
// into additional crawl seeds. A missing or unreadable robots.txt yields
// permit-all rules; crawling is never blocked by robots infrastructure
// problems.
package robots
