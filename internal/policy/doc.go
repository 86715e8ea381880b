// Package policy implements the acceptance policy: the pure mapping from
// a fetch result (or fetch error) and the run configuration to a
// validation outcome. Keeping classification free of I/O keeps the
// hardest-to-get-right logic unit-testable without any network.
package policy
