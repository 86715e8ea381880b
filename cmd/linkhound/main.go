// Package main provides the entry point for the linkhound CLI.
//
// linkhound validates every link reachable from a set of seed URLs and
// reports the broken ones, for use in CI pipelines and documentation
// builds.
//
// Usage:
//
//	linkhound check https://example.com
//	linkhound check --list https://example.com/a https://example.com/b
//
// See --help for all available options.
package main

// main is the entry point for linkhound.
func main() {
	Execute()
}
