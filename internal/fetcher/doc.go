// Package fetcher issues the HTTP requests for link validation: manual
// redirect following so every hop can be re-checked against exclusion and
// robots rules, per-request timeouts, per-host request pacing, and typed
// transport errors that the acceptance policy folds into per-URL outcomes.
package fetcher
