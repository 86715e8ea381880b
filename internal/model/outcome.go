package model

import (
	"fmt"
	"time"
)

// NormalizedURL is the canonical string form of a URL produced by the
// urlnorm package. It is the sole key used by the frontier, the result
// cache, and the crawl report. Two semantically equivalent URLs (differing
// only in fragment, default port, or scheme/host case) share one
// NormalizedURL.
type NormalizedURL string

// OutcomeKind classifies the result of validating a single URL.
type OutcomeKind string

// Outcome kinds recorded in the crawl report.
const (
	// OutcomeAccepted means the response status code was in the accepted set.
	OutcomeAccepted OutcomeKind = "accepted"

	// OutcomeRejected means the response status code was outside the
	// accepted set.
	OutcomeRejected OutcomeKind = "rejected"

	// OutcomeExcluded means the URL matched an exclude pattern or used a
	// non-HTTP scheme; no request was made.
	OutcomeExcluded OutcomeKind = "excluded"

	// OutcomeExcludedByRobots means robots.txt disallowed the URL;
	// no request was made.
	OutcomeExcludedByRobots OutcomeKind = "excluded_by_robots"

	// OutcomeMalformed means a discovered link could not be parsed as a URL.
	OutcomeMalformed OutcomeKind = "malformed"

	// OutcomeNetworkError means the request failed at the transport layer
	// (DNS, connect, TLS, or IO).
	OutcomeNetworkError OutcomeKind = "network_error"

	// OutcomeTimeout means the request exceeded the per-request timeout.
	OutcomeTimeout OutcomeKind = "timeout"

	// OutcomeTooManyRedirects means the redirect chain exceeded the
	// configured limit.
	OutcomeTooManyRedirects OutcomeKind = "too_many_redirects"

	// OutcomeSkipped means the run was cancelled or hit its deadline
	// before the URL was attempted. Skipped is distinct from both
	// accepted and failed outcomes.
	OutcomeSkipped OutcomeKind = "skipped"
)

// ValidationOutcome is the verdict for one unique NormalizedURL within a
// run. It is produced exactly once per URL; later discoveries of the same
// URL reuse the recorded outcome. Immutable once recorded.
type ValidationOutcome struct {
	// Kind is the outcome classification.
	Kind OutcomeKind `json:"kind"`

	// StatusCode is the raw HTTP status, when a response was received.
	// Zero for outcomes that never reached the network.
	StatusCode int `json:"status_code,omitempty"`

	// Reason carries detail for excluded and failed outcomes: the matched
	// exclude pattern, the robots rule, or the transport error kind.
	Reason string `json:"reason,omitempty"`

	// Redirects is the number of redirect hops followed before the final
	// response.
	Redirects int `json:"redirects,omitempty"`
}

// Accepted creates an accepted outcome for the given status code.
func Accepted(status int) ValidationOutcome {
	return ValidationOutcome{Kind: OutcomeAccepted, StatusCode: status}
}

// Rejected creates a rejected outcome for the given status code.
func Rejected(status int, reason string) ValidationOutcome {
	return ValidationOutcome{Kind: OutcomeRejected, StatusCode: status, Reason: reason}
}

// Excluded creates an excluded outcome naming the rule that matched.
func Excluded(rule string) ValidationOutcome {
	return ValidationOutcome{Kind: OutcomeExcluded, Reason: rule}
}

// ExcludedByRobots creates an outcome for a URL disallowed by robots.txt.
func ExcludedByRobots() ValidationOutcome {
	return ValidationOutcome{Kind: OutcomeExcludedByRobots, Reason: "disallowed by robots.txt"}
}

// NetworkError creates an outcome for a transport-layer failure.
func NetworkError(kind string) ValidationOutcome {
	return ValidationOutcome{Kind: OutcomeNetworkError, Reason: kind}
}

// Malformed creates an outcome for a discovered link that is not a
// parsable URL.
func Malformed(reason string) ValidationOutcome {
	return ValidationOutcome{Kind: OutcomeMalformed, Reason: reason}
}

// Skipped creates an outcome for a URL the run ended before attempting.
func Skipped() ValidationOutcome {
	return ValidationOutcome{Kind: OutcomeSkipped, Reason: "run ended before validation"}
}

// Failed reports whether the outcome counts against overall run success.
// Excluded and skipped URLs never fail a run; they were deliberately not
// validated.
func (o ValidationOutcome) Failed() bool {
	switch o.Kind {
	case OutcomeRejected, OutcomeMalformed, OutcomeNetworkError,
		OutcomeTimeout, OutcomeTooManyRedirects:
		return true
	default:
		return false
	}
}

// String renders the outcome for log output and the simple report.
func (o ValidationOutcome) String() string {
	switch o.Kind {
	case OutcomeAccepted, OutcomeRejected:
		return fmt.Sprintf("%s (%d)", o.Kind, o.StatusCode)
	default:
		if o.Reason != "" {
			return fmt.Sprintf("%s (%s)", o.Kind, o.Reason)
		}
		return string(o.Kind)
	}
}

// CacheEntry is the persisted form of a validation outcome. Entries are
// created on first validation of a URL and reused by later discoveries of
// the same URL while fresh.
type CacheEntry struct {
	// Outcome is the recorded verdict.
	Outcome ValidationOutcome

	// RecordedAt is when the outcome was recorded. Staleness is evaluated
	// against this timestamp at read time, so one store serves any TTL.
	RecordedAt time.Time

	// CheckedStatus is the raw HTTP status observed, if any. Kept
	// separately from Outcome.StatusCode so future acceptance-policy
	// changes can re-classify cached statuses without refetching.
	CheckedStatus int
}

// Fresh reports whether the entry is still usable under the given TTL.
// A zero TTL means entries never go stale.
func (e CacheEntry) Fresh(ttl time.Duration, now time.Time) bool {
	if ttl == 0 {
		return true
	}
	return now.Sub(e.RecordedAt) < ttl
}
