package policy

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"

	"github.com/nao1215/linkhound/internal/config"
	"github.com/nao1215/linkhound/internal/fetcher"
	"github.com/nao1215/linkhound/internal/model"
)

// Policy decides, from a response outcome and configuration, whether a URL
// is accepted, rejected, or excluded. All patterns are compiled once at
// construction; classification itself performs no I/O and no allocation
// beyond the outcome value.
type Policy struct {
	// accepted is the accepted status set; nil means the 2xx range.
	accepted map[int]struct{}

	// excludes are global exclude patterns matched against the normalized
	// URL string before any network call.
	excludes []*regexp.Regexp

	// siteExcludes are per-host exclude patterns from the config file.
	siteExcludes map[string][]*regexp.Regexp
}

// New compiles the acceptance policy from the run configuration.
// Invalid exclude patterns are a startup error: they would otherwise
// silently validate URLs the operator meant to skip.
func New(cfg *config.Config) (*Policy, error) {
	p := &Policy{
		siteExcludes: make(map[string][]*regexp.Regexp),
	}

	if len(cfg.AcceptedStatuses) > 0 {
		p.accepted = make(map[int]struct{}, len(cfg.AcceptedStatuses))
		for _, status := range cfg.AcceptedStatuses {
			p.accepted[status] = struct{}{}
		}
	}

	for _, pattern := range cfg.ExcludePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		p.excludes = append(p.excludes, re)
	}

	if cfg.Sites != nil {
		for host, site := range cfg.Sites.Sites {
			for _, pattern := range site.ExcludePatterns {
				re, err := regexp.Compile(pattern)
				if err != nil {
					return nil, fmt.Errorf("invalid exclude pattern %q for site %s: %w", pattern, host, err)
				}
				p.siteExcludes[host] = append(p.siteExcludes[host], re)
			}
		}
	}

	return p, nil
}

// ExcludedBy returns the source text of the first exclude pattern matching
// the URL, if any. It is consulted before every fetch, including each
// redirect hop, so excluded URLs never reach the network.
func (p *Policy) ExcludedBy(u *url.URL) (string, bool) {
	s := u.String()
	for _, re := range p.excludes {
		if re.MatchString(s) {
			return re.String(), true
		}
	}
	for _, re := range p.siteExcludes[u.Host] {
		if re.MatchString(s) {
			return re.String(), true
		}
	}
	return "", false
}

// Accepts reports whether a status code is in the accepted set.
// An empty configured set means the whole 2xx range.
func (p *Policy) Accepts(status int) bool {
	if p.accepted == nil {
		return status >= 200 && status <= 299
	}
	_, ok := p.accepted[status]
	return ok
}

// Classify maps a fetch result or error to a validation outcome. Exactly
// one of result and err is meaningful: err != nil means the request never
// produced a final response.
func (p *Policy) Classify(result *fetcher.Result, err error) model.ValidationOutcome {
	if err != nil {
		switch {
		case errors.Is(err, fetcher.ErrTimeout):
			return model.ValidationOutcome{Kind: model.OutcomeTimeout, Reason: "request timed out"}
		case errors.Is(err, fetcher.ErrTooManyRedirects):
			return model.ValidationOutcome{Kind: model.OutcomeTooManyRedirects, Reason: "redirect limit exceeded"}
		case errors.Is(err, fetcher.ErrMissingLocation):
			return model.NetworkError("redirect without Location header")
		default:
			return model.NetworkError(fetcher.ErrorKind(err))
		}
	}

	if p.Accepts(result.StatusCode) {
		out := model.Accepted(result.StatusCode)
		out.Redirects = result.Redirects
		return out
	}
	out := model.Rejected(result.StatusCode, "status not in accepted set")
	out.Redirects = result.Redirects
	return out
}
