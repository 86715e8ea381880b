package urlnorm

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/nao1215/linkhound/internal/model"
)

// Normalization errors. ErrUnsupportedScheme is distinct from ErrMalformed
// so the acceptance policy can classify mailto:/tel:/javascript: links as
// excluded rather than broken; only seeds treat either error as fatal.
var (
	// ErrMalformed is returned when the input cannot be parsed as a URL.
	ErrMalformed = errors.New("malformed URL")

	// ErrUnsupportedScheme is returned for parsable URLs whose scheme is
	// not http or https.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
)

// Parse resolves raw against base (when base is non-nil and raw is
// relative) and canonicalizes the result:
//   - scheme and host lowered
//   - fragment removed (anchor variants of a page must share one fetch)
//   - default port stripped (:80 for http, :443 for https)
//   - empty path replaced with "/"
//
// Only http and https URLs are valid crawl targets.
func Parse(raw string, base *url.URL) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformed, raw, err)
	}
	if base != nil {
		u = base.ResolveReference(u)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	switch u.Scheme {
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrMalformed, raw)
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	if port := u.Port(); port != "" {
		if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
			u.Host = u.Hostname()
		}
	}
	if u.Path == "" {
		u.Path = "/"
	}

	return u, nil
}

// Normalize is Parse followed by rendering to the canonical string form.
func Normalize(raw string, base *url.URL) (model.NormalizedURL, error) {
	u, err := Parse(raw, base)
	if err != nil {
		return "", err
	}
	return model.NormalizedURL(u.String()), nil
}
