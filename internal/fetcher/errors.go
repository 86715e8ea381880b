package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/url"
)

// Typed fetch errors. A fetch never aborts the run; the caller folds these
// into the validation outcome of the single URL that failed.
var (
	// ErrTimeout is returned when a request exceeds the per-request
	// timeout.
	ErrTimeout = errors.New("request timed out")

	// ErrTooManyRedirects is returned when a redirect chain exceeds the
	// configured limit.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrMissingLocation is returned when a redirect response carries no
	// usable Location header.
	ErrMissingLocation = errors.New("redirect without Location header")
)

// ErrorKind names the transport-layer failure class for a fetch error:
// "dns", "tls", "connection", or "io". The name ends up in the report's
// network_error reason.
func ErrorKind(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}
	var tlsErr *tls.CertificateVerificationError
	if errors.As(err, &tlsErr) {
		return "tls"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			return "connection"
		}
		return "io"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ErrorKind(urlErr.Err)
	}
	return "io"
}

// isTimeout reports whether an error is a deadline or network timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
