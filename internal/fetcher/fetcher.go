package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/nao1215/linkhound/internal/config"
)

// Gate is consulted before every request, including each redirect hop.
// Returning a non-nil error aborts the fetch; the error is returned to the
// caller unwrapped so it can recognize its own sentinels. Redirects that
// land on an excluded or robots-disallowed URL are caught here rather than
// after the fact.
type Gate func(u *url.URL) error

// Result is the terminal response of one fetch after redirects.
type Result struct {
	// StatusCode is the HTTP status of the final hop.
	StatusCode int

	// FinalURL is the URL that produced StatusCode, after redirects.
	FinalURL *url.URL

	// ContentType is the final response's Content-Type header value.
	ContentType string

	// Body holds the response body, only when the caller asked for it and
	// the response is HTML. Capped at the configured maximum body size.
	Body []byte

	// Redirects counts the hops followed before the final response.
	Redirects int
}

// IsHTML reports whether the final response carried an HTML content type.
func (r *Result) IsHTML() bool {
	mediaType := r.ContentType
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	mediaType = strings.TrimSpace(strings.ToLower(mediaType))
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// Client issues validation requests. Redirects are followed manually so
// every hop passes the gate and counts against the redirect budget; the
// embedded http.Client never follows one on its own.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	limiter    *HostLimiter
	logger     *slog.Logger
}

// NewClient creates a fetch client. The limiter is shared across workers
// so per-host pacing holds regardless of which worker draws a URL.
func NewClient(cfg *config.Config, limiter *HostLimiter, logger *slog.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		limiter: limiter,
		logger:  logger,
	}
}

// Limiter exposes the shared per-host limiter so robots crawl-delays can
// be installed as hosts are discovered.
func (c *Client) Limiter() *HostLimiter { return c.limiter }

// Fetch retrieves u, following redirects up to the configured maximum.
// wantBody asks for the final body to be retained for link extraction;
// non-HTML responses are drained and discarded regardless. A nil gate
// admits every hop.
//
// Timeouts surface as ErrTimeout and an exhausted redirect budget as
// ErrTooManyRedirects, both wrapped with the URL they occurred on.
func (c *Client) Fetch(ctx context.Context, u *url.URL, wantBody bool, gate Gate) (*Result, error) {
	current := u
	redirects := 0

	for {
		if gate != nil {
			if err := gate(current); err != nil {
				return nil, err
			}
		}

		resp, err := c.do(ctx, current)
		if err != nil {
			if isTimeout(err) {
				return nil, fmt.Errorf("%w: %s", ErrTimeout, current)
			}
			return nil, err
		}

		if !isRedirect(resp.StatusCode) {
			return c.finish(resp, current, redirects, wantBody)
		}

		location := resp.Header.Get("Location")
		drain(resp.Body)
		if location == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingLocation, current)
		}

		next, err := current.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("redirect from %s to %q: %w", current, location, err)
		}
		next.Fragment = ""
		next.RawFragment = ""

		redirects++
		if redirects > c.cfg.MaxRedirects {
			return nil, fmt.Errorf("%w: %s", ErrTooManyRedirects, u)
		}
		c.logger.Debug("following redirect",
			slog.String("from", current.String()),
			slog.String("to", next.String()),
			slog.Int("hop", redirects))
		current = next
	}
}

// do issues one hop: waits for the host's request slot, then performs a
// GET with the per-request timeout and the host's configured headers.
func (c *Client) do(ctx context.Context, u *url.URL) (*http.Response, error) {
	if err := c.limiter.Wait(ctx, u.Host); err != nil {
		return nil, err
	}

	hopCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	req, err := http.NewRequestWithContext(hopCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	site := c.cfg.Sites.SiteFor(u.Host)
	for name, value := range site.Headers {
		req.Header.Set(name, value)
	}
	if site.Cookie != "" {
		req.Header.Set("Cookie", site.Cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// finish reads or drains the terminal response and assembles the Result.
func (c *Client) finish(resp *http.Response, finalURL *url.URL, redirects int, wantBody bool) (*Result, error) {
	result := &Result{
		StatusCode:  resp.StatusCode,
		FinalURL:    finalURL,
		ContentType: resp.Header.Get("Content-Type"),
		Redirects:   redirects,
	}

	if wantBody && result.IsHTML() {
		body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodySize))
		drain(resp.Body)
		if err != nil {
			if isTimeout(err) {
				return nil, fmt.Errorf("%w: %s", ErrTimeout, finalURL)
			}
			return nil, fmt.Errorf("read body of %s: %w", finalURL, err)
		}
		result.Body = body
		return result, nil
	}

	drain(resp.Body)
	return result, nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// drain consumes and closes a response body so the underlying connection
// can be reused.
func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

// cancelOnClose ties a hop's timeout context to its body's lifetime, so
// the timer is released only after the caller finishes reading.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
