package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/linkhound/internal/config"
)

func newTestClient(t *testing.T, cfg *config.Config) *Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(cfg, NewHostLimiter(0), logger)
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestClientFetch(t *testing.T) {
	t.Parallel()

	t.Run("returns status and body of an HTML page", func(t *testing.T) {
		t.Parallel()

		const page = "<html><body><a href=\"/next\">next</a></body></html>"
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, page)
		}))
		defer server.Close()

		cfg := config.NewConfig()
		client := newTestClient(t, cfg)

		result, err := client.Fetch(context.Background(), mustParse(t, server.URL), true, nil)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if result.StatusCode != http.StatusOK {
			t.Errorf("StatusCode = %d, want %d", result.StatusCode, http.StatusOK)
		}
		if got := string(result.Body); got != page {
			t.Errorf("Body = %q, want %q", got, page)
		}
		if result.Redirects != 0 {
			t.Errorf("Redirects = %d, want 0", result.Redirects)
		}
		if !result.IsHTML() {
			t.Error("IsHTML() = false, want true")
		}
	})

	t.Run("does not retain a non-HTML body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"ok":true}`)
		}))
		defer server.Close()

		cfg := config.NewConfig()
		client := newTestClient(t, cfg)

		result, err := client.Fetch(context.Background(), mustParse(t, server.URL), true, nil)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if result.Body != nil {
			t.Errorf("Body = %q, want nil for non-HTML content", result.Body)
		}
	})

	t.Run("follows redirects and counts hops", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/b", http.StatusMovedPermanently)
		})
		mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/c", http.StatusFound)
		})
		mux.HandleFunc("/c", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		cfg := config.NewConfig()
		client := newTestClient(t, cfg)

		result, err := client.Fetch(context.Background(), mustParse(t, server.URL+"/a"), false, nil)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if result.StatusCode != http.StatusOK {
			t.Errorf("StatusCode = %d, want %d", result.StatusCode, http.StatusOK)
		}
		if result.Redirects != 2 {
			t.Errorf("Redirects = %d, want 2", result.Redirects)
		}
		if got, want := result.FinalURL.Path, "/c"; got != want {
			t.Errorf("FinalURL.Path = %q, want %q", got, want)
		}
	})

	t.Run("stops a redirect loop at the configured limit", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, r.URL.Path, http.StatusFound)
		}))
		defer server.Close()

		cfg := config.NewConfig()
		cfg.MaxRedirects = 3
		client := newTestClient(t, cfg)

		_, err := client.Fetch(context.Background(), mustParse(t, server.URL+"/loop"), false, nil)
		if !errors.Is(err, ErrTooManyRedirects) {
			t.Errorf("Fetch() error = %v, want ErrTooManyRedirects", err)
		}
	})

	t.Run("rejects a redirect without Location", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusFound)
		}))
		defer server.Close()

		cfg := config.NewConfig()
		client := newTestClient(t, cfg)

		_, err := client.Fetch(context.Background(), mustParse(t, server.URL), false, nil)
		if !errors.Is(err, ErrMissingLocation) {
			t.Errorf("Fetch() error = %v, want ErrMissingLocation", err)
		}
	})

	t.Run("consults the gate on every hop", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/blocked", http.StatusFound)
		})
		mux.HandleFunc("/blocked", func(w http.ResponseWriter, r *http.Request) {
			t.Error("blocked URL was fetched despite the gate")
		})

		cfg := config.NewConfig()
		client := newTestClient(t, cfg)

		errBlocked := errors.New("blocked by test gate")
		gate := func(u *url.URL) error {
			if u.Path == "/blocked" {
				return errBlocked
			}
			return nil
		}

		_, err := client.Fetch(context.Background(), mustParse(t, server.URL+"/start"), false, gate)
		if !errors.Is(err, errBlocked) {
			t.Errorf("Fetch() error = %v, want gate error", err)
		}
	})

	t.Run("times out a slow response", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(5 * time.Second):
			case <-r.Context().Done():
			}
		}))
		defer server.Close()

		cfg := config.NewConfig()
		cfg.Timeout = 50 * time.Millisecond
		client := newTestClient(t, cfg)

		_, err := client.Fetch(context.Background(), mustParse(t, server.URL), false, nil)
		if !errors.Is(err, ErrTimeout) {
			t.Errorf("Fetch() error = %v, want ErrTimeout", err)
		}
	})

	t.Run("sends site headers and cookie", func(t *testing.T) {
		t.Parallel()

		var gotAuth, gotCookie, gotAgent string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotCookie = r.Header.Get("Cookie")
			gotAgent = r.Header.Get("User-Agent")
		}))
		defer server.Close()

		host := mustParse(t, server.URL).Host
		cfg := config.NewConfig()
		cfg.Sites = &config.File{
			Sites: map[string]config.SiteConfig{
				host: {
					Cookie:  "session=abc123",
					Headers: map[string]string{"Authorization": "Bearer token"},
				},
			},
		}
		client := newTestClient(t, cfg)

		if _, err := client.Fetch(context.Background(), mustParse(t, server.URL), false, nil); err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if gotAuth != "Bearer token" {
			t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer token")
		}
		if gotCookie != "session=abc123" {
			t.Errorf("Cookie = %q, want %q", gotCookie, "session=abc123")
		}
		if gotAgent != config.DefaultUserAgent {
			t.Errorf("User-Agent = %q, want %q", gotAgent, config.DefaultUserAgent)
		}
	})

	t.Run("caps the retained body at the configured size", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, strings.Repeat("x", 4096))
		}))
		defer server.Close()

		cfg := config.NewConfig()
		cfg.MaxBodySize = 1024
		client := newTestClient(t, cfg)

		result, err := client.Fetch(context.Background(), mustParse(t, server.URL), true, nil)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if len(result.Body) != 1024 {
			t.Errorf("len(Body) = %d, want 1024", len(result.Body))
		}
	})
}

func TestResultIsHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		want        bool
	}{
		{"text/html", true},
		{"text/html; charset=utf-8", true},
		{"application/xhtml+xml", true},
		{"TEXT/HTML", true},
		{"application/json", false},
		{"image/png", false},
		{"", false},
	}
	for _, tt := range tests {
		r := &Result{ContentType: tt.contentType}
		if got := r.IsHTML(); got != tt.want {
			t.Errorf("IsHTML() with %q = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}

func TestHostLimiter(t *testing.T) {
	t.Parallel()

	t.Run("spaces requests to one host by the delay", func(t *testing.T) {
		t.Parallel()

		limiter := NewHostLimiter(0)
		limiter.SetDelay("example.com", 100*time.Millisecond)

		ctx := context.Background()
		start := time.Now()
		for i := 0; i < 3; i++ {
			if err := limiter.Wait(ctx, "example.com"); err != nil {
				t.Fatalf("Wait() error = %v", err)
			}
		}
		if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
			t.Errorf("three waits took %v, want at least 200ms", elapsed)
		}
	})

	t.Run("does not pace unknown hosts with zero default", func(t *testing.T) {
		t.Parallel()

		limiter := NewHostLimiter(0)

		ctx := context.Background()
		start := time.Now()
		for i := 0; i < 10; i++ {
			if err := limiter.Wait(ctx, "fast.example.com"); err != nil {
				t.Fatalf("Wait() error = %v", err)
			}
		}
		if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
			t.Errorf("ten waits took %v, want nearly instant", elapsed)
		}
	})

	t.Run("keeps the first delay installed for a host", func(t *testing.T) {
		t.Parallel()

		limiter := NewHostLimiter(0)
		limiter.SetDelay("example.com", 10*time.Millisecond)
		limiter.SetDelay("example.com", time.Hour)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		start := time.Now()
		for i := 0; i < 2; i++ {
			if err := limiter.Wait(ctx, "example.com"); err != nil {
				t.Fatalf("Wait() error = %v", err)
			}
		}
		if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
			t.Errorf("two waits took %v, want the original short delay", elapsed)
		}
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		t.Parallel()

		limiter := NewHostLimiter(time.Hour)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		// First token is free; the second must wait an hour and should
		// fail with the context error.
		if err := limiter.Wait(ctx, "slow.example.com"); err != nil {
			t.Fatalf("first Wait() error = %v", err)
		}
		if err := limiter.Wait(ctx, "slow.example.com"); err == nil {
			t.Error("second Wait() error = nil, want context error")
		}
	})
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	// Closed immediately so connections to its address are refused.
	addr := server.URL
	server.Close()

	cfg := config.NewConfig()
	cfg.Timeout = time.Second
	client := newTestClient(t, cfg)

	t.Run("refused connection classifies as connection", func(t *testing.T) {
		_, err := client.Fetch(context.Background(), mustParse(t, addr), false, nil)
		if err == nil {
			t.Fatal("Fetch() error = nil, want connection error")
		}
		if kind := ErrorKind(err); kind != "connection" {
			t.Errorf("ErrorKind() = %q, want %q", kind, "connection")
		}
	})

	t.Run("unresolvable host classifies as dns", func(t *testing.T) {
		_, err := client.Fetch(context.Background(), mustParse(t, "http://no-such-host.invalid/"), false, nil)
		if err == nil {
			t.Fatal("Fetch() error = nil, want DNS error")
		}
		if kind := ErrorKind(err); kind != "dns" {
			t.Errorf("ErrorKind() = %q, want %q", kind, "dns")
		}
	})
}
