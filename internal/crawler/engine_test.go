package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/linkhound/internal/cache"
	"github.com/nao1215/linkhound/internal/config"
	"github.com/nao1215/linkhound/internal/fetcher"
	"github.com/nao1215/linkhound/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig(seeds ...string) *config.Config {
	cfg := config.NewConfig()
	cfg.Seeds = seeds
	cfg.Concurrency = 4
	cfg.Timeout = 5 * time.Second
	cfg.RespectRobots = false
	return cfg
}

func runEngine(t *testing.T, cfg *config.Config, store cache.Cache) *model.CrawlReport {
	t.Helper()
	engine, err := New(cfg, store, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	report, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return report
}

func entryFor(t *testing.T, report *model.CrawlReport, u string) model.ReportEntry {
	t.Helper()
	for _, entry := range report.Entries() {
		if string(entry.URL) == u {
			return entry
		}
	}
	t.Fatalf("no report entry for %s; have %v", u, report.Entries())
	return model.ReportEntry{}
}

func TestEngineRun(t *testing.T) {
	t.Parallel()

	t.Run("crawls a site and validates every link once", func(t *testing.T) {
		t.Parallel()

		var pageFetches atomic.Int32
		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		// Both / and /a link to /b; /b links back to /, a cycle.
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<a href="/a">a</a><a href="/b">b</a>`)
		})
		mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<a href="/b">b</a>`)
		})
		mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
			pageFetches.Add(1)
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<a href="/">home</a>`)
		})

		report := runEngine(t, newTestConfig(server.URL), nil)

		if !report.Success() {
			t.Errorf("Success() = false, want true: %v", report.Entries())
		}
		if got := report.Stats().Total; got != 3 {
			t.Errorf("Total = %d, want 3", got)
		}
		if got := pageFetches.Load(); got != 1 {
			t.Errorf("/b fetched %d times, want exactly once despite two referrers and a cycle", got)
		}

		entry := entryFor(t, report, server.URL+"/b")
		if len(entry.Referrers) != 2 {
			t.Errorf("/b referrers = %v, want both / and /a", entry.Referrers)
		}
	})

	t.Run("non-http links are reported as excluded without fetching", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<a href="ftp://files.example.com/readme">download</a>`)
		})

		report := runEngine(t, newTestConfig(server.URL), nil)

		if !report.Success() {
			t.Errorf("Success() = false, want true: %v", report.Entries())
		}
		entry := entryFor(t, report, "ftp://files.example.com/readme")
		if entry.Outcome.Kind != model.OutcomeExcluded {
			t.Errorf("outcome = %q, want %q", entry.Outcome.Kind, model.OutcomeExcluded)
		}
	})

	t.Run("broken links fail the run", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<a href="/gone">gone</a>`)
		})
		mux.HandleFunc("/gone", http.NotFound)

		report := runEngine(t, newTestConfig(server.URL), nil)

		if report.Success() {
			t.Error("Success() = true, want false with a 404 link")
		}
		entry := entryFor(t, report, server.URL+"/gone")
		if entry.Outcome.Kind != model.OutcomeRejected {
			t.Errorf("outcome = %q, want %q", entry.Outcome.Kind, model.OutcomeRejected)
		}
	})

	t.Run("accepted status set admits configured codes", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<a href="/members">members</a>`)
		})
		mux.HandleFunc("/members", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})

		cfg := newTestConfig(server.URL)
		cfg.AcceptedStatuses = []int{200, 403}
		report := runEngine(t, cfg, nil)

		if !report.Success() {
			t.Errorf("Success() = false, want true with 403 accepted: %v", report.Entries())
		}
	})

	t.Run("excluded URLs are never fetched", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<a href="/private/secret">secret</a>`)
		})
		mux.HandleFunc("/private/", func(w http.ResponseWriter, r *http.Request) {
			t.Error("excluded URL was fetched")
		})

		cfg := newTestConfig(server.URL)
		cfg.ExcludePatterns = []string{`/private/`}
		report := runEngine(t, cfg, nil)

		entry := entryFor(t, report, server.URL+"/private/secret")
		if entry.Outcome.Kind != model.OutcomeExcluded {
			t.Errorf("outcome = %q, want %q", entry.Outcome.Kind, model.OutcomeExcluded)
		}
		if !report.Success() {
			t.Error("Success() = false, want true: exclusions are not failures")
		}
	})

	t.Run("robots disallow is reported without fetching", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "User-agent: *\nDisallow: /admin/\n")
		})
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<a href="/admin/panel">admin</a>`)
		})
		mux.HandleFunc("/admin/", func(w http.ResponseWriter, r *http.Request) {
			t.Error("robots-disallowed URL was fetched")
		})

		cfg := newTestConfig(server.URL)
		cfg.RespectRobots = true
		report := runEngine(t, cfg, nil)

		entry := entryFor(t, report, server.URL+"/admin/panel")
		if entry.Outcome.Kind != model.OutcomeExcludedByRobots {
			t.Errorf("outcome = %q, want %q", entry.Outcome.Kind, model.OutcomeExcludedByRobots)
		}
	})

	t.Run("list mode validates without recursing", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<a href="/child">child</a>`)
		})
		mux.HandleFunc("/child", func(w http.ResponseWriter, r *http.Request) {
			t.Error("list mode followed a link")
		})

		cfg := newTestConfig(server.URL)
		cfg.ListMode = true
		report := runEngine(t, cfg, nil)

		if got := report.Stats().Total; got != 1 {
			t.Errorf("Total = %d, want 1 in list mode", got)
		}
	})

	t.Run("depth zero validates seeds only", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<a href="/deeper">deeper</a>`)
		})

		cfg := newTestConfig(server.URL)
		cfg.MaxDepth = 0
		report := runEngine(t, cfg, nil)

		if got := report.Stats().Total; got != 1 {
			t.Errorf("Total = %d, want 1 with depth 0", got)
		}
	})

	t.Run("external links validated one hop but not recursed", func(t *testing.T) {
		t.Parallel()

		external := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<a href="/beyond">beyond</a>`)
		}))
		defer external.Close()

		mux := http.NewServeMux()
		seed := httptest.NewServer(mux)
		defer seed.Close()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, `<a href="%s/landing">external</a>`, external.URL)
		})

		cfg := newTestConfig(seed.URL)
		cfg.ValidateExternal = true
		report := runEngine(t, cfg, nil)

		entry := entryFor(t, report, external.URL+"/landing")
		if entry.Outcome.Kind != model.OutcomeAccepted {
			t.Errorf("external outcome = %q, want %q", entry.Outcome.Kind, model.OutcomeAccepted)
		}
		// /beyond lives on the external host and must not be discovered.
		if got := report.Stats().Total; got != 2 {
			t.Errorf("Total = %d, want 2: seed page and external landing only", got)
		}
	})

	t.Run("external links ignored by default", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		seed := httptest.NewServer(mux)
		defer seed.Close()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<a href="https://elsewhere.invalid/page">external</a>`)
		})

		report := runEngine(t, newTestConfig(seed.URL), nil)
		if got := report.Stats().Total; got != 1 {
			t.Errorf("Total = %d, want 1 with external validation off", got)
		}
	})

	t.Run("cached outcome skips the network", func(t *testing.T) {
		t.Parallel()

		var fetches atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fetches.Add(1)
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "ok")
		}))
		defer server.Close()

		memory, err := cache.NewMemory(time.Minute)
		if err != nil {
			t.Fatalf("NewMemory() error = %v", err)
		}
		store := cache.NewTwoTier(memory, nil, time.Minute, testLogger())
		defer func() { _ = store.Close() }()

		cfg := newTestConfig(server.URL)
		first := runEngine(t, cfg, store)
		if !first.Success() {
			t.Fatalf("first run failed: %v", first.Entries())
		}

		second := runEngine(t, newTestConfig(server.URL), store)
		if got := fetches.Load(); got != 1 {
			t.Errorf("server fetched %d times across two runs, want 1", got)
		}
		entry := entryFor(t, second, server.URL+"/")
		if !entry.FromCache {
			t.Error("FromCache = false on second run, want true")
		}
	})

	t.Run("redirect into an excluded URL reports exclusion", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/private/land", http.StatusFound)
		})
		mux.HandleFunc("/private/", func(w http.ResponseWriter, r *http.Request) {
			t.Error("redirect target past the exclusion was fetched")
		})

		cfg := newTestConfig(server.URL)
		cfg.ExcludePatterns = []string{`/private/`}
		report := runEngine(t, cfg, nil)

		entry := entryFor(t, report, server.URL+"/")
		if entry.Outcome.Kind != model.OutcomeExcluded {
			t.Errorf("outcome = %q, want %q for a redirect into an excluded URL", entry.Outcome.Kind, model.OutcomeExcluded)
		}
	})

	t.Run("deadline drains the queue as skipped", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			for i := 0; i < 20; i++ {
				fmt.Fprintf(w, `<a href="/slow/%d">link</a>`, i)
			}
		})
		mux.HandleFunc("/slow/", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(5 * time.Second):
			case <-r.Context().Done():
			}
		})

		cfg := newTestConfig(server.URL)
		cfg.Concurrency = 2
		cfg.Deadline = 300 * time.Millisecond
		report := runEngine(t, cfg, nil)

		if got := report.Stats().Skipped; got == 0 {
			t.Errorf("Skipped = 0, want queued URLs reported as skipped: %+v", report.Stats())
		}
		if got := report.Stats().Total; got != 21 {
			t.Errorf("Total = %d, want all 21 URLs accounted for", got)
		}
	})

	t.Run("links discovered during shutdown are reported as skipped", func(t *testing.T) {
		t.Parallel()

		// The frontier can close between a worker claiming a freshly
		// discovered link and pushing it; that URL never reaches a worker
		// or Drain, so discovery itself must account for it.
		engine, err := New(newTestConfig("https://example.com/"), nil, testLogger())
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if _, err := engine.seed(); err != nil {
			t.Fatalf("seed() error = %v", err)
		}
		engine.frontier.Close()

		page, err := url.Parse("https://example.com/")
		if err != nil {
			t.Fatalf("url.Parse() error = %v", err)
		}
		engine.discover(model.CrawlTarget{URL: "https://example.com/"}, &fetcher.Result{
			StatusCode:  200,
			FinalURL:    page,
			ContentType: "text/html",
			Body:        []byte(`<a href="/late">late</a>`),
		})

		entry := entryFor(t, engine.report, "https://example.com/late")
		if entry.Outcome.Kind != model.OutcomeSkipped {
			t.Errorf("outcome = %q, want %q", entry.Outcome.Kind, model.OutcomeSkipped)
		}
	})

	t.Run("sitemap URLs become seeds", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, "User-agent: *\nDisallow:\nSitemap: %s/sitemap.xml\n", server.URL)
		})
		mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `<urlset><url><loc>%s/orphan</loc></url></urlset>`, server.URL)
		})
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "no links here")
		})
		mux.HandleFunc("/orphan", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		cfg := newTestConfig(server.URL)
		cfg.RespectRobots = true
		report := runEngine(t, cfg, nil)

		entry := entryFor(t, report, server.URL+"/orphan")
		if entry.Outcome.Kind != model.OutcomeAccepted {
			t.Errorf("sitemap-seeded outcome = %q, want %q", entry.Outcome.Kind, model.OutcomeAccepted)
		}
	})

	t.Run("invalid seed fails the run", func(t *testing.T) {
		t.Parallel()

		engine, err := New(newTestConfig("ftp://example.com/"), nil, testLogger())
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if _, err := engine.Run(context.Background()); err == nil {
			t.Error("Run() error = nil, want seed scheme error")
		}
	})
}
