package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nao1215/linkhound/internal/cache"
	"github.com/nao1215/linkhound/internal/config"
	"github.com/nao1215/linkhound/internal/crawler"
	"github.com/nao1215/linkhound/internal/log"
	"github.com/nao1215/linkhound/internal/model"
	"github.com/nao1215/linkhound/internal/report"
	"github.com/spf13/cobra"
)

// errBrokenLinks marks a run that completed but found broken links. The
// report has already been written when this is returned; it only carries
// the non-zero exit status.
var errBrokenLinks = errors.New("broken links found")

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [url...]",
		Short: "Crawl a website and validate every discovered link",
		Long: `Check crawls a website starting from the given seed URLs, follows
every link it discovers on the seed hosts, and validates each one with
an HTTP request. The exit status is non-zero when any link is broken.

Examples:
  # Validate a whole site
  linkhound check https://example.com

  # Validate a fixed list of URLs without crawling
  linkhound check --list https://example.com/a https://example.com/b

  # Also validate links pointing at other hosts
  linkhound check --external https://example.com

  # Accept 403 in addition to the 2xx range (e.g. behind a login wall)
  linkhound check --accept 200,403 https://example.com

  # Persist results across runs in an on-disk cache
  linkhound check --cache https://example.com

  # Output JSON report to a file
  linkhound check --json -o report.json https://example.com

Configuration file (.linkhound) example:
  sites:
    docs.example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      depth: 3
      excludePatterns:
        - "/api/internal/.*"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCheckCmd,
	}

	// Crawl scope flags
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link recursion depth from a seed (0 validates seeds only)")
	cmd.Flags().BoolP("list", "l", false,
		"Treat arguments as a pre-enumerated URL list; no link extraction")
	cmd.Flags().Bool("external", false,
		"Also validate links pointing at other hosts (one hop, no recursion)")
	cmd.Flags().Bool("resources", false,
		"Also validate page resources (images, scripts, stylesheets, iframes)")
	cmd.Flags().StringArray("exclude", nil,
		"Regular expression for URLs to skip (repeatable)")

	// Validation flags
	cmd.Flags().IntSlice("accept", nil,
		"HTTP status codes treated as healthy (default: any 2xx)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Int("max-redirects", config.DefaultMaxRedirects,
		"Maximum redirect chain length per URL")

	// Politeness flags
	cmd.Flags().Bool("no-robots", false,
		"Ignore robots.txt rules and sitemaps")
	cmd.Flags().Duration("crawl-delay", 0,
		"Minimum delay between requests to the same host")
	cmd.Flags().Int("concurrency", 0,
		"Number of concurrent workers (default: derived from the file-descriptor limit)")
	cmd.Flags().Duration("deadline", 0,
		"Wall-clock budget for the whole run; unattempted URLs are reported as skipped")

	// Cache flags
	cmd.Flags().Bool("cache", false,
		"Persist validation outcomes in an on-disk cache across runs")
	cmd.Flags().String("cache-dir", "",
		"Directory for the on-disk cache (default: XDG cache directory)")
	cmd.Flags().Duration("cache-ttl", config.DefaultCacheTTL,
		"How long cached outcomes stay fresh (0 means forever)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .linkhound in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runCheckCmd executes the check command.
func runCheckCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging with credential redaction
	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCheck(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	// Get flag values
	var err error

	cfg.MaxDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}

	cfg.ListMode, err = cmd.Flags().GetBool("list")
	if err != nil {
		return nil, err
	}

	cfg.ValidateExternal, err = cmd.Flags().GetBool("external")
	if err != nil {
		return nil, err
	}

	cfg.CheckResources, err = cmd.Flags().GetBool("resources")
	if err != nil {
		return nil, err
	}

	cfg.ExcludePatterns, err = cmd.Flags().GetStringArray("exclude")
	if err != nil {
		return nil, err
	}

	cfg.AcceptedStatuses, err = cmd.Flags().GetIntSlice("accept")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.MaxRedirects, err = cmd.Flags().GetInt("max-redirects")
	if err != nil {
		return nil, err
	}

	noRobots, err := cmd.Flags().GetBool("no-robots")
	if err != nil {
		return nil, err
	}
	cfg.RespectRobots = !noRobots

	cfg.CrawlDelay, err = cmd.Flags().GetDuration("crawl-delay")
	if err != nil {
		return nil, err
	}

	// Zero means "auto": keep the file-descriptor-derived default.
	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}
	if concurrency > 0 {
		cfg.Concurrency = concurrency
	}

	cfg.Deadline, err = cmd.Flags().GetDuration("deadline")
	if err != nil {
		return nil, err
	}

	cfg.DurableCache, err = cmd.Flags().GetBool("cache")
	if err != nil {
		return nil, err
	}

	cfg.CacheDir, err = cmd.Flags().GetString("cache-dir")
	if err != nil {
		return nil, err
	}

	cfg.CacheTTL, err = cmd.Flags().GetDuration("cache-ttl")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.Sites, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		// User explicitly specified a config file that doesn't exist
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		// Use empty config if no file found and user didn't explicitly specify one
		cfg.Sites = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Get positional arguments (seed URLs)
	cfg.Seeds = args

	return cfg, nil
}

// runCheck executes the crawl and writes the report.
func runCheck(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := openCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close cache", "error", err)
		}
	}()

	engine, err := crawler.New(cfg, store, logger)
	if err != nil {
		return err
	}

	logger.Info("starting link check",
		"seeds", cfg.Seeds,
		"concurrency", cfg.Concurrency,
		"maxDepth", cfg.MaxDepth,
		"listMode", cfg.ListMode,
	)

	crawlReport, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	if err := outputReport(cfg, crawlReport); err != nil {
		return err
	}

	if !crawlReport.Success() {
		return errBrokenLinks
	}
	return nil
}

// openCache assembles the two-tier result cache. The in-memory tier is
// always present; the durable tier is added when --cache is set. Stale
// durable rows are pruned on startup so the database does not grow without
// bound.
func openCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Cache, error) {
	memory, err := cache.NewMemory(cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory cache: %w", err)
	}

	var durable cache.Cache
	if cfg.DurableCache {
		dir := cfg.CacheDir
		if dir == "" {
			dir = config.XDGCacheDir()
		}
		d, err := cache.Open(dir, cache.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open durable cache: %w", err)
		}
		if cfg.CacheTTL > 0 {
			if n, err := d.Prune(ctx, cfg.CacheTTL); err != nil {
				logger.Warn("failed to prune durable cache", "error", err)
			} else if n > 0 {
				logger.Debug("pruned stale cache entries", "count", n)
			}
		}
		logger.Info("durable cache opened", "dir", dir)
		durable = d
	}

	return cache.NewTwoTier(memory, durable, cfg.CacheTTL, logger), nil
}

// outputReport writes the crawl report in the requested format.
func outputReport(cfg *config.Config, crawlReport *model.CrawlReport) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Create/overwrite the output file with secure permissions (0600)
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	if _, err := w.Write(crawlReport); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
