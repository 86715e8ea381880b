package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/linkhound/internal/model"
)

// dbFileName is the durable cache file inside the cache directory.
const dbFileName = "linkhound.db"

// Durable is the on-disk cache tier, a single SQLite file holding one row
// per normalized URL.
//
// Design decision: outcomes are stored as an opaque encoded blob plus a
// queryable recorded_at column rather than one column per outcome field.
// The blob keeps both tiers on one format; recorded_at alone is enough
// for pruning, which is the only query that looks inside an entry.
type Durable struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures Durable behavior.
type Options struct {
	// CreateIfNotExists creates the cache directory and database file if
	// they don't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance. Recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default durable-cache options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the durable cache in the given directory.
// If CreateIfNotExists is false and no database exists there, an error is
// returned.
func Open(dir string, opts Options) (*Durable, error) {
	dbPath := filepath.Join(dir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("cache database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("check cache path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	// SQLite supports only one writer; a single pooled connection avoids
	// SQLITE_BUSY churn from concurrent workers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	d := &Durable{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	if err := d.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return d, nil
}

func (d *Durable) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS outcomes (
		url TEXT PRIMARY KEY,
		entry BLOB NOT NULL,
		recorded_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_recorded_at ON outcomes(recorded_at);
	`
	_, err := d.db.ExecContext(context.Background(), schema)
	return err
}

// Get implements Cache. A row whose blob no longer decodes, for example
// after an entry format change, is removed and reported as a miss.
func (d *Durable) Get(ctx context.Context, url model.NormalizedURL) (model.CacheEntry, bool, error) {
	var data []byte
	err := d.db.QueryRowContext(ctx,
		"SELECT entry FROM outcomes WHERE url = ?", string(url)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CacheEntry{}, false, nil
	}
	if err != nil {
		return model.CacheEntry{}, false, fmt.Errorf("query cache entry: %w", err)
	}

	entry, err := decode(data)
	if err != nil {
		_, _ = d.db.ExecContext(ctx, "DELETE FROM outcomes WHERE url = ?", string(url))
		return model.CacheEntry{}, false, nil
	}
	return entry, true, nil
}

// Put implements Cache, upserting the URL's row.
func (d *Durable) Put(ctx context.Context, url model.NormalizedURL, entry model.CacheEntry) error {
	data, err := encode(entry)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO outcomes (url, entry, recorded_at)
	VALUES (?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		entry = excluded.entry,
		recorded_at = excluded.recorded_at
	`
	if _, err := d.db.ExecContext(ctx, query, string(url), data, entry.RecordedAt.Unix()); err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	return nil
}

// Prune deletes entries recorded before the cutoff, keeping the database
// file from growing without bound across runs.
func (d *Durable) Prune(ctx context.Context, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-ttl).Unix()
	result, err := d.db.ExecContext(ctx, "DELETE FROM outcomes WHERE recorded_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	return result.RowsAffected()
}

// Len returns the number of stored entries.
func (d *Durable) Len(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM outcomes").Scan(&n); err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return n, nil
}

// Close implements Cache.
func (d *Durable) Close() error {
	return d.db.Close()
}
