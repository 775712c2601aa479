// Package db persists build runs locally in sqlite and publishes
// documents to remote databases.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"dotaconstants/internal/feed"
	"dotaconstants/internal/storage"
	"dotaconstants/internal/transform"

	"github.com/bits-and-blooms/bloom/v3"
	_ "modernc.org/sqlite"
)

// ErrIndexOpen is returned when saving an upgrade index that is still
// being written.
var ErrIndexOpen = errors.New("upgrade index not sealed")

const (
	knownURLEstimate = 10000
	knownURLFPRate   = 0.001
)

// Store is the local build database: run history, document hashes, the
// upgrade value index of each run, and the feed cache used for
// conditional requests.
type Store struct {
	db *sql.DB

	// knownURLs holds every cached URL so misses skip the query.
	mu        sync.Mutex
	knownURLs *bloom.BloomFilter
}

// Open opens (or creates) the store at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, knownURLs: bloom.NewWithEstimates(knownURLEstimate, knownURLFPRate)}
	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.loadKnownURLs(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables(ctx context.Context) error {
	queries := []string{
		`PRAGMA journal_mode = WAL`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			status TEXT NOT NULL DEFAULT 'running',
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			run_id TEXT NOT NULL,
			name TEXT NOT NULL,
			size INTEGER NOT NULL,
			sha256 TEXT NOT NULL,
			PRIMARY KEY (run_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS upgrade_values (
			run_id TEXT NOT NULL,
			ability TEXT NOT NULL,
			attribute TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (run_id, ability, attribute)
		)`,
		`CREATE TABLE IF NOT EXISTS feed_cache (
			url TEXT PRIMARY KEY,
			etag TEXT NOT NULL DEFAULT '',
			last_modified TEXT NOT NULL DEFAULT '',
			body BLOB NOT NULL,
			fetched_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_name ON documents(name)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

func (s *Store) loadKnownURLs(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT url FROM feed_cache`)
	if err != nil {
		return fmt.Errorf("failed to load cached urls: %w", err)
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return err
		}
		s.knownURLs.AddString(url)
	}
	return rows.Err()
}

// LookupFeed returns the cached body and validators for url.
func (s *Store) LookupFeed(ctx context.Context, url string) (feed.CachedFeed, bool, error) {
	s.mu.Lock()
	known := s.knownURLs.TestString(url)
	s.mu.Unlock()
	if !known {
		return feed.CachedFeed{}, false, nil
	}

	f := feed.CachedFeed{URL: url}
	var fetchedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT etag, last_modified, body, fetched_at FROM feed_cache WHERE url = ?`, url,
	).Scan(&f.ETag, &f.LastModified, &f.Body, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return feed.CachedFeed{}, false, nil
	}
	if err != nil {
		return feed.CachedFeed{}, false, fmt.Errorf("lookup %s: %w", url, err)
	}
	f.FetchedAt, _ = time.Parse(time.RFC3339, fetchedAt)
	return f, true, nil
}

// StoreFeed saves a fetched body with its validators.
func (s *Store) StoreFeed(ctx context.Context, f feed.CachedFeed) error {
	fetchedAt := f.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO feed_cache (url, etag, last_modified, body, fetched_at) VALUES (?, ?, ?, ?, ?)`,
		f.URL, f.ETag, f.LastModified, f.Body, fetchedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("store %s: %w", f.URL, err)
	}

	s.mu.Lock()
	s.knownURLs.AddString(f.URL)
	s.mu.Unlock()
	return nil
}

// StartRun records the start of a run.
func (s *Store) StartRun(ctx context.Context, runID string, started time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		runID, started.UTC().Format(time.RFC3339))
	return err
}

// FinishRun records how a run ended.
func (s *Store) FinishRun(ctx context.Context, runID string, finished time.Time, runErr error) error {
	status, message := "succeeded", ""
	if runErr != nil {
		status, message = "failed", runErr.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, error = ? WHERE id = ?`,
		finished.UTC().Format(time.RFC3339), status, message, runID)
	return err
}

// SaveDocument records a written document.
func (s *Store) SaveDocument(ctx context.Context, runID string, doc storage.Document) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (run_id, name, size, sha256) VALUES (?, ?, ?, ?)`,
		runID, doc.Name, doc.Size, doc.SHA256)
	return err
}

// SaveUpgradeValues writes the sealed upgrade index of a run in one
// transaction.
func (s *Store) SaveUpgradeValues(ctx context.Context, runID string, index *transform.UpgradeIndex) error {
	if !index.Sealed() {
		return ErrIndexOpen
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO upgrade_values (run_id, ability, attribute, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, ability := range index.Abilities() {
		values, _ := index.Values(ability)
		for attr, value := range values {
			if _, err := stmt.ExecContext(ctx, runID, ability, attr, value); err != nil {
				return fmt.Errorf("failed to insert %s: %w", ability, err)
			}
		}
	}

	return tx.Commit()
}

// UpgradeValues reads back the upgrade index recorded for a run.
func (s *Store) UpgradeValues(ctx context.Context, runID string) (map[string]map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ability, attribute, value FROM upgrade_values WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]map[string]string)
	for rows.Next() {
		var ability, attr, value string
		if err := rows.Scan(&ability, &attr, &value); err != nil {
			return nil, err
		}
		if out[ability] == nil {
			out[ability] = make(map[string]string)
		}
		out[ability][attr] = value
	}
	return out, rows.Err()
}

// Run is one row of the run history.
type Run struct {
	ID        string
	Status    string
	Error     string
	Documents int
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.status, COALESCE(r.error, ''),
			(SELECT COUNT(*) FROM documents d WHERE d.run_id = r.id)
		FROM runs r ORDER BY r.started_at DESC, r.rowid DESC LIMIT 1`,
	).Scan(&r.ID, &r.Status, &r.Error, &r.Documents)
	return r, err
}
