package sw

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	http "github.com/bogdanfinn/fhttp"
	_ "modernc.org/sqlite"

	apierrors "github.com/Memphis465/nova/internal/errors"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS caches (
	name       TEXT PRIMARY KEY,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS cache_entries (
	cache_name TEXT NOT NULL REFERENCES caches(name) ON DELETE CASCADE,
	url        TEXT NOT NULL,
	status     INTEGER NOT NULL,
	header     TEXT NOT NULL,
	body       BLOB NOT NULL,
	stored_at  TEXT NOT NULL,
	PRIMARY KEY (cache_name, url)
);`

// sortableTime keeps a fixed width so created_at orders lexically
const sortableTime = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStorage persists caches in a SQLite database so the offline copy
// survives restarts. Use ":memory:" for a throwaway database.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (or creates) the cache database at path
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Open(ctx context.Context, name string) (Cache, error) {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO caches (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING",
		name, time.Now().UTC().Format(sortableTime),
	)
	if err != nil {
		return nil, apierrors.NewCacheError("open", name, err)
	}
	return &sqliteCache{db: s.db, name: name}, nil
}

func (s *SQLiteStorage) Has(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM caches WHERE name = ?", name).Scan(&n)
	if err != nil {
		return false, apierrors.NewCacheError("has", name, err)
	}
	return n > 0, nil
}

func (s *SQLiteStorage) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM caches ORDER BY created_at, rowid")
	if err != nil {
		return nil, apierrors.NewCacheError("keys", "", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apierrors.NewCacheError("keys", "", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteStorage) Delete(ctx context.Context, name string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, apierrors.NewCacheError("delete", name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM cache_entries WHERE cache_name = ?", name); err != nil {
		return false, apierrors.NewCacheError("delete", name, err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM caches WHERE name = ?", name)
	if err != nil {
		return false, apierrors.NewCacheError("delete", name, err)
	}
	if err := tx.Commit(); err != nil {
		return false, apierrors.NewCacheError("delete", name, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLiteStorage) Match(ctx context.Context, url string) (*CachedResponse, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT e.url, e.status, e.header, e.body, e.stored_at
		FROM cache_entries e JOIN caches c ON c.name = e.cache_name
		WHERE e.url = ?
		ORDER BY c.created_at, c.rowid
		LIMIT 1`, url)
	return scanEntry(row, "")
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type sqliteCache struct {
	db   *sql.DB
	name string
}

func (c *sqliteCache) Put(ctx context.Context, entry *CachedResponse) error {
	header, err := json.Marshal(entry.Header)
	if err != nil {
		return apierrors.NewCacheError("put", c.name, err)
	}
	storedAt := entry.StoredAt
	if storedAt.IsZero() {
		storedAt = time.Now()
	}
	body := entry.Body
	if body == nil {
		body = []byte{}
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO cache_entries (cache_name, url, status, header, body, stored_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_name, url) DO UPDATE SET
			status = excluded.status,
			header = excluded.header,
			body = excluded.body,
			stored_at = excluded.stored_at`,
		c.name, entry.URL, entry.StatusCode, string(header), body,
		storedAt.UTC().Format(sortableTime),
	)
	if err != nil {
		return apierrors.NewCacheError("put", c.name, err)
	}
	return nil
}

func (c *sqliteCache) Match(ctx context.Context, url string) (*CachedResponse, error) {
	row := c.db.QueryRowContext(ctx,
		"SELECT url, status, header, body, stored_at FROM cache_entries WHERE cache_name = ? AND url = ?",
		c.name, url)
	return scanEntry(row, c.name)
}

func (c *sqliteCache) Delete(ctx context.Context, url string) (bool, error) {
	res, err := c.db.ExecContext(ctx,
		"DELETE FROM cache_entries WHERE cache_name = ? AND url = ?", c.name, url)
	if err != nil {
		return false, apierrors.NewCacheError("delete", c.name, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (c *sqliteCache) Keys(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT url FROM cache_entries WHERE cache_name = ? ORDER BY url", c.name)
	if err != nil {
		return nil, apierrors.NewCacheError("keys", c.name, err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, apierrors.NewCacheError("keys", c.name, err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

func scanEntry(row *sql.Row, cacheName string) (*CachedResponse, error) {
	var (
		entry    CachedResponse
		header   string
		storedAt string
	)
	err := row.Scan(&entry.URL, &entry.StatusCode, &header, &entry.Body, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierrors.ErrCacheMiss
	}
	if err != nil {
		return nil, apierrors.NewCacheError("match", cacheName, err)
	}

	entry.Header = http.Header{}
	if header != "" {
		if err := json.Unmarshal([]byte(header), &entry.Header); err != nil {
			return nil, apierrors.NewCacheError("match", cacheName, err)
		}
	}
	entry.StoredAt, _ = time.Parse(sortableTime, storedAt)
	return &entry, nil
}
