// Package offline implements the versioned asset cache that keeps the
// application usable without network connectivity: a SQLite-backed store
// of cached responses grouped into per-version buckets, the
// install/activate lifecycle that manages those buckets, and the request
// interception that serves from them.
package offline

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS cache_entries (
	bucket    TEXT NOT NULL,
	url       TEXT NOT NULL,
	status    INTEGER NOT NULL,
	header    TEXT NOT NULL DEFAULT '{}',
	body      BLOB NOT NULL,
	stored_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (bucket, url)
);

CREATE INDEX IF NOT EXISTS idx_cache_entries_bucket ON cache_entries(bucket);
`

// Entry is one cached response keyed by request URL within a bucket.
type Entry struct {
	URL      string
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Store persists cache entries across restarts.
type Store struct {
	conn *sql.DB
}

// OpenStore opens (or creates) the cache database and applies the schema.
func OpenStore(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("offline: open cache db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("offline: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("offline: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Put inserts or replaces an entry in the given bucket.
func (s *Store) Put(bucket string, e Entry) error {
	headerJSON, _ := json.Marshal(e.Header)
	storedAt := e.StoredAt
	if storedAt.IsZero() {
		storedAt = time.Now().UTC()
	}
	_, err := s.conn.Exec(`
		INSERT INTO cache_entries (bucket, url, status, header, body, stored_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(bucket, url) DO UPDATE SET
			status    = excluded.status,
			header    = excluded.header,
			body      = excluded.body,
			stored_at = excluded.stored_at
	`, bucket, e.URL, e.Status, string(headerJSON), e.Body, storedAt)
	if err != nil {
		return fmt.Errorf("offline: put %s into %s: %w", e.URL, bucket, err)
	}
	return nil
}

// PutAll writes a batch of entries into bucket within one transaction, so
// a bucket is either fully populated or not created at all.
func (s *Store) PutAll(bucket string, entries []Entry) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("offline: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.Prepare(`
		INSERT INTO cache_entries (bucket, url, status, header, body, stored_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(bucket, url) DO UPDATE SET
			status    = excluded.status,
			header    = excluded.header,
			body      = excluded.body,
			stored_at = excluded.stored_at
	`)
	if err != nil {
		return fmt.Errorf("offline: prepare put: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, e := range entries {
		headerJSON, _ := json.Marshal(e.Header)
		storedAt := e.StoredAt
		if storedAt.IsZero() {
			storedAt = now
		}
		if _, err := stmt.Exec(bucket, e.URL, e.Status, string(headerJSON), e.Body, storedAt); err != nil {
			return fmt.Errorf("offline: put %s into %s: %w", e.URL, bucket, err)
		}
	}
	return tx.Commit()
}

// Match returns the entry cached under url in bucket, or nil when absent.
func (s *Store) Match(bucket, url string) (*Entry, error) {
	var (
		e          Entry
		headerJSON string
	)
	err := s.conn.QueryRow(`
		SELECT url, status, header, body, stored_at
		FROM cache_entries
		WHERE bucket = ? AND url = ?
	`, bucket, url).Scan(&e.URL, &e.Status, &headerJSON, &e.Body, &e.StoredAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("offline: match %s in %s: %w", url, bucket, err)
	}
	if err := json.Unmarshal([]byte(headerJSON), &e.Header); err != nil {
		e.Header = http.Header{}
	}
	return &e, nil
}

// Buckets returns the name of every bucket that holds at least one entry.
func (s *Store) Buckets() ([]string, error) {
	rows, err := s.conn.Query(`SELECT DISTINCT bucket FROM cache_entries ORDER BY bucket`)
	if err != nil {
		return nil, fmt.Errorf("offline: list buckets: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// URLs returns every cached request URL in bucket.
func (s *Store) URLs(bucket string) ([]string, error) {
	rows, err := s.conn.Query(`SELECT url FROM cache_entries WHERE bucket = ? ORDER BY url`, bucket)
	if err != nil {
		return nil, fmt.Errorf("offline: list urls: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// DeleteBucket removes every entry in bucket.
func (s *Store) DeleteBucket(bucket string) error {
	if _, err := s.conn.Exec(`DELETE FROM cache_entries WHERE bucket = ?`, bucket); err != nil {
		return fmt.Errorf("offline: delete bucket %s: %w", bucket, err)
	}
	return nil
}

// PruneExcept deletes every bucket other than keep. Returns the names of
// the deleted buckets.
func (s *Store) PruneExcept(keep string) ([]string, error) {
	buckets, err := s.Buckets()
	if err != nil {
		return nil, err
	}
	var pruned []string
	for _, b := range buckets {
		if b == keep {
			continue
		}
		if err := s.DeleteBucket(b); err != nil {
			return pruned, err
		}
		pruned = append(pruned, b)
	}
	return pruned, nil
}
