package store

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite. The uniqueness constraint on
// the key column is the engine's sole concurrency primitive: Claim maps to
// INSERT OR IGNORE and wins iff a row was inserted.
type SQLiteStore struct {
	db   *sql.DB
	kind Kind
}

// NewSQLite creates a SQLite-backed store.
// Use ":memory:" for an in-memory database (useful for testing).
func NewSQLite(path string, kind Kind) (*SQLiteStore, error) {
	dsn := path
	// Cross-process claims contend on the file; WAL plus a busy timeout
	// keeps INSERT OR IGNORE atomic without immediate SQLITE_BUSY failures.
	// These are passed in the DSN, not via a PRAGMA Exec, so that every
	// connection the pool opens (not just the first) picks them up.
	if path != ":memory:" {
		dsn = path + "?" + url.Values{
			"_pragma": {"busy_timeout(5000)", "journal_mode(WAL)"},
		}.Encode()
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every pool connection to ":memory:" would otherwise get its own
	// private database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	s := &SQLiteStore{db: db, kind: kind}
	if err := s.Init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Init creates the schema if it doesn't exist.
func (s *SQLiteStore) Init() error {
	var ddl string
	switch s.kind {
	case KindDedupe:
		ddl = `
			CREATE TABLE IF NOT EXISTS dedupe (
				hash TEXT PRIMARY KEY NOT NULL,
				path TEXT NOT NULL,
				seen_at INTEGER NOT NULL
			)`
	default:
		ddl = `
			CREATE TABLE IF NOT EXISTS session (
				path TEXT PRIMARY KEY NOT NULL,
				claimed_at INTEGER NOT NULL,
				status TEXT NOT NULL
			)`
	}
	_, err := s.db.Exec(ddl)
	return err
}

// Contains reports whether key is present.
func (s *SQLiteStore) Contains(key string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", s.table(), s.keyColumn()), key,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking key: %w", err)
	}
	return count > 0, nil
}

// Claim inserts key if absent. Returns true iff this caller inserted it.
func (s *SQLiteStore) Claim(key, note string) (bool, error) {
	var res sql.Result
	var err error
	now := time.Now().Unix()

	switch s.kind {
	case KindDedupe:
		res, err = s.db.Exec("INSERT OR IGNORE INTO dedupe (hash, path, seen_at) VALUES (?, ?, ?)", key, note, now)
	default:
		res, err = s.db.Exec("INSERT OR IGNORE INTO session (path, claimed_at, status) VALUES (?, ?, ?)", key, now, note)
	}
	if err != nil {
		return false, fmt.Errorf("claiming key: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claiming key: %w", err)
	}
	return n > 0, nil
}

// Count returns the number of entries.
func (s *SQLiteStore) Count() (int64, error) {
	var count int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + s.table()).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) table() string {
	if s.kind == KindDedupe {
		return "dedupe"
	}
	return "session"
}

func (s *SQLiteStore) keyColumn() string {
	if s.kind == KindDedupe {
		return "hash"
	}
	return "path"
}
