// Package store provides the durable key sets behind the crawl engine's
// exactly-once and no-duplicate guarantees. A Store is a set of string keys
// (physical paths for the session set, hex digests for the dedup set) whose
// Claim operation is atomic: at most one caller ever wins a given key, across
// goroutines and across processes sharing the same backing file.
package store

import "fmt"

// Store is a durable string-keyed set.
// This interface abstracts the underlying storage implementation,
// allowing for different backends (SQLite, append-text).
type Store interface {
	// Init creates the backing schema. Idempotent.
	Init() error

	// Contains reports whether key is present.
	Contains(key string) (bool, error)

	// Claim inserts key if absent and reports whether the insert won.
	// note is stored alongside the key: the entry status for session
	// stores, the first-seen path for dedup stores.
	Claim(key, note string) (bool, error)

	// Count returns the number of entries.
	Count() (int64, error)

	// Close releases the backing resources.
	Close() error
}

// Kind selects the schema a SQLite store is created with.
type Kind string

const (
	// KindSession keys entries by physical path.
	KindSession Kind = "session"
	// KindDedupe keys entries by content hash.
	KindDedupe Kind = "dedupe"
)

// Config for store initialization.
type Config struct {
	// Path is the backing file path. Use ":memory:" for an in-memory
	// database (useful for testing).
	Path string

	// Backend is "sqlite" (default) or "text". The text backend is a
	// newline-delimited file guarded by an exclusive flock and is only
	// safe for single-process, single-worker runs.
	Backend string

	// Kind selects the session or dedupe schema.
	Kind Kind
}

// New creates a Store.
func New(cfg Config) (Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if cfg.Kind == "" {
		cfg.Kind = KindSession
	}

	switch cfg.Backend {
	case "", "sqlite":
		return NewSQLite(cfg.Path, cfg.Kind)
	case "text":
		return NewText(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}
