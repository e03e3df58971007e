// Package crawl provides a filesystem document-text-extraction pipeline for
// security auditing.
//
// Given a mounted directory tree (an SMB/NFS share, a site mirror, or any
// local path), it discovers every regular file, extracts its text with a
// format-specific adapter, and appends one record per file to a CSV index.
// Container formats are expanded recursively; a session store makes runs
// resumable and an optional dedup store suppresses byte-identical copies.
//
// # Basic Usage
//
// Crawl a tree with default settings:
//
//	snap, csvPath, err := crawl.Run(ctx, "smb/fs01/share", crawl.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d files -> %s\n", snap.FilesProcessed, csvPath)
//
// The cmd/crawl command wraps this with layered configuration, the search
// index importer, and the read-only HTTP façade. Most integrations should
// construct the engine directly through pkg/crawler for full control over
// stores, adapters and predicates.
package crawl

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/durck/crawl/pkg/classify"
	"github.com/durck/crawl/pkg/crawler"
	"github.com/durck/crawl/pkg/extract"
	"github.com/durck/crawl/pkg/record"
	"github.com/durck/crawl/pkg/scratch"
	"github.com/durck/crawl/pkg/stats"
	"github.com/durck/crawl/pkg/store"
)

// Options tunes a library-driven crawl. Zero values select the defaults
// the CLI uses, except TempDir, which falls back to the system temp
// directory.
type Options struct {
	Workers       int
	MaxDepth      int
	DedupeEnabled bool
	DedupeHash    string
	TempDir       string
	OutputDir     string // CSV and store files land here; "." if empty
	Logger        *zap.Logger
}

// Run crawls root to completion and returns the final counters and the CSV
// path. It wires the default collaborators: SQLite session/dedup stores and
// the builtin extractor registry.
func Run(ctx context.Context, root string, opts Options) (stats.Snapshot, string, error) {
	var snap stats.Snapshot

	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	session, err := store.NewSQLite(filepath.Join(opts.OutputDir, record.StoreName(root, "session", "db")), store.KindSession)
	if err != nil {
		return snap, "", fmt.Errorf("opening session store: %w", err)
	}
	defer session.Close()

	var dedupe store.Store
	if opts.DedupeEnabled {
		d, err := store.NewSQLite(filepath.Join(opts.OutputDir, record.StoreName(root, "dedupe", "db")), store.KindDedupe)
		if err != nil {
			return snap, "", fmt.Errorf("opening dedupe store: %w", err)
		}
		defer d.Close()
		dedupe = d
	}

	csvPath := filepath.Join(opts.OutputDir, record.OutputName(root))
	writer, err := record.NewWriter(record.WriterConfig{Path: csvPath})
	if err != nil {
		return snap, "", err
	}

	mgr, err := scratch.NewManager(opts.TempDir, logger)
	if err != nil {
		return snap, "", err
	}

	registry, err := classify.LoadBuiltin()
	if err != nil {
		return snap, "", err
	}

	prober := classify.FileProber{}
	engine := crawler.New(crawler.Config{
		Workers:    opts.Workers,
		MaxDepth:   opts.MaxDepth,
		DedupeHash: opts.DedupeHash,
	}, crawler.Deps{
		Target:   crawler.ParseTarget(root),
		Session:  session,
		Dedupe:   dedupe,
		Writer:   writer,
		Registry: registry,
		Prober:   prober,
		Adapters: extract.NewSet(extract.Config{OCRDisabled: true}, prober, logger),
		Scratch:  mgr,
		Stats:    stats.New(),
		Logger:   logger,
	})

	snap, err = engine.Run(ctx)
	return snap, csvPath, err
}
