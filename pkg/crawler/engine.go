// Package crawler implements the crawl engine: file discovery, a worker
// pool with atomic claim/commit against the session store, depth-bounded
// nested expansion of container files, per-extraction deadlines, and record
// emission through the index writer.
package crawler

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/durck/crawl/pkg/classify"
	"github.com/durck/crawl/pkg/extract"
	"github.com/durck/crawl/pkg/record"
	"github.com/durck/crawl/pkg/scratch"
	"github.com/durck/crawl/pkg/stats"
	"github.com/durck/crawl/pkg/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Defaults applied by New when Config fields are zero.
const (
	DefaultWorkers      = 4
	DefaultMaxDepth     = 5
	DefaultTimeout      = 60 * time.Second
	DefaultImageTimeout = 120 * time.Second
	DefaultAudioTimeout = 300 * time.Second
	progressEvery       = 100
)

// AdapterSet resolves a class tag to its extractor adapter.
type AdapterSet interface {
	For(class string) extract.Adapter
}

// Config tunes the engine.
type Config struct {
	Workers      int
	MaxDepth     int
	Timeout      time.Duration // default extractor deadline
	ImageTimeout time.Duration
	AudioTimeout time.Duration
	MaxImages    int // fan-out cap for sparse-only expansions
	DedupeHash   string
}

// Deps are the engine's explicit collaborators. Dedupe may be nil to
// disable content deduplication.
type Deps struct {
	Target   Target
	Pred     *Predicate
	Session  store.Store
	Dedupe   store.Store
	Writer   *record.Writer
	Registry *classify.Registry
	Prober   classify.Prober
	Adapters AdapterSet
	Scratch  *scratch.Manager
	Stats    *stats.Stats
	Logger   *zap.Logger
}

// Engine crawls one target to completion.
type Engine struct {
	cfg  Config
	deps Deps
	log  *zap.Logger
}

// New creates an Engine, filling config defaults.
func New(cfg Config, deps Deps) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ImageTimeout <= 0 {
		cfg.ImageTimeout = DefaultImageTimeout
	}
	if cfg.AudioTimeout <= 0 {
		cfg.AudioTimeout = DefaultAudioTimeout
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Pred == nil {
		deps.Pred = &Predicate{}
	}
	return &Engine{cfg: cfg, deps: deps, log: deps.Logger}
}

// fileJob carries the per-file pipeline state downward through nested
// expansion: depth and parent identity are explicit values, never ambient.
type fileJob struct {
	read     string // path actually opened (a scratch member for nested files)
	physical string // path recorded on the emitted record
	url      string // logical URL
	name     string // basename used for the extension field
	depth    int
}

// Run crawls to completion or cancellation. Per-file errors are counted,
// never returned; the error result is reserved for failures that stop the
// engine (discovery of the root, index writer appends).
func (e *Engine) Run(ctx context.Context) (stats.Snapshot, error) {
	defer e.deps.Scratch.Shutdown()

	total, err := Count(e.deps.Target.Root, e.deps.Pred)
	if err != nil {
		return e.deps.Stats.Snapshot(), err
	}
	e.deps.Stats.SetTotal(total)
	e.log.Info("crawl starting",
		zap.String("root", e.deps.Target.Root),
		zap.Int64("files", total),
		zap.Int("workers", e.cfg.Workers))

	paths := make(chan string, e.cfg.Workers*2)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(paths)
		return Discover(gctx, e.deps.Target.Root, e.deps.Pred, paths, e.log)
	})

	for i := 0; i < e.cfg.Workers; i++ {
		g.Go(func() error {
			for path := range paths {
				if gctx.Err() != nil {
					return nil
				}
				if err := e.processTop(gctx, path); err != nil {
					return err
				}
			}
			return nil
		})
	}

	runErr := g.Wait()
	if flushErr := e.deps.Writer.Flush(); flushErr != nil && runErr == nil {
		runErr = flushErr
	}
	// Cooperative shutdown is not a failure; the session store stays
	// consistent because a claim is the commitment.
	if errors.Is(runErr, context.Canceled) && ctx.Err() != nil {
		runErr = nil
	}

	snap := e.deps.Stats.Snapshot()
	e.log.Info("crawl finished",
		zap.Int64("processed", snap.FilesProcessed),
		zap.Int64("skipped", snap.FilesSkipped),
		zap.Int64("errors", snap.FilesError),
		zap.Duration("elapsed", snap.Elapsed))
	return snap, runErr
}

// processTop claims a discovered path and runs the pipeline on it.
func (e *Engine) processTop(ctx context.Context, path string) error {
	won, err := e.deps.Session.Claim(path, "done")
	if err != nil {
		// Store I/O failure: report the file as an error and move on;
		// it will not be re-attempted this run.
		e.log.Warn("claim failed", zap.String("path", path), zap.Error(err))
		e.deps.Stats.AddError()
		return nil
	}
	if !won {
		e.deps.Stats.AddSkipped()
		return nil
	}

	err = e.processFile(ctx, fileJob{
		read:     path,
		physical: path,
		url:      e.deps.Target.URL(path),
		name:     filepath.Base(path),
	})

	if done := e.deps.Stats.Done(); done%progressEvery == 0 {
		snap := e.deps.Stats.Snapshot()
		e.log.Info("progress",
			zap.Int64("done", done),
			zap.Int64("total", snap.FilesTotal),
			zap.Int64("errors", snap.FilesError))
	}
	return err
}

// processFile runs classify → dedup → extract → nested expansion → emit for
// one file. Nested files re-enter here with depth and parent identity
// propagated through the job.
func (e *Engine) processFile(ctx context.Context, job fileJob) error {
	entry := e.classifyFile(ctx, job.read)

	if skip, err := e.dedupeSkip(job); err == nil && skip {
		e.deps.Stats.AddSkipped()
		return nil
	}

	var scratchDir string
	if entry.Scratch && job.depth < e.cfg.MaxDepth {
		dir, err := e.deps.Scratch.Acquire()
		if err != nil {
			e.log.Warn("scratch unavailable, expansion disabled", zap.Error(err))
		} else {
			scratchDir = dir
		}
	}

	tctx, cancel := context.WithTimeout(ctx, e.timeoutFor(entry.Timeout))
	text, xerr := e.deps.Adapters.For(entry.Class).Extract(tctx, job.read, scratchDir)
	cancel()

	failed := xerr != nil && ctx.Err() == nil
	timedOut := errors.Is(xerr, context.DeadlineExceeded)
	if failed {
		e.log.Warn("extraction failed",
			zap.String("path", job.physical),
			zap.String("class", entry.Class),
			zap.Bool("timeout", timedOut),
			zap.Error(xerr))
		text = ""
	}

	// A timed-out extractor may have half-filled the scratch directory;
	// timeouts are full failures, so nothing in it is trusted.
	var nestedErr error
	if scratchDir != "" && !timedOut && ctx.Err() == nil {
		nestedErr = e.expandNested(ctx, job, entry, scratchDir)
	}
	if scratchDir != "" {
		if err := e.deps.Scratch.Release(scratchDir); err != nil {
			e.log.Warn("scratch release failed", zap.Error(err))
		}
	}
	if nestedErr != nil {
		return nestedErr
	}

	// Global shutdown: the claim stands, but no record is emitted for a
	// file whose extraction was cancelled mid-flight.
	if ctx.Err() != nil {
		return nil
	}

	rec := record.Record{
		Timestamp: time.Now().Unix(),
		URL:       job.url,
		Path:      job.physical,
		Server:    e.deps.Target.Server,
		Share:     e.deps.Target.Share,
		Ext:       record.Ext(job.name),
		Class:     entry.Class,
		Content:   text,
	}
	if err := e.deps.Writer.Append(rec); err != nil {
		// Index writer failures are fatal: stop the run.
		return err
	}

	if failed {
		e.deps.Stats.AddError()
	} else {
		e.deps.Stats.AddProcessed()
	}
	return nil
}

func (e *Engine) classifyFile(ctx context.Context, path string) classify.Entry {
	mime, err := e.deps.Prober.MIME(ctx, path)
	if err != nil {
		e.log.Debug("mime probe failed", zap.String("path", path), zap.Error(err))
		return classify.Unknown
	}
	return e.deps.Registry.Resolve(mime)
}

// dedupeSkip hashes the file and claims the digest; losing the claim means
// an identical file was already emitted somewhere.
func (e *Engine) dedupeSkip(job fileJob) (bool, error) {
	if e.deps.Dedupe == nil {
		return false, nil
	}
	sum, err := hashFile(job.read, e.cfg.DedupeHash)
	if err != nil {
		return false, err
	}
	won, err := e.deps.Dedupe.Claim(sum, job.physical)
	if err != nil {
		e.log.Warn("dedupe claim failed", zap.String("path", job.physical), zap.Error(err))
		return false, err
	}
	return !won, nil
}

// expandNested walks the scratch directory and processes each regular file
// as if discovered afresh, with the parent's physical path and a #name URL
// suffix. The same worker runs the whole subtree, so a parent and its
// children land in one serial stream.
func (e *Engine) expandNested(ctx context.Context, parent fileJob, entry classify.Entry, dir string) error {
	limit := entry.Fanout
	if limit == 0 && entry.SparseOnly {
		limit = e.cfg.MaxImages
	}

	count := 0
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if limit > 0 && count >= limit {
			e.deps.Stats.AddNestedDropped()
			return nil
		}
		count++

		name := filepath.Base(path)
		return e.processFile(ctx, fileJob{
			read:     path,
			physical: parent.physical,
			url:      NestedURL(parent.url, name),
			name:     name,
			depth:    parent.depth + 1,
		})
	})
}

func (e *Engine) timeoutFor(category string) time.Duration {
	switch category {
	case "image":
		return e.cfg.ImageTimeout
	case "audio":
		return e.cfg.AudioTimeout
	}
	return e.cfg.Timeout
}
