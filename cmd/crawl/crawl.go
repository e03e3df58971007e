package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/durck/crawl/pkg/classify"
	"github.com/durck/crawl/pkg/config"
	"github.com/durck/crawl/pkg/crawler"
	"github.com/durck/crawl/pkg/extract"
	"github.com/durck/crawl/pkg/record"
	"github.com/durck/crawl/pkg/scratch"
	"github.com/durck/crawl/pkg/stats"
	"github.com/durck/crawl/pkg/store"
)

var (
	crawlWorkers    int
	crawlSingle     bool
	crawlMinSize    int64
	crawlMaxSize    int64
	crawlNameGlob   string
	crawlNewerThan  time.Duration
	crawlOlderThan  time.Duration
	crawlLockOutput bool
	crawlOutputDir  string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl <root>",
	Short: "Crawl a directory tree and extract document text",
	Long: `Discover every regular file under the root, extract its text with a
format-specific adapter, and append one CSV record per file. Container
formats (archives, compound documents, mail, media) are expanded
recursively up to the configured depth. A session store makes the run
resumable; removing the hidden .<name>.session.db forces a full re-crawl.`,
	Args: cobra.ExactArgs(1),
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().IntVar(&crawlWorkers, "workers", 0, "Worker count (default: default-thread-count)")
	crawlCmd.Flags().BoolVar(&crawlSingle, "single", false, "Single-worker mode")
	crawlCmd.Flags().Int64Var(&crawlMinSize, "min-size", 0, "Skip files smaller than this many bytes")
	crawlCmd.Flags().Int64Var(&crawlMaxSize, "max-size", 0, "Skip files larger than this many bytes")
	crawlCmd.Flags().StringVar(&crawlNameGlob, "name", "", "Only files whose basename matches this glob")
	crawlCmd.Flags().DurationVar(&crawlNewerThan, "newer-than", 0, "Only files modified within this duration")
	crawlCmd.Flags().DurationVar(&crawlOlderThan, "older-than", 0, "Only files modified before this duration ago")
	crawlCmd.Flags().BoolVar(&crawlLockOutput, "lock-output", false, "flock the CSV around appends (multi-process output sharing)")
	crawlCmd.Flags().StringVar(&crawlOutputDir, "output-dir", ".", "Directory for the CSV and store files")

	// Config keys exposed as flag overrides.
	crawlCmd.Flags().String("exclude-dirs", "", "Comma-separated path substrings to exclude")
	crawlCmd.Flags().Int("max-recursion-depth", 5, "Nested expansion bound")
	crawlCmd.Flags().Int("command-timeout-seconds", 60, "Default extractor deadline")
	crawlCmd.Flags().String("temp-dir", "/tmp/crawl", "Scratch directory root")
	crawlCmd.Flags().Bool("ocr-disabled", false, "Skip all media expansion")
	crawlCmd.Flags().Bool("audio-disabled", false, "Skip audio transcription")
	crawlCmd.Flags().Bool("dedupe-enabled", false, "Suppress byte-identical duplicates")
	crawlCmd.Flags().String("dedupe-hash", "md5", "Dedup hash algorithm: md5, sha1, sha256")
	crawlCmd.Flags().String("session-backend", "sqlite", "Session store backend: sqlite or text")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	root := args[0]
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return fmt.Errorf("root is not a readable directory: %s", root)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	pred := buildPredicate(cfg, root)

	storeExt := "db"
	if cfg.SessionBackend == "text" {
		storeExt = "txt"
	}
	session, err := store.New(store.Config{
		Path:    filepath.Join(crawlOutputDir, record.StoreName(root, "session", storeExt)),
		Backend: cfg.SessionBackend,
		Kind:    store.KindSession,
	})
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer session.Close()

	var dedupe store.Store
	if cfg.DedupeEnabled {
		dedupe, err = store.New(store.Config{
			Path:    filepath.Join(crawlOutputDir, record.StoreName(root, "dedupe", storeExt)),
			Backend: cfg.SessionBackend,
			Kind:    store.KindDedupe,
		})
		if err != nil {
			return fmt.Errorf("opening dedupe store: %w", err)
		}
		defer dedupe.Close()
	}

	writer, err := record.NewWriter(record.WriterConfig{
		Path:       filepath.Join(crawlOutputDir, record.OutputName(root)),
		BufferSize: cfg.CSVBufferBytes,
		FileLock:   crawlLockOutput,
	})
	if err != nil {
		return err
	}

	mgr, err := scratch.NewManager(cfg.TempDir, logger)
	if err != nil {
		return err
	}

	registry, err := classify.LoadBuiltin()
	if err != nil {
		return err
	}

	prober := classify.FileProber{}
	adapters := extract.NewSet(extract.Config{
		OCRLanguages:  cfg.OCRLanguages,
		OCRMinText:    cfg.OCRMinText,
		OCRMaxImages:  cfg.OCRMaxImages,
		OCRDisabled:   cfg.OCRDisabled,
		AudioDisabled: cfg.AudioDisabled,
		ImagesDir:     cfg.ImagesDir,
	}, prober, logger)

	workers := cfg.DefaultThreadCount
	if crawlWorkers > 0 {
		workers = crawlWorkers
	}
	if crawlSingle {
		workers = 1
	}

	st := stats.New()
	engine := crawler.New(crawler.Config{
		Workers:    workers,
		MaxDepth:   cfg.MaxRecursionDepth,
		Timeout:    time.Duration(cfg.CommandTimeoutSeconds) * time.Second,
		MaxImages:  cfg.OCRMaxImages,
		DedupeHash: cfg.DedupeHash,
	}, crawler.Deps{
		Target:   crawler.ParseTarget(root),
		Pred:     pred,
		Session:  session,
		Dedupe:   dedupe,
		Writer:   writer,
		Registry: registry,
		Prober:   prober,
		Adapters: adapters,
		Scratch:  mgr,
		Stats:    st,
		Logger:   logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snap, err := engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	if ctx.Err() != nil {
		logger.Warn("crawl interrupted; claimed files will not be revisited on resume")
	}

	printSummary(cmd, writer.Path(), snap)
	return nil
}

func buildPredicate(cfg *config.Config, root string) *crawler.Predicate {
	pred := &crawler.Predicate{
		MinSize:     crawlMinSize,
		MaxSize:     crawlMaxSize,
		NameGlob:    crawlNameGlob,
		ExcludeDirs: cfg.ExcludeList(),
	}
	if crawlNewerThan > 0 {
		pred.ModifiedAfter = time.Now().Add(-crawlNewerThan)
	}
	if crawlOlderThan > 0 {
		pred.ModifiedBefore = time.Now().Add(-crawlOlderThan)
	}
	pred.LoadIgnore(root)
	return pred
}

func printSummary(cmd *cobra.Command, csvPath string, snap stats.Snapshot) {
	out := cmd.OutOrStdout()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(out, "Crawl complete in %s\n", snap.Elapsed.Round(time.Second))
	fmt.Fprintf(out, "  %s processed, %s skipped, %s errors (of %d discovered)\n",
		green(snap.FilesProcessed), yellow(snap.FilesSkipped), red(snap.FilesError), snap.FilesTotal)
	if snap.NestedDropped > 0 {
		fmt.Fprintf(out, "  %d nested files dropped by the fan-out cap\n", snap.NestedDropped)
	}
	fmt.Fprintf(out, "Records written to: %s\n", csvPath)
}
