package crawler

import (
	"context"
	"io/fs"
	"path/filepath"

	"go.uber.org/zap"
)

// Count walks the tree once to estimate the total for progress reporting.
// The estimate is not a correctness input; discovery errors are tolerated
// the same way the real walk tolerates them.
func Count(root string, pred *Predicate) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if pred.SkipDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if pred.Match(path, info) {
			total++
		}
		return nil
	})
	return total, err
}

// Discover streams the regular files under root that pass the predicate.
// Enumeration order is unspecified. Unreadable subtrees are logged at WARN
// and skipped; only a missing root is fatal.
func Discover(ctx context.Context, root string, pred *Predicate, out chan<- string, logger *zap.Logger) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logger.Warn("discovery error, skipping subtree", zap.String("path", path), zap.Error(err))
			return nil
		}

		select {
		case <-ctx.Done():
			return filepath.SkipAll
		default:
		}

		if d.IsDir() {
			if pred.SkipDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			logger.Warn("stat failed", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !pred.Match(path, info) {
			return nil
		}

		select {
		case out <- path:
		case <-ctx.Done():
			return filepath.SkipAll
		}
		return nil
	})
}
