package crawler

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFile is an optional gitignore-style pattern file honored at the
// crawl root.
const IgnoreFile = ".crawlignore"

// Predicate filters discovered files. The zero value accepts everything.
type Predicate struct {
	MinSize        int64
	MaxSize        int64
	NameGlob       string
	ModifiedAfter  time.Time
	ModifiedBefore time.Time
	ExcludeDirs    []string // substring exclusions applied to the path

	root   string
	ignore *gitignore.GitIgnore
}

// LoadIgnore compiles the root's ignore file into the predicate if present.
func (p *Predicate) LoadIgnore(root string) {
	p.root = root
	path := filepath.Join(root, IgnoreFile)
	if _, err := os.Stat(path); err == nil {
		p.ignore, _ = gitignore.CompileIgnoreFile(path)
	}
}

// SkipDir reports whether an entire directory subtree is excluded.
func (p *Predicate) SkipDir(path string) bool {
	return p.excludedPath(path + string(os.PathSeparator))
}

// Match reports whether a regular file passes the filters.
func (p *Predicate) Match(path string, info fs.FileInfo) bool {
	if p.excludedPath(path) {
		return false
	}
	if p.MinSize > 0 && info.Size() < p.MinSize {
		return false
	}
	if p.MaxSize > 0 && info.Size() > p.MaxSize {
		return false
	}
	if p.NameGlob != "" {
		if ok, err := filepath.Match(p.NameGlob, filepath.Base(path)); err != nil || !ok {
			return false
		}
	}
	if !p.ModifiedAfter.IsZero() && info.ModTime().Before(p.ModifiedAfter) {
		return false
	}
	if !p.ModifiedBefore.IsZero() && info.ModTime().After(p.ModifiedBefore) {
		return false
	}
	if p.ignore != nil && p.root != "" {
		if rel, err := filepath.Rel(p.root, path); err == nil && p.ignore.MatchesPath(rel) {
			return false
		}
	}
	return true
}

func (p *Predicate) excludedPath(path string) bool {
	for _, sub := range p.ExcludeDirs {
		if sub != "" && strings.Contains(path, sub) {
			return true
		}
	}
	return false
}
