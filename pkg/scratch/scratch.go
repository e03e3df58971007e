// Package scratch allocates per-file temporary directories and guarantees
// their removal on every exit path: normal completion, per-file error,
// extraction timeout, and signal-triggered shutdown.
package scratch

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager hands out uniquely-named directories under a temp root and tracks
// them in a cleanup set. Every Acquire must be paired with Release; Shutdown
// sweeps whatever is still registered.
type Manager struct {
	root   string
	logger *zap.Logger

	mu     sync.Mutex
	dirs   map[string]struct{}
	mounts []string
}

// NewManager creates a Manager rooted at dir, creating it if needed.
func NewManager(dir string, logger *zap.Logger) (*Manager, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating temp root: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		root:   dir,
		logger: logger,
		dirs:   make(map[string]struct{}),
	}, nil
}

// Root returns the temp root directory.
func (m *Manager) Root() string { return m.root }

// Acquire creates a new empty scratch directory and registers it for cleanup.
func (m *Manager) Acquire() (string, error) {
	dir := filepath.Join(m.root, "crawl-"+uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating scratch dir: %w", err)
	}

	m.mu.Lock()
	m.dirs[dir] = struct{}{}
	m.mu.Unlock()

	return dir, nil
}

// Release removes a scratch directory and deregisters it. Releasing a
// directory the manager does not own is an error.
func (m *Manager) Release(dir string) error {
	m.mu.Lock()
	_, ok := m.dirs[dir]
	delete(m.dirs, dir)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("unknown scratch dir: %s", dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing scratch dir: %w", err)
	}
	return nil
}

// RegisterMount records a mountpoint to unmount during Shutdown.
func (m *Manager) RegisterMount(target string) {
	m.mu.Lock()
	m.mounts = append(m.mounts, target)
	m.mu.Unlock()
}

// Active returns the number of currently registered scratch directories.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dirs)
}

// Shutdown unmounts registered mountpoints and removes every registered
// scratch directory. Safe to call more than once.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	dirs := make([]string, 0, len(m.dirs))
	for d := range m.dirs {
		dirs = append(dirs, d)
	}
	m.dirs = make(map[string]struct{})
	mounts := m.mounts
	m.mounts = nil
	m.mu.Unlock()

	var firstErr error
	for _, target := range mounts {
		if err := exec.Command("umount", target).Run(); err != nil {
			m.logger.Warn("unmount failed", zap.String("target", target), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	for _, d := range dirs {
		if err := os.RemoveAll(d); err != nil {
			m.logger.Warn("scratch cleanup failed", zap.String("dir", d), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
