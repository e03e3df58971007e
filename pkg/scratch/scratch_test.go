package scratch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_AcquireRelease(t *testing.T) {
	m, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)

	dir, err := m.Acquire()
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, 1, m.Active())

	// Scratch contents are swept with the directory.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "member.txt"), []byte("x"), 0o600))

	require.NoError(t, m.Release(dir))
	assert.NoDirExists(t, dir)
	assert.Equal(t, 0, m.Active())
}

func TestManager_ReleaseUnknown(t *testing.T) {
	m, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)

	err = m.Release("/nonexistent/dir")
	require.Error(t, err)
}

func TestManager_UniqueNames(t *testing.T) {
	m, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)

	a, err := m.Acquire()
	require.NoError(t, err)
	b, err := m.Acquire()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestManager_ShutdownSweepsEverything(t *testing.T) {
	root := t.TempDir()
	m, err := NewManager(root, nil)
	require.NoError(t, err)

	var dirs []string
	for i := 0; i < 5; i++ {
		d, err := m.Acquire()
		require.NoError(t, err)
		dirs = append(dirs, d)
	}

	require.NoError(t, m.Shutdown())
	for _, d := range dirs {
		assert.NoDirExists(t, d)
	}
	assert.Equal(t, 0, m.Active())

	// Idempotent.
	require.NoError(t, m.Shutdown())
}

func TestNewManager_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "tmp")
	m, err := NewManager(root, nil)
	require.NoError(t, err)
	assert.DirExists(t, root)
	assert.Equal(t, root, m.Root())
}
