package store

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Interface(t *testing.T) {
	var _ Store = (*SQLiteStore)(nil)
	var _ Store = (*TextStore)(nil)
}

func TestNew_Defaults(t *testing.T) {
	s, err := New(Config{Path: ":memory:"})
	require.NoError(t, err)
	require.NotNil(t, s)
	defer s.Close()
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(Config{Path: ":memory:", Backend: "redis"})
	require.Error(t, err)
}

func TestNew_MissingPath(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestSQLite_ClaimOnce(t *testing.T) {
	s, err := NewSQLite(":memory:", KindSession)
	require.NoError(t, err)
	defer s.Close()

	ok, err := s.Claim("/data/a.txt", "done")
	require.NoError(t, err)
	assert.True(t, ok)

	// Second claim of the same key loses.
	ok, err = s.Claim("/data/a.txt", "done")
	require.NoError(t, err)
	assert.False(t, ok)

	exists, err := s.Contains("/data/a.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSQLite_DedupeSchema(t *testing.T) {
	s, err := NewSQLite(":memory:", KindDedupe)
	require.NoError(t, err)
	defer s.Close()

	ok, err := s.Claim("d41d8cd98f00b204e9800998ecf8427e", "/data/a.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Claim("d41d8cd98f00b204e9800998ecf8427e", "/data/b.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLite_ClaimAtomicUnderConcurrency(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	s, err := NewSQLite(path, KindSession)
	require.NoError(t, err)
	defer s.Close()

	const workers = 16
	const keys = 50

	var wins [keys]int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < keys; k++ {
				ok, err := s.Claim(fmt.Sprintf("/data/%d", k), "done")
				if err != nil {
					t.Error(err)
					return
				}
				if ok {
					mu.Lock()
					wins[k]++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	// Exactly one winner per key.
	for k := 0; k < keys; k++ {
		assert.Equal(t, 1, wins[k], "key %d", k)
	}

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(keys), count)
}

func TestSQLite_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	s, err := NewSQLite(path, KindSession)
	require.NoError(t, err)
	_, err = s.Claim("/data/a.txt", "done")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopen and verify the claim survived.
	s2, err := NewSQLite(path, KindSession)
	require.NoError(t, err)
	defer s2.Close()

	ok, err := s2.Claim("/data/a.txt", "done")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestText_ClaimAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.txt")

	s, err := NewText(path)
	require.NoError(t, err)

	ok, err := s.Claim("/data/a.txt", "done")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Claim("/data/a.txt", "done")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, s.Close())

	s2, err := NewText(path)
	require.NoError(t, err)
	defer s2.Close()

	ok, err = s2.Claim("/data/a.txt", "done")
	require.NoError(t, err)
	assert.False(t, ok)

	count, err := s2.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestText_NoteWithSpaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dedupe.txt")
	s, err := NewText(path)
	require.NoError(t, err)
	defer s.Close()

	ok, err := s.Claim("abc123", "/data/with spaces.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	exists, err := s.Contains("abc123")
	require.NoError(t, err)
	assert.True(t, exists)
}
