package record

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_BuffersUntilLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := NewWriter(WriterConfig{Path: path, BufferSize: 1 << 20})
	require.NoError(t, err)

	require.NoError(t, w.Append(Record{Timestamp: 1, URL: "a", Class: "text"}))

	// Below the limit, nothing is on disk yet.
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, w.Flush())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\n"))
}

func TestWriter_FlushOnThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := NewWriter(WriterConfig{Path: path, BufferSize: 16})
	require.NoError(t, err)

	require.NoError(t, w.Append(Record{Timestamp: 1, Content: strings.Repeat("x", 64)}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestWriter_ConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := NewWriter(WriterConfig{Path: path, BufferSize: 128})
	require.NoError(t, err)

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = w.Append(Record{Timestamp: int64(i), URL: "u", Path: "p", Class: "text", Content: "c"})
		}(i)
	}
	wg.Wait()
	require.NoError(t, w.Flush())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, n)
	for _, row := range rows {
		assert.Len(t, row, FieldCount)
	}
}

func TestWriter_FileLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := NewWriter(WriterConfig{Path: path, FileLock: true})
	require.NoError(t, err)
	require.NoError(t, w.Append(Record{Timestamp: 1}))
	require.NoError(t, w.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "smb_fs01_share.csv", OutputName("smb/fs01/share"))
	assert.Equal(t, "smb_fs01_share.csv", OutputName("/smb/fs01/share/"))
	assert.Equal(t, "local_data.csv", OutputName("local/data"))
	assert.Equal(t, "crawl.csv", OutputName("/"))
}

func TestStoreName(t *testing.T) {
	assert.Equal(t, ".smb_fs01_share.session.db", StoreName("smb/fs01/share", "session", "db"))
	assert.Equal(t, ".smb_fs01_share.dedupe.db", StoreName("smb/fs01/share", "dedupe", "db"))
}
