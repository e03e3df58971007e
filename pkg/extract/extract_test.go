package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	mime   string
	isText bool
}

func (p fakeProber) MIME(ctx context.Context, path string) (string, error) { return p.mime, nil }
func (p fakeProber) IsText(ctx context.Context, path string) (bool, error) {
	return p.isText, nil
}

func TestSet_ForKnownClasses(t *testing.T) {
	s := newTestSet(Config{})
	for _, class := range []string{
		"html", "text", "word", "excel", "powerpoint", "visio", "pdf",
		"lnk", "executable", "image", "audio", "video", "thumbsdb",
		"archive", "package", "bytecode", "winevent", "message",
		"sqlite", "pcap", "raw", "unknown",
	} {
		assert.NotNil(t, s.For(class), "class %s", class)
	}
}

func TestSet_ForUnlistedFallsBackToUnknown(t *testing.T) {
	s := NewSet(Config{}, fakeProber{isText: false}, nil)
	text, err := s.For("no-such-class").Extract(context.Background(), "/nonexistent", "")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtractRaw_Empty(t *testing.T) {
	s := newTestSet(Config{})
	text, err := s.extractRaw(context.Background(), "/anything", "")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtractUnknown_TextualFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mystery")
	require.NoError(t, os.WriteFile(path, []byte("plain, readable content"), 0o600))

	s := NewSet(Config{}, fakeProber{isText: true}, nil)
	text, err := s.extractUnknown(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, "plain readable content", text)
}

func TestExtractUnknown_BinaryStaysEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mystery")
	require.NoError(t, os.WriteFile(path, []byte{0x7f, 'E', 'L', 'F', 0, 1, 2}, 0o600))

	s := NewSet(Config{}, fakeProber{isText: false}, nil)
	text, err := s.extractUnknown(context.Background(), path, "")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtractPlainText_UTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello,world\n\"quote\""), 0o600))

	s := newTestSet(Config{})
	text, err := s.extractPlainText(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, `hello world "quote"`, text)
}

func TestExtractHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	html := `<html><head><title>Login</title><style>.x{}</style></head><body><h1>Portal</h1><script>var s=1;</script><p>user &amp; pass</p></body></html>`
	require.NoError(t, os.WriteFile(path, []byte(html), 0o600))

	s := newTestSet(Config{})
	text, err := s.extractHTML(context.Background(), path, "")
	require.NoError(t, err)
	assert.Contains(t, text, "Portal")
	assert.Contains(t, text, "user & pass")
	assert.NotContains(t, text, "var s=1")
	assert.NotContains(t, text, ".x{}")
}

func TestPrintableRuns(t *testing.T) {
	data := []byte("\x00\x01short\x00this is a longer run\x02tiny\x00another long string here")
	out := printableRuns(data, 6)
	assert.Contains(t, out, "this is a longer run")
	assert.Contains(t, out, "another long string here")
	assert.NotContains(t, out, "short")
	assert.NotContains(t, out, "tiny")
}

func TestExtractStrings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bin")
	require.NoError(t, os.WriteFile(path, []byte("\x7fELF\x00\x00embedded-secret-token\x00\x01"), 0o600))

	s := newTestSet(Config{})
	text, err := s.extractStrings(context.Background(), path, "")
	require.NoError(t, err)
	assert.Contains(t, text, "embedded-secret-token")
}

func TestExtractSQLite_DumpsTables(t *testing.T) {
	// Build a database through the same driver the adapter reads with.
	path := filepath.Join(t.TempDir(), "app.db")
	seedSQLite(t, path)

	s := newTestSet(Config{})
	text, err := s.extractSQLite(context.Background(), path, "")
	require.NoError(t, err)
	assert.Contains(t, text, "users")
	assert.Contains(t, text, "alice")
	assert.Contains(t, text, "s3cret")
}
