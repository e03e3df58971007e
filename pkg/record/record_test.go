package record

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_FieldCountAndQuoting(t *testing.T) {
	r := Record{
		Timestamp: 1700000000,
		URL:       "local/data/notes.txt",
		Path:      "local/data/notes.txt",
		Server:    "",
		Share:     "",
		Ext:       "txt",
		Class:     "text",
		Content:   `hello world "quote"`,
	}

	line := string(Encode(r))
	assert.Equal(t,
		`1700000000,"local/data/notes.txt","local/data/notes.txt","","","txt","text","hello world ""quote"""`+"\n",
		line)

	// The dialect is valid CSV: the stdlib reader round-trips it.
	rows, err := csv.NewReader(strings.NewReader(line)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Len(t, rows[0], FieldCount)
	assert.Equal(t, `hello world "quote"`, rows[0][7])
}

func TestEncode_AdversarialContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"embedded quotes", `a"b"c`, `a""b""c`},
		{"newlines stripped", "a\nb\r\nc", "abc"},
		{"nuls stripped", "a\x00b", "ab"},
		{"unicode preserved", "п@роль café", "п@роль café"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := string(Encode(Record{Timestamp: 1, Content: tt.content}))
			assert.True(t, strings.HasSuffix(line, `,"`+tt.want+`"`+"\n"), "line: %q", line)
			assert.NotContains(t, line[:len(line)-1], "\n")
		})
	}
}

func TestEncode_SeparatorCountConsistent(t *testing.T) {
	// Quoted fields may contain anything except raw newlines; the parsed
	// field count must stay 8 regardless.
	r := Record{Timestamp: 2, URL: "a", Path: "b", Content: `x"",y`}
	rows, err := csv.NewReader(strings.NewReader(string(Encode(r)))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows[0], FieldCount)
	assert.Equal(t, `x"",y`, rows[0][7])
}

func TestExt(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"report.PDF", "pdf"},
		{"archive.tar.gz", "gz"},
		{"noext", ""},
		{"trailing.", ""},
		{"dir.d/file", ""},
		{".hidden", ""},
		{"a/b/.hidden", ""},
		{"a/b/c.txt", "txt"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Ext(tt.name), "name %q", tt.name)
	}
}
