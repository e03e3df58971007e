// Package record defines the File Record emitted per crawled file and the
// CSV dialect it is written in: exactly eight comma-separated fields, the
// timestamp bare and every later field double-quoted with interior quotes
// doubled.
package record

import (
	"strconv"
	"strings"
)

// Record is one output row.
type Record struct {
	Timestamp int64  // Unix seconds at emission
	URL       string // logical URL (clickable; #name suffix for nested files)
	Path      string // physical path actually read (the container for nested files)
	Server    string
	Share     string
	Ext       string // filename suffix after the last dot, empty if none
	Class     string // closed class tag from the extractor registry
	Content   string // sanitized extracted text
}

// FieldCount is the fixed number of CSV fields per row.
const FieldCount = 8

// Encode renders the record as one CSV line including the trailing newline.
// Carriage returns, newlines and NULs are removed from every field before
// encoding; the content field is expected to arrive already sanitized by the
// adapter, so this is a backstop, not an escape.
func Encode(r Record) []byte {
	var b strings.Builder
	b.Grow(len(r.URL) + len(r.Path) + len(r.Content) + 64)

	b.WriteString(strconv.FormatInt(r.Timestamp, 10))
	for _, field := range []string{r.URL, r.Path, r.Server, r.Share, r.Ext, r.Class, r.Content} {
		b.WriteByte(',')
		b.WriteByte('"')
		b.WriteString(escape(field))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

func escape(s string) string {
	if strings.ContainsAny(s, "\"\r\n\x00") {
		var b strings.Builder
		b.Grow(len(s) + 2)
		for _, r := range s {
			switch r {
			case '"':
				b.WriteString(`""`)
			case '\r', '\n', 0:
				// stripped, not escaped
			default:
				b.WriteRune(r)
			}
		}
		return b.String()
	}
	return s
}

// Ext returns the filename extension without the dot, empty when the name
// has no dot, ends with one, or the last dot belongs to a directory or a
// hidden-file prefix.
func Ext(name string) string {
	i := strings.LastIndexByte(name, '.')
	j := strings.LastIndexByte(name, '/')
	if i < 0 || i == len(name)-1 || i <= j+1 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}
