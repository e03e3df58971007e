package extract

import (
	"strings"
	"unicode"
)

// Sanitize makes extracted text CSV-friendly: commas and whitespace
// (newlines included) become spaces, other control characters such as NUL
// are dropped, runs of whitespace collapse to one space, and the result is
// trimmed. Printable unicode passes through.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true

	for _, r := range s {
		switch {
		case r == ',' || unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		case unicode.IsPrint(r):
			b.WriteRune(r)
			lastSpace = false
		}
	}

	return strings.TrimRight(b.String(), " ")
}
