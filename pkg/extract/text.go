package extract

import (
	"context"
	"fmt"
	"os"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// maxTextBytes bounds how much of a text file is read for extraction.
const maxTextBytes = 16 * 1024 * 1024

// extractPlainText reads a text file, converts it to UTF-8 using a detected
// charset, and sanitizes it.
func (s *Set) extractPlainText(ctx context.Context, path, scratch string) (string, error) {
	data, err := readCapped(path, maxTextBytes)
	if err != nil {
		return "", err
	}
	return Sanitize(decodeToUTF8(data)), nil
}

// decodeToUTF8 converts raw bytes to UTF-8, detecting the charset with
// chardet and falling back to a lossy UTF-8 interpretation.
func decodeToUTF8(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	det := chardet.NewTextDetector()
	res, err := det.DetectBest(data)
	if err == nil && res.Charset != "" && res.Charset != "UTF-8" {
		if enc, err := htmlindex.Get(res.Charset); err == nil && enc != nil {
			if decoded, err := enc.NewDecoder().Bytes(data); err == nil {
				return string(decoded)
			}
		}
		// chardet reports UTF-16 variants by name outside htmlindex.
		if decoded, ok := decodeUTF16(res.Charset, data); ok {
			return decoded
		}
	}
	return string(data)
}

func decodeUTF16(charset string, data []byte) (string, bool) {
	var enc unicode.Endianness
	switch charset {
	case "UTF-16LE":
		enc = unicode.LittleEndian
	case "UTF-16BE":
		enc = unicode.BigEndian
	default:
		return "", false
	}
	decoded, err := unicode.UTF16(enc, unicode.IgnoreBOM).NewDecoder().Bytes(data)
	if err != nil {
		return "", false
	}
	return string(decoded), true
}

// readCapped reads at most limit bytes of a file. A short read of a larger
// file is a successful partial extraction.
func readCapped(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	size := info.Size()
	if size > limit {
		size = limit
	}
	buf := make([]byte, size)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return buf[:n], nil
}
