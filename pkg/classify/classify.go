package classify

import (
	"context"
	"strings"

	"github.com/durck/crawl/pkg/extract/run"
)

// Prober determines a file's MIME type and whether it looks textual.
type Prober interface {
	MIME(ctx context.Context, path string) (string, error)
	IsText(ctx context.Context, path string) (bool, error)
}

// FileProber probes with the file(1) tool.
type FileProber struct{}

// MIME returns the MIME type reported by `file -b --mime-type`.
func (FileProber) MIME(ctx context.Context, path string) (string, error) {
	out, err := run.Command{Name: "file", Args: []string{"-b", "--mime-type", path}}.Output(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// IsText reports whether file(1) describes the content as text. Used by the
// unknown-class fallback to decide between a plain extraction and an empty
// record.
func (FileProber) IsText(ctx context.Context, path string) (bool, error) {
	out, err := run.Command{Name: "file", Args: []string{"-b", path}}.Output(ctx)
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToLower(string(out)), "text"), nil
}
