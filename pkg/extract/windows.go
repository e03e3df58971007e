package extract

import (
	"context"

	"github.com/durck/crawl/pkg/extract/run"
)

// extractToolMetadata dumps file metadata with exiftool. It covers Windows
// shortcut (.lnk) targets and doubles as the metadata pass for media files.
func (s *Set) extractToolMetadata(ctx context.Context, path, scratch string) (string, error) {
	out, err := run.Command{Name: "exiftool", Args: []string{"-S", "-q", path}}.Output(ctx)
	if err != nil {
		return "", err
	}
	return Sanitize(string(out)), nil
}

// extractStrings dumps printable ASCII runs from a binary, the PE/ELF
// equivalent of strings(1).
func (s *Set) extractStrings(ctx context.Context, path, scratch string) (string, error) {
	data, err := readCapped(path, maxTextBytes)
	if err != nil {
		return "", err
	}
	return Sanitize(printableRuns(data, 6)), nil
}

// printableRuns collects runs of at least min printable ASCII bytes.
func printableRuns(data []byte, min int) string {
	var out []byte
	runStart := -1
	flush := func(end int) {
		if runStart >= 0 && end-runStart >= min {
			if len(out) > 0 {
				out = append(out, ' ')
			}
			out = append(out, data[runStart:end]...)
		}
		runStart = -1
	}
	for i, c := range data {
		if c >= 0x20 && c < 0x7f {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		flush(i)
	}
	flush(len(data))
	return string(out)
}

// extractThumbsDB unpacks Thumbs.db previews into scratch for OCR re-entry.
func (s *Set) extractThumbsDB(ctx context.Context, path, scratch string) (string, error) {
	if scratch == "" || s.cfg.OCRDisabled {
		return "", nil
	}
	out, err := run.Command{Name: "vinetto", Args: []string{"-o", scratch, path}}.Output(ctx)
	if err != nil {
		return "", err
	}
	return Sanitize(string(out)), nil
}

// extractEVTX dumps a Windows event log as JSON lines.
func (s *Set) extractEVTX(ctx context.Context, path, scratch string) (string, error) {
	out, err := run.Command{Name: "evtx_dump", Args: []string{"-o", "jsonl", "--no-confirm-overwrite", path}}.Output(ctx)
	if err != nil {
		return "", err
	}
	return Sanitize(string(out)), nil
}
