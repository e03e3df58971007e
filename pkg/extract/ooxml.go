package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/durck/crawl/pkg/extract/run"
	"go.uber.org/zap"
)

// zipMagic marks zip-based formats (docx, xlsx, pptx, odf, jar...).
var zipMagic = []byte{'P', 'K', 0x03, 0x04}

func isZipFile(p string) bool {
	f, err := os.Open(p)
	if err != nil {
		return false
	}
	defer f.Close()
	head := make([]byte, 4)
	if _, err := io.ReadFull(f, head); err != nil {
		return false
	}
	return bytes.Equal(head, zipMagic)
}

// extractWord handles both OLE-era .doc (antiword) and packaged .docx/.odt.
func (s *Set) extractWord(ctx context.Context, p, scratch string) (string, error) {
	if isZipFile(p) {
		return s.packagedOfficeText(ctx, p, scratch, wordXML)
	}

	out, err := run.Command{Name: "antiword", Args: []string{"-t", p}}.Output(ctx)
	if errors.Is(err, run.ErrToolMissing) {
		out, err = run.Command{Name: "catdoc", Args: []string{p}}.Output(ctx)
	}
	if err != nil {
		return "", err
	}
	return Sanitize(decodeToUTF8(out)), nil
}

// extractExcel handles OLE-era .xls (xls2csv) and packaged .xlsx/.ods.
func (s *Set) extractExcel(ctx context.Context, p, scratch string) (string, error) {
	if isZipFile(p) {
		return s.packagedOfficeText(ctx, p, scratch, excelXML)
	}

	out, err := run.Command{Name: "xls2csv", Args: []string{p}}.Output(ctx)
	if err != nil {
		return "", err
	}
	return Sanitize(decodeToUTF8(out)), nil
}

// extractOOXML builds an adapter for packaged formats whose document XML
// lives under the given part prefix (pptx slides, visio pages).
func (s *Set) extractOOXML(prefix string) func(context.Context, string, string) (string, error) {
	filter := func(name string) bool {
		if name == "content.xml" {
			return true
		}
		return strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".xml")
	}
	return func(ctx context.Context, p, scratch string) (string, error) {
		return s.packagedOfficeText(ctx, p, scratch, filter)
	}
}

func wordXML(name string) bool {
	switch {
	case name == "word/document.xml", name == "content.xml":
		return true
	case strings.HasPrefix(name, "word/header"), strings.HasPrefix(name, "word/footer"):
		return strings.HasSuffix(name, ".xml")
	}
	return false
}

func excelXML(name string) bool {
	switch {
	case name == "xl/sharedStrings.xml", name == "content.xml":
		return true
	case strings.HasPrefix(name, "xl/worksheets/sheet"):
		return strings.HasSuffix(name, ".xml")
	}
	return false
}

// packagedOfficeText pulls the text of a zip-over-xml document and, when the
// text is sparse, copies embedded media into scratch for OCR re-entry.
func (s *Set) packagedOfficeText(ctx context.Context, p, scratch string, filter func(string) bool) (string, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return "", fmt.Errorf("opening package: %w", err)
	}
	defer zr.Close()

	var parts []string
	for _, f := range zr.File {
		if !filter(f.Name) {
			continue
		}
		data, err := readZipMember(f)
		if err != nil {
			continue
		}
		if text := xmlText(data); text != "" {
			parts = append(parts, text)
		}
	}
	text := Sanitize(strings.Join(parts, " "))

	if scratch != "" && !s.cfg.OCRDisabled && len(text) < s.cfg.OCRMinText {
		s.copyPackageMedia(&zr.Reader, scratch)
	}
	return text, nil
}

// HasMedia reports whether a packaged document embeds any media members.
func HasMedia(p string) bool {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return false
	}
	defer zr.Close()
	for _, f := range zr.File {
		if isMediaMember(f.Name) {
			return true
		}
	}
	return false
}

// copyPackageMedia writes embedded images into scratch, bounded by the OCR
// fan-out cap.
func (s *Set) copyPackageMedia(zr *zip.Reader, scratch string) {
	count := 0
	for _, f := range zr.File {
		if !isMediaMember(f.Name) {
			continue
		}
		if s.cfg.OCRMaxImages > 0 && count >= s.cfg.OCRMaxImages {
			return
		}
		data, err := readZipMember(f)
		if err != nil {
			continue
		}
		name := fmt.Sprintf("img%d_%s", count, path.Base(f.Name))
		if err := os.WriteFile(filepath.Join(scratch, name), data, 0o600); err != nil {
			s.logger.Debug("media copy failed", zap.String("member", f.Name), zap.Error(err))
			continue
		}
		count++
	}
}

func isMediaMember(name string) bool {
	dir := path.Dir(name)
	if !strings.HasSuffix(dir, "media") && path.Base(dir) != "Pictures" {
		return false
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".emf", ".wmf":
		return true
	}
	return false
}

// memberLimit bounds a single decompressed zip member.
const memberLimit = 64 * 1024 * 1024

func readZipMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, memberLimit))
}

// xmlText collects the character data of an XML document, space-joined.
func xmlText(data []byte) string {
	var b strings.Builder
	dec := xml.NewDecoder(bytes.NewReader(data))
	// Office parts occasionally declare legacy charsets.
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if cd, ok := tok.(xml.CharData); ok {
			chunk := strings.TrimSpace(string(cd))
			if chunk != "" {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(chunk)
			}
		}
	}
	return b.String()
}
