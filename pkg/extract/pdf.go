package extract

import (
	"context"
	"strconv"
	"strings"

	"github.com/durck/crawl/pkg/extract/run"
	"github.com/ledongthuc/pdf"
)

// extractPDF reads the text layer page by page. When the layer is sparse and
// expansion was requested, page images are dumped into scratch so the engine
// re-enters them through the OCR adapter.
func (s *Set) extractPDF(ctx context.Context, path, scratch string) (string, error) {
	text, err := pdfText(path)
	if err != nil {
		return "", err
	}

	if scratch != "" && !s.cfg.OCRDisabled && len(text) < s.cfg.OCRMinText {
		args := []string{"-j"}
		if s.cfg.OCRMaxImages > 0 {
			// pdfimages has no count cap; bound by pages instead.
			args = append(args, "-l", strconv.Itoa(s.cfg.OCRMaxImages))
		}
		args = append(args, path, scratch+"/img")
		// Best effort: a missing or failing pdfimages leaves the text
		// record intact.
		_ = run.Command{Name: "pdfimages", Args: args}.Run(ctx)
	}

	return text, nil
}

func pdfText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// Take what we can from the remaining pages.
			continue
		}
		b.WriteString(pageText)
		b.WriteByte(' ')
	}
	return Sanitize(b.String()), nil
}
