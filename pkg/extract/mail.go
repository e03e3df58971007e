package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"path/filepath"
	"strings"

	"github.com/durck/crawl/pkg/extract/run"
)

var oleMagic = []byte{0xd0, 0xcf, 0x11, 0xe0}

// extractMessage handles mail: Outlook .msg is converted into an eml inside
// scratch for re-entry through this same adapter; rfc822 is parsed natively
// with attachments unpacked into scratch.
func (s *Set) extractMessage(ctx context.Context, p, scratch string) (string, error) {
	if head, err := readCapped(p, 4); err == nil && bytes.Equal(head, oleMagic) {
		return s.convertOutlookMsg(ctx, p, scratch)
	}
	return s.extractEML(p, scratch)
}

// convertOutlookMsg normalizes a .msg into an eml written to scratch. The
// record itself stays empty; the nested eml carries the content.
func (s *Set) convertOutlookMsg(ctx context.Context, p, scratch string) (string, error) {
	if scratch == "" {
		return "", nil
	}
	out := filepath.Join(scratch, "message.eml")
	err := run.Command{Name: "msgconvert", Args: []string{"--outfile", out, p}}.Run(ctx)
	if err != nil {
		return "", err
	}
	return "", nil
}

func (s *Set) extractEML(p, scratch string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()

	msg, err := mail.ReadMessage(f)
	if err != nil {
		return "", fmt.Errorf("parsing message: %w", err)
	}

	var b strings.Builder
	for _, h := range []string{"From", "To", "Cc", "Subject", "Date"} {
		if v := msg.Header.Get(h); v != "" {
			fmt.Fprintf(&b, "%s: %s ", h, decodeHeader(v))
		}
	}

	body, err := mailBody(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body, scratch, 0)
	if err == nil {
		b.WriteString(body)
	}
	return Sanitize(b.String()), nil
}

var headerDecoder = mime.WordDecoder{}

func decodeHeader(v string) string {
	if decoded, err := headerDecoder.DecodeHeader(v); err == nil {
		return decoded
	}
	return v
}

// mailBody walks the MIME structure collecting textual parts; attachments
// are decoded into scratch for nested processing.
func mailBody(contentType, transferEncoding string, r io.Reader, scratch string, depth int) (string, error) {
	if depth > 8 {
		return "", nil
	}
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return "", nil
		}
		mr := multipart.NewReader(r, boundary)
		var b strings.Builder
		for i := 0; ; i++ {
			part, err := mr.NextPart()
			if err != nil {
				break
			}
			filename := part.FileName()
			if filename != "" && scratch != "" {
				saveAttachment(part, filename, part.Header.Get("Content-Transfer-Encoding"), scratch, i)
				continue
			}
			text, err := mailBody(part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part, scratch, depth+1)
			if err == nil {
				b.WriteString(text)
				b.WriteByte(' ')
			}
		}
		return b.String(), nil
	}

	data, err := io.ReadAll(io.LimitReader(decodeTransfer(r, transferEncoding), maxTextBytes))
	if err != nil && len(data) == 0 {
		return "", err
	}

	switch {
	case mediaType == "text/html":
		return htmlToText(decodeToUTF8(data)), nil
	case strings.HasPrefix(mediaType, "text/"), mediaType == "message/rfc822":
		return decodeToUTF8(data), nil
	}
	return "", nil
}

func decodeTransfer(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	}
	return r
}

func saveAttachment(part io.Reader, filename, transferEncoding, scratch string, idx int) {
	data, err := io.ReadAll(io.LimitReader(decodeTransfer(part, transferEncoding), memberLimit))
	if err != nil && len(data) == 0 {
		return
	}
	name := fmt.Sprintf("att%d_%s", idx, filepath.Base(decodeHeader(filename)))
	_ = os.WriteFile(filepath.Join(scratch, name), data, 0o600)
}
