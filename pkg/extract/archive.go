package extract

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/durck/crawl/pkg/extract/run"
)

// Archive formats handled natively; everything else (rar, msi, cab, ar)
// goes through bsdtar.
const (
	kindZip = iota
	kindGzip
	kindTar
	kindSevenZip
	kindOther
)

var sevenZipMagic = []byte{'7', 'z', 0xbc, 0xaf}

func sniffArchive(p string) int {
	f, err := os.Open(p)
	if err != nil {
		return kindOther
	}
	defer f.Close()

	head := make([]byte, 265)
	n, _ := io.ReadFull(f, head)
	head = head[:n]

	switch {
	case len(head) >= 4 && bytes.Equal(head[:4], zipMagic):
		return kindZip
	case len(head) >= 2 && head[0] == 0x1f && head[1] == 0x8b:
		return kindGzip
	case len(head) >= 4 && bytes.Equal(head[:4], sevenZipMagic):
		return kindSevenZip
	case len(head) >= 262 && bytes.Equal(head[257:262], []byte("ustar")):
		return kindTar
	}
	return kindOther
}

// extractArchive lists the archive's members as the record content and, when
// expansion was requested, unpacks them into scratch. The engine bounds
// depth and fan-out; the adapter only guards pathological member names and
// sizes.
func (s *Set) extractArchive(ctx context.Context, p, scratch string) (string, error) {
	var names []string
	var err error

	switch sniffArchive(p) {
	case kindZip:
		names, err = s.expandZip(p, scratch)
	case kindGzip:
		names, err = s.expandGzip(p, scratch)
	case kindTar:
		names, err = s.expandTar(ctx, p, scratch)
	case kindSevenZip:
		names, err = s.expandSevenZip(p, scratch)
	default:
		names, err = s.expandWithBsdtar(ctx, p, scratch)
	}
	if err != nil {
		return "", err
	}
	return Sanitize(strings.Join(names, " ")), nil
}

// extractPackage unpacks rpm and deb payloads; libarchive understands both.
func (s *Set) extractPackage(ctx context.Context, p, scratch string) (string, error) {
	names, err := s.expandWithBsdtar(ctx, p, scratch)
	if err != nil {
		return "", err
	}
	return Sanitize(strings.Join(names, " ")), nil
}

func (s *Set) expandZip(p, scratch string) ([]string, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("opening zip: %w", err)
	}
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		if scratch == "" || f.FileInfo().IsDir() {
			continue
		}
		data, err := readZipMember(f)
		if err != nil {
			continue
		}
		writeMember(scratch, f.Name, data)
	}
	return names, nil
}

func (s *Set) expandGzip(p, scratch string) ([]string, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("opening gzip: %w", err)
	}
	defer gz.Close()

	// A gzipped tar is a tar archive; anything else is a single member.
	head := make([]byte, 265)
	n, _ := io.ReadFull(gz, head)
	stream := io.MultiReader(bytes.NewReader(head[:n]), gz)

	if n >= 262 && bytes.Equal(head[257:262], []byte("ustar")) {
		return s.expandTarStream(stream, scratch)
	}

	name := gz.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(p), ".gz")
	}
	if scratch != "" {
		data, err := io.ReadAll(io.LimitReader(stream, memberLimit))
		if err == nil {
			writeMember(scratch, name, data)
		}
	}
	return []string{name}, nil
}

func (s *Set) expandTar(ctx context.Context, p, scratch string) ([]string, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return s.expandTarStream(f, scratch)
}

func (s *Set) expandTarStream(r io.Reader, scratch string) ([]string, error) {
	tr := tar.NewReader(r)
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Keep what was already listed from a truncated archive.
			break
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		names = append(names, hdr.Name)
		if scratch == "" {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(tr, memberLimit))
		if err != nil {
			continue
		}
		writeMember(scratch, hdr.Name, data)
	}
	return names, nil
}

func (s *Set) expandSevenZip(p, scratch string) ([]string, error) {
	sz, err := sevenzip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("opening 7z: %w", err)
	}
	defer sz.Close()

	var names []string
	for _, f := range sz.File {
		names = append(names, f.Name)
		if scratch == "" || f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(rc, memberLimit))
		rc.Close()
		if err != nil {
			continue
		}
		writeMember(scratch, f.Name, data)
	}
	return names, nil
}

// expandWithBsdtar handles the formats Go cannot read natively (rar, msi,
// cab, deb, rpm). Listing and extraction are separate invocations under the
// same deadline.
func (s *Set) expandWithBsdtar(ctx context.Context, p, scratch string) ([]string, error) {
	out, err := run.Command{Name: "bsdtar", Args: []string{"-t", "-f", p}}.Output(ctx)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}

	if scratch != "" {
		if err := (run.Command{Name: "bsdtar", Args: []string{"-x", "-f", p, "-C", scratch}}).Run(ctx); err != nil {
			return names, err
		}
	}
	return names, nil
}

// writeMember writes one extracted member under dir, refusing names that
// escape it.
func writeMember(dir, name string, data []byte) {
	clean := filepath.Clean(strings.TrimPrefix(name, "/"))
	if clean == "." || strings.HasPrefix(clean, "..") {
		return
	}
	dest := filepath.Join(dir, clean)
	if !strings.HasPrefix(dest, filepath.Clean(dir)+string(os.PathSeparator)) {
		return
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
		return
	}
	_ = os.WriteFile(dest, data, 0o600)
}
