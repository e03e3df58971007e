// Package extract implements the per-class extractor adapters. An adapter
// turns one file into CSV-ready text and, for container formats, populates a
// scratch directory with nested files for the engine to re-enter.
//
// Adapters never touch engine state. External tools run through the run
// subpackage so a deadline kills the whole process group.
package extract

import (
	"context"

	"github.com/durck/crawl/pkg/classify"
	"go.uber.org/zap"
)

// Adapter extracts text from a single file. When scratch is non-empty the
// adapter may write nested files into it; an empty scratch means the engine
// did not request expansion (depth limit reached, or the class never
// expands). Returned text must already be sanitized.
type Adapter interface {
	Extract(ctx context.Context, path, scratch string) (string, error)
}

// Func adapts a function to the Adapter interface.
type Func func(ctx context.Context, path, scratch string) (string, error)

func (f Func) Extract(ctx context.Context, path, scratch string) (string, error) {
	return f(ctx, path, scratch)
}

// Config tunes adapter behavior.
type Config struct {
	OCRLanguages  []string // ordered tesseract/whisper language list
	OCRMinText    int      // sparse-text threshold in characters
	OCRMaxImages  int      // per-document media fan-out cap
	OCRDisabled   bool     // skip all media expansion
	AudioDisabled bool     // skip speech transcription
	ImagesDir     string   // save image thumbnails here when set
}

// Set maps class tags to adapters.
type Set struct {
	cfg      Config
	logger   *zap.Logger
	prober   classify.Prober
	adapters map[string]Adapter
}

// NewSet builds the canonical adapter families. The prober backs the
// unknown-class fallback's is-it-text probe.
func NewSet(cfg Config, prober classify.Prober, logger *zap.Logger) *Set {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.OCRMinText <= 0 {
		cfg.OCRMinText = 100
	}

	s := &Set{cfg: cfg, logger: logger, prober: prober}
	s.adapters = map[string]Adapter{
		"html":       Func(s.extractHTML),
		"text":       Func(s.extractPlainText),
		"word":       Func(s.extractWord),
		"excel":      Func(s.extractExcel),
		"powerpoint": Func(s.extractOOXML("ppt/")),
		"visio":      Func(s.extractOOXML("visio/")),
		"pdf":        Func(s.extractPDF),
		"lnk":        Func(s.extractToolMetadata),
		"executable": Func(s.extractStrings),
		"image":      Func(s.extractImage),
		"audio":      Func(s.extractAudio),
		"video":      Func(s.extractVideo),
		"thumbsdb":   Func(s.extractThumbsDB),
		"archive":    Func(s.extractArchive),
		"package":    Func(s.extractPackage),
		"bytecode":   Func(s.extractBytecode),
		"winevent":   Func(s.extractEVTX),
		"message":    Func(s.extractMessage),
		"sqlite":     Func(s.extractSQLite),
		"pcap":       Func(s.extractPCAP),
		"raw":        Func(s.extractRaw),
		"unknown":    Func(s.extractUnknown),
	}
	return s
}

// For returns the adapter for a class tag, falling back to unknown.
func (s *Set) For(class string) Adapter {
	if a, ok := s.adapters[class]; ok {
		return a
	}
	return s.adapters["unknown"]
}

// extractRaw handles octet-stream: nothing to say.
func (s *Set) extractRaw(ctx context.Context, path, scratch string) (string, error) {
	return "", nil
}

// extractUnknown probes whether the file is textual and, if so, extracts it
// as plain text; otherwise the record stays empty.
func (s *Set) extractUnknown(ctx context.Context, path, scratch string) (string, error) {
	if s.prober == nil {
		return "", nil
	}
	isText, err := s.prober.IsText(ctx, path)
	if err != nil || !isText {
		return "", err
	}
	return s.extractPlainText(ctx, path, "")
}
