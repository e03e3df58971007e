package extract

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/durck/crawl/pkg/extract/run"
)

// extractImage combines exiftool metadata with multi-language OCR. When
// images-dir is configured a resized thumbnail is kept for the web UI.
func (s *Set) extractImage(ctx context.Context, path, scratch string) (string, error) {
	meta, metaErr := s.extractToolMetadata(ctx, path, "")

	var ocr string
	var ocrErr error
	if !s.cfg.OCRDisabled {
		args := []string{path, "stdout"}
		if langs := s.ocrLangs(); langs != "" {
			args = append(args, "-l", langs)
		}
		out, err := run.Command{Name: "tesseract", Args: args}.Output(ctx)
		ocr = Sanitize(string(out))
		ocrErr = err
	}

	if s.cfg.ImagesDir != "" {
		s.saveThumbnail(ctx, path)
	}

	text := joinNonEmpty(meta, ocr)
	if text == "" {
		if metaErr != nil {
			return "", metaErr
		}
		if ocrErr != nil {
			return "", ocrErr
		}
	}
	return text, nil
}

func (s *Set) ocrLangs() string {
	return strings.Join(s.cfg.OCRLanguages, "+")
}

func (s *Set) saveThumbnail(ctx context.Context, path string) {
	if err := os.MkdirAll(s.cfg.ImagesDir, 0o755); err != nil {
		return
	}
	sum := sha1.Sum([]byte(path))
	dest := filepath.Join(s.cfg.ImagesDir, hex.EncodeToString(sum[:])+".jpg")
	_ = run.Command{Name: "convert", Args: []string{path + "[0]", "-resize", "320x320>", dest}}.Run(ctx)
}

// extractAudio combines metadata with speech transcription.
func (s *Set) extractAudio(ctx context.Context, path, scratch string) (string, error) {
	meta, metaErr := s.extractToolMetadata(ctx, path, "")

	var transcript string
	if !s.cfg.AudioDisabled {
		t, err := s.transcribe(ctx, path)
		if err != nil && meta == "" {
			return "", err
		}
		transcript = t
	}

	text := joinNonEmpty(meta, transcript)
	if text == "" && metaErr != nil {
		return "", metaErr
	}
	return text, nil
}

// transcribe runs whisper into a private temp dir and reads the txt output.
func (s *Set) transcribe(ctx context.Context, path string) (string, error) {
	tmp, err := os.MkdirTemp("", "stt-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmp)

	args := []string{path, "--output_format", "txt", "--output_dir", tmp, "--fp16", "False"}
	if len(s.cfg.OCRLanguages) > 0 {
		args = append(args, "--language", s.cfg.OCRLanguages[0])
	}
	if err := (run.Command{Name: "whisper", Args: args}).Run(ctx); err != nil {
		return "", err
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	data, err := os.ReadFile(filepath.Join(tmp, stem+".txt"))
	if err != nil {
		return "", fmt.Errorf("reading transcript: %w", err)
	}
	return Sanitize(string(data)), nil
}

// defaultKeyframes caps sampled video frames when no OCR cap is configured.
const defaultKeyframes = 16

// extractVideo emits metadata and populates scratch with sampled keyframes
// plus the audio track, both of which re-enter the pipeline as nested files.
func (s *Set) extractVideo(ctx context.Context, path, scratch string) (string, error) {
	meta, metaErr := s.extractToolMetadata(ctx, path, "")

	if scratch != "" {
		if !s.cfg.OCRDisabled {
			frames := s.cfg.OCRMaxImages
			if frames <= 0 {
				frames = defaultKeyframes
			}
			_ = run.Command{Name: "ffmpeg", Args: []string{
				"-nostdin", "-loglevel", "error",
				"-skip_frame", "nokey", "-i", path,
				"-vsync", "vfr", "-vf", "scale=1024:-1",
				"-frames:v", strconv.Itoa(frames),
				filepath.Join(scratch, "frame%04d.jpg"),
			}}.Run(ctx)
		}
		if !s.cfg.AudioDisabled {
			_ = run.Command{Name: "ffmpeg", Args: []string{
				"-nostdin", "-loglevel", "error",
				"-i", path, "-vn",
				"-acodec", "pcm_s16le", "-ar", "16000", "-ac", "1",
				filepath.Join(scratch, "audio.wav"),
			}}.Run(ctx)
		}
	}

	if meta == "" && metaErr != nil {
		return "", metaErr
	}
	return meta, nil
}

func joinNonEmpty(parts ...string) string {
	var keep []string
	for _, p := range parts {
		if p != "" {
			keep = append(keep, p)
		}
	}
	return strings.Join(keep, " ")
}
