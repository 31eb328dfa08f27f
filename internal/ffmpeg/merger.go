package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Test seams for stubbing the external binary.
var (
	commandContext = exec.CommandContext
	lookPath       = exec.LookPath
)

// ErrUnavailable indicates the FFmpeg binary could not be located.
var ErrUnavailable = errors.New("ffmpeg unavailable")

// ErrExecution indicates FFmpeg ran but reported failure; the wrapped
// message carries its diagnostic output.
var ErrExecution = errors.New("ffmpeg execution failed")

// Option configures the merger.
type Option func(*Merger)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(m *Merger) {
		if binary != "" {
			m.binary = binary
		}
	}
}

// Merger concatenates video files through the ffmpeg command line.
type Merger struct {
	binary string
}

// NewMerger constructs a merger using defaults.
func NewMerger(opts ...Option) *Merger {
	m := &Merger{binary: "ffmpeg"}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge concatenates clipPaths, in order, into a single file at
// outputPath, creating missing destination directories. Video streams
// are stream-copied; audio is transcoded to AAC.
func (m *Merger) Merge(ctx context.Context, clipPaths []string, outputPath string) error {
	if _, err := lookPath(m.binary); err != nil {
		return fmt.Errorf("%w: %q not found in PATH", ErrUnavailable, m.binary)
	}
	if len(clipPaths) == 0 {
		return fmt.Errorf("%w: no clips to merge", ErrExecution)
	}
	if strings.TrimSpace(outputPath) == "" {
		return errors.New("output path required")
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	manifestPath, err := writeManifest(clipPaths)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(manifestPath) }()

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c:v", "copy",
		"-c:a", "aac",
		outputPath,
	}

	var stderr bytes.Buffer
	cmd := commandContext(ctx, m.binary, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return fmt.Errorf("%w: %s", ErrExecution, detail)
	}
	return nil
}

// writeManifest produces the concat demuxer input list. Each entry is an
// absolute path wrapped in single quotes, with embedded quotes escaped
// the way the demuxer expects.
func writeManifest(clipPaths []string) (string, error) {
	manifest, err := os.CreateTemp("", "merge-videos-concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create concat manifest: %w", err)
	}

	var builder strings.Builder
	for _, clipPath := range clipPaths {
		abs, err := filepath.Abs(clipPath)
		if err != nil {
			_ = manifest.Close()
			_ = os.Remove(manifest.Name())
			return "", fmt.Errorf("resolve clip path %q: %w", clipPath, err)
		}
		escaped := strings.ReplaceAll(filepath.ToSlash(abs), "'", `'\''`)
		builder.WriteString("file '")
		builder.WriteString(escaped)
		builder.WriteString("'\n")
	}

	if _, err := manifest.WriteString(builder.String()); err != nil {
		_ = manifest.Close()
		_ = os.Remove(manifest.Name())
		return "", fmt.Errorf("write concat manifest: %w", err)
	}
	if err := manifest.Close(); err != nil {
		_ = os.Remove(manifest.Name())
		return "", fmt.Errorf("close concat manifest: %w", err)
	}
	return manifest.Name(), nil
}
