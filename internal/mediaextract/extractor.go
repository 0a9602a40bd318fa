// Package mediaextract pulls bounded time-range audio segments out of remote
// or local media streams via the ffmpeg subprocess, normalized to mono 16kHz
// 16-bit PCM for downstream speech-to-text providers.
package mediaextract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"podscribe/internal/deps"
	"podscribe/internal/services"
)

// Mono 16kHz 16-bit PCM: 32000 bytes of payload per second.
const pcmBytesPerSecond = 32000

// Segment is one extracted, normalized audio slice. It is owned exclusively
// by the caller that requested it and is never cached or shared.
type Segment struct {
	Buffer          []byte
	MimeType        string
	DurationSeconds float64
}

// CommandRunner executes the decoder subprocess, returning its combined
// output. Overridable for tests.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Extractor wraps the ffmpeg binary for segment extraction.
type Extractor struct {
	binary  string
	tempDir string
	runner  CommandRunner
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithCommandRunner overrides how the decoder subprocess is executed.
func WithCommandRunner(runner CommandRunner) Option {
	return func(e *Extractor) {
		if runner != nil {
			e.runner = runner
		}
	}
}

// WithTempDir overrides where intermediate WAV files are written.
func WithTempDir(dir string) Option {
	return func(e *Extractor) {
		e.tempDir = dir
	}
}

// New constructs an Extractor around the given ffmpeg binary.
func New(binary string, opts ...Option) *Extractor {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	extractor := &Extractor{binary: binary, runner: runCombined}
	for _, opt := range opts {
		opt(extractor)
	}
	return extractor
}

// IsDecoderAvailable reports whether the decoder binary can be executed on
// this host.
func (e *Extractor) IsDecoderAvailable() bool {
	return deps.CheckDecoder(e.binary).Available
}

// ExtractSegment decodes exactly one time-bounded mono 16kHz 16-bit PCM
// segment from the source into memory. The intermediate temp file is removed
// on both success and failure paths.
func (e *Extractor) ExtractSegment(ctx context.Context, sourceURL string, startSec, durationSec int) (*Segment, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return nil, services.Wrap(services.ErrInput, "mediaextract", "extract", "source url required", nil)
	}
	if startSec < 0 {
		return nil, services.Wrap(services.ErrInput, "mediaextract", "extract", fmt.Sprintf("invalid start offset %d", startSec), nil)
	}
	if durationSec <= 0 {
		return nil, services.Wrap(services.ErrInput, "mediaextract", "extract", fmt.Sprintf("invalid duration %d", durationSec), nil)
	}

	tmp, err := os.CreateTemp(e.tempDir, "podscribe-segment-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	dest := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(dest)

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", strconv.Itoa(startSec),
		"-t", strconv.Itoa(durationSec),
		"-i", sourceURL,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	if output, err := e.runner(ctx, e.binary, args...); err != nil {
		return nil, services.Wrap(services.ErrUpstream, "mediaextract", "ffmpeg",
			strings.TrimSpace(string(output)), err)
	}

	buffer, err := os.ReadFile(dest)
	if err != nil {
		return nil, fmt.Errorf("read extracted segment: %w", err)
	}
	return &Segment{
		Buffer:          buffer,
		MimeType:        "audio/wav",
		DurationSeconds: pcmDuration(len(buffer)),
	}, nil
}

func pcmDuration(sizeBytes int) float64 {
	const wavHeaderBytes = 44
	payload := sizeBytes - wavHeaderBytes
	if payload <= 0 {
		return 0
	}
	return float64(payload) / pcmBytesPerSecond
}

func runCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}
