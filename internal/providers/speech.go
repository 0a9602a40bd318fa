package providers

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"podscribe/internal/budget"
	"podscribe/internal/logging"
	"podscribe/internal/mediaextract"
	"podscribe/internal/services"
)

// SpeechServiceName is the quota ledger key for the metered speech-to-text
// endpoint. One unit is consumed per transcribed segment.
const SpeechServiceName = "speech"

// SegmentExtractor pulls normalized audio slices out of a remote stream.
type SegmentExtractor interface {
	IsDecoderAvailable() bool
	ExtractSegment(ctx context.Context, sourceURL string, startSec, durationSec int) (*mediaextract.Segment, error)
}

// SpeechRecognizer turns one audio segment into transcript text.
type SpeechRecognizer interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// SegmentTranscriber walks a remote audio stream in budget-sized chunks,
// extracting and transcribing each one until the stream ends or the input
// duration ceiling is reached. It backs both the standalone speech provider
// and the audio fallback of the internal-API provider.
type SegmentTranscriber struct {
	extractor  SegmentExtractor
	recognizer SpeechRecognizer
	budget     budget.ProcessingBudget
	gate       QuotaGate
	logger     *slog.Logger
}

func NewSegmentTranscriber(extractor SegmentExtractor, recognizer SpeechRecognizer, processingBudget budget.ProcessingBudget, gate QuotaGate, logger *slog.Logger) *SegmentTranscriber {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SegmentTranscriber{
		extractor:  extractor,
		recognizer: recognizer,
		budget:     processingBudget,
		gate:       gate,
		logger:     logger,
	}
}

// TranscribeStream extracts and transcribes consecutive segments of the
// stream at audioURL. The walk stops at the first empty or short segment,
// which is how stream end presents through the decoder. Each segment consumes
// one quota unit, recorded after the recognition call executes.
func (t *SegmentTranscriber) TranscribeStream(ctx context.Context, audioURL string) (*Result, error) {
	if !t.extractor.IsDecoderAvailable() {
		return nil, services.Wrap(services.ErrResourceUnavailable, "speech", "extract",
			"audio decoder unavailable", nil)
	}

	chunkSeconds := t.budget.ChunkDurationSeconds
	if chunkSeconds <= 0 {
		chunkSeconds = 300
	}
	maxInput := t.budget.MaxInputDurationSeconds
	if maxInput <= 0 {
		maxInput = chunkSeconds
	}

	var parts []string
	var totalBytes int64
	for offset := 0; offset < maxInput; offset += chunkSeconds {
		duration := chunkSeconds
		if remaining := maxInput - offset; remaining < duration {
			duration = remaining
		}

		if t.gate != nil && !t.gate.IsAllowed(SpeechServiceName) {
			if len(parts) > 0 {
				// Quota ran out mid-stream. Everything transcribed so far is
				// still usable.
				t.logger.Warn("speech quota exhausted mid-stream",
					logging.Int("transcribed_segments", len(parts)))
				break
			}
			return nil, services.Wrap(services.ErrQuotaExhausted, "speech", "transcribe",
				"monthly speech quota exhausted", nil)
		}

		segment, text, err := t.transcribeOne(ctx, audioURL, offset, duration)
		if err != nil {
			if len(parts) > 0 && !errors.Is(err, context.Canceled) {
				t.logger.Warn("segment transcription failed mid-stream",
					logging.Int("offset_seconds", offset), logging.Error(err))
				break
			}
			return nil, err
		}
		if segment == nil {
			break
		}
		totalBytes += int64(len(segment.Buffer))
		if text != "" {
			parts = append(parts, text)
		}
		// A short segment means the decoder hit end of stream.
		if segment.DurationSeconds < float64(duration)-1 {
			break
		}
	}

	transcript := strings.TrimSpace(strings.Join(parts, " "))
	if transcript == "" {
		return nil, services.Wrap(services.ErrUpstream, "speech", "transcribe",
			"stream produced no transcript text", nil)
	}
	return &Result{Transcript: transcript, AudioSizeBytes: totalBytes, Provider: "speech"}, nil
}

func (t *SegmentTranscriber) transcribeOne(ctx context.Context, audioURL string, offset, duration int) (*mediaextract.Segment, string, error) {
	segmentCtx := ctx
	if t.budget.PerChunkTimeoutMs > 0 {
		var cancel context.CancelFunc
		segmentCtx, cancel = context.WithTimeout(ctx, time.Duration(t.budget.PerChunkTimeoutMs)*time.Millisecond)
		defer cancel()
	}

	segment, err := t.extractor.ExtractSegment(segmentCtx, audioURL, offset, duration)
	if err != nil {
		return nil, "", err
	}
	if segment == nil || len(segment.Buffer) == 0 {
		return nil, "", nil
	}

	text, err := t.recognizer.Transcribe(segmentCtx, segment.Buffer, segment.MimeType)
	if t.gate != nil {
		t.gate.Record(SpeechServiceName)
	}
	if err != nil {
		return nil, "", err
	}
	return segment, strings.TrimSpace(text), nil
}

// SpeechProvider is the last-resort chain entry: it ignores caption data
// entirely and transcribes the watch page's audio stream directly.
type SpeechProvider struct {
	transcriber *SegmentTranscriber
}

func NewSpeechProvider(transcriber *SegmentTranscriber) *SpeechProvider {
	return &SpeechProvider{transcriber: transcriber}
}

func (p *SpeechProvider) Name() string { return "speech" }

func (p *SpeechProvider) MeteredService() string { return SpeechServiceName }

func (p *SpeechProvider) Fetch(ctx context.Context, _, sourceURL string) (*Result, error) {
	return p.transcriber.TranscribeStream(ctx, sourceURL)
}
