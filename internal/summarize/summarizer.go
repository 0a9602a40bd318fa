// Package summarize condenses episode transcripts with a chunk-then-combine
// strategy. Short transcripts go to the model in one call; long ones are
// split into evenly sized slices, summarized sequentially, and the partial
// summaries are stitched together in a final consolidation call.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"podscribe/internal/logging"
	"podscribe/internal/services"
)

// Defaults applied when the caller leaves limits unset.
const (
	defaultMaxChunkChars = 18000
	defaultMaxChunks     = 6
)

// TextCompleter is the model surface the summarizer consumes.
type TextCompleter interface {
	CompleteText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Result is the outcome of one summarization run.
type Result struct {
	Summary    string
	Chunks     int
	ModelCalls int
}

// Summarizer splits and condenses transcripts within fixed chunk limits.
type Summarizer struct {
	completer     TextCompleter
	maxChunkChars int
	maxChunks     int
	logger        *slog.Logger
}

func New(completer TextCompleter, maxChunkChars, maxChunks int, logger *slog.Logger) *Summarizer {
	if maxChunkChars <= 0 {
		maxChunkChars = defaultMaxChunkChars
	}
	if maxChunks <= 0 {
		maxChunks = defaultMaxChunks
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Summarizer{
		completer:     completer,
		maxChunkChars: maxChunkChars,
		maxChunks:     maxChunks,
		logger:        logging.NewComponentLogger(logger, "summarize"),
	}
}

// Summarize condenses transcript into a single summary. Transcripts that fit
// one chunk take exactly one model call; longer ones take one call per chunk
// plus a consolidation call. Chunk boundaries are plain character offsets:
// the model tolerates a mid-word cut far better than the pipeline tolerates
// token-accounting complexity.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) (*Result, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, services.Wrap(services.ErrInput, "summarize", "split", "transcript is empty", nil)
	}

	chunks := partition(transcript, s.maxChunkChars, s.maxChunks)
	if len(chunks) == 1 {
		summary, err := s.complete(ctx, finalPreamble+chunks[0])
		if err != nil {
			return nil, err
		}
		return &Result{Summary: summary, Chunks: 1, ModelCalls: 1}, nil
	}

	s.logger.Info("summarizing in chunks",
		logging.Int("transcript_chars", len(transcript)),
		logging.Int("chunks", len(chunks)))

	partials := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		partial, err := s.complete(ctx, chunkPreamble+chunk)
		if err != nil {
			return nil, fmt.Errorf("chunk %d of %d: %w", i+1, len(chunks), err)
		}
		partials = append(partials, partial)
	}

	combined, err := s.complete(ctx, finalPreamble+strings.Join(partials, "\n"))
	if err != nil {
		return nil, fmt.Errorf("consolidate: %w", err)
	}
	return &Result{Summary: combined, Chunks: len(chunks), ModelCalls: len(chunks) + 1}, nil
}

func (s *Summarizer) complete(ctx context.Context, userPrompt string) (string, error) {
	summary, err := s.completer.CompleteText(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", services.Wrap(services.ErrUpstream, "summarize", "complete", "model returned empty summary", nil)
	}
	return summary, nil
}

// partition splits text into at most maxChunks evenly sized slices. The
// chunk size is recomputed from the effective chunk count so the last slice
// is never a tiny remainder.
func partition(text string, maxChunkChars, maxChunks int) []string {
	length := len(text)
	if length <= maxChunkChars {
		return []string{text}
	}

	effective := ceilDiv(length, maxChunkChars)
	if effective > maxChunks {
		effective = maxChunks
	}
	size := ceilDiv(length, effective)

	chunks := make([]string, 0, effective)
	for start := 0; start < length; start += size {
		end := start + size
		if end > length {
			end = length
		}
		chunks = append(chunks, text[start:end])
	}
	return chunks
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
