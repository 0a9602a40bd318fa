package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"podscribe/internal/logging"
	"podscribe/internal/services"
)

type scriptedCompleter struct {
	replies []string
	err     error
	prompts []string
}

func (c *scriptedCompleter) CompleteText(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	c.prompts = append(c.prompts, userPrompt)
	if c.err != nil {
		return "", c.err
	}
	idx := len(c.prompts) - 1
	if idx < len(c.replies) {
		return c.replies[idx], nil
	}
	return fmt.Sprintf("summary %d", idx+1), nil
}

func TestSummarizeShortTranscriptOneCall(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{"the whole thing"}}
	summarizer := New(completer, 18000, 6, logging.NewNop())

	result, err := summarizer.Summarize(context.Background(), strings.Repeat("a", 9000))
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if result.ModelCalls != 1 || result.Chunks != 1 {
		t.Fatalf("result = %+v, want one chunk, one call", result)
	}
	if result.Summary != "the whole thing" {
		t.Fatalf("summary = %q", result.Summary)
	}
	if len(completer.prompts) != 1 || !strings.HasPrefix(completer.prompts[0], finalPreamble) {
		t.Fatalf("prompts = %d, first = %.40q", len(completer.prompts), completer.prompts[0])
	}
}

func TestSummarizeLongTranscriptChunksPlusConsolidation(t *testing.T) {
	completer := &scriptedCompleter{}
	summarizer := New(completer, 18000, 6, logging.NewNop())

	// 45000 chars at an 18000 ceiling: three evenly sized chunks, four calls.
	result, err := summarizer.Summarize(context.Background(), strings.Repeat("b", 45000))
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if result.Chunks != 3 {
		t.Fatalf("chunks = %d, want 3", result.Chunks)
	}
	if result.ModelCalls != 4 {
		t.Fatalf("model calls = %d, want 4", result.ModelCalls)
	}
	last := completer.prompts[len(completer.prompts)-1]
	if !strings.HasPrefix(last, finalPreamble) {
		t.Fatalf("final call must consolidate, got %.40q", last)
	}
	if !strings.Contains(last, "summary 1") || !strings.Contains(last, "summary 3") {
		t.Fatal("consolidation prompt must carry every partial summary")
	}
	for i, prompt := range completer.prompts[:len(completer.prompts)-1] {
		if !strings.HasPrefix(prompt, chunkPreamble) {
			t.Fatalf("chunk call %d used wrong template: %.40q", i+1, prompt)
		}
	}
}

func TestPromptShapesMatchDeliveredSummary(t *testing.T) {
	// The fast path and the consolidation pass must use the same template so
	// short and long transcripts yield the same bullets-plus-recap shape.
	short := &scriptedCompleter{}
	if _, err := New(short, 18000, 6, logging.NewNop()).Summarize(context.Background(), "tiny transcript"); err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	long := &scriptedCompleter{}
	if _, err := New(long, 18000, 6, logging.NewNop()).Summarize(context.Background(), strings.Repeat("e", 45000)); err != nil {
		t.Fatalf("Summarize error: %v", err)
	}

	fastTemplate := strings.TrimSuffix(short.prompts[0], "tiny transcript")
	consolidation := long.prompts[len(long.prompts)-1]
	if !strings.HasPrefix(consolidation, fastTemplate) {
		t.Fatal("fast path and consolidation must share one prompt template")
	}
	if !strings.Contains(fastTemplate, "5 to 10 top-level bullet points") ||
		!strings.Contains(fastTemplate, "2 to 3 sentences") {
		t.Fatalf("final template missing required output shape: %q", fastTemplate)
	}
	if !strings.Contains(chunkPreamble, "5 to 8 concise bullet") {
		t.Fatalf("chunk template missing bullet instruction: %q", chunkPreamble)
	}
}

func TestSummarizeChunkCountIsCapped(t *testing.T) {
	completer := &scriptedCompleter{}
	summarizer := New(completer, 18000, 6, logging.NewNop())

	// 200000 chars would want 12 chunks; the cap resizes them instead.
	result, err := summarizer.Summarize(context.Background(), strings.Repeat("c", 200000))
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if result.Chunks != 6 {
		t.Fatalf("chunks = %d, want the cap", result.Chunks)
	}
	if result.ModelCalls != 7 {
		t.Fatalf("model calls = %d, want 7", result.ModelCalls)
	}
}

func TestPartitionReassembles(t *testing.T) {
	text := strings.Repeat("0123456789", 5000)
	for _, maxChars := range []int{1000, 7777, 18000, 49999, 50000} {
		chunks := partition(text, maxChars, 6)
		if got := strings.Join(chunks, ""); got != text {
			t.Fatalf("maxChars=%d: partition loses or reorders text", maxChars)
		}
		if len(chunks) > 6 {
			t.Fatalf("maxChars=%d: %d chunks exceeds cap", maxChars, len(chunks))
		}
		for i, chunk := range chunks[:len(chunks)-1] {
			if len(chunk) == 0 {
				t.Fatalf("maxChars=%d: empty chunk %d", maxChars, i)
			}
		}
	}
}

func TestPartitionEvenSizes(t *testing.T) {
	// 45000 over three chunks: each slice exactly 15000, no runt remainder.
	chunks := partition(strings.Repeat("x", 45000), 18000, 6)
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) != 15000 {
			t.Fatalf("chunk %d size = %d, want 15000", i, len(chunk))
		}
	}
}

func TestSummarizeEmptyTranscript(t *testing.T) {
	summarizer := New(&scriptedCompleter{}, 18000, 6, logging.NewNop())
	if _, err := summarizer.Summarize(context.Background(), "   \n "); !errors.Is(err, services.ErrInput) {
		t.Fatalf("error = %v, want input marker", err)
	}
}

func TestSummarizeChunkFailureAborts(t *testing.T) {
	completer := &scriptedCompleter{err: errors.New("model down")}
	summarizer := New(completer, 18000, 6, logging.NewNop())
	if _, err := summarizer.Summarize(context.Background(), strings.Repeat("d", 45000)); err == nil {
		t.Fatal("expected chunk failure to abort the run")
	}
	if len(completer.prompts) != 1 {
		t.Fatalf("calls after failure = %d, want 1", len(completer.prompts))
	}
}

func TestSummarizeEmptyModelOutput(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{"  "}}
	summarizer := New(completer, 18000, 6, logging.NewNop())
	if _, err := summarizer.Summarize(context.Background(), "short transcript"); !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("error = %v, want upstream marker", err)
	}
}
