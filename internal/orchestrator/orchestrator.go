// Package orchestrator runs the end-to-end pipeline for one generation job:
// resolve the processing budget, fetch a transcript through the provider
// chain, summarize it, and persist the outcome on the job record. The debug
// event trail is written at every step when enabled.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"podscribe/internal/budget"
	"podscribe/internal/debuglog"
	"podscribe/internal/jobs"
	"podscribe/internal/logging"
	"podscribe/internal/providers"
	"podscribe/internal/services"
	"podscribe/internal/summarize"
)

// TranscriptResolver is the provider chain surface.
type TranscriptResolver interface {
	Resolve(ctx context.Context, jobID, sourceURL string) (*providers.Result, error)
}

// Condenser is the summarizer surface.
type Condenser interface {
	Summarize(ctx context.Context, transcript string) (*summarize.Result, error)
}

// JobRecorder is the persistence surface for job lifecycle transitions.
type JobRecorder interface {
	Create(ctx context.Context, sourceURL, episodeTitle, podcastName string) (*jobs.Job, error)
	MarkRunning(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, provider string, transcriptChars, audioSizeBytes int64) error
	MarkFailed(ctx context.Context, id, category, message string) error
}

// DecoderProbe reports whether the host can extract audio. Checked up front
// so speech-path jobs fail fast instead of discovering a missing binary
// twenty minutes in.
type DecoderProbe func() bool

// MetadataProber answers playability and duration questions about a video
// without extracting anything.
type MetadataProber interface {
	Probe(ctx context.Context, videoID string) (*providers.Metadata, error)
}

// Request describes one generation run.
type Request struct {
	SourceURL    string
	EpisodeTitle string
	PodcastName  string
}

// Outcome is the result of a completed run.
type Outcome struct {
	JobID           string
	Provider        string
	Transcript      string
	Summary         string
	SummaryChunks   int
	ModelCalls      int
	AudioSizeBytes  int64
	ProcessingState jobs.Status
}

// Orchestrator coordinates the pipeline stages for generation jobs.
type Orchestrator struct {
	resolver      TranscriptResolver
	condenser     Condenser
	recorder      JobRecorder
	budget        budget.ProcessingBudget
	debug         *debuglog.Log
	decoderProbe  DecoderProbe
	prober        MetadataProber
	requireSpeech bool
	logger        *slog.Logger
	newJobID      func() string
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithDebugLog attaches the per-job event stream.
func WithDebugLog(debug *debuglog.Log) Option {
	return func(o *Orchestrator) { o.debug = debug }
}

// WithDecoderProbe installs the decoder availability check. requireSpeech
// marks the probe as mandatory: when set, a missing decoder fails the run up
// front instead of degrading to caption-only providers.
func WithDecoderProbe(probe DecoderProbe, requireSpeech bool) Option {
	return func(o *Orchestrator) {
		o.decoderProbe = probe
		o.requireSpeech = requireSpeech
	}
}

// WithMetadataProber installs the dry-run metadata check used by
// ValidateForTranscription. Without one, validation stops at URL shape.
func WithMetadataProber(prober MetadataProber) Option {
	return func(o *Orchestrator) { o.prober = prober }
}

// WithJobIDFunc overrides job ID generation (stable IDs in tests).
func WithJobIDFunc(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newJobID = fn
		}
	}
}

func New(resolver TranscriptResolver, condenser Condenser, recorder JobRecorder, processingBudget budget.ProcessingBudget, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &Orchestrator{
		resolver:  resolver,
		condenser: condenser,
		recorder:  recorder,
		budget:    processingBudget,
		logger:    logging.NewComponentLogger(logger, "orchestrator"),
		newJobID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Validation is the dry-run verdict for a source URL.
type Validation struct {
	VideoID         string
	Title           string
	DurationSeconds int64
	Suitable        bool
	Reason          string
}

// ValidateForTranscription dry-runs the checks a real job would fail on:
// URL shape, playability, and input duration against the budget ceiling.
// Nothing is extracted. A malformed URL or a probe transport failure is an
// error; an unplayable or over-length video is a non-error unsuitable
// verdict with the reason filled in.
func (o *Orchestrator) ValidateForTranscription(ctx context.Context, sourceURL string) (*Validation, error) {
	videoID, err := providers.ParseVideoID(sourceURL)
	if err != nil {
		return nil, err
	}
	verdict := &Validation{VideoID: videoID, Suitable: true}
	if o.prober == nil {
		return verdict, nil
	}

	meta, err := o.prober.Probe(ctx, videoID)
	if err != nil {
		return nil, err
	}
	verdict.Title = meta.Title
	verdict.DurationSeconds = meta.DurationSeconds
	if !meta.Playable {
		verdict.Suitable = false
		verdict.Reason = meta.Reason
		return verdict, nil
	}
	if limit := int64(o.budget.MaxInputDurationSeconds); limit > 0 && meta.DurationSeconds > limit {
		verdict.Suitable = false
		verdict.Reason = fmt.Sprintf("duration %ds exceeds the %s tier ceiling of %ds",
			meta.DurationSeconds, o.budget.Tier, limit)
	}
	return verdict, nil
}

// Transcribe executes the full pipeline for one request. The run is bounded by the
// budget's total processing window; everything inside inherits that deadline.
// Failures are persisted on the job record with their taxonomy category
// before the error is returned.
func (o *Orchestrator) Transcribe(ctx context.Context, req Request) (*Outcome, error) {
	sourceURL := strings.TrimSpace(req.SourceURL)
	if sourceURL == "" {
		return nil, services.Wrap(services.ErrInput, "orchestrator", "run", "source url required", nil)
	}

	var jobID string
	if o.recorder != nil {
		job, err := o.recorder.Create(ctx, sourceURL, req.EpisodeTitle, req.PodcastName)
		if err != nil {
			return nil, fmt.Errorf("create job record: %w", err)
		}
		jobID = job.ID
	} else {
		jobID = o.newJobID()
	}

	logger := o.logger.With(logging.String(logging.FieldJobID, jobID))
	logger.Info("generation job starting",
		logging.String("source_url", sourceURL),
		logging.String("tier", o.budget.Tier))
	o.record(ctx, jobID, debuglog.Event{Step: "pipeline", Status: debuglog.StatusStart,
		Meta: map[string]any{"source_url": sourceURL, "tier": o.budget.Tier}})

	outcome, err := o.run(ctx, jobID, sourceURL, logger)
	if err != nil {
		category := services.Category(err)
		logger.Error("generation job failed",
			logging.String("category", category),
			logging.Error(err))
		o.record(ctx, jobID, debuglog.Event{Step: "pipeline", Status: debuglog.StatusFail,
			Message: err.Error(), Meta: map[string]any{"category": category}})
		if o.recorder != nil {
			if markErr := o.recorder.MarkFailed(ctx, jobID, category, err.Error()); markErr != nil {
				logger.Error("persist job failure", logging.Error(markErr))
			}
		}
		o.writeReport(ctx, jobID, sourceURL, nil, err)
		return nil, err
	}

	logger.Info("generation job completed",
		logging.String(logging.FieldProvider, outcome.Provider),
		logging.Int("transcript_chars", len(outcome.Transcript)),
		logging.Int("model_calls", outcome.ModelCalls))
	o.record(ctx, jobID, debuglog.Event{Step: "pipeline", Status: debuglog.StatusSuccess,
		Provider: outcome.Provider,
		Meta: map[string]any{
			"transcript_chars": len(outcome.Transcript),
			"summary_chars":    len(outcome.Summary),
			"model_calls":      outcome.ModelCalls,
		}})
	o.writeReport(ctx, jobID, sourceURL, outcome, nil)
	return outcome, nil
}

func (o *Orchestrator) run(ctx context.Context, jobID, sourceURL string, logger *slog.Logger) (*Outcome, error) {
	if o.recorder != nil {
		if err := o.recorder.MarkRunning(ctx, jobID); err != nil {
			return nil, fmt.Errorf("mark job running: %w", err)
		}
	}

	if o.decoderProbe != nil && o.requireSpeech && !o.decoderProbe() {
		return nil, services.Wrap(services.ErrResourceUnavailable, "orchestrator", "preflight",
			"audio decoder unavailable and speech path is required", nil)
	}

	runCtx := ctx
	if o.budget.TotalWindowSeconds > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(o.budget.TotalWindowSeconds)*time.Second)
		defer cancel()
	}

	o.record(runCtx, jobID, debuglog.Event{Step: "transcript", Status: debuglog.StatusStart})
	started := time.Now()
	transcript, err := o.resolver.Resolve(runCtx, jobID, sourceURL)
	if err != nil {
		o.record(ctx, jobID, debuglog.Event{Step: "transcript", Status: debuglog.StatusFail,
			ElapsedMs: time.Since(started).Milliseconds(), Message: err.Error()})
		return nil, err
	}
	o.record(runCtx, jobID, debuglog.Event{Step: "transcript", Status: debuglog.StatusSuccess,
		Provider:  transcript.Provider,
		ElapsedMs: time.Since(started).Milliseconds(),
		Meta:      map[string]any{"transcript_chars": len(transcript.Transcript)}})
	logger.Info("transcript acquired",
		logging.String(logging.FieldProvider, transcript.Provider),
		logging.Int("transcript_chars", len(transcript.Transcript)))

	o.record(runCtx, jobID, debuglog.Event{Step: "summarize", Status: debuglog.StatusStart})
	started = time.Now()
	summary, err := o.condenser.Summarize(runCtx, transcript.Transcript)
	if err != nil {
		o.record(ctx, jobID, debuglog.Event{Step: "summarize", Status: debuglog.StatusFail,
			ElapsedMs: time.Since(started).Milliseconds(), Message: err.Error()})
		return nil, err
	}
	o.record(runCtx, jobID, debuglog.Event{Step: "summarize", Status: debuglog.StatusSuccess,
		ElapsedMs: time.Since(started).Milliseconds(),
		Meta:      map[string]any{"chunks": summary.Chunks, "model_calls": summary.ModelCalls}})

	if o.recorder != nil {
		if err := o.recorder.MarkCompleted(ctx, jobID, transcript.Provider,
			int64(len(transcript.Transcript)), transcript.AudioSizeBytes); err != nil {
			return nil, fmt.Errorf("mark job completed: %w", err)
		}
	}

	return &Outcome{
		JobID:           jobID,
		Provider:        transcript.Provider,
		Transcript:      transcript.Transcript,
		Summary:         summary.Summary,
		SummaryChunks:   summary.Chunks,
		ModelCalls:      summary.ModelCalls,
		AudioSizeBytes:  transcript.AudioSizeBytes,
		ProcessingState: jobs.StatusCompleted,
	}, nil
}

func (o *Orchestrator) record(ctx context.Context, jobID string, event debuglog.Event) {
	if o.debug != nil {
		o.debug.Record(ctx, jobID, event)
	}
}

// writeReport persists a consolidated markdown report for the job when debug
// logging is enabled. Report generation must never fail a run.
func (o *Orchestrator) writeReport(ctx context.Context, jobID, sourceURL string, outcome *Outcome, runErr error) {
	if o.debug == nil || !o.debug.Enabled() {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# Generation job %s\n\n", jobID)
	fmt.Fprintf(&b, "- Source: %s\n", sourceURL)
	fmt.Fprintf(&b, "- Tier: %s\n", o.budget.Tier)
	if runErr != nil {
		fmt.Fprintf(&b, "- Result: failed (%s)\n\n", services.Category(runErr))
		fmt.Fprintf(&b, "## Error\n\n%s\n", runErr.Error())
	} else {
		fmt.Fprintf(&b, "- Result: completed via %s\n", outcome.Provider)
		fmt.Fprintf(&b, "- Transcript: %d chars\n", len(outcome.Transcript))
		fmt.Fprintf(&b, "- Summary: %d chars in %d chunks (%d model calls)\n\n",
			len(outcome.Summary), outcome.SummaryChunks, outcome.ModelCalls)
		fmt.Fprintf(&b, "## Summary\n\n%s\n", outcome.Summary)
	}
	o.debug.RecordReport(ctx, jobID, b.String())
}
