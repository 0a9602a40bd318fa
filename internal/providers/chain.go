package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"podscribe/internal/debuglog"
	"podscribe/internal/logging"
	"podscribe/internal/services"
)

// Chain tries providers in configured order and returns the first transcript.
// Quota-exhausted providers are skipped, not failed: the chain only reports a
// terminal error when no provider could produce text.
type Chain struct {
	providers      []Provider
	gate           QuotaGate
	attemptTimeout time.Duration
	debug          *debuglog.Log
	logger         *slog.Logger
}

// ChainOption customizes a Chain.
type ChainOption func(*Chain)

// WithAttemptTimeout bounds each individual provider attempt. Zero disables
// the per-attempt bound; the caller's context still applies.
func WithAttemptTimeout(d time.Duration) ChainOption {
	return func(c *Chain) {
		c.attemptTimeout = d
	}
}

// WithDebugLog attaches the per-job event stream.
func WithDebugLog(debug *debuglog.Log) ChainOption {
	return func(c *Chain) {
		c.debug = debug
	}
}

func NewChain(providers []Provider, gate QuotaGate, logger *slog.Logger, opts ...ChainOption) *Chain {
	if logger == nil {
		logger = logging.NewNop()
	}
	chain := &Chain{
		providers: providers,
		gate:      gate,
		logger:    logging.NewComponentLogger(logger, "providers"),
	}
	for _, opt := range opts {
		opt(chain)
	}
	return chain
}

// Resolve fetches a transcript for sourceURL, walking the provider order.
// Each provider contributes exactly one debug event: an info event when it is
// skipped for quota, otherwise a fail or success event for its outcome.
// Invalid URLs fail immediately without consuming any provider attempt. When
// every provider is skipped for quota the error carries the quota marker;
// when attempts were made and all failed, the error wraps the last failure,
// or the blocked marker if any provider hit anti-automation measures.
func (c *Chain) Resolve(ctx context.Context, jobID, sourceURL string) (*Result, error) {
	videoID, err := ParseVideoID(sourceURL)
	if err != nil {
		c.record(ctx, jobID, debuglog.Event{
			Step:    "resolve",
			Status:  debuglog.StatusFail,
			Message: err.Error(),
		})
		return nil, err
	}

	var (
		attempted  int
		sawBlocked bool
		lastErr    error
	)
	for _, provider := range c.providers {
		if service := provider.MeteredService(); service != "" && c.gate != nil && !c.gate.IsAllowed(service) {
			c.logger.Info("provider skipped, quota exhausted",
				logging.String(logging.FieldProvider, provider.Name()),
				logging.String(logging.FieldService, service))
			c.record(ctx, jobID, debuglog.Event{
				Step:     "provider_attempt",
				Status:   debuglog.StatusInfo,
				Provider: provider.Name(),
				Message:  "skipped: quota exhausted",
			})
			continue
		}

		attempted++
		started := time.Now()
		result, err := c.attempt(ctx, provider, videoID, sourceURL)
		elapsed := time.Since(started).Milliseconds()
		if err == nil && result != nil {
			c.record(ctx, jobID, debuglog.Event{
				Step:      "provider_attempt",
				Status:    debuglog.StatusSuccess,
				Provider:  provider.Name(),
				ElapsedMs: elapsed,
				Meta:      map[string]any{"transcript_chars": len(result.Transcript)},
			})
			result.Provider = provider.Name()
			return result, nil
		}

		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		if err == nil {
			err = services.Wrap(services.ErrUpstream, "providers", "resolve",
				provider.Name()+" returned no result", nil)
		}
		if errors.Is(err, services.ErrBlocked) {
			sawBlocked = true
		}
		lastErr = err
		c.logger.Warn("provider attempt failed",
			logging.String(logging.FieldProvider, provider.Name()),
			logging.Error(err))
		c.record(ctx, jobID, debuglog.Event{
			Step:      "provider_attempt",
			Status:    debuglog.StatusFail,
			Provider:  provider.Name(),
			ElapsedMs: elapsed,
			Message:   err.Error(),
		})
	}

	if attempted == 0 {
		return nil, services.Wrap(services.ErrQuotaExhausted, "providers", "resolve",
			"no providers attempted: all quotas exhausted", nil)
	}
	if sawBlocked {
		return nil, services.Wrap(services.ErrBlocked, "providers", "resolve",
			fmt.Sprintf("all %d attempted providers failed", attempted), lastErr)
	}
	return nil, services.Wrap(services.ErrUpstream, "providers", "resolve",
		fmt.Sprintf("all %d attempted providers failed", attempted), lastErr)
}

func (c *Chain) attempt(ctx context.Context, provider Provider, videoID, sourceURL string) (*Result, error) {
	attemptCtx := ctx
	if c.attemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.attemptTimeout)
		defer cancel()
	}
	return provider.Fetch(attemptCtx, videoID, sourceURL)
}

func (c *Chain) record(ctx context.Context, jobID string, event debuglog.Event) {
	if c.debug != nil {
		c.debug.Record(ctx, jobID, event)
	}
}
