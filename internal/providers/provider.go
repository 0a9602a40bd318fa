// Package providers implements the ordered chain of interchangeable
// strategies that turn a source URL into a transcript. Providers are tried
// first-success-wins; metered providers are gated by the quota ledger and
// skipped, not failed, when their monthly allowance is spent.
package providers

import (
	"context"

	"podscribe/internal/quota"
)

// Result is the successful outcome of one provider attempt.
type Result struct {
	Transcript     string
	AudioSizeBytes int64
	Provider       string
}

// Provider is one extraction strategy in the chain.
type Provider interface {
	// Name identifies the provider in logs and debug events.
	Name() string
	// MeteredService returns the quota ledger key for this provider, or an
	// empty string when the provider is free to call.
	MeteredService() string
	// Fetch attempts extraction for the parsed video ID. sourceURL is the
	// original reference for strategies that operate on the raw stream.
	Fetch(ctx context.Context, videoID, sourceURL string) (*Result, error)
}

// QuotaGate is the ledger surface the chain and metered providers consume.
type QuotaGate interface {
	IsAllowed(service string) bool
	Record(service string) quota.Usage
}
