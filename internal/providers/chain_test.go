package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"podscribe/internal/debuglog"
	"podscribe/internal/logging"
	"podscribe/internal/services"
)

type scriptedProvider struct {
	name    string
	metered string
	result  *Result
	err     error
	calls   int
}

func (p *scriptedProvider) Name() string           { return p.name }
func (p *scriptedProvider) MeteredService() string { return p.metered }

func (p *scriptedProvider) Fetch(_ context.Context, _, _ string) (*Result, error) {
	p.calls++
	return p.result, p.err
}

const chainTestURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func TestChainFirstSuccessWins(t *testing.T) {
	first := &scriptedProvider{name: "captions", result: &Result{Transcript: "from captions"}}
	second := &scriptedProvider{name: "innertube", result: &Result{Transcript: "never used"}}

	chain := NewChain([]Provider{first, second}, newFakeGate(), logging.NewNop())
	result, err := chain.Resolve(context.Background(), "job-1", chainTestURL)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if result.Transcript != "from captions" || result.Provider != "captions" {
		t.Fatalf("result = %+v", result)
	}
	if second.calls != 0 {
		t.Fatal("later provider must not run after a success")
	}
}

func TestChainFallsThroughFailures(t *testing.T) {
	first := &scriptedProvider{name: "captions", err: services.Wrap(services.ErrUpstream, "captions", "fetch", "no track", nil)}
	second := &scriptedProvider{name: "innertube", result: &Result{Transcript: "recovered"}}

	chain := NewChain([]Provider{first, second}, newFakeGate(), logging.NewNop())
	result, err := chain.Resolve(context.Background(), "job-1", chainTestURL)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if result.Provider != "innertube" {
		t.Fatalf("provider = %q", result.Provider)
	}
}

func TestChainSkipsQuotaExhaustedMetered(t *testing.T) {
	gate := newFakeGate()
	gate.allowed[VideoInfoServiceName] = false

	metered := &scriptedProvider{name: "videoinfo", metered: VideoInfoServiceName, result: &Result{Transcript: "should not run"}}
	fallback := &scriptedProvider{name: "speech", metered: SpeechServiceName, result: &Result{Transcript: "spoken"}}

	chain := NewChain([]Provider{metered, fallback}, gate, logging.NewNop())
	result, err := chain.Resolve(context.Background(), "job-1", chainTestURL)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if metered.calls != 0 {
		t.Fatal("quota-exhausted provider must be skipped without an attempt")
	}
	if result.Provider != "speech" {
		t.Fatalf("provider = %q", result.Provider)
	}
}

func TestChainAllSkippedIsQuotaError(t *testing.T) {
	gate := newFakeGate()
	gate.allowed[VideoInfoServiceName] = false
	gate.allowed[SpeechServiceName] = false

	providers := []Provider{
		&scriptedProvider{name: "videoinfo", metered: VideoInfoServiceName},
		&scriptedProvider{name: "speech", metered: SpeechServiceName},
	}
	chain := NewChain(providers, gate, logging.NewNop())
	_, err := chain.Resolve(context.Background(), "job-1", chainTestURL)
	if !errors.Is(err, services.ErrQuotaExhausted) {
		t.Fatalf("error = %v, want quota marker", err)
	}
}

func TestChainAllFailedKeepsLastError(t *testing.T) {
	lastErr := services.Wrap(services.ErrUpstream, "innertube", "player", "unavailable", nil)
	providers := []Provider{
		&scriptedProvider{name: "captions", err: services.Wrap(services.ErrUpstream, "captions", "fetch", "no track", nil)},
		&scriptedProvider{name: "innertube", err: lastErr},
	}
	chain := NewChain(providers, newFakeGate(), logging.NewNop())
	_, err := chain.Resolve(context.Background(), "job-1", chainTestURL)
	if !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("error = %v, want upstream marker", err)
	}
	if !errors.Is(err, lastErr) {
		t.Fatalf("error %v does not wrap the last attempt failure", err)
	}
}

func TestChainBlockedDominatesTerminalError(t *testing.T) {
	providers := []Provider{
		&scriptedProvider{name: "captions", err: services.Wrap(services.ErrBlocked, "captions", "fetch", "sign in to confirm", nil)},
		&scriptedProvider{name: "innertube", err: services.Wrap(services.ErrUpstream, "innertube", "player", "unavailable", nil)},
	}
	chain := NewChain(providers, newFakeGate(), logging.NewNop())
	_, err := chain.Resolve(context.Background(), "job-1", chainTestURL)
	if !errors.Is(err, services.ErrBlocked) {
		t.Fatalf("error = %v, want blocked marker", err)
	}
}

func TestChainInvalidURLNoAttempts(t *testing.T) {
	provider := &scriptedProvider{name: "captions", result: &Result{Transcript: "x"}}
	chain := NewChain([]Provider{provider}, newFakeGate(), logging.NewNop())
	_, err := chain.Resolve(context.Background(), "job-1", "https://vimeo.com/nope")
	if !errors.Is(err, services.ErrInput) {
		t.Fatalf("error = %v, want input marker", err)
	}
	if provider.calls != 0 {
		t.Fatal("no provider may run for an invalid url")
	}
}

func TestChainRecordsDebugEvents(t *testing.T) {
	store, err := debuglog.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	debug := debuglog.New(true, store, logging.NewNop(), debuglog.WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}))

	// One quota-skipped provider, one blocked provider, one success: the
	// trail holds exactly one event per provider, in provider order.
	gate := newFakeGate()
	gate.allowed[VideoInfoServiceName] = false
	providers := []Provider{
		&scriptedProvider{name: "videoinfo", metered: VideoInfoServiceName},
		&scriptedProvider{name: "innertube", err: services.Wrap(services.ErrBlocked, "innertube", "player", "sign in to confirm", nil)},
		&scriptedProvider{name: "captions", result: &Result{Transcript: "hello"}},
	}
	chain := NewChain(providers, gate, logging.NewNop(), WithDebugLog(debug))
	if _, err := chain.Resolve(context.Background(), "job-9", chainTestURL); err != nil {
		t.Fatalf("Resolve error: %v", err)
	}

	events, err := debug.Events(context.Background(), "job-9")
	if err != nil {
		t.Fatalf("Events error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("event count = %d, want skip + fail + success", len(events))
	}
	if events[0].Status != debuglog.StatusInfo || events[0].Provider != "videoinfo" {
		t.Fatalf("first event = %+v, want quota skip info", events[0])
	}
	if events[1].Status != debuglog.StatusFail || events[1].Provider != "innertube" {
		t.Fatalf("second event = %+v, want blocked failure", events[1])
	}
	if events[2].Status != debuglog.StatusSuccess || events[2].Provider != "captions" {
		t.Fatalf("third event = %+v", events[2])
	}
}

func TestChainAttemptTimeout(t *testing.T) {
	slow := providerFunc{
		name: "captions",
		fetch: func(ctx context.Context, _, _ string) (*Result, error) {
			<-ctx.Done()
			return nil, services.Wrap(services.ErrUpstream, "captions", "fetch", "", ctx.Err())
		},
	}
	fast := &scriptedProvider{name: "innertube", result: &Result{Transcript: "quick"}}

	chain := NewChain([]Provider{slow, fast}, newFakeGate(), logging.NewNop(), WithAttemptTimeout(10*time.Millisecond))
	result, err := chain.Resolve(context.Background(), "job-1", chainTestURL)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if result.Provider != "innertube" {
		t.Fatalf("provider = %q", result.Provider)
	}
}

type providerFunc struct {
	name  string
	fetch func(ctx context.Context, videoID, sourceURL string) (*Result, error)
}

func (p providerFunc) Name() string           { return p.name }
func (p providerFunc) MeteredService() string { return "" }
func (p providerFunc) Fetch(ctx context.Context, videoID, sourceURL string) (*Result, error) {
	return p.fetch(ctx, videoID, sourceURL)
}
