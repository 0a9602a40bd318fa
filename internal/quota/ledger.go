// Package quota tracks month-scoped usage counters for metered external
// providers. The ledger is the only cross-job shared mutable state in the
// pipeline; all check-then-increment operations happen under one mutex.
package quota

import (
	"log/slog"
	"sync"
	"time"

	"podscribe/internal/logging"
)

// Usage reports the counter state after a Record call.
type Usage struct {
	Remaining int
	Limit     int
}

// Snapshot captures the live counter for one service.
type Snapshot struct {
	MonthKey string
	Count    int
	Limit    int
}

type entry struct {
	monthKey string
	count    int
}

// Ledger holds per-service monthly counters. Counters live in process memory
// only; a restart resets them. That is an accepted soft limit, not a billing
// control.
type Ledger struct {
	mu      sync.Mutex
	limits  map[string]int
	entries map[string]*entry
	now     func() time.Time
	logger  *slog.Logger
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source (used in tests to cross month
// boundaries).
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLedger constructs a ledger with per-service monthly limits. A missing or
// non-positive limit means the service is not metered by this ledger.
func NewLedger(limits map[string]int, logger *slog.Logger, opts ...Option) *Ledger {
	cp := make(map[string]int, len(limits))
	for service, limit := range limits {
		cp[service] = limit
	}
	ledger := &Ledger{
		limits:  cp,
		entries: make(map[string]*entry),
		now:     time.Now,
		logger:  logging.NewComponentLogger(logger, "quota"),
	}
	for _, opt := range opts {
		opt(ledger)
	}
	return ledger
}

// IsAllowed reports whether the service may be invoked this month. Callers
// must check before performing the metered call and Record only after the
// call actually executed.
func (l *Ledger) IsAllowed(service string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit := l.limits[service]
	if limit <= 0 {
		return true
	}
	return l.current(service).count < limit
}

// Record increments the counter for the service. It always increments,
// regardless of whether IsAllowed was consulted; over-counting silently
// starves legitimate usage for the rest of the month, so callers record only
// calls that executed.
func (l *Ledger) Record(service string) Usage {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit := l.limits[service]
	e := l.current(service)
	e.count++

	remaining := -1
	if limit > 0 {
		remaining = limit - e.count
		if remaining < 0 {
			remaining = 0
		}
	}
	l.logger.Debug("recorded metered call",
		logging.String(logging.FieldService, service),
		logging.Int("count", e.count),
		logging.Int("limit", limit),
	)
	return Usage{Remaining: remaining, Limit: limit}
}

// SnapshotFor returns the live counter for the service.
func (l *Ledger) SnapshotFor(service string) Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.current(service)
	return Snapshot{MonthKey: e.monthKey, Count: e.count, Limit: l.limits[service]}
}

// Services lists every service the ledger has a configured limit for.
func (l *Ledger) Services() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := make([]string, 0, len(l.limits))
	for service := range l.limits {
		names = append(names, service)
	}
	return names
}

// current returns the live entry for service, rolling the counter over when
// the UTC calendar month has changed since the last access. Callers must hold
// l.mu.
func (l *Ledger) current(service string) *entry {
	key := monthKey(l.now())
	e, ok := l.entries[service]
	if !ok {
		e = &entry{monthKey: key}
		l.entries[service] = e
		return e
	}
	if e.monthKey != key {
		l.logger.Info("quota month rollover",
			logging.String(logging.FieldService, service),
			logging.String("previous_month", e.monthKey),
			logging.String("month", key),
		)
		e.monthKey = key
		e.count = 0
	}
	return e
}

func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
