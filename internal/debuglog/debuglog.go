// Package debuglog maintains the append-only structured event stream written
// for every generation job. Events are persisted one object each at paths that
// sort lexicographically, so read-side ordering is a plain name sort. A
// logging failure here must never abort the pipeline it is observing; every
// storage error is swallowed after being logged.
package debuglog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"podscribe/internal/logging"
)

// Event statuses.
const (
	StatusStart   = "start"
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusInfo    = "info"
)

// Event is one structured record of a pipeline step's outcome.
type Event struct {
	Step      string         `json:"step"`
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	Provider  string         `json:"provider,omitempty"`
	ElapsedMs int64          `json:"elapsed_ms,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Log writes debug events and consolidated reports to an object store.
type Log struct {
	enabled bool
	store   ObjectStore
	logger  *slog.Logger
	now     func() time.Time
}

// Option customizes a Log.
type Option func(*Log)

// WithClock overrides the time source (used in tests for stable paths).
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

// New constructs a debug log. When enabled is false, or store is nil, every
// method is a no-op.
func New(enabled bool, store ObjectStore, logger *slog.Logger, opts ...Option) *Log {
	log := &Log{
		enabled: enabled && store != nil,
		store:   store,
		logger:  logging.NewComponentLogger(logger, "debuglog"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(log)
	}
	return log
}

// Enabled reports whether events are being persisted.
func (l *Log) Enabled() bool {
	return l != nil && l.enabled
}

// Record appends one event under the job's namespace. Storage errors are
// logged and dropped.
func (l *Log) Record(ctx context.Context, jobID string, event Event) {
	if !l.Enabled() || strings.TrimSpace(jobID) == "" {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		l.logger.Warn("encode debug event failed", logging.Error(err))
		return
	}
	path := fmt.Sprintf("jobs/%s/events/%s-%s.json", jobID, sortableStamp(event.Timestamp), sanitizeStep(event.Step))
	if err := l.store.Put(ctx, path, payload, "application/json"); err != nil {
		l.logger.Warn("write debug event failed",
			logging.String(logging.FieldJobID, jobID),
			logging.String("path", path),
			logging.Error(err),
		)
	}
}

// RecordReport writes a consolidated human-readable report artifact for the
// job. Storage errors are logged and dropped.
func (l *Log) RecordReport(ctx context.Context, jobID, content string) {
	if !l.Enabled() || strings.TrimSpace(jobID) == "" {
		return
	}
	path := fmt.Sprintf("jobs/%s/reports/%s.md", jobID, sortableStamp(l.now().UTC()))
	if err := l.store.Put(ctx, path, []byte(content), "text/markdown"); err != nil {
		l.logger.Warn("write debug report failed",
			logging.String(logging.FieldJobID, jobID),
			logging.String("path", path),
			logging.Error(err),
		)
	}
}

// Events returns the job's event stream in write order.
func (l *Log) Events(ctx context.Context, jobID string) ([]Event, error) {
	if l == nil || l.store == nil {
		return nil, nil
	}
	prefix := fmt.Sprintf("jobs/%s/events/", jobID)
	names, err := l.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list debug events: %w", err)
	}
	sort.Strings(names)

	events := make([]Event, 0, len(names))
	for _, name := range names {
		data, err := l.store.Get(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("read debug event %s: %w", name, err)
		}
		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("decode debug event %s: %w", name, err)
		}
		events = append(events, event)
	}
	return events, nil
}

// LatestReport returns the most recent consolidated report for the job, or an
// empty string when none exists.
func (l *Log) LatestReport(ctx context.Context, jobID string) (string, error) {
	if l == nil || l.store == nil {
		return "", nil
	}
	prefix := fmt.Sprintf("jobs/%s/reports/", jobID)
	names, err := l.store.List(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("list debug reports: %w", err)
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	data, err := l.store.Get(ctx, names[0])
	if err != nil {
		return "", fmt.Errorf("read debug report %s: %w", names[0], err)
	}
	return string(data), nil
}

// sortableStamp formats a timestamp so lexicographic name order matches write
// order down to nanoseconds.
func sortableStamp(t time.Time) string {
	return t.UTC().Format("20060102T150405.000000000")
}

func sanitizeStep(step string) string {
	step = strings.ToLower(strings.TrimSpace(step))
	if step == "" {
		return "event"
	}
	var b strings.Builder
	for _, r := range step {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
