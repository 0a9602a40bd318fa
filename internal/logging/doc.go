// Package logging assembles the structured slog loggers used across the
// podscribe pipeline.
//
// It centralizes level and output plumbing and exposes attribute helpers so
// pipeline code tags log lines with job IDs, providers, and components the
// same way everywhere. A no-op logger is provided for tests and wiring code
// that cannot fail.
package logging
