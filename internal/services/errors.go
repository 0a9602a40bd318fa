package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInput marks unparseable or non-media input; nothing upstream was tried.
	ErrInput = errors.New("input error")
	// ErrQuotaExhausted marks a metered provider skipped because its monthly
	// allowance is spent.
	ErrQuotaExhausted = errors.New("quota exhausted")
	// ErrBlocked marks an explicit anti-automation response from the video
	// platform. Callers back off and suggest a manual path instead of retrying.
	ErrBlocked = errors.New("upstream blocked")
	// ErrUpstream marks a transient or permanent failure of a provider.
	ErrUpstream = errors.New("upstream failure")
	// ErrResourceUnavailable marks a missing host capability (decoder binary).
	ErrResourceUnavailable = errors.New("resource unavailable")
	// ErrOversize marks audio or transcript exceeding a provider's hard size limit.
	ErrOversize = errors.New("oversize input")
	// ErrConfiguration marks invalid or missing configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrUpstream
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Category returns the short taxonomy label for an error, used when writing
// debug events and report summaries.
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInput):
		return "input"
	case errors.Is(err, ErrQuotaExhausted):
		return "quota_exhausted"
	case errors.Is(err, ErrBlocked):
		return "blocked"
	case errors.Is(err, ErrResourceUnavailable):
		return "resource_unavailable"
	case errors.Is(err, ErrOversize):
		return "oversize"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "upstream"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
