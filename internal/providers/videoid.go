package providers

import (
	"net/url"
	"strings"

	"podscribe/internal/services"
)

// ParseVideoID extracts the stable video identifier from a source URL.
// Failure here is terminal for the whole chain; no provider is tried against
// a reference we cannot identify.
func ParseVideoID(sourceURL string) (string, error) {
	trimmed := strings.TrimSpace(sourceURL)
	if trimmed == "" {
		return "", services.Wrap(services.ErrInput, "providers", "parse", "source url required", nil)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", services.Wrap(services.ErrInput, "providers", "parse", "malformed url "+trimmed, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", services.Wrap(services.ErrInput, "providers", "parse", "unsupported scheme "+parsed.Scheme, nil)
	}

	host := strings.ToLower(strings.TrimPrefix(parsed.Hostname(), "www."))
	var candidate string
	switch host {
	case "youtu.be":
		candidate = firstPathSegment(parsed.Path)
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		segments := splitPath(parsed.Path)
		switch {
		case len(segments) > 0 && segments[0] == "watch":
			candidate = parsed.Query().Get("v")
		case len(segments) > 1 && (segments[0] == "shorts" || segments[0] == "embed" || segments[0] == "live"):
			candidate = segments[1]
		}
	default:
		return "", services.Wrap(services.ErrInput, "providers", "parse", "unrecognized media host "+host, nil)
	}

	if !validVideoID(candidate) {
		return "", services.Wrap(services.ErrInput, "providers", "parse", "no video id in url "+trimmed, nil)
	}
	return candidate, nil
}

func firstPathSegment(path string) string {
	segments := splitPath(path)
	if len(segments) == 0 {
		return ""
	}
	return segments[0]
}

func splitPath(path string) []string {
	raw := strings.Split(strings.Trim(path, "/"), "/")
	segments := make([]string, 0, len(raw))
	for _, segment := range raw {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}

func validVideoID(id string) bool {
	if len(id) < 8 || len(id) > 16 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
