package services

import (
	"errors"
	"testing"
)

func TestWrapPreservesMarker(t *testing.T) {
	inner := errors.New("connection reset")
	err := Wrap(ErrUpstream, "providers", "fetch", "innertube", inner)
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream marker, got %v", err)
	}
	if !errors.Is(err, inner) {
		t.Fatalf("expected wrapped inner error, got %v", err)
	}
}

func TestWrapNilMarkerDefaultsToUpstream(t *testing.T) {
	err := Wrap(nil, "providers", "fetch", "", nil)
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected default ErrUpstream marker, got %v", err)
	}
}

func TestCategory(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{Wrap(ErrInput, "chain", "parse", "bad url", nil), "input"},
		{Wrap(ErrQuotaExhausted, "chain", "gate", "", nil), "quota_exhausted"},
		{Wrap(ErrBlocked, "innertube", "player", "bot check", nil), "blocked"},
		{Wrap(ErrOversize, "speech", "upload", "", nil), "oversize"},
		{Wrap(ErrResourceUnavailable, "orchestrator", "probe", "", nil), "resource_unavailable"},
		{Wrap(ErrConfiguration, "config", "load", "", nil), "configuration"},
		{errors.New("anything else"), "upstream"},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := Category(tc.err); got != tc.want {
			t.Errorf("Category(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
