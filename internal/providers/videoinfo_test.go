package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"podscribe/internal/services"
)

func TestVideoInfoFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-Key"); got != "secret" {
			t.Errorf("api key header = %q", got)
		}
		if got := r.URL.Query().Get("video_id"); got != "dQw4w9WgXcQ" {
			t.Errorf("video_id = %q", got)
		}
		w.Write([]byte(`{"transcript":"full text here"}`))
	}))
	defer server.Close()

	gate := newFakeGate()
	provider := NewVideoInfoProvider("secret", server.URL, server.Client(), gate)
	result, err := provider.Fetch(context.Background(), "dQw4w9WgXcQ", "")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if result.Transcript != "full text here" {
		t.Fatalf("transcript = %q", result.Transcript)
	}
	if gate.counts[VideoInfoServiceName] != 1 {
		t.Fatalf("quota records = %d, want 1", gate.counts[VideoInfoServiceName])
	}
}

func TestVideoInfoJoinsSegments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"segments":[{"text":"first "},{"text":""},{"text":"second"}]}`))
	}))
	defer server.Close()

	provider := NewVideoInfoProvider("secret", server.URL, server.Client(), nil)
	result, err := provider.Fetch(context.Background(), "dQw4w9WgXcQ", "")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if result.Transcript != "first second" {
		t.Fatalf("transcript = %q", result.Transcript)
	}
}

func TestVideoInfoRecordsQuotaOnFailureToo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	gate := newFakeGate()
	provider := NewVideoInfoProvider("secret", server.URL, server.Client(), gate)
	if _, err := provider.Fetch(context.Background(), "dQw4w9WgXcQ", ""); !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("error = %v, want upstream marker", err)
	}
	if gate.counts[VideoInfoServiceName] != 1 {
		t.Fatalf("quota records = %d, failed calls still meter", gate.counts[VideoInfoServiceName])
	}
}

func TestVideoInfoVendorLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider := NewVideoInfoProvider("secret", server.URL, server.Client(), nil)
	if _, err := provider.Fetch(context.Background(), "dQw4w9WgXcQ", ""); !errors.Is(err, services.ErrQuotaExhausted) {
		t.Fatalf("error = %v, want quota marker", err)
	}
}

func TestVideoInfoMissingKey(t *testing.T) {
	provider := NewVideoInfoProvider("", "http://example.invalid", nil, nil)
	if _, err := provider.Fetch(context.Background(), "dQw4w9WgXcQ", ""); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("error = %v, want configuration marker", err)
	}
}
