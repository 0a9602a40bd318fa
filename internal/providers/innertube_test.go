package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"podscribe/internal/services"
)

type stubTranscriber struct {
	result  *Result
	err     error
	lastURL string
}

func (s *stubTranscriber) TranscribeStream(_ context.Context, audioURL string) (*Result, error) {
	s.lastURL = audioURL
	return s.result, s.err
}

func innertubeServer(t *testing.T, player map[string]any, captionBody string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/youtubei/v1/player":
			var req map[string]any
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode player request: %v", err)
			}
			if req["videoId"] != "dQw4w9WgXcQ" {
				t.Errorf("videoId = %v", req["videoId"])
			}
			json.NewEncoder(w).Encode(player)
		case "/caption":
			w.Write([]byte(captionBody))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestInnertubeCaptionTrackPath(t *testing.T) {
	var server *httptest.Server
	player := map[string]any{
		"playabilityStatus": map[string]any{"status": "OK"},
	}
	server = innertubeServer(t, player, captionJSON)
	defer server.Close()

	// The caption base URL must point back at the test server, so patch it in
	// after the server URL is known.
	player["captions"] = map[string]any{
		"playerCaptionsTracklistRenderer": map[string]any{
			"captionTracks": []map[string]any{
				{"baseUrl": server.URL + "/caption?x=1", "languageCode": "en"},
			},
		},
	}

	provider := NewInnertubeProvider(server.URL, "en", server.Client(), nil)
	result, err := provider.Fetch(context.Background(), "dQw4w9WgXcQ", "")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if result.Transcript != "hello world again" {
		t.Fatalf("transcript = %q", result.Transcript)
	}
	if result.Provider != "innertube" {
		t.Fatalf("provider = %q", result.Provider)
	}
}

func TestInnertubePrefersNonASRTrackInLanguage(t *testing.T) {
	player := &playerResponse{}
	player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks = []struct {
		BaseURL      string `json:"baseUrl"`
		LanguageCode string `json:"languageCode"`
		Kind         string `json:"kind"`
	}{
		{BaseURL: "http://x/asr", LanguageCode: "en", Kind: "asr"},
		{BaseURL: "http://x/de", LanguageCode: "de"},
		{BaseURL: "http://x/en", LanguageCode: "en"},
	}
	provider := NewInnertubeProvider("http://example.invalid", "en", nil, nil)
	if got := provider.pickCaptionTrack(player); got != "http://x/en" {
		t.Fatalf("picked %q", got)
	}
}

func TestInnertubeBotCheckBlocked(t *testing.T) {
	player := map[string]any{
		"playabilityStatus": map[string]any{
			"status": "LOGIN_REQUIRED",
			"reason": "Sign in to confirm you're not a bot",
		},
	}
	server := innertubeServer(t, player, "")
	defer server.Close()

	provider := NewInnertubeProvider(server.URL, "en", server.Client(), nil)
	if _, err := provider.Fetch(context.Background(), "dQw4w9WgXcQ", ""); !errors.Is(err, services.ErrBlocked) {
		t.Fatalf("error = %v, want blocked marker", err)
	}
}

func TestInnertubeUnplayableIsUpstream(t *testing.T) {
	player := map[string]any{
		"playabilityStatus": map[string]any{
			"status": "ERROR",
			"reason": "This video is unavailable",
		},
	}
	server := innertubeServer(t, player, "")
	defer server.Close()

	provider := NewInnertubeProvider(server.URL, "en", server.Client(), nil)
	if _, err := provider.Fetch(context.Background(), "dQw4w9WgXcQ", ""); !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("error = %v, want upstream marker", err)
	}
}

func TestInnertubeAudioFallback(t *testing.T) {
	player := map[string]any{
		"playabilityStatus": map[string]any{"status": "OK"},
		"streamingData": map[string]any{
			"adaptiveFormats": []map[string]any{
				{"itag": 137, "mimeType": `video/mp4; codecs="avc1.640028"`, "url": "http://stream/video"},
				{"itag": 251, "mimeType": `audio/webm; codecs="opus"`, "url": "http://stream/opus"},
				{"itag": 140, "mimeType": `audio/mp4; codecs="mp4a.40.2"`, "url": "http://stream/m4a"},
			},
		},
	}
	server := innertubeServer(t, player, "")
	defer server.Close()

	transcriber := &stubTranscriber{result: &Result{Transcript: "spoken words", AudioSizeBytes: 64000}}
	provider := NewInnertubeProvider(server.URL, "en", server.Client(), transcriber)
	result, err := provider.Fetch(context.Background(), "dQw4w9WgXcQ", "")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if transcriber.lastURL != "http://stream/m4a" {
		t.Fatalf("picked audio url %q, want the mp4a stream", transcriber.lastURL)
	}
	if result.Provider != "innertube" {
		t.Fatalf("provider = %q", result.Provider)
	}
	if result.Transcript != "spoken words" {
		t.Fatalf("transcript = %q", result.Transcript)
	}
}

func TestInnertubeNoAudioPathConfigured(t *testing.T) {
	player := map[string]any{
		"playabilityStatus": map[string]any{"status": "OK"},
		"streamingData": map[string]any{
			"adaptiveFormats": []map[string]any{
				{"itag": 251, "mimeType": `audio/webm; codecs="opus"`, "url": "http://stream/opus"},
			},
		},
	}
	server := innertubeServer(t, player, "")
	defer server.Close()

	provider := NewInnertubeProvider(server.URL, "en", server.Client(), nil)
	if _, err := provider.Fetch(context.Background(), "dQw4w9WgXcQ", ""); !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("error = %v, want upstream marker", err)
	}
}

func TestPickAudioFormatOrder(t *testing.T) {
	formats := []adaptiveFormat{
		{MimeType: `video/mp4; codecs="avc1"`, URL: "v"},
		{MimeType: `audio/webm; codecs="opus"`, URL: "opus"},
	}
	got, ok := pickAudioFormat(formats)
	if !ok || got.URL != "opus" {
		t.Fatalf("got %+v ok=%v", got, ok)
	}

	formats = append(formats, adaptiveFormat{MimeType: `audio/mp4; codecs="mp4a.40.2"`, URL: "m4a"})
	got, _ = pickAudioFormat(formats)
	if got.URL != "m4a" {
		t.Fatalf("mp4a should win over opus, got %q", got.URL)
	}

	if _, ok := pickAudioFormat(nil); ok {
		t.Fatal("no formats must not select anything")
	}
}

func TestInnertubeProbe(t *testing.T) {
	player := map[string]any{
		"playabilityStatus": map[string]any{"status": "OK"},
		"videoDetails":      map[string]any{"title": "Episode 3", "lengthSeconds": "1845"},
	}
	server := innertubeServer(t, player, "")
	defer server.Close()

	provider := NewInnertubeProvider(server.URL, "en", server.Client(), nil)
	meta, err := provider.Probe(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Probe error: %v", err)
	}
	if !meta.Playable || meta.DurationSeconds != 1845 || meta.Title != "Episode 3" {
		t.Fatalf("meta = %+v", meta)
	}
}

func TestInnertubeProbeUnplayable(t *testing.T) {
	player := map[string]any{
		"playabilityStatus": map[string]any{"status": "ERROR", "reason": "This video is private"},
		"videoDetails":      map[string]any{"lengthSeconds": "60"},
	}
	server := innertubeServer(t, player, "")
	defer server.Close()

	provider := NewInnertubeProvider(server.URL, "en", server.Client(), nil)
	meta, err := provider.Probe(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Probe error: %v", err)
	}
	if meta.Playable || meta.Reason != "This video is private" {
		t.Fatalf("meta = %+v", meta)
	}
}

func TestInnertubeHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "backend error")
	}))
	defer server.Close()

	provider := NewInnertubeProvider(server.URL, "en", server.Client(), nil)
	if _, err := provider.Fetch(context.Background(), "dQw4w9WgXcQ", ""); !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("error = %v, want upstream marker", err)
	}
}
