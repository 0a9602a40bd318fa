package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"podscribe/internal/services"
)

// CaptionsProvider fetches the platform's public caption track for a video.
// Free to call and usually the fastest path when the uploader published
// captions.
type CaptionsProvider struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

// NewCaptionsProvider constructs the caption track provider.
func NewCaptionsProvider(baseURL, language string, httpClient *http.Client) *CaptionsProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if strings.TrimSpace(language) == "" {
		language = "en"
	}
	return &CaptionsProvider{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		language:   language,
		httpClient: httpClient,
	}
}

func (p *CaptionsProvider) Name() string { return "captions" }

func (p *CaptionsProvider) MeteredService() string { return "" }

func (p *CaptionsProvider) Fetch(ctx context.Context, videoID, _ string) (*Result, error) {
	endpoint := fmt.Sprintf("%s/api/timedtext?v=%s&lang=%s&fmt=json3",
		p.baseURL, url.QueryEscape(videoID), url.QueryEscape(p.language))
	transcript, err := fetchCaptionTrack(ctx, p.httpClient, endpoint)
	if err != nil {
		return nil, err
	}
	return &Result{Transcript: transcript, Provider: p.Name()}, nil
}

// captionTrack models the platform's json3 caption payload.
type captionTrack struct {
	Events []struct {
		Segs []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// fetchCaptionTrack downloads and flattens one json3 caption document. Shared
// between the public caption endpoint and tracks discovered via the internal
// player API.
func fetchCaptionTrack(ctx context.Context, client *http.Client, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("captions: build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrUpstream, "captions", "fetch", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("captions: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		message := strings.TrimSpace(string(body))
		if IsBotCheckMessage(message) {
			return "", services.Wrap(services.ErrBlocked, "captions", "fetch", message, nil)
		}
		return "", services.Wrap(services.ErrUpstream, "captions", "fetch",
			fmt.Sprintf("http %d", resp.StatusCode), nil)
	}
	// The platform answers 200 with an empty body when no track exists.
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", services.Wrap(services.ErrUpstream, "captions", "fetch", "no caption track available", nil)
	}

	var track captionTrack
	if err := json.Unmarshal(body, &track); err != nil {
		return "", fmt.Errorf("captions: decode track: %w", err)
	}

	var builder strings.Builder
	for _, event := range track.Events {
		for _, seg := range event.Segs {
			text := seg.UTF8
			if text == "" || text == "\n" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteByte(' ')
			}
			builder.WriteString(strings.TrimSpace(text))
		}
	}
	transcript := strings.TrimSpace(builder.String())
	if transcript == "" {
		return "", services.Wrap(services.ErrUpstream, "captions", "fetch", "caption track is empty", nil)
	}
	return transcript, nil
}
