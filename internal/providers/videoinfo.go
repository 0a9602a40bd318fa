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

// VideoInfoServiceName is the quota ledger key for the metered third-party
// transcript API.
const VideoInfoServiceName = "videoinfo"

// VideoInfoProvider fetches transcripts from a commercial third-party API.
// Every call counts against a monthly quota whether or not it succeeds, so
// usage is recorded immediately after the request executes.
type VideoInfoProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	gate       QuotaGate
}

func NewVideoInfoProvider(apiKey, baseURL string, httpClient *http.Client, gate QuotaGate) *VideoInfoProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &VideoInfoProvider{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
		gate:       gate,
	}
}

func (p *VideoInfoProvider) Name() string { return "videoinfo" }

func (p *VideoInfoProvider) MeteredService() string { return VideoInfoServiceName }

type videoInfoResponse struct {
	Transcript string `json:"transcript"`
	Segments   []struct {
		Text string `json:"text"`
	} `json:"segments"`
	Error string `json:"error"`
}

func (p *VideoInfoProvider) Fetch(ctx context.Context, videoID, _ string) (*Result, error) {
	if p.apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "videoinfo", "fetch",
			"api key not configured", nil)
	}
	if p.baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "videoinfo", "fetch",
			"base url not configured", nil)
	}

	endpoint := fmt.Sprintf("%s/transcript?video_id=%s", p.baseURL, url.QueryEscape(videoID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("videoinfo: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if p.gate != nil {
		// The vendor meters the request itself, not its outcome.
		p.gate.Record(VideoInfoServiceName)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrUpstream, "videoinfo", "fetch", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("videoinfo: read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, services.Wrap(services.ErrQuotaExhausted, "videoinfo", "fetch",
			"vendor quota exhausted", nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrUpstream, "videoinfo", "fetch",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var parsed videoInfoResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("videoinfo: decode response: %w", err)
	}
	if parsed.Error != "" {
		return nil, services.Wrap(services.ErrUpstream, "videoinfo", "fetch", parsed.Error, nil)
	}

	transcript := strings.TrimSpace(parsed.Transcript)
	if transcript == "" && len(parsed.Segments) > 0 {
		parts := make([]string, 0, len(parsed.Segments))
		for _, segment := range parsed.Segments {
			if text := strings.TrimSpace(segment.Text); text != "" {
				parts = append(parts, text)
			}
		}
		transcript = strings.Join(parts, " ")
	}
	if transcript == "" {
		return nil, services.Wrap(services.ErrUpstream, "videoinfo", "fetch",
			"response contained no transcript", nil)
	}
	return &Result{Transcript: transcript, Provider: p.Name()}, nil
}
