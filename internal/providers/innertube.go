package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"podscribe/internal/services"
)

// AudioTranscriber turns a direct audio stream URL into a transcript. The
// chain wiring connects this to the segmented extract-and-transcribe routine.
type AudioTranscriber interface {
	TranscribeStream(ctx context.Context, audioURL string) (*Result, error)
}

// InnertubeProvider calls the platform's undocumented internal player API.
// It yields the richest metadata of any provider: caption tracks when they
// exist, adaptive audio formats when they do not. The platform actively
// resists automated access here, so anti-automation responses are detected
// and surfaced as a distinct blocked category.
type InnertubeProvider struct {
	baseURL     string
	language    string
	httpClient  *http.Client
	transcriber AudioTranscriber
}

// Innertube client identity sent with each player request.
const (
	innertubeClientName    = "ANDROID"
	innertubeClientVersion = "19.09.37"
)

// audioFormatPreferences lists known-good encodings in preference order. The
// richest-metadata provider does not always return the most compatible format
// first, so explicit audio tags beat whatever the platform offers.
var audioFormatPreferences = []string{
	`audio/mp4; codecs="mp4a`,
	`audio/webm; codecs="opus`,
}

// NewInnertubeProvider constructs the internal-API provider. transcriber may
// be nil, in which case videos without caption tracks fail over to the next
// provider in the chain.
func NewInnertubeProvider(baseURL, language string, httpClient *http.Client, transcriber AudioTranscriber) *InnertubeProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if strings.TrimSpace(language) == "" {
		language = "en"
	}
	return &InnertubeProvider{
		baseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		language:    language,
		httpClient:  httpClient,
		transcriber: transcriber,
	}
}

func (p *InnertubeProvider) Name() string { return "innertube" }

func (p *InnertubeProvider) MeteredService() string { return "" }

type playerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	VideoDetails struct {
		Title         string `json:"title"`
		LengthSeconds string `json:"lengthSeconds"`
	} `json:"videoDetails"`
	Captions struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []struct {
				BaseURL      string `json:"baseUrl"`
				LanguageCode string `json:"languageCode"`
				Kind         string `json:"kind"`
			} `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	StreamingData struct {
		AdaptiveFormats []adaptiveFormat `json:"adaptiveFormats"`
	} `json:"streamingData"`
}

type adaptiveFormat struct {
	Itag          int    `json:"itag"`
	MimeType      string `json:"mimeType"`
	URL           string `json:"url"`
	AudioQuality  string `json:"audioQuality"`
	ContentLength string `json:"contentLength"`
}

func (p *InnertubeProvider) Fetch(ctx context.Context, videoID, _ string) (*Result, error) {
	player, err := p.fetchPlayer(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if status := player.PlayabilityStatus.Status; status != "" && status != "OK" {
		reason := player.PlayabilityStatus.Reason
		if IsBotCheckMessage(reason) {
			return nil, services.Wrap(services.ErrBlocked, "innertube", "player", reason, nil)
		}
		return nil, services.Wrap(services.ErrUpstream, "innertube", "player",
			fmt.Sprintf("playability %s: %s", status, reason), nil)
	}

	if track := p.pickCaptionTrack(player); track != "" {
		transcript, err := fetchCaptionTrack(ctx, p.httpClient, track+"&fmt=json3")
		if err != nil {
			return nil, err
		}
		return &Result{Transcript: transcript, Provider: p.Name()}, nil
	}

	format, ok := pickAudioFormat(player.StreamingData.AdaptiveFormats)
	if !ok {
		return nil, services.Wrap(services.ErrUpstream, "innertube", "formats",
			"no caption tracks and no audio formats offered", nil)
	}
	if p.transcriber == nil {
		return nil, services.Wrap(services.ErrUpstream, "innertube", "formats",
			"no caption tracks; audio path not configured", nil)
	}

	result, err := p.transcriber.TranscribeStream(ctx, format.URL)
	if err != nil {
		return nil, err
	}
	result.Provider = p.Name()
	return result, nil
}

// Metadata describes a video without touching captions or audio streams.
type Metadata struct {
	Title           string
	DurationSeconds int64
	Playable        bool
	Reason          string
}

// Probe fetches playability and duration only, for dry-run validation ahead
// of a real job. Transport and anti-automation failures surface the same way
// a full fetch would; an unplayable video is reported in the metadata, not
// as an error.
func (p *InnertubeProvider) Probe(ctx context.Context, videoID string) (*Metadata, error) {
	player, err := p.fetchPlayer(ctx, videoID)
	if err != nil {
		return nil, err
	}
	meta := &Metadata{Title: player.VideoDetails.Title, Playable: true}
	if seconds, err := strconv.ParseInt(player.VideoDetails.LengthSeconds, 10, 64); err == nil {
		meta.DurationSeconds = seconds
	}
	if status := player.PlayabilityStatus.Status; status != "" && status != "OK" {
		meta.Playable = false
		meta.Reason = player.PlayabilityStatus.Reason
		if meta.Reason == "" {
			meta.Reason = "playability " + status
		}
	}
	return meta, nil
}

func (p *InnertubeProvider) fetchPlayer(ctx context.Context, videoID string) (*playerResponse, error) {
	payload := map[string]any{
		"context": map[string]any{
			"client": map[string]any{
				"clientName":    innertubeClientName,
				"clientVersion": innertubeClientVersion,
				"hl":            p.language,
			},
		},
		"videoId": videoID,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("innertube: encode request: %w", err)
	}
	endpoint := p.baseURL + "/youtubei/v1/player"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("innertube: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrUpstream, "innertube", "player", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("innertube: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		message := strings.TrimSpace(string(body))
		if IsBotCheckMessage(message) {
			return nil, services.Wrap(services.ErrBlocked, "innertube", "player", message, nil)
		}
		return nil, services.Wrap(services.ErrUpstream, "innertube", "player",
			fmt.Sprintf("http %d", resp.StatusCode), nil)
	}

	var player playerResponse
	if err := json.Unmarshal(body, &player); err != nil {
		return nil, fmt.Errorf("innertube: decode response: %w", err)
	}
	return &player, nil
}

// pickCaptionTrack prefers the configured language, then any non-ASR track,
// then whatever exists.
func (p *InnertubeProvider) pickCaptionTrack(player *playerResponse) string {
	tracks := player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return ""
	}
	for _, track := range tracks {
		if track.LanguageCode == p.language && track.Kind != "asr" {
			return track.BaseURL
		}
	}
	for _, track := range tracks {
		if track.LanguageCode == p.language {
			return track.BaseURL
		}
	}
	return tracks[0].BaseURL
}

// pickAudioFormat selects the most compatible audio stream: explicitly
// audio-tagged formats only, known-good encodings first, otherwise the first
// audio format offered.
func pickAudioFormat(formats []adaptiveFormat) (adaptiveFormat, bool) {
	var audio []adaptiveFormat
	for _, format := range formats {
		if strings.HasPrefix(format.MimeType, "audio/") && format.URL != "" {
			audio = append(audio, format)
		}
	}
	if len(audio) == 0 {
		return adaptiveFormat{}, false
	}
	for _, preferred := range audioFormatPreferences {
		for _, format := range audio {
			if strings.HasPrefix(format.MimeType, preferred) {
				return format, true
			}
		}
	}
	return audio[0], true
}
