// Package speech wraps the metered speech-to-text endpoint that turns
// extracted PCM audio segments into transcript text.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"podscribe/internal/services"
)

// Config captures the runtime settings for the transcription endpoint.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	MaxUploadBytes int64
	TimeoutSeconds int
}

// Client issues transcription requests against an OpenAI-compatible
// /audio/transcriptions endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a transcription client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := 300 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			MaxUploadBytes: cfg.MaxUploadBytes,
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Transcribe uploads one audio segment and returns its transcript text. The
// upload size is checked against the provider's hard limit before any bytes
// travel; oversize input carries a distinct marker because the remediation
// (shorten the segment) differs from a generic upstream failure.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "speech", "transcribe", "api key required", nil)
	}
	if len(audio) == 0 {
		return "", services.Wrap(services.ErrInput, "speech", "transcribe", "empty audio segment", nil)
	}
	if c.cfg.MaxUploadBytes > 0 && int64(len(audio)) > c.cfg.MaxUploadBytes {
		return "", services.Wrap(services.ErrOversize, "speech", "transcribe",
			fmt.Sprintf("segment is %d bytes, provider limit is %d", len(audio), c.cfg.MaxUploadBytes), nil)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileNameFor(mimeType))
	if err != nil {
		return "", fmt.Errorf("speech request: build form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("speech request: write audio: %w", err)
	}
	if err := writer.WriteField("model", c.cfg.Model); err != nil {
		return "", fmt.Errorf("speech request: write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("speech request: close form: %w", err)
	}

	endpoint := c.cfg.BaseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("speech request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrUpstream, "speech", "transcribe", "", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("speech request: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrUpstream, "speech", "transcribe",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}

	var decoded struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", fmt.Errorf("speech request: decode response: %w", err)
	}
	if strings.TrimSpace(decoded.Text) == "" {
		return "", errors.New("speech request: empty transcript in response")
	}
	return decoded.Text, nil
}

func fileNameFor(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "wav"):
		return "segment.wav"
	case strings.Contains(mimeType, "mp4"), strings.Contains(mimeType, "m4a"):
		return "segment.m4a"
	case strings.Contains(mimeType, "webm"):
		return "segment.webm"
	default:
		return "segment.mp3"
	}
}
