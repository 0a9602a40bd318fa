// Package youtube provides a minimal client for the YouTube Data API search
// endpoint, used to resolve metadata-only episode references to a video.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Item represents a single video search match.
type Item struct {
	VideoID      string
	Title        string
	ChannelTitle string
	PublishedAt  time.Time
}

// SearchOptions contains optional parameters for a video search.
type SearchOptions struct {
	MaxResults      int
	PublishedAfter  time.Time
	PublishedBefore time.Time
}

// Client provides access to the video index for searches.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a video search client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("search api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("search base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
		} `json:"snippet"`
	} `json:"items"`
}

// Search issues one video search for the supplied text query.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]Item, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	endpoint, err := url.Parse(c.baseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("parse search url: %w", err)
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("key", c.apiKey)
	if !opts.PublishedAfter.IsZero() {
		params.Set("publishedAfter", opts.PublishedAfter.UTC().Format(time.RFC3339))
	}
	if !opts.PublishedBefore.IsZero() {
		params.Set("publishedBefore", opts.PublishedBefore.UTC().Format(time.RFC3339))
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded searchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	items := make([]Item, 0, len(decoded.Items))
	for _, raw := range decoded.Items {
		if raw.ID.VideoID == "" {
			continue
		}
		item := Item{
			VideoID:      raw.ID.VideoID,
			Title:        raw.Snippet.Title,
			ChannelTitle: raw.Snippet.ChannelTitle,
		}
		if raw.Snippet.PublishedAt != "" {
			if published, perr := time.Parse(time.RFC3339, raw.Snippet.PublishedAt); perr == nil {
				item.PublishedAt = published
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// WatchURL returns the canonical watch URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID)
}
