// Package search resolves bare episode metadata (title, show name, approximate
// publish date) to a best-guess source URL by scoring video index candidates.
// The result is a heuristic match, never a confirmed one.
package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"podscribe/internal/logging"
	"podscribe/internal/search/youtube"
)

// Candidate score weights. Ties keep the first-seen (index-ranked) candidate
// because selection compares with a strict greater-than.
const (
	titleMatchScore   = 0.6
	podcastMatchScore = 0.3
	dateWindowScore   = 0.1
)

// Query describes the metadata available for an episode without a known URL.
type Query struct {
	Title          string
	PodcastName    string
	PublishedAt    time.Time
	DateBufferDays int
}

// Candidate is one scored search result.
type Candidate struct {
	VideoID      string
	Title        string
	ChannelTitle string
	PublishedAt  time.Time
	Score        float64
}

// Searcher is the video index operation the resolver needs.
type Searcher interface {
	Search(ctx context.Context, query string, opts youtube.SearchOptions) ([]youtube.Item, error)
}

// Resolver scores video index candidates against episode metadata.
type Resolver struct {
	client            Searcher
	maxResults        int
	defaultBufferDays int
	logger            *slog.Logger
}

// NewResolver constructs a resolver over the supplied video index client.
func NewResolver(client Searcher, maxResults, defaultBufferDays int, logger *slog.Logger) *Resolver {
	if maxResults <= 0 {
		maxResults = 10
	}
	if defaultBufferDays <= 0 {
		defaultBufferDays = 14
	}
	return &Resolver{
		client:            client,
		maxResults:        maxResults,
		defaultBufferDays: defaultBufferDays,
		logger:            logging.NewComponentLogger(logger, "search"),
	}
}

// BestMatch returns the watch URL of the highest-scoring candidate, or an
// empty string when the query fails validation or nothing matched.
func (r *Resolver) BestMatch(ctx context.Context, q Query) (string, error) {
	candidates, err := r.Candidates(ctx, q)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", nil
	}

	best := candidates[0]
	for _, candidate := range candidates[1:] {
		if candidate.Score > best.Score {
			best = candidate
		}
	}
	r.logger.Info("resolved candidate",
		logging.String("video_id", best.VideoID),
		logging.Float64("score", best.Score),
		logging.String("title", best.Title),
	)
	return youtube.WatchURL(best.VideoID), nil
}

// Candidates runs one search and scores every returned candidate in index
// order.
func (r *Resolver) Candidates(ctx context.Context, q Query) ([]Candidate, error) {
	title := strings.TrimSpace(q.Title)
	if title == "" {
		r.logger.Warn("candidate search skipped, title missing")
		return nil, nil
	}
	if r.client == nil {
		r.logger.Warn("candidate search skipped, no index client configured")
		return nil, nil
	}

	bufferDays := q.DateBufferDays
	if bufferDays <= 0 {
		bufferDays = r.defaultBufferDays
	}

	text := title
	if podcast := strings.TrimSpace(q.PodcastName); podcast != "" {
		text = title + " " + podcast
	}

	opts := youtube.SearchOptions{MaxResults: r.maxResults}
	if !q.PublishedAt.IsZero() {
		window := time.Duration(bufferDays) * 24 * time.Hour
		opts.PublishedAfter = q.PublishedAt.Add(-window)
		opts.PublishedBefore = q.PublishedAt.Add(window)
	}

	items, err := r.client.Search(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	if len(items) > r.maxResults {
		items = items[:r.maxResults]
	}

	candidates := make([]Candidate, 0, len(items))
	for _, item := range items {
		candidates = append(candidates, Candidate{
			VideoID:      item.VideoID,
			Title:        item.Title,
			ChannelTitle: item.ChannelTitle,
			PublishedAt:  item.PublishedAt,
			Score:        scoreCandidate(item, q, bufferDays),
		})
	}
	return candidates, nil
}

func scoreCandidate(item youtube.Item, q Query, bufferDays int) float64 {
	score := 0.0
	candidateTitle := strings.ToLower(item.Title)
	channel := strings.ToLower(item.ChannelTitle)

	if strings.Contains(candidateTitle, strings.ToLower(strings.TrimSpace(q.Title))) {
		score += titleMatchScore
	}
	if podcast := strings.ToLower(strings.TrimSpace(q.PodcastName)); podcast != "" {
		if strings.Contains(candidateTitle, podcast) || strings.Contains(channel, podcast) {
			score += podcastMatchScore
		}
	}
	if !q.PublishedAt.IsZero() && !item.PublishedAt.IsZero() {
		window := time.Duration(bufferDays) * 24 * time.Hour
		delta := item.PublishedAt.Sub(q.PublishedAt)
		if delta < 0 {
			delta = -delta
		}
		if delta <= window {
			score += dateWindowScore
		}
	}
	return score
}

// DisplayTitle normalizes a candidate title for table output.
func DisplayTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	return cases.Title(language.Und).String(title)
}
