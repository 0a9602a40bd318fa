package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"podscribe/internal/search"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var podcastName string
	var publishedAt string
	var bufferDays int
	var listCandidates bool

	cmd := &cobra.Command{
		Use:   "search <episode-title>",
		Short: "Resolve episode metadata to a best-guess watch URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			query := search.Query{
				Title:          args[0],
				PodcastName:    podcastName,
				DateBufferDays: bufferDays,
			}
			if publishedAt != "" {
				parsed, err := time.Parse("2006-01-02", publishedAt)
				if err != nil {
					return fmt.Errorf("parse --published: %w", err)
				}
				query.PublishedAt = parsed
			}

			out := cmd.OutOrStdout()
			if listCandidates {
				candidates, err := rt.resolver.Candidates(cmd.Context(), query)
				if err != nil {
					return err
				}
				if len(candidates) == 0 {
					fmt.Fprintln(out, "no candidates found")
					return nil
				}
				rows := make([][]string, 0, len(candidates))
				for _, candidate := range candidates {
					published := ""
					if !candidate.PublishedAt.IsZero() {
						published = candidate.PublishedAt.Format("2006-01-02")
					}
					rows = append(rows, []string{
						candidate.VideoID,
						search.DisplayTitle(candidate.Title),
						candidate.ChannelTitle,
						published,
						fmt.Sprintf("%.1f", candidate.Score),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Video", "Title", "Channel", "Published", "Score"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			}

			watchURL, err := rt.resolver.BestMatch(cmd.Context(), query)
			if err != nil {
				return err
			}
			if watchURL == "" {
				fmt.Fprintln(out, "no match found")
				return nil
			}
			fmt.Fprintln(out, watchURL)
			return nil
		},
	}

	cmd.Flags().StringVar(&podcastName, "podcast", "", "Podcast name to weight candidate scoring")
	cmd.Flags().StringVar(&publishedAt, "published", "", "Approximate publish date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&bufferDays, "buffer-days", 0, "Date window half-width in days (default from config)")
	cmd.Flags().BoolVar(&listCandidates, "candidates", false, "List every scored candidate instead of the best match")
	return cmd
}
