package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podscribe/internal/orchestrator"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var episodeTitle string
	var podcastName string
	var showTranscript bool

	cmd := &cobra.Command{
		Use:   "transcribe <url>",
		Short: "Fetch a transcript for an episode URL and summarize it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.acquireLock(); err != nil {
				return err
			}

			outcome, err := rt.orch.Transcribe(cmd.Context(), orchestrator.Request{
				SourceURL:    args[0],
				EpisodeTitle: episodeTitle,
				PodcastName:  podcastName,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Job", "Provider", "Transcript", "Chunks", "Model calls"},
				[][]string{{
					outcome.JobID,
					outcome.Provider,
					fmt.Sprintf("%d chars", len(outcome.Transcript)),
					fmt.Sprintf("%d", outcome.SummaryChunks),
					fmt.Sprintf("%d", outcome.ModelCalls),
				}},
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
			))
			fmt.Fprintln(out)
			fmt.Fprintln(out, outcome.Summary)
			if showTranscript {
				fmt.Fprintln(out)
				fmt.Fprintln(out, outcome.Transcript)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&episodeTitle, "title", "", "Episode title stored on the job record")
	cmd.Flags().StringVar(&podcastName, "podcast", "", "Podcast name stored on the job record")
	cmd.Flags().BoolVar(&showTranscript, "transcript", false, "Print the full transcript after the summary")
	return cmd
}

func newValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <url>",
		Short: "Check whether a URL can be transcribed without running the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			verdict, err := rt.orch.ValidateForTranscription(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !verdict.Suitable {
				fmt.Fprintf(out, "not suitable: %s\n", verdict.Reason)
				return nil
			}
			fmt.Fprintf(out, "ok: video id %s\n", verdict.VideoID)
			if verdict.DurationSeconds > 0 {
				fmt.Fprintf(out, "duration: %ds\n", verdict.DurationSeconds)
			}
			return nil
		},
	}
}
