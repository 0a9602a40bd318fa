package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podscribe/internal/jobs"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string
	var limit int

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List generation jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			list, err := rt.store.List(cmd.Context(), jobs.Status(statusFilter), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "no jobs")
				return nil
			}

			rows := make([][]string, 0, len(list))
			for _, job := range list {
				detail := job.Provider
				if job.Status == jobs.StatusFailed {
					detail = job.FailureCategory
				}
				rows = append(rows, []string{
					job.ID,
					string(job.Status),
					detail,
					fmt.Sprintf("%d", job.TranscriptChars),
					job.CreatedAt,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Job", "Status", "Provider/Failure", "Transcript", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (pending, running, completed, failed)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows to list")
	return cmd
}

func newQuotaCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show metered provider limits for the current month",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			rows := make([][]string, 0, 2)
			for _, service := range rt.ledger.Services() {
				snapshot := rt.ledger.SnapshotFor(service)
				limit := "unmetered"
				if snapshot.Limit > 0 {
					limit = fmt.Sprintf("%d", snapshot.Limit)
				}
				rows = append(rows, []string{
					service,
					snapshot.MonthKey,
					fmt.Sprintf("%d", snapshot.Count),
					limit,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Service", "Month", "Used", "Limit"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
			))
			fmt.Fprintln(cmd.OutOrStdout(), "counters reset when the process restarts; limits are soft caps, not billing controls")
			return nil
		},
	}
}
