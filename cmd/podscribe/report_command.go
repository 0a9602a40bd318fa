package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var showEvents bool

	cmd := &cobra.Command{
		Use:   "report <job-id>",
		Short: "Show the debug report or event trail for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			jobID := args[0]
			out := cmd.OutOrStdout()

			if showEvents {
				events, err := rt.debug.Events(cmd.Context(), jobID)
				if err != nil {
					return err
				}
				if len(events) == 0 {
					fmt.Fprintln(out, "no events recorded for this job")
					return nil
				}
				rows := make([][]string, 0, len(events))
				for _, event := range events {
					rows = append(rows, []string{
						event.Timestamp.Format("15:04:05.000"),
						event.Step,
						event.Status,
						event.Provider,
						event.Message,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Time", "Step", "Status", "Provider", "Message"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			}

			report, err := rt.debug.LatestReport(cmd.Context(), jobID)
			if err != nil {
				return err
			}
			if report == "" {
				fmt.Fprintln(out, "no report recorded for this job (is debug logging enabled?)")
				return nil
			}
			fmt.Fprintln(out, report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showEvents, "events", false, "Show the raw event trail instead of the report")
	return cmd
}
