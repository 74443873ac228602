package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := ctx.client().Status()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Running:      %s (pid %d)\n", yesNo(status.Running), status.PID)
			fmt.Fprintf(out, "Library DB:   %s\n", status.LibraryDBPath)
			fmt.Fprintf(out, "Lock file:    %s\n", status.LockFilePath)
			fmt.Fprintf(out, "Clips:        %d\n", status.ClipCount)
			fmt.Fprintf(out, "Merged:       %d\n", status.MergedCount)
			fmt.Fprintf(out, "Workers:      %d (queue depth %d)\n", status.WorkerCount, status.QueueDepth)
			fmt.Fprintf(out, "Subscribers:  %d\n", status.Subscribers)

			if len(status.Dependencies) > 0 {
				rows := make([][]string, 0, len(status.Dependencies))
				for _, dep := range status.Dependencies {
					state := "ok"
					if !dep.Available {
						state = dep.Detail
						if state == "" {
							state = "missing"
						}
					}
					rows = append(rows, []string{dep.Name, dep.Command, state})
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable(
					[]string{"Dependency", "Command", "State"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft},
				))
			}

			if len(status.JobCounts) > 0 {
				statuses := make([]string, 0, len(status.JobCounts))
				for name := range status.JobCounts {
					statuses = append(statuses, name)
				}
				sort.Strings(statuses)
				rows := make([][]string, 0, len(statuses))
				for _, name := range statuses {
					rows = append(rows, []string{name, strconv.Itoa(status.JobCounts[name])})
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable(
					[]string{"Job status", "Count"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
			}
			return nil
		},
	}
}
