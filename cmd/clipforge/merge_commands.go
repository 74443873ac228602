package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/jobs"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var outputName string
	var normalize bool
	var gainDB float64
	var wait bool

	cmd := &cobra.Command{
		Use:   "merge <clip-id>...",
		Short: "Merge clips into a single track",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()
			ack, err := client.Merge(api.MergeRequest{
				FileIDs:         args,
				OutputName:      outputName,
				NormalizeVolume: normalize,
				NormalizeGainDB: gainDB,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Merge queued: task %s (%d clips)\n", ack.TaskID, ack.TotalFiles)
			if !wait {
				return nil
			}
			return watchTask(cmd, client, ack.TaskID)
		},
	}

	cmd.Flags().StringVarP(&outputName, "name", "n", "", "Name for the merged track (required)")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "Apply a volume adjustment to the merged audio")
	cmd.Flags().Float64Var(&gainDB, "gain", 0, "Gain in dB applied when --normalize is set")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the merge to finish")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newTaskCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "task <task-id>",
		Short: "Show the status of a merge task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := ctx.client().TaskStatus(args[0])
			if err != nil {
				return err
			}
			printTaskStatus(cmd, status)
			return nil
		},
	}
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <task-id>",
		Short: "Request cancellation of a merge task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.client().Cancel(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s: %s\n", resp.TaskID, resp.Status)
			return nil
		},
	}
}

func watchTask(cmd *cobra.Command, client *apiClient, taskID string) error {
	out := cmd.OutOrStdout()
	lastLine := ""
	for {
		status, err := client.TaskStatus(taskID)
		if err != nil {
			return err
		}
		line := fmt.Sprintf("%3d%% %s", status.Progress, status.Stage)
		if line != lastLine {
			fmt.Fprintln(out, line)
			lastLine = line
		}
		switch status.Status {
		case string(jobs.StatusCompleted):
			fmt.Fprintf(out, "Completed: %s (%s)\n", status.File.DisplayName, status.File.ID)
			return nil
		case string(jobs.StatusFailed):
			return fmt.Errorf("merge failed: %s", status.Error)
		case string(jobs.StatusCancelled):
			fmt.Fprintln(out, "Cancelled")
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func printTaskStatus(cmd *cobra.Command, status api.TaskStatusResponse) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Task:     %s\n", status.TaskID)
	fmt.Fprintf(out, "Status:   %s\n", status.Status)
	fmt.Fprintf(out, "Progress: %d%%\n", status.Progress)
	if status.Stage != "" {
		fmt.Fprintf(out, "Stage:    %s\n", status.Stage)
	}
	if status.TotalCount > 0 {
		fmt.Fprintf(out, "Clips:    %d/%d\n", status.CurrentIndex, status.TotalCount)
	}
	if status.Error != "" {
		fmt.Fprintf(out, "Error:    %s\n", status.Error)
	}
	if status.File != nil {
		fmt.Fprintf(out, "Output:   %s (%s)\n", status.File.DisplayName, status.File.ID)
	}
}
