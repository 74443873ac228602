package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
)

func newClipsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clips",
		Short: "List uploaded clips in library order",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := ctx.client().ListClips()
			if err != nil {
				return err
			}
			printItemTable(cmd, items, false)
			return nil
		},
	}
}

func newMergedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "merged",
		Short: "List merged tracks",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := ctx.client().ListMerged()
			if err != nil {
				return err
			}
			printItemTable(cmd, items, true)
			return nil
		},
	}
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload audio clips to the library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.client().Upload(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, file := range resp.Files {
				if file.IsDuplicate {
					fmt.Fprintf(out, "%s: duplicate of %s (%s)\n", file.UploadedName, file.DisplayName, file.ID)
					continue
				}
				fmt.Fprintf(out, "%s: uploaded as #%d (%s)\n", file.UploadedName, file.Order, file.ID)
			}
			return nil
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	var merged bool
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a clip or merged track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.client().Remove(args[0], merged); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&merged, "merged", false, "Remove from the merged collection")
	return cmd
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	var merged bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every clip or merged track",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.client().Clear(merged)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d items\n", resp.Deleted)
			return nil
		},
	}
	cmd.Flags().BoolVar(&merged, "merged", false, "Clear the merged collection")
	return cmd
}

func printItemTable(cmd *cobra.Command, items []api.Item, merged bool) {
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "No items")
		return
	}

	headers := []string{"#", "Name", "Duration", "ID"}
	aligns := []columnAlignment{alignRight, alignLeft, alignRight, alignLeft}
	rows := make([][]string, 0, len(items))
	for i, item := range items {
		position := strconv.Itoa(item.Order)
		if merged {
			position = strconv.Itoa(i + 1)
		}
		rows = append(rows, []string{
			position,
			item.DisplayName,
			formatDuration(item.DurationSeconds),
			item.ID,
		})
	}
	fmt.Fprintln(out, renderTable(headers, rows, aligns))
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	total := int(seconds + 0.5)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
