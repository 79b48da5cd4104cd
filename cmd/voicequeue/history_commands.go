package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"voicequeue/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect exported audio files",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List exports, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History()
				if err != nil {
					return err
				}
				entries := resp.Entries
				if limit > 0 && len(entries) > limit {
					entries = entries[:limit]
				}
				return printJSONOr(ctx, cmd, entries, func() error {
					stdout := cmd.OutOrStdout()
					if len(entries) == 0 {
						fmt.Fprintln(stdout, "No exports recorded")
						return nil
					}
					fmt.Fprint(stdout, renderHistoryTable(entries))
					return nil
				})
			})
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many entries")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget all recorded exports (audio files are kept)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.HistoryClear()
				if err != nil {
					return err
				}
				return printJSONOr(ctx, cmd, resp, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d history entries\n", resp.Removed)
					return nil
				})
			})
		},
	}

	historyCmd.AddCommand(listCmd, clearCmd)
	return historyCmd
}

func renderHistoryTable(entries []ipc.HistoryEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.Timestamp,
			filepath.Base(entry.OutputPath),
			strconv.Itoa(entry.LineIndex + 1),
			entry.VoiceName,
			(time.Duration(entry.DurationMS) * time.Millisecond).Round(100 * time.Millisecond).String(),
			entry.LineText,
		})
	}
	return renderTable([]column{
		{header: "Exported", align: alignLeft},
		{header: "File", align: alignLeft},
		{header: "Line", align: alignRight},
		{header: "Voice", align: alignLeft, maxWidth: 16},
		{header: "Length", align: alignRight},
		{header: "Text", align: alignLeft, maxWidth: 40},
	}, rows)
}
