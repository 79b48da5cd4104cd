package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"voicequeue/internal/config"
	"voicequeue/internal/ipc"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start and control processing runs",
	}

	var (
		policy      string
		concurrency int
		parallel    bool
	)
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Process the selected lines, or every pending line when nothing is selected",
		RunE: func(cmd *cobra.Command, args []string) error {
			if parallel {
				policy = config.PolicyParallel
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RunStart(strings.TrimSpace(policy), concurrency)
				if err != nil {
					return err
				}
				return printJSONOr(ctx, cmd, resp.Run, func() error {
					run := resp.Run
					fmt.Fprintf(cmd.OutOrStdout(), "Run %s started (%s, concurrency %d)\n", shortID(run.RunID), run.Policy, run.Concurrency)
					return nil
				})
			})
		},
	}
	startCmd.Flags().StringVar(&policy, "policy", "", "Dispatch policy: sequential or parallel (defaults to config)")
	startCmd.Flags().IntVarP(&concurrency, "concurrency", "n", 0, "Maximum lines per parallel batch (1-10)")
	startCmd.Flags().BoolVar(&parallel, "parallel", false, "Shorthand for --policy parallel")

	runCmd.AddCommand(startCmd)
	runCmd.AddCommand(newRunControlCommand(ctx, "pause", "Pause the active run after in-flight work", "Run paused", (*ipc.Client).RunPause))
	runCmd.AddCommand(newRunControlCommand(ctx, "resume", "Resume a paused run", "Run resumed", (*ipc.Client).RunResume))
	runCmd.AddCommand(newRunControlCommand(ctx, "stop", "Stop the active run", "Run stopping", (*ipc.Client).RunStop))
	runCmd.AddCommand(newRunWaitCommand(ctx))

	return runCmd
}

func newRunControlCommand(ctx *commandContext, use, short, done string, call func(*ipc.Client) (*ipc.RunResponse, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := call(client)
				if err != nil {
					return err
				}
				return printJSONOr(ctx, cmd, resp.Run, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "%s (state: %s)\n", done, resp.Run.State)
					return nil
				})
			})
		},
	}
}

func newRunWaitCommand(ctx *commandContext) *cobra.Command {
	var (
		interval time.Duration
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Block until the active run finishes, printing progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				var deadline time.Time
				if timeout > 0 {
					deadline = time.Now().Add(timeout)
				}
				last := ""
				for {
					resp, err := client.Status()
					if err != nil {
						return err
					}
					run := resp.Status.Run
					progress := progressSummary(resp.Status.Stats)
					if !ctx.jsonOutput() && progress != last {
						fmt.Fprintln(stdout, progress)
						last = progress
					}
					if run.State == "idle" {
						return printJSONOr(ctx, cmd, resp.Status.Stats, func() error {
							fmt.Fprintln(stdout, "Run finished")
							return nil
						})
					}
					if !deadline.IsZero() && time.Now().After(deadline) {
						return fmt.Errorf("run still %s after %s", run.State, timeout)
					}
					select {
					case <-cmd.Context().Done():
						return cmd.Context().Err()
					case <-time.After(interval):
					}
				}
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Polling interval")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (0 waits forever)")
	return cmd
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show progress of the current or last run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stats()
				if err != nil {
					return err
				}
				return printJSONOr(ctx, cmd, resp.Stats, func() error {
					stats := resp.Stats
					rows := [][]string{
						{"Total", fmt.Sprintf("%d", stats.Total)},
						{"Completed", fmt.Sprintf("%d", stats.Completed)},
						{"Failed", fmt.Sprintf("%d", stats.Failed)},
						{"Pending", fmt.Sprintf("%d", stats.Pending)},
						{"Processing", fmt.Sprintf("%d", stats.Processing)},
						{"Characters", fmt.Sprintf("%d", stats.CharactersProcessed)},
						{"Elapsed", formatSeconds(stats.ElapsedSeconds)},
						{"Progress", fmt.Sprintf("%.1f%%", stats.ProgressPercent)},
					}
					if stats.ETASeconds != nil {
						rows = append(rows, []string{"ETA", formatSeconds(*stats.ETASeconds)})
					}
					fmt.Fprint(cmd.OutOrStdout(), renderTable([]column{
						{header: "Metric", align: alignLeft},
						{header: "Value", align: alignRight},
					}, rows))
					return nil
				})
			})
		},
	}
}
