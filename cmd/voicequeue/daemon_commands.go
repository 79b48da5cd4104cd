package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"voicequeue/internal/api"
	"voicequeue/internal/daemonctl"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the voicequeue daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(ctx.socketPath(), exe, daemonLaunchOptions(ctx, startLogLevel), 10*time.Second)
			if err != nil {
				return err
			}
			if result.AlreadyRunning {
				fmt.Fprintf(stdout, "Daemon already running (pid %d)\n", result.PID)
				return nil
			}
			fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			return nil
		},
	}
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Override the configured log level")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the voicequeue daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.ShutdownAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var restartLogLevel string
	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the voicequeue daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			stop, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			switch {
			case errors.Is(err, daemonctl.ErrDaemonNotRunning):
			case err != nil:
				return err
			default:
				if stop.ForcedKill && stop.PID > 0 {
					fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", stop.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			result, err := daemonctl.EnsureStarted(ctx.socketPath(), exe, daemonLaunchOptions(ctx, restartLogLevel), 10*time.Second)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Daemon restarted (pid %d)\n", result.PID)
			return nil
		},
	}
	restartCmd.Flags().StringVar(&restartLogLevel, "log-level", "", "Override the configured log level")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, run and readiness status",
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), ctx.configValue())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, snapshot)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range daemonLines(snapshot, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Readiness Checks", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range checkLines(snapshot.Checks, colorize) {
				fmt.Fprintln(stdout, line)
			}

			if snapshot.Status == nil {
				return nil
			}
			fmt.Fprintln(stdout)
			for _, line := range renderSectionHeader("Run", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range runLines(snapshot.Status.Run, snapshot.Status.Stats, colorize) {
				fmt.Fprintln(stdout, line)
			}
			if offer := snapshot.Status.Recovery; offer.Available {
				fmt.Fprintln(stdout)
				fmt.Fprintln(stdout, renderStatusLine("Recovery", statusWarn, recoverySummary(offer), colorize))
			}
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func daemonLines(snapshot daemonctl.Snapshot, colorize bool) []string {
	if snapshot.Status == nil {
		return []string{renderStatusLine("Daemon", statusWarn, "Not running", colorize)}
	}
	status := snapshot.Status
	out := []string{
		renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize),
		renderStatusLine("Transport", statusInfo, status.Transport, colorize),
		renderStatusLine("Database", statusInfo, status.DatabasePath, colorize),
		renderStatusLine("Socket", statusInfo, status.SocketPath, colorize),
	}
	if folder := strings.TrimSpace(status.Session.OutputFolder); folder != "" {
		out = append(out, renderStatusLine("Output folder", statusInfo, folder, colorize))
	}
	return out
}

func checkLines(checks []api.CheckResult, colorize bool) []string {
	if len(checks) == 0 {
		return []string{renderStatusLine("Checks", statusInfo, "None reported", colorize)}
	}
	out := make([]string, 0, len(checks))
	for _, check := range checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		out = append(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	return out
}

func runLines(run api.RunStatus, stats api.Stats, colorize bool) []string {
	kind := statusInfo
	switch run.State {
	case "running":
		kind = statusOK
	case "paused", "stopped":
		kind = statusWarn
	}
	state := run.State
	if run.Policy != "" {
		state = fmt.Sprintf("%s (%s, concurrency %d)", run.State, run.Policy, run.Concurrency)
	}
	out := []string{
		renderStatusLine("State", kind, state, colorize),
		renderStatusLine("Progress", statusInfo, progressSummary(stats), colorize),
	}
	if run.Credits != nil {
		out = append(out, renderStatusLine("Credits", statusInfo, fmt.Sprintf("%d", *run.Credits), colorize))
	}
	if run.LastError != "" {
		out = append(out, renderStatusLine("Last error", statusError, run.LastError, colorize))
	}
	return out
}

func progressSummary(stats api.Stats) string {
	summary := fmt.Sprintf("%d/%d done, %d failed, %d pending (%.0f%%)",
		stats.Completed, stats.Total, stats.Failed, stats.Pending, stats.ProgressPercent)
	if stats.ETASeconds != nil {
		summary += fmt.Sprintf(", eta %s", formatSeconds(*stats.ETASeconds))
	}
	return summary
}

func recoverySummary(offer api.RecoveryOffer) string {
	return fmt.Sprintf("Snapshot from %s: %d lines (%d done, %d remaining); run `voicequeue recovery restore`",
		offer.Timestamp, offer.Lines, offer.Done, offer.Remaining)
}

func formatSeconds(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	return (time.Duration(seconds * float64(time.Second))).Round(time.Second).String()
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext, logLevel string) daemonctl.LaunchOptions {
	return daemonctl.LaunchOptions{
		ConfigPath: ctx.configPath(),
		LogLevel:   strings.TrimSpace(logLevel),
	}
}
