package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:   "voicequeue",
		Short: "Queue text lines and convert them to speech",
		Long: `voicequeue converts queued lines of text to audio through a remote TTS service.

A background daemon owns the queue and the processing run; every other command
talks to it over a local socket. Start it with "voicequeue start".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&ctx.flags.socket, "socket", "", "Path to the voicequeue daemon socket")
	flags.StringVarP(&ctx.flags.config, "config", "c", "", "Configuration file path")
	flags.BoolVar(&ctx.flags.json, "json", false, "Print machine-readable JSON")

	rootCmd.AddCommand(newDaemonCommands(ctx)...)
	rootCmd.AddCommand(
		newDaemonRunCommand(ctx),
		newLinesCommand(ctx),
		newSessionCommand(ctx),
		newRunCommand(ctx),
		newStatsCommand(ctx),
		newHistoryCommand(ctx),
		newRecoveryCommand(ctx),
		newLogsCommand(ctx),
		newTestNotifyCommand(ctx),
		newConfigCommand(ctx),
	)

	return rootCmd
}
