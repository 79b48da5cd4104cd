package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"voicequeue/internal/ipc"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification through the configured channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return fmt.Errorf("test notification: %w", err)
				}
				return printJSONOr(ctx, cmd, resp, func() error {
					stdout := cmd.OutOrStdout()
					kind := statusOK
					if !resp.Sent {
						kind = statusWarn
					}
					message := resp.Message
					if message == "" {
						message = yesNo(resp.Sent)
					}
					fmt.Fprintln(stdout, renderStatusLine("Notification", kind, message, shouldColorize(stdout)))
					return nil
				})
			})
		},
	}
}
