package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"voicequeue/internal/ipc"
)

func newRecoveryCommand(ctx *commandContext) *cobra.Command {
	recoveryCmd := &cobra.Command{
		Use:   "recovery",
		Short: "Inspect or restore the queue saved before an unclean exit",
	}

	recoveryCmd.AddCommand(newRecoveryActionCommand(ctx, "show", "Describe the pending recovery snapshot", (*ipc.Client).RecoveryShow,
		func(offer ipc.RecoveryOffer) string { return "Recovery available: " + recoverySummary(offer) }))
	recoveryCmd.AddCommand(newRecoveryActionCommand(ctx, "restore", "Restore the snapshot into the queue", (*ipc.Client).RecoveryRestore,
		func(offer ipc.RecoveryOffer) string {
			return fmt.Sprintf("Restored %d line(s) (%d remaining)", offer.Lines, offer.Remaining)
		}))
	recoveryCmd.AddCommand(newRecoveryActionCommand(ctx, "discard", "Delete the snapshot without restoring it", (*ipc.Client).RecoveryDiscard,
		func(ipc.RecoveryOffer) string { return "Recovery snapshot discarded" }))

	return recoveryCmd
}

func newRecoveryActionCommand(
	ctx *commandContext,
	use, short string,
	call func(*ipc.Client) (*ipc.RecoveryResponse, error),
	describe func(ipc.RecoveryOffer) string,
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := call(client)
				if err != nil {
					return err
				}
				return printJSONOr(ctx, cmd, resp.Offer, func() error {
					if !resp.Offer.Available {
						fmt.Fprintln(cmd.OutOrStdout(), "No recovery snapshot available")
						return nil
					}
					fmt.Fprintln(cmd.OutOrStdout(), describe(resp.Offer))
					return nil
				})
			})
		},
	}
}
