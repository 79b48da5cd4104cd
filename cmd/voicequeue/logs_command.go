package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"voicequeue/internal/ipc"
	"voicequeue/internal/logs"
)

type tailFunc func(ipc.LogTailRequest) (*ipc.LogTailResponse, error)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		follow bool
		lines  int
		match  string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit := lines
			if limit < 0 {
				limit = 0
			}
			offset := int64(-1)
			if limit == 0 {
				offset = 0
			}

			client, err := ctx.dialClient()
			if err == nil {
				defer client.Close()
				return streamLogs(cmd, client.LogTail, offset, limit, follow, match)
			}

			// Without a daemon the log file is read directly.
			cfg, cfgErr := ctx.ensureConfig()
			if cfgErr != nil {
				return cfgErr
			}
			path := cfg.LogPath()
			if path == "" {
				return err
			}
			local := func(req ipc.LogTailRequest) (*ipc.LogTailResponse, error) {
				tailCtx := cmd.Context()
				wait := time.Duration(req.WaitMillis) * time.Millisecond
				res, tailErr := logs.Tail(tailCtx, path, logs.TailOptions{
					Offset: req.Offset,
					Limit:  req.Limit,
					Follow: req.Follow,
					Wait:   wait,
					Match:  req.Match,
				})
				if tailErr != nil && !errors.Is(tailErr, context.Canceled) {
					return nil, tailErr
				}
				return &ipc.LogTailResponse{Lines: res.Lines, Offset: res.Offset}, nil
			}
			return streamLogs(cmd, local, offset, limit, follow, match)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	cmd.Flags().StringVarP(&match, "match", "m", "", "Only show lines containing this text")
	return cmd
}

func streamLogs(cmd *cobra.Command, tail tailFunc, offset int64, limit int, follow bool, match string) error {
	ctx := cmd.Context()
	printed := false
	for {
		resp, err := tail(ipc.LogTailRequest{
			Offset:     offset,
			Limit:      limit,
			Follow:     follow,
			WaitMillis: 1000,
			Match:      match,
		})
		if err != nil {
			return fmt.Errorf("tail logs: %w", err)
		}
		if resp == nil {
			return errors.New("log tail response missing")
		}
		for _, line := range resp.Lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
			printed = true
		}
		offset = resp.Offset
		limit = 0
		if !follow {
			if !printed {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}
