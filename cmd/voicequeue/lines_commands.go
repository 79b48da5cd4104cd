package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"voicequeue/internal/config"
	"voicequeue/internal/ipc"
)

func newLinesCommand(ctx *commandContext) *cobra.Command {
	linesCmd := &cobra.Command{
		Use:     "lines",
		Aliases: []string{"queue"},
		Short:   "Inspect and manage queued lines",
	}

	linesCmd.AddCommand(newLinesAddCommand(ctx))
	linesCmd.AddCommand(newLinesListCommand(ctx))
	linesCmd.AddCommand(newLinesEditCommand(ctx))
	linesCmd.AddCommand(newLinesRemoveCommand(ctx))
	linesCmd.AddCommand(newLinesMoveCommand(ctx))
	linesCmd.AddCommand(newLinesClearCommand(ctx))
	linesCmd.AddCommand(newLinesSelectCommand(ctx))
	linesCmd.AddCommand(newLinesRetryCommand(ctx))

	return linesCmd
}

func newLinesAddCommand(ctx *commandContext) *cobra.Command {
	var (
		textFlag  string
		voiceID   string
		voiceName string
	)
	cmd := &cobra.Command{
		Use:   "add [file...]",
		Short: "Queue one line per non-empty line of text",
		Long: `Queue text for conversion. Each non-empty line becomes one queued line.

Text is read from the given files, from --text, or from stdin when the only
argument is "-".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := collectSources(cmd, args, textFlag)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				var added []ipc.Line
				for _, src := range sources {
					resp, err := client.LinesAdd(ipc.LinesAddRequest{
						Text:       src.text,
						SourceFile: src.name,
						VoiceID:    voiceID,
						VoiceName:  voiceName,
					})
					if err != nil {
						if src.name != "" {
							return fmt.Errorf("queue %s: %w", src.name, err)
						}
						return err
					}
					added = append(added, resp.Lines...)
				}
				return printJSONOr(ctx, cmd, added, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "Queued %d line(s)\n", len(added))
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVarP(&textFlag, "text", "t", "", "Text to queue instead of reading files")
	cmd.Flags().StringVar(&voiceID, "voice", "", "Voice id for the new lines (defaults to the session voice)")
	cmd.Flags().StringVar(&voiceName, "voice-name", "", "Display name for --voice")
	return cmd
}

type textSource struct {
	name string
	text string
}

func collectSources(cmd *cobra.Command, args []string, text string) ([]textSource, error) {
	if strings.TrimSpace(text) != "" {
		if len(args) > 0 {
			return nil, errors.New("use either --text or file arguments, not both")
		}
		return []textSource{{text: text}}, nil
	}
	if len(args) == 0 {
		return nil, errors.New("provide a file, \"-\" for stdin, or --text")
	}
	if len(args) == 1 && args[0] == "-" {
		data, err := readAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return []textSource{{text: data}}, nil
	}
	sources := make([]textSource, 0, len(args))
	for _, arg := range args {
		path, err := config.ExpandPath(arg)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", arg, err)
		}
		sources = append(sources, textSource{name: path, text: string(data)})
	}
	return sources, nil
}

func newLinesListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List queued lines in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.LinesList(statuses)
				if err != nil {
					return err
				}
				return printJSONOr(ctx, cmd, resp.Lines, func() error {
					stdout := cmd.OutOrStdout()
					if len(resp.Lines) == 0 {
						fmt.Fprintln(stdout, "No lines queued")
						return nil
					}
					fmt.Fprint(stdout, renderLinesTable(resp.Lines, shouldColorize(stdout)))
					return nil
				})
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (pending, processing, done, error)")
	return cmd
}

func renderLinesTable(items []ipc.Line, colorize bool) string {
	columns := []column{
		{header: "#", align: alignRight},
		{header: "", align: alignLeft},
		{header: "ID", align: alignLeft},
		{header: "Status", align: alignLeft},
		{header: "Voice", align: alignLeft, maxWidth: 16},
		{header: "Text", align: alignLeft, maxWidth: 48},
		{header: "Output", align: alignLeft, maxWidth: 28},
	}
	rows := make([][]string, 0, len(items))
	for _, line := range items {
		mark := ""
		if line.Selected {
			mark = "*"
		}
		detail := filepath.Base(line.OutputPath)
		if line.OutputPath == "" {
			detail = line.ErrorMessage
		}
		rows = append(rows, []string{
			strconv.Itoa(line.Index + 1),
			mark,
			shortID(line.ID),
			colorizeStatus(line.Status, colorize),
			line.VoiceName,
			line.Text,
			detail,
		})
	}
	return renderTable(columns, rows)
}

func newLinesEditCommand(ctx *commandContext) *cobra.Command {
	var (
		textFlag  string
		voiceID   string
		voiceName string
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a line's text or voice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ipc.LineUpdateRequest{ID: strings.TrimSpace(args[0])}
			if cmd.Flags().Changed("text") {
				req.Text = &textFlag
			}
			if cmd.Flags().Changed("voice") {
				req.VoiceID = &voiceID
			}
			if cmd.Flags().Changed("voice-name") {
				req.VoiceName = &voiceName
			}
			if req.Text == nil && req.VoiceID == nil && req.VoiceName == nil {
				return errors.New("nothing to change; pass --text, --voice or --voice-name")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				id, err := resolveLineID(client, req.ID)
				if err != nil {
					return err
				}
				req.ID = id
				resp, err := client.LineUpdate(req)
				if err != nil {
					return err
				}
				return printJSONOr(ctx, cmd, resp.Line, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "Updated line %d (%s)\n", resp.Line.Index+1, resp.Line.Status)
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVarP(&textFlag, "text", "t", "", "Replacement text")
	cmd.Flags().StringVar(&voiceID, "voice", "", "Voice id")
	cmd.Flags().StringVar(&voiceName, "voice-name", "", "Voice display name")
	return cmd
}

func newLinesRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>...",
		Aliases: []string{"rm"},
		Short:   "Remove lines from the queue",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				ids, err := resolveLineIDs(client, args)
				if err != nil {
					return err
				}
				resp, err := client.LinesRemove(ids)
				if err != nil {
					return err
				}
				return printJSONOr(ctx, cmd, resp, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "Removed %d line(s)\n", len(resp.Removed))
					return nil
				})
			})
		},
	}
}

func newLinesMoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "move <from> <to>",
		Short: "Move a line to another position (1-based)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parsePosition(args[0])
			if err != nil {
				return err
			}
			to, err := parsePosition(args[1])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.LineMove(from, to)
				if err != nil {
					return err
				}
				return printJSONOr(ctx, cmd, resp.Lines, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "Moved line %d to position %d\n", from+1, to+1)
					return nil
				})
			})
		},
	}
}

func newLinesClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every line from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.LinesClear()
				if err != nil {
					return err
				}
				return printJSONOr(ctx, cmd, resp, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d line(s)\n", resp.Removed)
					return nil
				})
			})
		},
	}
}

func newLinesSelectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "select [id...]",
		Short: "Replace the selection (no ids clears it)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				ids, err := resolveLineIDs(client, args)
				if err != nil {
					return err
				}
				resp, err := client.LinesSelect(ids)
				if err != nil {
					return err
				}
				return printJSONOr(ctx, cmd, resp, func() error {
					fmt.Fprintf(cmd.OutOrStdout(), "%d line(s) selected\n", len(resp.Selected))
					return nil
				})
			})
		},
	}
}

func newLinesRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Reset failed lines to pending (all failed lines when no ids are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				ids, err := resolveLineIDs(client, args)
				if err != nil {
					return err
				}
				resp, err := client.LinesRetry(ids)
				if err != nil {
					return err
				}
				return printJSONOr(ctx, cmd, resp, func() error {
					stdout := cmd.OutOrStdout()
					if len(resp.Retried) == 0 {
						fmt.Fprintln(stdout, "No failed lines to retry")
						return nil
					}
					fmt.Fprintf(stdout, "Reset %d line(s) to pending\n", len(resp.Retried))
					return nil
				})
			})
		},
	}
}
