package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"voicequeue/internal/config"
	"voicequeue/internal/ipc"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Show or change the output folder and voice defaults",
	}

	sessionCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show session settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SessionGet()
				if err != nil {
					return err
				}
				return printJSONOr(ctx, cmd, resp.Session, func() error {
					printSession(cmd, resp.Session)
					return nil
				})
			})
		},
	})
	sessionCmd.AddCommand(newSessionSetCommand(ctx))
	return sessionCmd
}

func newSessionSetCommand(ctx *commandContext) *cobra.Command {
	var (
		output    string
		voiceID   string
		voiceName string
		modelID   string
		voice     ipc.VoiceSettings
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change session settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var req ipc.SessionUpdateRequest
			if flags.Changed("output") {
				expanded, err := config.ExpandPath(output)
				if err != nil {
					return err
				}
				req.OutputFolder = &expanded
			}
			if flags.Changed("voice") {
				req.DefaultVoiceID = &voiceID
			}
			if flags.Changed("voice-name") {
				req.DefaultVoiceName = &voiceName
			}
			if flags.Changed("model") {
				req.ModelID = &modelID
			}
			voiceFlags := []string{"stability", "similarity-boost", "style", "speaker-boost", "speed"}
			changedVoice := false
			for _, name := range voiceFlags {
				if flags.Changed(name) {
					changedVoice = true
				}
			}

			return ctx.withClient(func(client *ipc.Client) error {
				if changedVoice {
					current, err := client.SessionGet()
					if err != nil {
						return err
					}
					merged := current.Session.Voice
					if flags.Changed("stability") {
						merged.Stability = voice.Stability
					}
					if flags.Changed("similarity-boost") {
						merged.SimilarityBoost = voice.SimilarityBoost
					}
					if flags.Changed("style") {
						merged.Style = voice.Style
					}
					if flags.Changed("speaker-boost") {
						merged.UseSpeakerBoost = voice.UseSpeakerBoost
					}
					if flags.Changed("speed") {
						merged.Speed = voice.Speed
					}
					req.Voice = &merged
				}
				if req == (ipc.SessionUpdateRequest{}) {
					return errors.New("nothing to change; see `voicequeue session set --help`")
				}
				resp, err := client.SessionUpdate(req)
				if err != nil {
					return err
				}
				return printJSONOr(ctx, cmd, resp.Session, func() error {
					printSession(cmd, resp.Session)
					return nil
				})
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&output, "output", "o", "", "Folder receiving exported audio")
	flags.StringVar(&voiceID, "voice", "", "Default voice id")
	flags.StringVar(&voiceName, "voice-name", "", "Default voice display name")
	flags.StringVar(&modelID, "model", "", "Synthesis model id")
	flags.Float64Var(&voice.Stability, "stability", 0, "Voice stability (0-1)")
	flags.Float64Var(&voice.SimilarityBoost, "similarity-boost", 0, "Voice similarity boost (0-1)")
	flags.Float64Var(&voice.Style, "style", 0, "Voice style exaggeration (0-1)")
	flags.BoolVar(&voice.UseSpeakerBoost, "speaker-boost", false, "Enable speaker boost")
	flags.Float64Var(&voice.Speed, "speed", 0, "Speaking speed (0.7-1.2)")
	return cmd
}

func printSession(cmd *cobra.Command, s ipc.Session) {
	stdout := cmd.OutOrStdout()
	voice := s.DefaultVoiceName
	if voice == "" {
		voice = s.DefaultVoiceID
	}
	if s.DefaultVoiceName != "" && s.DefaultVoiceID != "" && s.DefaultVoiceName != s.DefaultVoiceID {
		voice = fmt.Sprintf("%s (%s)", s.DefaultVoiceName, s.DefaultVoiceID)
	}
	rows := [][]string{
		{"Output folder", orNone(s.OutputFolder)},
		{"Default voice", orNone(voice)},
		{"Model", orNone(s.ModelID)},
		{"Stability", fmt.Sprintf("%.2f", s.Voice.Stability)},
		{"Similarity boost", fmt.Sprintf("%.2f", s.Voice.SimilarityBoost)},
		{"Style", fmt.Sprintf("%.2f", s.Voice.Style)},
		{"Speaker boost", yesNo(s.Voice.UseSpeakerBoost)},
		{"Speed", fmt.Sprintf("%.2f", s.Voice.Speed)},
	}
	fmt.Fprint(stdout, renderTable([]column{
		{header: "Setting", align: alignLeft},
		{header: "Value", align: alignLeft, maxWidth: 60},
	}, rows))
}

func orNone(value string) string {
	if value == "" {
		return "(none)"
	}
	return value
}
