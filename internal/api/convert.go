package api

import (
	"time"

	"voicequeue/internal/history"
	"voicequeue/internal/lines"
	"voicequeue/internal/orchestrator"
	"voicequeue/internal/preflight"
	"voicequeue/internal/recovery"
	"voicequeue/internal/session"
	"voicequeue/internal/stats"
	"voicequeue/internal/ttsclient"
)

// FromLine converts a queued line to its API representation.
func FromLine(line lines.Line) Line {
	return Line{
		ID:               line.ID,
		Index:            line.Index,
		Text:             line.Text,
		OriginalText:     line.OriginalText,
		VoiceID:          line.VoiceID,
		VoiceName:        line.VoiceName,
		Status:           string(line.Status),
		ErrorMessage:     line.ErrorMessage,
		OutputPath:       line.OutputPath,
		AudioDuration:    line.AudioDuration,
		RetryCount:       line.RetryCount,
		SourceFile:       line.SourceFile,
		StartTime:        line.StartTime,
		EndTime:          line.EndTime,
		DetectedLanguage: line.DetectedLanguage,
		ModelID:          line.ModelID,
	}
}

// FromLines converts the queue, marking lines contained in selection.
func FromLines(items []lines.Line, selection []string) []Line {
	if len(items) == 0 {
		return nil
	}
	selected := make(map[string]struct{}, len(selection))
	for _, id := range selection {
		selected[id] = struct{}{}
	}
	out := make([]Line, 0, len(items))
	for _, item := range items {
		dto := FromLine(item)
		if _, ok := selected[item.ID]; ok {
			dto.Selected = true
		}
		out = append(out, dto)
	}
	return out
}

// FromStats converts run aggregates.
func FromStats(s stats.Stats) Stats {
	return Stats(s)
}

// FromRunStatus converts orchestrator state.
func FromRunStatus(status orchestrator.Status) RunStatus {
	return RunStatus{
		State:       string(status.State),
		Policy:      status.Policy,
		Concurrency: status.Concurrency,
		RunID:       status.RunID,
		StartedAt:   formatTime(status.StartedAt),
		FinishedAt:  formatTime(status.FinishedAt),
		Credits:     status.Credits,
		LastError:   status.LastError,
	}
}

// FromHistory converts ledger entries, preserving order.
func FromHistory(entries []history.Entry) []HistoryEntry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, HistoryEntry{
			ID:            entry.ID,
			Timestamp:     entry.Timestamp.UTC().Format(dateTimeFormat),
			OutputPath:    entry.OutputPath,
			LineIndex:     entry.LineIndex,
			LineText:      entry.LineText,
			VoiceName:     entry.VoiceName,
			DurationMS:    entry.DurationMS,
			SessionFolder: entry.SessionFolder,
		})
	}
	return out
}

// FromSession converts session settings.
func FromSession(s session.Settings) Session {
	return Session{
		OutputFolder:     s.OutputFolder,
		DefaultVoiceID:   s.DefaultVoiceID,
		DefaultVoiceName: s.DefaultVoiceName,
		ModelID:          s.ModelID,
		Voice:            VoiceSettings(s.Voice),
	}
}

// ToVoiceSettings converts wire voice settings back to the client form.
func ToVoiceSettings(v VoiceSettings) ttsclient.VoiceSettings {
	return ttsclient.VoiceSettings(v)
}

// FromSnapshot converts a pending recovery snapshot. A nil snapshot yields an
// unavailable offer.
func FromSnapshot(snap *recovery.Snapshot) RecoveryOffer {
	if snap == nil {
		return RecoveryOffer{}
	}
	done, remaining := snap.Counts()
	return RecoveryOffer{
		Available:        true,
		Timestamp:        snap.Timestamp.UTC().Format(dateTimeFormat),
		OutputFolder:     snap.OutputFolder,
		DefaultVoiceName: snap.DefaultVoiceName,
		Lines:            len(snap.Lines),
		Done:             done,
		Remaining:        remaining,
	}
}

// FromChecks converts preflight results.
func FromChecks(results []preflight.Result) []CheckResult {
	if len(results) == 0 {
		return nil
	}
	out := make([]CheckResult, 0, len(results))
	for _, r := range results {
		out = append(out, CheckResult(r))
	}
	return out
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
