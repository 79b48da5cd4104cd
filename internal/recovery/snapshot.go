package recovery

import (
	"time"

	"voicequeue/internal/lines"
	"voicequeue/internal/session"
)

// LineState is the persisted subset of a line.
type LineState struct {
	ID        string       `json:"id"`
	Index     int          `json:"index"`
	Text      string       `json:"text"`
	VoiceID   string       `json:"voice_id,omitempty"`
	VoiceName string       `json:"voice_name,omitempty"`
	Status    lines.Status `json:"status"`
}

// Snapshot is the crash-recovery image of the queue and session.
type Snapshot struct {
	Timestamp        time.Time   `json:"timestamp"`
	OutputFolder     string      `json:"output_folder"`
	DefaultVoiceID   string      `json:"default_voice_id,omitempty"`
	DefaultVoiceName string      `json:"default_voice_name,omitempty"`
	Lines            []LineState `json:"lines"`
}

// Capture builds a snapshot of items and settings taken at now.
func Capture(items []lines.Line, settings session.Settings, now time.Time) Snapshot {
	snap := Snapshot{
		Timestamp:        now.UTC(),
		OutputFolder:     settings.OutputFolder,
		DefaultVoiceID:   settings.DefaultVoiceID,
		DefaultVoiceName: settings.DefaultVoiceName,
		Lines:            make([]LineState, 0, len(items)),
	}
	for _, line := range items {
		snap.Lines = append(snap.Lines, LineState{
			ID:        line.ID,
			Index:     line.Index,
			Text:      line.Text,
			VoiceID:   line.VoiceID,
			VoiceName: line.VoiceName,
			Status:    line.Status,
		})
	}
	return snap
}

// Valid reports whether the snapshot holds at least one line and is younger than maxAge.
func (s Snapshot) Valid(now time.Time, maxAge time.Duration) bool {
	if len(s.Lines) == 0 || s.Timestamp.IsZero() {
		return false
	}
	return now.Sub(s.Timestamp) < maxAge
}

// Counts returns how many lines were done and how many still need work.
func (s Snapshot) Counts() (done, remaining int) {
	for _, line := range s.Lines {
		if line.Status == lines.StatusDone {
			done++
		} else {
			remaining++
		}
	}
	return done, remaining
}

// RestoredLines rebuilds queue lines: done lines stay done, everything else
// becomes pending.
func (s Snapshot) RestoredLines() []lines.Line {
	out := make([]lines.Line, 0, len(s.Lines))
	for _, state := range s.Lines {
		status := lines.StatusPending
		if state.Status == lines.StatusDone {
			status = lines.StatusDone
		}
		out = append(out, lines.Line{
			ID:           state.ID,
			Index:        state.Index,
			Text:         state.Text,
			OriginalText: state.Text,
			VoiceID:      state.VoiceID,
			VoiceName:    state.VoiceName,
			Status:       status,
		})
	}
	return out
}
