package lines

import (
	"errors"
	"fmt"
	"strings"
)

// Status captures where a line sits in its processing lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// ParseStatus converts a string to Status, returning false when unknown.
func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending, true
	case StatusProcessing:
		return StatusProcessing, true
	case StatusDone:
		return StatusDone, true
	case StatusError:
		return StatusError, true
	default:
		return "", false
	}
}

var (
	// ErrNotFound indicates no line carries the requested id.
	ErrNotFound = errors.New("line not found")
	// ErrIndexOutOfRange indicates a reorder position outside the queue.
	ErrIndexOutOfRange = errors.New("line index out of range")
	// ErrStatusViaUpdate rejects status changes through Update.
	ErrStatusViaUpdate = errors.New("status changes must go through SetStatus")
)

// Line is one unit of text converted to one audio artifact.
type Line struct {
	ID               string  `json:"id"`
	Index            int     `json:"index"`
	Text             string  `json:"text"`
	OriginalText     string  `json:"original_text"`
	VoiceID          string  `json:"voice_id,omitempty"`
	VoiceName        string  `json:"voice_name,omitempty"`
	Status           Status  `json:"status"`
	ErrorMessage     string  `json:"error_message,omitempty"`
	OutputPath       string  `json:"output_path,omitempty"`
	AudioDuration    float64 `json:"audio_duration,omitempty"`
	RetryCount       int     `json:"retry_count"`
	SourceFile       string  `json:"source_file,omitempty"`
	StartTime        float64 `json:"start_time,omitempty"`
	EndTime          float64 `json:"end_time,omitempty"`
	DetectedLanguage string  `json:"detected_language,omitempty"`
	ModelID          string  `json:"model_id,omitempty"`
}

// HasVoice reports whether the line carries its own voice assignment.
func (l Line) HasVoice() bool {
	return strings.TrimSpace(l.VoiceID) != ""
}

// Patch describes a partial edit of a line. Nil fields are left untouched.
type Patch struct {
	Text             *string  `json:"text,omitempty"`
	VoiceID          *string  `json:"voice_id,omitempty"`
	VoiceName        *string  `json:"voice_name,omitempty"`
	SourceFile       *string  `json:"source_file,omitempty"`
	StartTime        *float64 `json:"start_time,omitempty"`
	EndTime          *float64 `json:"end_time,omitempty"`
	DetectedLanguage *string  `json:"detected_language,omitempty"`
	ModelID          *string  `json:"model_id,omitempty"`
	Status           *Status  `json:"status,omitempty"`
}

func (p Patch) apply(line *Line) error {
	if p.Status != nil {
		return ErrStatusViaUpdate
	}
	if p.Text != nil {
		line.Text = normalizeText(*p.Text)
	}
	if p.VoiceID != nil {
		line.VoiceID = strings.TrimSpace(*p.VoiceID)
		if line.VoiceID == "" {
			line.VoiceName = ""
		}
	}
	if p.VoiceName != nil {
		line.VoiceName = strings.TrimSpace(*p.VoiceName)
	}
	if p.SourceFile != nil {
		line.SourceFile = *p.SourceFile
	}
	if p.StartTime != nil {
		line.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		line.EndTime = *p.EndTime
	}
	if p.DetectedLanguage != nil {
		line.DetectedLanguage = *p.DetectedLanguage
	}
	if p.ModelID != nil {
		line.ModelID = *p.ModelID
	}
	return nil
}

// AppendOptions carries metadata shared by a batch of imported texts.
type AppendOptions struct {
	SourceFile string
	VoiceID    string
	VoiceName  string
}

// MutationKind classifies a queue change for observers.
type MutationKind string

const (
	MutationAppended MutationKind = "appended"
	MutationUpdated  MutationKind = "updated"
	MutationStatus   MutationKind = "status"
	MutationDeleted  MutationKind = "deleted"
	MutationReorder  MutationKind = "reordered"
	MutationCleared  MutationKind = "cleared"
	MutationReplaced MutationKind = "replaced"
)

// Mutation is delivered to observers after every successful change.
type Mutation struct {
	Kind MutationKind
	IDs  []string
	// Len is the queue length after the change.
	Len int
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
