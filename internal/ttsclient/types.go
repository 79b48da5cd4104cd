package ttsclient

import (
	"context"
	"errors"
	"fmt"
)

// VoiceSettings are the synthesis knobs forwarded with every request.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	Speed           float64 `json:"speed"`
}

// SynthesizeRequest asks the service to render one text to OutputPath.
type SynthesizeRequest struct {
	Text       string        `json:"text"`
	VoiceID    string        `json:"voice_id"`
	ModelID    string        `json:"model_id,omitempty"`
	OutputPath string        `json:"output_path"`
	Settings   VoiceSettings `json:"voice_settings"`
}

// SynthesizeResult describes a rendered artifact.
type SynthesizeResult struct {
	JobID          string `json:"job_id,omitempty"`
	OutputPath     string `json:"output_path"`
	DurationMS     int64  `json:"duration_ms"`
	CharactersUsed int    `json:"characters_used"`
}

// BatchItem is one line inside a batch request.
type BatchItem struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	VoiceID    string `json:"voice_id"`
	OutputPath string `json:"output_path"`
}

// BatchRequest submits many lines at once; Concurrency is a hint to the service.
type BatchRequest struct {
	Items       []BatchItem   `json:"items"`
	Concurrency int           `json:"concurrency"`
	ModelID     string        `json:"model_id,omitempty"`
	Settings    VoiceSettings `json:"voice_settings"`
}

// BatchItemResult reports the outcome of one batch item.
type BatchItemResult struct {
	ID         string `json:"id"`
	Success    bool   `json:"success"`
	OutputPath string `json:"output_path,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Error      string `json:"error,omitempty"`
}

// BatchResult carries per-item outcomes.
type BatchResult struct {
	Results []BatchItemResult `json:"results"`
}

// Event types published by the service.
const (
	EventProgress = "progress"
	EventCredits  = "credits"
)

// Event is an asynchronous notification from the service.
type Event struct {
	Type    string  `json:"type"`
	JobID   string  `json:"job_id,omitempty"`
	LineID  string  `json:"line_id,omitempty"`
	Percent float64 `json:"percent,omitempty"`
	Credits int     `json:"credits,omitempty"`
	Message string  `json:"message,omitempty"`
}

// Service is the remote TTS execution boundary.
type Service interface {
	Synthesize(ctx context.Context, req SynthesizeRequest) (SynthesizeResult, error)
	SynthesizeBatch(ctx context.Context, req BatchRequest) (BatchResult, error)
	CreditBalance(ctx context.Context) (int, error)
	// Subscribe delivers service events to handler until ctx ends. Transports
	// without an event channel return nil and never call handler.
	Subscribe(ctx context.Context, handler func(Event)) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	// ErrEmptyText rejects requests without text.
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrMissingVoice rejects requests without a voice id.
	ErrMissingVoice = errors.New("voice id cannot be empty")
	// ErrEmptyBatch rejects batch requests without items.
	ErrEmptyBatch = errors.New("batch has no items")
)

// ServiceError is a structured failure reported by the service.
type ServiceError struct {
	Status string `json:"-"`
	Detail string `json:"detail"`
	Code   string `json:"error_code,omitempty"`
}

func (e *ServiceError) Error() string {
	switch {
	case e.Status != "" && e.Code != "":
		return fmt.Sprintf("tts service error (%s): %s (code: %s)", e.Status, e.Detail, e.Code)
	case e.Status != "":
		return fmt.Sprintf("tts service error (%s): %s", e.Status, e.Detail)
	case e.Code != "":
		return fmt.Sprintf("tts service error: %s (code: %s)", e.Detail, e.Code)
	default:
		return "tts service error: " + e.Detail
	}
}

func validateSingle(req SynthesizeRequest) error {
	if req.Text == "" {
		return ErrEmptyText
	}
	if req.VoiceID == "" {
		return ErrMissingVoice
	}
	return nil
}

func validateBatch(req BatchRequest) error {
	if len(req.Items) == 0 {
		return ErrEmptyBatch
	}
	for _, item := range req.Items {
		if item.Text == "" {
			return fmt.Errorf("item %s: %w", item.ID, ErrEmptyText)
		}
		if item.VoiceID == "" {
			return fmt.Errorf("item %s: %w", item.ID, ErrMissingVoice)
		}
	}
	return nil
}
