// Package session holds the mutable per-session settings shared by the
// orchestrator, the recovery manager and the control surface.
package session

import (
	"strings"
	"sync"

	"voicequeue/internal/config"
	"voicequeue/internal/ttsclient"
)

// Settings are the user-facing knobs of the current session.
type Settings struct {
	OutputFolder     string                  `json:"output_folder"`
	DefaultVoiceID   string                  `json:"default_voice_id,omitempty"`
	DefaultVoiceName string                  `json:"default_voice_name,omitempty"`
	ModelID          string                  `json:"model_id,omitempty"`
	Voice            ttsclient.VoiceSettings `json:"voice_settings"`
}

// Update is a partial change to Settings. Nil fields are left untouched.
type Update struct {
	OutputFolder     *string                  `json:"output_folder,omitempty"`
	DefaultVoiceID   *string                  `json:"default_voice_id,omitempty"`
	DefaultVoiceName *string                  `json:"default_voice_name,omitempty"`
	ModelID          *string                  `json:"model_id,omitempty"`
	Voice            *ttsclient.VoiceSettings `json:"voice_settings,omitempty"`
}

// FromConfig seeds session settings from configuration defaults.
func FromConfig(cfg *config.Config) Settings {
	if cfg == nil {
		return Settings{}
	}
	return Settings{
		OutputFolder:     cfg.Paths.OutputDir,
		DefaultVoiceID:   cfg.Voice.DefaultVoiceID,
		DefaultVoiceName: cfg.Voice.DefaultVoiceName,
		ModelID:          cfg.Voice.ModelID,
		Voice: ttsclient.VoiceSettings{
			Stability:       cfg.Voice.Stability,
			SimilarityBoost: cfg.Voice.SimilarityBoost,
			Style:           cfg.Voice.Style,
			UseSpeakerBoost: cfg.Voice.UseSpeakerBoost,
			Speed:           cfg.Voice.Speed,
		},
	}
}

// HasDefaultVoice reports whether lines without a voice can fall back to one.
func (s Settings) HasDefaultVoice() bool {
	return strings.TrimSpace(s.DefaultVoiceID) != ""
}

// Store guards the current settings.
type Store struct {
	mu       sync.RWMutex
	settings Settings
}

// NewStore returns a store holding initial.
func NewStore(initial Settings) *Store {
	return &Store{settings: initial}
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Apply merges u into the settings and returns the result.
func (s *Store) Apply(u Update) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.OutputFolder != nil {
		s.settings.OutputFolder = strings.TrimSpace(*u.OutputFolder)
	}
	if u.DefaultVoiceID != nil {
		s.settings.DefaultVoiceID = strings.TrimSpace(*u.DefaultVoiceID)
		if s.settings.DefaultVoiceID == "" {
			s.settings.DefaultVoiceName = ""
		}
	}
	if u.DefaultVoiceName != nil {
		s.settings.DefaultVoiceName = strings.TrimSpace(*u.DefaultVoiceName)
	}
	if u.ModelID != nil {
		s.settings.ModelID = strings.TrimSpace(*u.ModelID)
	}
	if u.Voice != nil {
		s.settings.Voice = *u.Voice
	}
	return s.settings
}
