package session_test

import (
	"testing"

	"voicequeue/internal/config"
	"voicequeue/internal/session"
)

func TestFromConfigAndApply(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.OutputDir = "/tmp/out"
	cfg.Voice.DefaultVoiceID = "v1"
	cfg.Voice.DefaultVoiceName = "Rachel"

	store := session.NewStore(session.FromConfig(&cfg))
	got := store.Get()
	if got.OutputFolder != "/tmp/out" || !got.HasDefaultVoice() || got.Voice.Speed != 1.0 {
		t.Fatalf("unexpected seeded settings: %+v", got)
	}

	empty := ""
	folder := " /srv/audio "
	updated := store.Apply(session.Update{DefaultVoiceID: &empty, OutputFolder: &folder})
	if updated.HasDefaultVoice() || updated.DefaultVoiceName != "" {
		t.Fatalf("expected default voice cleared with its name, got %+v", updated)
	}
	if updated.OutputFolder != "/srv/audio" {
		t.Fatalf("expected trimmed folder, got %q", updated.OutputFolder)
	}
	if store.Get().ModelID != cfg.Voice.ModelID {
		t.Fatalf("expected model untouched, got %q", store.Get().ModelID)
	}
}
