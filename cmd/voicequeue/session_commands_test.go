package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"voicequeue/internal/api"
)

func TestSessionSetAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	folder := filepath.Join(env.baseDir, "exports", "chapter-1")

	out, _, err := runCLI(t, []string{
		"session", "set",
		"--output", folder,
		"--voice", "v-42",
		"--voice-name", "Rachel",
		"--stability", "0.3",
		"--speaker-boost",
	}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("session set: %v", err)
	}
	requireContains(t, out, "Rachel (v-42)")
	requireContains(t, out, folder)

	if info, err := os.Stat(folder); err != nil || !info.IsDir() {
		t.Fatalf("expected output folder to be created: %v", err)
	}

	out, _, err = runCLI(t, []string{"session", "show", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("session show: %v", err)
	}
	var session api.Session
	if err := json.Unmarshal([]byte(out), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.OutputFolder != folder || session.DefaultVoiceID != "v-42" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if session.Voice.Stability != 0.3 || !session.Voice.UseSpeakerBoost {
		t.Fatalf("unexpected voice settings: %+v", session.Voice)
	}
	if session.Voice.Speed != env.cfg.Voice.Speed {
		t.Fatalf("untouched settings must be kept, speed = %v", session.Voice.Speed)
	}
}

func TestSessionSetRequiresChanges(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"session", "set"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected error when nothing changes")
	}
}

func TestRecoveryWithoutSnapshot(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"recovery", "show"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("recovery show: %v", err)
	}
	requireContains(t, out, "No recovery snapshot available")

	out, _, err = runCLI(t, []string{"recovery", "discard"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("recovery discard: %v", err)
	}
	requireContains(t, out, "No recovery snapshot available")

	if _, _, err := runCLI(t, []string{"recovery", "restore"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("restore without a snapshot should fail")
	}
}
