package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"voicequeue/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "voicequeue")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.SocketPath != filepath.Join(wantData, "voicequeue.sock") {
		t.Fatalf("unexpected socket path: %q", cfg.Paths.SocketPath)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "voicequeue") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Orchestrator.Concurrency != 5 {
		t.Fatalf("expected default concurrency 5, got %d", cfg.Orchestrator.Concurrency)
	}
	if cfg.Orchestrator.PausePollIntervalMS != 100 {
		t.Fatalf("expected pause poll 100ms, got %d", cfg.Orchestrator.PausePollIntervalMS)
	}
	if cfg.History.Limit != 100 {
		t.Fatalf("expected history limit 100, got %d", cfg.History.Limit)
	}
	if cfg.RecoveryMaxAge().Hours() != 24 {
		t.Fatalf("expected 24h recovery window, got %s", cfg.RecoveryMaxAge())
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "voicequeue.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("VOICEQUEUE_API_KEY", "from-env")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"data_dir":   "~/state",
			"output_dir": "~/audio",
		},
		"backend": map[string]any{
			"transport":      "NATS",
			"nats_url":       "nats://example:4222",
			"subject_prefix": ".voices.",
		},
		"voice": map[string]any{
			"default_voice_id": "  rachel ",
		},
		"orchestrator": map[string]any{
			"policy":      "Parallel",
			"concurrency": 200,
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "state") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "audio") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Backend.Transport != config.TransportNATS {
		t.Fatalf("expected nats transport, got %q", cfg.Backend.Transport)
	}
	if cfg.Backend.SubjectPrefix != "voices" {
		t.Fatalf("expected trimmed subject prefix, got %q", cfg.Backend.SubjectPrefix)
	}
	if cfg.Backend.APIKey != "from-env" {
		t.Fatalf("expected api key from env, got %q", cfg.Backend.APIKey)
	}
	if cfg.Voice.DefaultVoiceID != "rachel" || cfg.Voice.DefaultVoiceName != "rachel" {
		t.Fatalf("unexpected default voice: %q/%q", cfg.Voice.DefaultVoiceID, cfg.Voice.DefaultVoiceName)
	}
	if cfg.Orchestrator.Policy != config.PolicyParallel {
		t.Fatalf("expected parallel policy, got %q", cfg.Orchestrator.Policy)
	}
	if cfg.Orchestrator.Concurrency != 50 {
		t.Fatalf("expected concurrency clamped to 50, got %d", cfg.Orchestrator.Concurrency)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"unknown transport", func(c *config.Config) { c.Backend.Transport = "grpc" }, "backend.transport"},
		{"relative backend url", func(c *config.Config) { c.Backend.URL = "localhost" }, "backend.url"},
		{"unknown policy", func(c *config.Config) { c.Orchestrator.Policy = "random" }, "orchestrator.policy"},
		{"stability range", func(c *config.Config) { c.Voice.Stability = 1.5 }, "voice.stability"},
		{"zero history", func(c *config.Config) { c.History.Limit = 0 }, "history.limit"},
		{"zero debounce", func(c *config.Config) { c.Recovery.DebounceMS = 0 }, "recovery.debounce_ms"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestClampConcurrency(t *testing.T) {
	cases := map[int]int{-3: 1, 0: 1, 1: 1, 5: 5, 50: 50, 51: 50}
	for in, want := range cases {
		if got := config.ClampConcurrency(in); got != want {
			t.Fatalf("ClampConcurrency(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Backend.Transport != config.TransportHTTP {
		t.Fatalf("unexpected sample transport %q", cfg.Backend.Transport)
	}
}
