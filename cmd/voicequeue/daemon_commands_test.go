package main

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"voicequeue/internal/api"
	"voicequeue/internal/testsupport"
)

func TestStatusWithRunningDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"lines", "add", "--text", "one\ntwo"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("lines add: %v", err)
	}

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Daemon ==")
	requireContains(t, out, "Running (pid")
	requireContains(t, out, "== Readiness Checks ==")
	requireContains(t, out, "== Run ==")
	requireContains(t, out, "0/2 done")

	out, _, err = runCLI(t, []string{"status", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var snapshot struct {
		Running bool
		Status  *api.DaemonStatus
	}
	if err := json.Unmarshal([]byte(out), &snapshot); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !snapshot.Running || snapshot.Status == nil || snapshot.Status.Stats.Total != 2 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func TestStatusWithoutDaemonRunsLocalChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL("http://127.0.0.1:1"))
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	socket := filepath.Join(testsupport.BaseDir(cfg), "none.sock")

	out, _, err := runCLI(t, []string{"status"}, socket, configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Not running")
	requireContains(t, out, "[ERROR]")
}

func TestStopWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"stop"}, filepath.Join(testsupport.BaseDir(cfg), "none.sock"), configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}

func TestCommandsReportMissingDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	_, _, err := runCLI(t, []string{"lines", "list"}, filepath.Join(testsupport.BaseDir(cfg), "none.sock"), configPath)
	if err == nil {
		t.Fatal("expected dial error")
	}
	requireContains(t, err.Error(), "voicequeue start")
}

func TestTestNotifyWithoutChannel(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"test-notify"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "no notification channel configured")
}

func TestDatabaseHealth(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"config", "db-health"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("db-health: %v", err)
	}
	requireContains(t, out, env.cfg.DatabasePath())
	requireContains(t, out, "Integrity:")
}
