package daemon_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"voicequeue/internal/config"
	"voicequeue/internal/daemon"
	"voicequeue/internal/lines"
	"voicequeue/internal/logging"
	"voicequeue/internal/orchestrator"
	"voicequeue/internal/session"
	"voicequeue/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *testsupport.FakeTTS) {
	t.Helper()
	backend := testsupport.NewFakeTTS()
	d, err := daemon.New(cfg, daemon.Deps{
		Store:   testsupport.MustOpenStore(t, cfg),
		Backend: backend,
		Logger:  logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})
	return d, backend
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.Run.State != orchestrator.StateIdle {
		t.Fatalf("expected idle orchestrator, got %s", status.Run.State)
	}
	if status.LockFilePath != cfg.LockPath() {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonStopImmediatelyAfterStart(t *testing.T) {
	for i := 0; i < 25; i++ {
		cfg := testsupport.NewConfig(t)
		d, _ := newDaemon(t, cfg)
		if err := d.Start(context.Background()); err != nil {
			t.Fatalf("Start %d: %v", i, err)
		}
		d.Stop()
		if d.Status(context.Background()).Running {
			t.Fatalf("iteration %d: expected daemon to be stopped", i)
		}
	}
	// Let any background credit refresh from the last iteration finish.
	time.Sleep(50 * time.Millisecond)
}

func TestSecondDaemonCannotShareDataDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, _ := newDaemon(t, cfg)
	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	otherCfg := *cfg
	otherCfg.Paths.APIBind = ""
	second, _ := newDaemon(t, &otherCfg)
	if err := second.Start(ctx); err == nil {
		t.Fatal("expected lock contention error")
	}
}

func TestDaemonLineOperations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newDaemon(t, cfg)

	if _, err := d.AddLines("   \n\n", lines.AppendOptions{}); !errors.Is(err, daemon.ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}

	added, err := d.AddLines("first\n\nsecond\nthird\n", lines.AppendOptions{SourceFile: "script.txt", VoiceID: " v9 "})
	if err != nil {
		t.Fatalf("AddLines: %v", err)
	}
	if len(added) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(added))
	}
	if added[0].VoiceID != "v9" || added[0].VoiceName != "v9" {
		t.Fatalf("expected trimmed voice with name fallback, got %+v", added[0])
	}

	if err := d.MoveLine(2, 0); err != nil {
		t.Fatalf("MoveLine: %v", err)
	}
	items, _ := d.Lines()
	if items[0].Text != "third" || items[0].Index != 0 {
		t.Fatalf("expected third line first, got %+v", items[0])
	}

	text := "edited"
	updated, err := d.UpdateLine(items[1].ID, lines.Patch{Text: &text})
	if err != nil {
		t.Fatalf("UpdateLine: %v", err)
	}
	if updated.Text != "edited" {
		t.Fatalf("unexpected text %q", updated.Text)
	}

	selected := d.SelectLines([]string{items[0].ID, "missing"})
	if len(selected) != 1 || selected[0] != items[0].ID {
		t.Fatalf("unexpected selection %v", selected)
	}

	removed := d.DeleteLines([]string{items[0].ID})
	if len(removed) != 1 {
		t.Fatalf("expected one removal, got %v", removed)
	}
	if n := d.ClearLines(); n != 2 {
		t.Fatalf("expected 2 cleared lines, got %d", n)
	}
}

func TestDaemonUpdateSessionCreatesFolder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newDaemon(t, cfg)

	folder := filepath.Join(testsupport.BaseDir(cfg), "exports", "chapter-1")
	voice := "narrator"
	settings, err := d.UpdateSession(session.Update{OutputFolder: &folder, DefaultVoiceID: &voice})
	if err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	if settings.OutputFolder != folder || settings.DefaultVoiceID != "narrator" {
		t.Fatalf("unexpected settings %+v", settings)
	}
	if info, err := os.Stat(folder); err != nil || !info.IsDir() {
		t.Fatalf("expected output folder to exist: %v", err)
	}
}

func TestDaemonRunRecordsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, backend := newDaemon(t, cfg)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := d.AddLines("alpha\nbeta", lines.AppendOptions{}); err != nil {
		t.Fatalf("AddLines: %v", err)
	}
	if _, err := d.StartRun(config.PolicySequential, 0); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := d.WaitRun(waitCtx); err != nil {
		t.Fatalf("WaitRun: %v", err)
	}

	stats := d.Stats()
	if stats.Completed != 2 || stats.Failed != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(backend.Calls()) != 2 {
		t.Fatalf("expected 2 synthesize calls, got %d", len(backend.Calls()))
	}
	entries := d.History()
	if len(entries) != 2 || entries[0].LineText != "beta" {
		t.Fatalf("expected newest-first history, got %+v", entries)
	}

	n, err := d.ClearHistory(ctx)
	if err != nil || n != 2 {
		t.Fatalf("ClearHistory = %d, %v", n, err)
	}
	if len(d.History()) != 0 {
		t.Fatal("expected empty history after clear")
	}
}

func TestDaemonRecoveryAcrossRestart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""
	ctx := context.Background()

	st := testsupport.MustOpenStore(t, cfg)
	first, err := daemon.New(cfg, daemon.Deps{Store: st, Backend: testsupport.NewFakeTTS(), Logger: logging.NewNop()})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := first.AddLines("one\ntwo\nthree", lines.AppendOptions{}); err != nil {
		t.Fatalf("AddLines: %v", err)
	}
	first.Stop()

	second, err := daemon.New(cfg, daemon.Deps{Store: st, Backend: testsupport.NewFakeTTS(), Logger: logging.NewNop()})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	defer second.Stop()

	snap, err := second.PendingRecovery(ctx)
	if err != nil {
		t.Fatalf("PendingRecovery: %v", err)
	}
	if snap == nil || len(snap.Lines) != 3 {
		t.Fatalf("expected a 3-line snapshot, got %+v", snap)
	}
	if _, err := second.RestoreRecovery(ctx); err != nil {
		t.Fatalf("RestoreRecovery: %v", err)
	}
	items, _ := second.Lines()
	if len(items) != 3 || items[2].Text != "three" {
		t.Fatalf("unexpected restored lines %+v", items)
	}
}

func TestDaemonTestNotificationWithoutChannel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newDaemon(t, cfg)
	sent, message, err := d.TestNotification(context.Background())
	if err != nil || sent {
		t.Fatalf("expected unsent notification without error, got %v %v", sent, err)
	}
	if message != "no notification channel configured" {
		t.Fatalf("unexpected message %q", message)
	}
}
