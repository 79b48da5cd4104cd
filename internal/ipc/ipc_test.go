package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicequeue/internal/config"
	"voicequeue/internal/daemon"
	"voicequeue/internal/ipc"
	"voicequeue/internal/logging"
	"voicequeue/internal/testsupport"
)

type harness struct {
	cfg      *config.Config
	client   *ipc.Client
	backend  *testsupport.FakeTTS
	shutdown *atomic.Int32
}

func startHarness(t *testing.T) harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""
	backend := testsupport.NewFakeTTS()
	d, err := daemon.New(cfg, daemon.Deps{
		Store:   testsupport.MustOpenStore(t, cfg),
		Backend: backend,
		Logger:  logging.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, d.Start(ctx))

	// Unix socket paths are length limited; keep this one short.
	sockDir, err := os.MkdirTemp("", "vq")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(sockDir) })
	socket := filepath.Join(sockDir, "vq.sock")

	var shutdowns atomic.Int32
	srv, err := ipc.NewServer(ctx, socket, d, logging.NewNop(), func() { shutdowns.Add(1) })
	if err != nil && strings.Contains(err.Error(), "operation not permitted") {
		t.Skipf("skipping IPC server test: %v", err)
	}
	require.NoError(t, err)
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := ipc.Dial(socket)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return harness{cfg: cfg, client: client, backend: backend, shutdown: &shutdowns}
}

func TestIPCLineManagement(t *testing.T) {
	h := startHarness(t)
	client := h.client

	status, err := client.Status()
	require.NoError(t, err)
	assert.True(t, status.Status.Running)
	assert.Equal(t, "idle", status.Status.Run.State)

	_, err = client.LinesAdd(ipc.LinesAddRequest{Text: "  \n"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no text lines")

	added, err := client.LinesAdd(ipc.LinesAddRequest{Text: "one\ntwo\nthree", SourceFile: "chapter.txt"})
	require.NoError(t, err)
	require.Len(t, added.Lines, 3)
	assert.Equal(t, "chapter.txt", added.Lines[0].SourceFile)
	assert.Equal(t, "pending", added.Lines[0].Status)

	moved, err := client.LineMove(0, 2)
	require.NoError(t, err)
	assert.Equal(t, "two", moved.Lines[0].Text)
	assert.Equal(t, "one", moved.Lines[2].Text)

	_, err = client.LineMove(0, 9)
	require.Error(t, err)

	text := "uno"
	updated, err := client.LineUpdate(ipc.LineUpdateRequest{ID: moved.Lines[2].ID, Text: &text})
	require.NoError(t, err)
	assert.Equal(t, "uno", updated.Line.Text)

	selected, err := client.LinesSelect([]string{moved.Lines[0].ID})
	require.NoError(t, err)
	assert.Equal(t, []string{moved.Lines[0].ID}, selected.Selected)

	listed, err := client.LinesList(nil)
	require.NoError(t, err)
	require.Len(t, listed.Lines, 3)
	assert.True(t, listed.Lines[0].Selected)

	_, err = client.LinesList([]string{"bogus"})
	require.Error(t, err)

	removed, err := client.LinesRemove([]string{moved.Lines[1].ID})
	require.NoError(t, err)
	assert.Len(t, removed.Removed, 1)

	cleared, err := client.LinesClear()
	require.NoError(t, err)
	assert.Equal(t, 2, cleared.Removed)
}

func TestIPCRunLifecycle(t *testing.T) {
	h := startHarness(t)
	client := h.client
	h.backend.Failures["bad line"] = "voice rejected"

	folder := filepath.Join(testsupport.BaseDir(h.cfg), "session-out")
	sess, err := client.SessionUpdate(ipc.SessionUpdateRequest{
		OutputFolder: &folder,
		Voice:        &ipc.VoiceSettings{Stability: 0.4, SimilarityBoost: 0.8, Speed: 1.1},
	})
	require.NoError(t, err)
	assert.Equal(t, folder, sess.Session.OutputFolder)
	assert.InDelta(t, 1.1, sess.Session.Voice.Speed, 0.0001)

	_, err = client.RunStart("", 0)
	require.Error(t, err, "empty queue cannot start")

	_, err = client.LinesAdd(ipc.LinesAddRequest{Text: "good line\nbad line\nanother good line"})
	require.NoError(t, err)

	run, err := client.RunStart("sequential", 0)
	require.NoError(t, err)
	assert.Equal(t, "sequential", run.Run.Policy)
	assert.NotEmpty(t, run.Run.RunID)

	require.Eventually(t, func() bool {
		resp, err := client.Status()
		return err == nil && resp.Status.Run.State == "idle"
	}, 5*time.Second, 20*time.Millisecond)

	stats, err := client.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Stats.Total)
	assert.Equal(t, 2, stats.Stats.Completed)
	assert.Equal(t, 1, stats.Stats.Failed)

	_, err = client.RunPause()
	require.Error(t, err, "pause without an active run")

	history, err := client.History()
	require.NoError(t, err)
	require.Len(t, history.Entries, 2)
	assert.Equal(t, filepath.Join(folder, "00003.mp3"), history.Entries[0].OutputPath)

	failed, err := client.LinesList([]string{"error"})
	require.NoError(t, err)
	require.Len(t, failed.Lines, 1)
	assert.Contains(t, failed.Lines[0].ErrorMessage, "voice rejected")

	retried, err := client.LinesRetry(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{failed.Lines[0].ID}, retried.Retried)

	cleared, err := client.HistoryClear()
	require.NoError(t, err)
	assert.Equal(t, 2, cleared.Removed)
}

func TestIPCRecoveryAndDiagnostics(t *testing.T) {
	h := startHarness(t)
	client := h.client

	offer, err := client.RecoveryShow()
	require.NoError(t, err)
	assert.False(t, offer.Offer.Available)

	_, err = client.RecoveryRestore()
	require.Error(t, err)

	dbHealth, err := client.DatabaseHealth()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(dbHealth.DBPath, "voicequeue.db"))
	assert.True(t, dbHealth.IntegrityCheck)

	notifyResp, err := client.TestNotification()
	require.NoError(t, err)
	assert.False(t, notifyResp.Sent)
	assert.NotEmpty(t, notifyResp.Message)

	logPath := h.cfg.LogPath()
	require.NoError(t, os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644))
	logResp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "third"}, logResp.Lines)

	followDone := make(chan struct{})
	go func(offset int64) {
		defer close(followDone)
		resp, err := client.LogTail(ipc.LogTailRequest{Offset: offset, Follow: true, WaitMillis: 2000})
		if err != nil {
			t.Errorf("LogTail follow error: %v", err)
			return
		}
		if len(resp.Lines) != 1 || resp.Lines[0] != "fourth" {
			t.Errorf("unexpected follow lines: %#v", resp.Lines)
		}
	}(logResp.Offset)

	time.Sleep(100 * time.Millisecond)
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, _ = f.WriteString("fourth\n")
	_ = f.Close()

	select {
	case <-followDone:
	case <-time.After(10 * time.Second):
		t.Fatal("log tail follow timed out")
	}

	resp, err := client.Shutdown()
	require.NoError(t, err)
	assert.True(t, resp.Acknowledged)
	require.Eventually(t, func() bool { return h.shutdown.Load() == 1 }, time.Second, 10*time.Millisecond)
}
