package recovery_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"voicequeue/internal/lines"
	"voicequeue/internal/logging"
	"voicequeue/internal/recovery"
	"voicequeue/internal/session"
	"voicequeue/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.OpenPath(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func hasSnapshot(t *testing.T, s *store.Store) bool {
	t.Helper()
	var snap recovery.Snapshot
	found, err := s.Get(context.Background(), store.KeyRecoverySnapshot, &snap)
	if err != nil {
		t.Fatalf("Get snapshot: %v", err)
	}
	return found
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	q := lines.NewQueue()
	sess := session.NewStore(session.Settings{OutputFolder: "/out", DefaultVoiceID: "v1", DefaultVoiceName: "Rachel"})
	added := q.Append([]string{"a", "b", "c", "d"}, lines.AppendOptions{VoiceID: "v2", VoiceName: "Adam"})
	_ = q.MarkDone(added[0].ID, "/out/00001.mp3", 1, "")
	_ = q.SetStatus(added[1].ID, lines.StatusError, "boom")
	_ = q.SetStatus(added[2].ID, lines.StatusProcessing, "")

	mgr := recovery.NewManager(q, sess, s, logging.NewNop(), recovery.Options{})
	if err := mgr.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	freshQueue := lines.NewQueue()
	freshSession := session.NewStore(session.Settings{})
	restorer := recovery.NewManager(freshQueue, freshSession, s, logging.NewNop(), recovery.Options{})

	pending, err := restorer.Pending(ctx)
	if err != nil || pending == nil {
		t.Fatalf("expected pending snapshot, got %v err=%v", pending, err)
	}
	if done, remaining := pending.Counts(); done != 1 || remaining != 3 {
		t.Fatalf("unexpected counts: done=%d remaining=%d", done, remaining)
	}

	if _, err := restorer.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	restored := freshQueue.List()
	if len(restored) != 4 {
		t.Fatalf("expected 4 restored lines, got %d", len(restored))
	}
	wantStatus := []lines.Status{lines.StatusDone, lines.StatusPending, lines.StatusPending, lines.StatusPending}
	for i, line := range restored {
		if line.ID != added[i].ID || line.Index != i || line.Text != added[i].Text {
			t.Fatalf("line %d not restored in order: %+v", i, line)
		}
		if line.Status != wantStatus[i] {
			t.Fatalf("line %d status %s, want %s", i, line.Status, wantStatus[i])
		}
		if line.VoiceID != "v2" || line.ErrorMessage != "" {
			t.Fatalf("line %d unexpected fields: %+v", i, line)
		}
	}
	got := freshSession.Get()
	if got.OutputFolder != "/out" || got.DefaultVoiceID != "v1" || got.DefaultVoiceName != "Rachel" {
		t.Fatalf("session not restored: %+v", got)
	}
	if hasSnapshot(t, s) {
		t.Fatal("expected snapshot cleared after restore")
	}
}

func TestPendingRejectsStaleAndEmpty(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	now := base

	q := lines.NewQueue()
	q.Append([]string{"only"}, lines.AppendOptions{})
	sess := session.NewStore(session.Settings{OutputFolder: "/out"})
	mgr := recovery.NewManager(q, sess, s, logging.NewNop(), recovery.Options{Now: func() time.Time { return now }})
	if err := mgr.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reader := recovery.NewManager(lines.NewQueue(), session.NewStore(session.Settings{}), s, logging.NewNop(),
		recovery.Options{Now: func() time.Time { return now }})

	now = base.Add(23 * time.Hour)
	if snap, err := reader.Pending(ctx); err != nil || snap == nil {
		t.Fatalf("expected snapshot within 24h, got %v err=%v", snap, err)
	}

	now = base.Add(25 * time.Hour)
	if snap, err := reader.Pending(ctx); err != nil || snap != nil {
		t.Fatalf("expected stale snapshot rejected, got %v err=%v", snap, err)
	}
	if hasSnapshot(t, s) {
		t.Fatal("expected stale snapshot deleted")
	}

	if err := s.Put(ctx, store.KeyRecoverySnapshot, recovery.Snapshot{Timestamp: base}); err != nil {
		t.Fatalf("Put empty snapshot: %v", err)
	}
	now = base.Add(time.Minute)
	if snap, _ := reader.Pending(ctx); snap != nil {
		t.Fatal("expected empty snapshot rejected")
	}
	if _, err := reader.Restore(ctx); !errors.Is(err, recovery.ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestPendingHiddenWhileQueueHasLines(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	q := lines.NewQueue()
	q.Append([]string{"x"}, lines.AppendOptions{})
	mgr := recovery.NewManager(q, session.NewStore(session.Settings{}), s, logging.NewNop(), recovery.Options{})
	if err := mgr.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if snap, err := mgr.Pending(ctx); err != nil || snap != nil {
		t.Fatalf("expected no offer while queue has lines, got %v err=%v", snap, err)
	}
	if _, err := mgr.Restore(ctx); !errors.Is(err, recovery.ErrQueueNotEmpty) {
		t.Fatalf("expected ErrQueueNotEmpty, got %v", err)
	}
}

func TestMutationsTriggerDebouncedSaveAndClearDeletes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := openStore(t)
	q := lines.NewQueue()
	mgr := recovery.NewManager(q, session.NewStore(session.Settings{}), s, logging.NewNop(), recovery.Options{
		Interval: time.Hour,
		Debounce: 20 * time.Millisecond,
	})
	mgr.Start(ctx)
	defer mgr.Stop()

	q.Append([]string{"one"}, lines.AppendOptions{})
	q.Append([]string{"two"}, lines.AppendOptions{})
	waitFor(t, 2*time.Second, func() bool {
		var snap recovery.Snapshot
		found, err := s.Get(ctx, store.KeyRecoverySnapshot, &snap)
		return err == nil && found && len(snap.Lines) == 2
	})

	q.Clear()
	if hasSnapshot(t, s) {
		t.Fatal("expected snapshot deleted on clear")
	}
}

func TestPeriodicSaveOnlyWhileNonEmpty(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := openStore(t)
	q := lines.NewQueue()
	mgr := recovery.NewManager(q, session.NewStore(session.Settings{}), s, logging.NewNop(), recovery.Options{
		Interval: 15 * time.Millisecond,
		Debounce: time.Hour,
	})
	mgr.Start(ctx)
	defer mgr.Stop()

	time.Sleep(60 * time.Millisecond)
	if hasSnapshot(t, s) {
		t.Fatal("expected no snapshot for an empty queue")
	}

	q.Append([]string{"tick"}, lines.AppendOptions{})
	waitFor(t, 2*time.Second, func() bool { return hasSnapshot(t, s) })
	if mgr.LastSaved().IsZero() {
		t.Fatal("expected LastSaved to be recorded")
	}
}
