package history_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"voicequeue/internal/history"
	"voicequeue/internal/store"
)

func TestAppendKeepsNewestFirstAndBounded(t *testing.T) {
	ctx := context.Background()
	ledger := history.NewLedger(nil, 0)

	for i := range 101 {
		if _, err := ledger.Append(ctx, history.Entry{LineIndex: i, OutputPath: fmt.Sprintf("/out/%05d.mp3", i+1)}); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	entries := ledger.List()
	if len(entries) != history.DefaultLimit {
		t.Fatalf("expected %d entries, got %d", history.DefaultLimit, len(entries))
	}
	if entries[0].LineIndex != 100 {
		t.Fatalf("expected newest entry first, got index %d", entries[0].LineIndex)
	}
	if entries[len(entries)-1].LineIndex != 1 {
		t.Fatalf("expected oldest entry dropped, last index %d", entries[len(entries)-1].LineIndex)
	}
	if entries[0].ID == "" || entries[0].Timestamp.IsZero() {
		t.Fatalf("expected derived id and timestamp, got %+v", entries[0])
	}
}

func TestAppendTruncatesSnippet(t *testing.T) {
	ledger := history.NewLedger(nil, 5)
	entry, err := ledger.Append(context.Background(), history.Entry{LineText: strings.Repeat("é", 150)})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got := len([]rune(entry.LineText)); got != 100 {
		t.Fatalf("expected 100 character snippet, got %d", got)
	}
}

func TestLedgerPersistsAcrossLoad(t *testing.T) {
	ctx := context.Background()
	s, err := store.OpenPath(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	ledger := history.NewLedger(s, 3)
	for i := range 4 {
		if _, err := ledger.Append(ctx, history.Entry{LineIndex: i, VoiceName: "Rachel"}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	reloaded := history.NewLedger(s, 3)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	entries := reloaded.List()
	if len(entries) != 3 || entries[0].LineIndex != 3 || entries[2].LineIndex != 1 {
		t.Fatalf("unexpected reloaded entries: %+v", entries)
	}

	if err := reloaded.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	again := history.NewLedger(s, 3)
	if err := again.Load(ctx); err != nil {
		t.Fatalf("Load after clear: %v", err)
	}
	if again.Len() != 0 {
		t.Fatalf("expected empty ledger after clear, got %d", again.Len())
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string, any) (bool, error) { return false, nil }

func (failingStore) Put(context.Context, string, any) error { return errors.New("disk full") }

func TestAppendReportsPersistFailureButKeepsEntry(t *testing.T) {
	ledger := history.NewLedger(failingStore{}, 10)
	if _, err := ledger.Append(context.Background(), history.Entry{LineIndex: 4}); err == nil {
		t.Fatal("expected persist error")
	}
	if ledger.Len() != 1 {
		t.Fatalf("expected entry retained in memory, got %d", ledger.Len())
	}
}

// slowStore blocks its first Put until release is closed.
type slowStore struct {
	entered chan struct{}
	release chan struct{}

	mu    sync.Mutex
	puts  int
	saved []history.Entry
}

func (s *slowStore) Get(context.Context, string, any) (bool, error) { return false, nil }

func (s *slowStore) Put(_ context.Context, _ string, value any) error {
	s.mu.Lock()
	s.puts++
	first := s.puts == 1
	s.mu.Unlock()
	if first {
		close(s.entered)
		<-s.release
	}
	entries, _ := value.([]history.Entry)
	s.mu.Lock()
	s.saved = append([]history.Entry(nil), entries...)
	s.mu.Unlock()
	return nil
}

func TestClearIsNotOverwrittenByEarlierAppend(t *testing.T) {
	backing := &slowStore{entered: make(chan struct{}), release: make(chan struct{})}
	ledger := history.NewLedger(backing, 10)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = ledger.Append(ctx, history.Entry{LineIndex: 1})
	}()
	<-backing.entered
	go func() {
		defer wg.Done()
		_ = ledger.Clear(ctx)
	}()
	time.Sleep(20 * time.Millisecond)
	close(backing.release)
	wg.Wait()

	backing.mu.Lock()
	defer backing.mu.Unlock()
	if backing.puts != 2 {
		t.Fatalf("expected 2 writes, got %d", backing.puts)
	}
	if len(backing.saved) != 0 {
		t.Fatalf("expected cleared ledger to be stored last, got %+v", backing.saved)
	}
	if ledger.Len() != 0 {
		t.Fatalf("expected empty ledger, got %d", ledger.Len())
	}
}
