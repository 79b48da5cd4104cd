// Package history keeps the bounded export ledger of produced audio files.
//
// Entries are only ever prepended; once the ledger exceeds its limit the
// oldest entries fall off the end. Every append persists the whole list.
package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"voicequeue/internal/lines"
	"voicequeue/internal/store"
)

// DefaultLimit is the number of entries retained when no limit is configured.
const DefaultLimit = 100

// snippetLength caps the line text copied into an entry.
const snippetLength = 100

// Entry records one produced artifact.
type Entry struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	OutputPath    string    `json:"output_path"`
	LineIndex     int       `json:"line_index"`
	LineText      string    `json:"line_text"`
	VoiceName     string    `json:"voice_name"`
	DurationMS    int64     `json:"duration_ms"`
	SessionFolder string    `json:"session_folder"`
}

// Persister is the subset of the document store the ledger needs.
type Persister interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Put(ctx context.Context, key string, value any) error
}

// Ledger is the in-memory view of the export history, mirrored to storage.
type Ledger struct {
	// writeMu orders persists so the stored list matches the newest in-memory one.
	writeMu sync.Mutex

	mu      sync.Mutex
	entries []Entry
	limit   int
	store   Persister
	now     func() time.Time
}

// NewLedger builds an empty ledger. A nil persister keeps entries in memory only.
func NewLedger(p Persister, limit int) *Ledger {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Ledger{store: p, limit: limit, now: time.Now}
}

// Load replaces the in-memory entries with the persisted list.
func (l *Ledger) Load(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	var entries []Entry
	if _, err := l.store.Get(ctx, store.KeyExportHistory, &entries); err != nil {
		return fmt.Errorf("load export history: %w", err)
	}
	if len(entries) > l.limit {
		entries = entries[:l.limit]
	}
	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()
	return nil
}

// Append stamps entry with a fresh id and timestamp, prepends it and persists
// the truncated list. The stored entry is returned even when persisting fails.
func (l *Ledger) Append(ctx context.Context, entry Entry) (Entry, error) {
	entry.ID = uuid.NewString()
	entry.Timestamp = l.now().UTC()
	entry.LineText = lines.Snippet(entry.LineText, snippetLength)

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.mu.Lock()
	next := make([]Entry, 0, min(len(l.entries)+1, l.limit))
	next = append(next, entry)
	next = append(next, l.entries...)
	if len(next) > l.limit {
		next = next[:l.limit]
	}
	l.entries = next
	snapshot := append([]Entry(nil), next...)
	l.mu.Unlock()

	return entry, l.persist(ctx, snapshot)
}

// List returns the entries newest first.
func (l *Ledger) List() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Len returns the number of retained entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear empties the ledger and persists the empty list.
func (l *Ledger) Clear(ctx context.Context) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
	return l.persist(ctx, []Entry{})
}

func (l *Ledger) persist(ctx context.Context, entries []Entry) error {
	if l.store == nil {
		return nil
	}
	if err := l.store.Put(ctx, store.KeyExportHistory, entries); err != nil {
		return fmt.Errorf("persist export history: %w", err)
	}
	return nil
}
