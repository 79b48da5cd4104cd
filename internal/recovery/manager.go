package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"voicequeue/internal/lines"
	"voicequeue/internal/logging"
	"voicequeue/internal/session"
	"voicequeue/internal/store"
)

var (
	// ErrNoSnapshot indicates there is no valid snapshot to restore.
	ErrNoSnapshot = errors.New("no recoverable session")
	// ErrQueueNotEmpty indicates a restore was attempted over live lines.
	ErrQueueNotEmpty = errors.New("queue is not empty")
)

// Persister is the subset of the document store recovery needs.
type Persister interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Put(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

// Options tunes snapshot cadence.
type Options struct {
	Interval time.Duration
	Debounce time.Duration
	MaxAge   time.Duration
	Now      func() time.Time
}

// Manager snapshots the queue after mutations (debounced) and periodically
// while the queue is non-empty.
type Manager struct {
	queue   *lines.Queue
	session *session.Store
	store   Persister
	logger  *slog.Logger
	opts    Options

	writeMu sync.Mutex

	mu          sync.Mutex
	debounce    *time.Timer
	unsubscribe func()
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	lastSaved   time.Time
}

// NewManager wires a recovery manager. Zero options fall back to 30s interval,
// 1s debounce and 24h max age.
func NewManager(q *lines.Queue, sess *session.Store, p Persister, logger *slog.Logger, opts Options) *Manager {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Debounce <= 0 {
		opts.Debounce = time.Second
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		queue:   q,
		session: sess,
		store:   p,
		logger:  logging.NewComponentLogger(logger, "recovery"),
		opts:    opts,
	}
}

// Start subscribes to queue mutations and begins the periodic snapshot loop.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.unsubscribe = m.queue.Subscribe(func(mut lines.Mutation) { m.onMutation(loopCtx, mut) })

	m.wg.Add(1)
	go m.loop(loopCtx)
}

// Stop halts background snapshots and writes a final one when lines remain.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	unsubscribe := m.unsubscribe
	m.cancel = nil
	m.unsubscribe = nil
	if m.debounce != nil {
		m.debounce.Stop()
		m.debounce = nil
	}
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	unsubscribe()
	cancel()
	m.wg.Wait()

	if m.queue.Len() > 0 {
		if err := m.Save(context.Background()); err != nil {
			m.warnWrite(err)
		}
	}
}

func (m *Manager) loop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.queue.Len() == 0 {
				continue
			}
			if err := m.Save(ctx); err != nil && ctx.Err() == nil {
				m.warnWrite(err)
			}
		}
	}
}

func (m *Manager) onMutation(ctx context.Context, mut lines.Mutation) {
	if mut.Kind == lines.MutationCleared || mut.Len == 0 {
		m.mu.Lock()
		if m.debounce != nil {
			m.debounce.Stop()
			m.debounce = nil
		}
		m.mu.Unlock()
		if err := m.Discard(ctx); err != nil && ctx.Err() == nil {
			m.warnWrite(err)
		}
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel == nil {
		return
	}
	if m.debounce != nil {
		m.debounce.Reset(m.opts.Debounce)
		return
	}
	m.debounce = time.AfterFunc(m.opts.Debounce, func() {
		m.mu.Lock()
		m.debounce = nil
		m.mu.Unlock()
		if ctx.Err() != nil || m.queue.Len() == 0 {
			return
		}
		if err := m.Save(ctx); err != nil && ctx.Err() == nil {
			m.warnWrite(err)
		}
	})
}

// Save writes a snapshot of the current queue and session immediately.
func (m *Manager) Save(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	now := m.opts.Now()
	snap := Capture(m.queue.List(), m.session.Get(), now)
	if err := m.store.Put(ctx, store.KeyRecoverySnapshot, snap); err != nil {
		return fmt.Errorf("save recovery snapshot: %w", err)
	}
	m.mu.Lock()
	m.lastSaved = now
	m.mu.Unlock()
	m.logger.Debug("recovery snapshot saved",
		logging.String(logging.FieldEventType, "recovery_snapshot_saved"),
		logging.Int("lines", len(snap.Lines)),
	)
	return nil
}

// LastSaved returns when the most recent snapshot was written by this manager.
func (m *Manager) LastSaved() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSaved
}

// Pending returns the stored snapshot when it can be offered: it must be
// valid and the live queue must be empty. Invalid snapshots are deleted.
func (m *Manager) Pending(ctx context.Context) (*Snapshot, error) {
	if m.queue.Len() > 0 {
		return nil, nil
	}
	snap, err := m.load(ctx)
	if err != nil || snap == nil {
		return nil, err
	}
	return snap, nil
}

// Restore rebuilds the queue and session from the stored snapshot and
// clears it.
func (m *Manager) Restore(ctx context.Context) (Snapshot, error) {
	if m.queue.Len() > 0 {
		return Snapshot{}, ErrQueueNotEmpty
	}
	snap, err := m.load(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if snap == nil {
		return Snapshot{}, ErrNoSnapshot
	}

	folder := snap.OutputFolder
	voiceID := snap.DefaultVoiceID
	voiceName := snap.DefaultVoiceName
	m.session.Apply(session.Update{
		OutputFolder:     &folder,
		DefaultVoiceID:   &voiceID,
		DefaultVoiceName: &voiceName,
	})
	m.queue.Replace(snap.RestoredLines())

	if err := m.Discard(ctx); err != nil {
		m.warnWrite(err)
	}
	done, remaining := snap.Counts()
	m.logger.Info("session restored",
		logging.String(logging.FieldEventType, "recovery_restored"),
		logging.Int("done", done),
		logging.Int("remaining", remaining),
		logging.String("output_folder", snap.OutputFolder),
	)
	return *snap, nil
}

// Discard deletes the stored snapshot.
func (m *Manager) Discard(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := m.store.Delete(ctx, store.KeyRecoverySnapshot); err != nil {
		return fmt.Errorf("clear recovery snapshot: %w", err)
	}
	return nil
}

func (m *Manager) load(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	found, err := m.store.Get(ctx, store.KeyRecoverySnapshot, &snap)
	if err != nil && !found {
		return nil, err
	}
	if err != nil {
		logging.WarnWithContext(m.logger, "recovery snapshot unreadable", "recovery_snapshot_corrupt",
			logging.Error(err),
			logging.String(logging.FieldImpact, "previous session cannot be restored"),
		)
		_ = m.Discard(ctx)
		return nil, nil
	}
	if !found {
		return nil, nil
	}
	if !snap.Valid(m.opts.Now(), m.opts.MaxAge) {
		if err := m.Discard(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &snap, nil
}

func (m *Manager) warnWrite(err error) {
	logging.WarnWithContext(m.logger, "recovery snapshot write failed", "recovery_write_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check free space and permissions of the data directory"),
		logging.String(logging.FieldImpact, "a crash now may lose queue progress"),
	)
}
