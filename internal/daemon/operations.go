package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"voicequeue/internal/history"
	"voicequeue/internal/lines"
	"voicequeue/internal/logging"
	"voicequeue/internal/orchestrator"
	"voicequeue/internal/recovery"
	"voicequeue/internal/session"
	"voicequeue/internal/stats"
)

// ErrNoText is returned when an add request yields no non-blank lines.
var ErrNoText = errors.New("no text lines to add")

// AddLines splits raw text into lines and appends them to the queue.
func (d *Daemon) AddLines(raw string, opts lines.AppendOptions) ([]lines.Line, error) {
	texts := lines.SplitText(raw)
	if len(texts) == 0 {
		return nil, ErrNoText
	}
	opts.VoiceID = strings.TrimSpace(opts.VoiceID)
	opts.VoiceName = strings.TrimSpace(opts.VoiceName)
	if opts.VoiceName == "" {
		opts.VoiceName = opts.VoiceID
	}
	added := d.queue.Append(texts, opts)
	d.logger.Info("lines queued",
		logging.String(logging.FieldEventType, "lines_added"),
		logging.Int("count", len(added)),
		logging.String("source", opts.SourceFile),
	)
	return added, nil
}

// Lines returns the queue in index order plus the current selection. When
// statuses are given only lines in one of them are returned.
func (d *Daemon) Lines(statuses ...lines.Status) ([]lines.Line, []string) {
	items := d.queue.List()
	if len(statuses) == 0 {
		return items, d.queue.Selection()
	}
	filtered := items[:0]
	for _, item := range items {
		if slices.Contains(statuses, item.Status) {
			filtered = append(filtered, item)
		}
	}
	return filtered, d.queue.Selection()
}

// LogPath returns the daemon log file.
func (d *Daemon) LogPath() string {
	return d.cfg.LogPath()
}

// UpdateLine edits a line's text or voice.
func (d *Daemon) UpdateLine(id string, patch lines.Patch) (lines.Line, error) {
	return d.queue.Update(id, patch)
}

// DeleteLines removes lines and returns the ids actually removed.
func (d *Daemon) DeleteLines(ids []string) []string {
	return d.queue.Delete(ids)
}

// MoveLine moves the line at from to position to.
func (d *Daemon) MoveLine(from, to int) error {
	return d.queue.Reorder(from, to)
}

// ClearLines empties the queue and returns how many lines were removed.
func (d *Daemon) ClearLines() int {
	n := d.queue.Len()
	d.queue.Clear()
	return n
}

// SelectLines replaces the selection.
func (d *Daemon) SelectLines(ids []string) []string {
	d.queue.Select(ids)
	return d.queue.Selection()
}

// Session returns the current session settings.
func (d *Daemon) Session() session.Settings {
	return d.session.Get()
}

// UpdateSession applies u. A new output folder is created when missing.
func (d *Daemon) UpdateSession(u session.Update) (session.Settings, error) {
	if u.OutputFolder != nil {
		folder := strings.TrimSpace(*u.OutputFolder)
		if folder != "" {
			abs, err := filepath.Abs(folder)
			if err != nil {
				return session.Settings{}, fmt.Errorf("resolve output folder: %w", err)
			}
			if err := os.MkdirAll(abs, 0o755); err != nil {
				return session.Settings{}, fmt.Errorf("create output folder: %w", err)
			}
			folder = abs
		}
		u.OutputFolder = &folder
	}
	return d.session.Apply(u), nil
}

// StartRun validates the queue and begins a run.
func (d *Daemon) StartRun(policy string, concurrency int) (orchestrator.Status, error) {
	return d.orch.Start(policy, concurrency)
}

// PauseRun pauses a sequential run.
func (d *Daemon) PauseRun() error {
	return d.orch.Pause()
}

// ResumeRun resumes a paused run.
func (d *Daemon) ResumeRun() error {
	return d.orch.Resume()
}

// StopRun requests the active run to stop.
func (d *Daemon) StopRun() error {
	return d.orch.Stop()
}

// RetryLines resets failed lines to pending.
func (d *Daemon) RetryLines(ids []string) []string {
	return d.orch.Retry(ids)
}

// RunStatus reports orchestrator state.
func (d *Daemon) RunStatus() orchestrator.Status {
	return d.orch.Status()
}

// Stats aggregates run progress.
func (d *Daemon) Stats() stats.Stats {
	return d.orch.Stats()
}

// History returns the export ledger, newest first.
func (d *Daemon) History() []history.Entry {
	return d.ledger.List()
}

// ClearHistory empties the export ledger.
func (d *Daemon) ClearHistory(ctx context.Context) (int, error) {
	n := d.ledger.Len()
	if err := d.ledger.Clear(ctx); err != nil {
		return 0, err
	}
	return n, nil
}

// PendingRecovery returns a restorable snapshot, if any.
func (d *Daemon) PendingRecovery(ctx context.Context) (*recovery.Snapshot, error) {
	return d.recovery.Pending(ctx)
}

// RestoreRecovery rebuilds the queue from the stored snapshot.
func (d *Daemon) RestoreRecovery(ctx context.Context) (recovery.Snapshot, error) {
	return d.recovery.Restore(ctx)
}

// DiscardRecovery deletes the stored snapshot.
func (d *Daemon) DiscardRecovery(ctx context.Context) error {
	return d.recovery.Discard(ctx)
}

// WaitRun blocks until the active run settles or ctx ends.
func (d *Daemon) WaitRun(ctx context.Context) error {
	return d.orch.Wait(ctx)
}
