package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"voicequeue/internal/config"
	"voicequeue/internal/history"
	"voicequeue/internal/lines"
	"voicequeue/internal/logging"
	"voicequeue/internal/notifications"
	"voicequeue/internal/session"
)

// notifyTimeout bounds the end-of-run notification, which must outlive daemon
// shutdown.
const notifyTimeout = 10 * time.Second

type run struct {
	id          string
	policy      string
	concurrency int
	ids         []string
	settings    session.Settings

	stopOnce sync.Once
	stop     chan struct{}
}

func (r *run) requestStop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *run) stopping() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

type tally struct {
	processed int
	failed    int
}

// OutputPath is where the audio for the line at index is written.
func OutputPath(folder string, index int) string {
	return filepath.Join(folder, fmt.Sprintf("%05d.mp3", index+1))
}

func effectiveVoice(line lines.Line, settings session.Settings) (string, string) {
	if line.HasVoice() {
		name := line.VoiceName
		if name == "" {
			name = line.VoiceID
		}
		return line.VoiceID, name
	}
	if settings.HasDefaultVoice() {
		name := settings.DefaultVoiceName
		if name == "" {
			name = settings.DefaultVoiceID
		}
		return settings.DefaultVoiceID, name
	}
	return "", ""
}

func (o *Orchestrator) execute(r *run) {
	defer o.wg.Done()

	ctx := o.baseCtx
	logger := o.logger.With(
		logging.String(logging.FieldRunID, r.id),
		logging.String(logging.FieldPolicy, r.policy),
	)
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.Int("pending", len(r.ids)),
		logging.Int("concurrency", r.concurrency),
		logging.String("output_folder", r.settings.OutputFolder),
	)
	if err := o.notifier.NotifyRunStarted(ctx, r.policy, len(r.ids)); err != nil {
		logger.Debug("run start notification failed", logging.Error(err))
	}

	var t tally
	if r.policy == config.PolicyParallel {
		t = o.runParallel(ctx, r, logger)
	} else {
		t = o.runSequential(ctx, r, logger)
	}
	o.finish(ctx, r, t, logger)
}

func (o *Orchestrator) runSequential(ctx context.Context, r *run, logger *slog.Logger) tally {
	var t tally
	for i, id := range r.ids {
		if r.stopping() || ctx.Err() != nil {
			break
		}
		if !o.waitWhilePaused(ctx, r) {
			break
		}

		line, ok := o.queue.Get(id)
		if !ok || line.Status != lines.StatusPending {
			continue
		}
		lineLogger := logger.With(
			logging.String(logging.FieldLineID, line.ID),
			logging.Int(logging.FieldLineIndex, line.Index),
		)

		settings := o.liveSettings(r)
		voiceID, voiceName := effectiveVoice(line, settings)
		if voiceID == "" {
			o.failLine(line.ID, noVoiceMessage, lineLogger)
			t.failed++
			continue
		}
		if err := o.queue.SetStatus(line.ID, lines.StatusProcessing, ""); err != nil {
			continue
		}

		outputPath := OutputPath(r.settings.OutputFolder, line.Index)
		res, err := o.backend.Synthesize(ctx, ttsRequest(line, voiceID, outputPath, settings))
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, context.Canceled) {
				_ = o.queue.SetStatus(line.ID, lines.StatusPending, "")
				break
			}
			o.failLine(line.ID, err.Error(), lineLogger)
			o.recordError(err)
			t.failed++
			continue
		}
		if res.OutputPath != "" {
			outputPath = res.OutputPath
		}
		o.completeLine(ctx, r, line, voiceName, outputPath, res.DurationMS, lineLogger)
		o.refreshCreditsQuietly(ctx, logger)
		t.processed++

		if o.opts.RequestDelay > 0 && i < len(r.ids)-1 {
			if !o.sleep(ctx, r, o.opts.RequestDelay) {
				break
			}
		}
	}
	return t
}

func (o *Orchestrator) runParallel(ctx context.Context, r *run, logger *slog.Logger) tally {
	var (
		t         tally
		submitted []lines.Line
		names     = make(map[string]string)
		items     []ttsBatchItem
		settings  = o.liveSettings(r)
	)
	for _, id := range r.ids {
		line, ok := o.queue.Get(id)
		if !ok || line.Status != lines.StatusPending {
			continue
		}
		voiceID, voiceName := effectiveVoice(line, settings)
		if voiceID == "" {
			o.failLine(line.ID, noVoiceMessage, logger.With(logging.String(logging.FieldLineID, line.ID)))
			t.failed++
			continue
		}
		if err := o.queue.SetStatus(line.ID, lines.StatusProcessing, ""); err != nil {
			continue
		}
		submitted = append(submitted, line)
		names[line.ID] = voiceName
		items = append(items, ttsBatchItem{
			id:         line.ID,
			text:       line.Text,
			voiceID:    voiceID,
			outputPath: OutputPath(r.settings.OutputFolder, line.Index),
		})
	}
	if len(submitted) == 0 {
		return t
	}

	if r.stopping() || ctx.Err() != nil {
		for _, line := range submitted {
			_ = o.queue.SetStatus(line.ID, lines.StatusPending, "")
		}
		logger.Info("run stopped before batch submission",
			logging.String(logging.FieldEventType, "batch_skipped"),
			logging.Int("lines", len(submitted)),
		)
		return t
	}

	logger.Info("submitting batch",
		logging.String(logging.FieldEventType, "batch_submitted"),
		logging.Int("lines", len(submitted)),
	)
	res, err := o.backend.SynthesizeBatch(ctx, batchRequest(items, r.concurrency, settings))
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			for _, line := range submitted {
				_ = o.queue.SetStatus(line.ID, lines.StatusPending, "")
			}
			return t
		}
		logging.WarnWithContext(logger, "batch request failed", "batch_failed",
			logging.String(logging.FieldErrorHint, "check the TTS backend and retry the failed lines"),
			logging.String(logging.FieldImpact, "every line in the batch was marked as failed"),
			logging.Error(err),
		)
		for _, line := range submitted {
			_ = o.queue.SetStatus(line.ID, lines.StatusError, err.Error())
		}
		t.failed += len(submitted)
		o.recordError(err)
		if nerr := o.notifier.NotifyError(ctx, err, "batch synthesis"); nerr != nil {
			logger.Debug("error notification failed", logging.Error(nerr))
		}
		return t
	}

	results := make(map[string]int, len(res.Results))
	for i, item := range res.Results {
		results[item.ID] = i
	}
	for _, line := range submitted {
		lineLogger := logger.With(
			logging.String(logging.FieldLineID, line.ID),
			logging.Int(logging.FieldLineIndex, line.Index),
		)
		idx, ok := results[line.ID]
		if !ok {
			o.failLine(line.ID, "no result returned for line", lineLogger)
			t.failed++
			continue
		}
		item := res.Results[idx]
		if !item.Success {
			msg := item.Error
			if msg == "" {
				msg = "synthesis failed"
			}
			o.failLine(line.ID, msg, lineLogger)
			t.failed++
			continue
		}
		outputPath := item.OutputPath
		if outputPath == "" {
			outputPath = OutputPath(r.settings.OutputFolder, line.Index)
		}
		o.completeLine(ctx, r, line, names[line.ID], outputPath, item.DurationMS, lineLogger)
		t.processed++
	}
	if t.processed > 0 {
		o.refreshCreditsQuietly(ctx, logger)
	}
	return t
}

// liveSettings returns the current session with the output folder pinned to
// the one the run started with.
func (o *Orchestrator) liveSettings(r *run) session.Settings {
	settings := o.session.Get()
	settings.OutputFolder = r.settings.OutputFolder
	return settings
}

func (o *Orchestrator) failLine(id, message string, logger *slog.Logger) {
	if err := o.queue.SetStatus(id, lines.StatusError, message); err != nil {
		logger.Debug("line vanished before failure was recorded", logging.Error(err))
		return
	}
	logger.Warn("line failed",
		logging.String(logging.FieldEventType, "line_failed"),
		logging.String("reason", message),
	)
}

func (o *Orchestrator) completeLine(ctx context.Context, r *run, line lines.Line, voiceName, outputPath string, durationMS int64, logger *slog.Logger) {
	if err := o.queue.MarkDone(line.ID, outputPath, float64(durationMS)/1000, r.settings.ModelID); err != nil {
		logger.Debug("line removed while synthesizing", logging.Error(err))
	}
	logger.Info("line converted",
		logging.String(logging.FieldEventType, "line_done"),
		logging.String("output_path", outputPath),
		logging.Int64("duration_ms", durationMS),
	)
	if o.ledger == nil {
		return
	}
	_, err := o.ledger.Append(ctx, history.Entry{
		OutputPath:    outputPath,
		LineIndex:     line.Index,
		LineText:      line.Text,
		VoiceName:     voiceName,
		DurationMS:    durationMS,
		SessionFolder: r.settings.OutputFolder,
	})
	if err != nil {
		logging.WarnWithContext(logger, "export history not persisted", "history_persist_failed",
			logging.String(logging.FieldImpact, "entry is kept in memory until the next successful write"),
			logging.Error(err),
		)
	}
}

func (o *Orchestrator) refreshCreditsQuietly(ctx context.Context, logger *slog.Logger) {
	if _, err := o.RefreshCredits(ctx); err != nil {
		logger.Debug("credit refresh failed", logging.Error(err))
	}
}

// waitWhilePaused polls the pause flag and reports false when the run
// should end instead of continuing.
func (o *Orchestrator) waitWhilePaused(ctx context.Context, r *run) bool {
	for o.isPaused() {
		if !o.sleep(ctx, r, o.opts.PollInterval) {
			return false
		}
	}
	return !r.stopping()
}

func (o *Orchestrator) sleep(ctx context.Context, r *run, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-r.stop:
		return false
	case <-ctx.Done():
		return false
	}
}

func (o *Orchestrator) finish(ctx context.Context, r *run, t tally, logger *slog.Logger) {
	o.mu.Lock()
	stopped := r.stopping()
	end := o.opts.Now()
	start := o.window.Start
	o.mu.Unlock()

	duration := end.Sub(start)
	summary := notifications.RunSummary{
		Policy:    r.policy,
		Processed: t.processed,
		Failed:    t.failed,
		Stopped:   stopped,
		Duration:  duration,
	}
	logger.Info("run finished",
		logging.String(logging.FieldEventType, "run_finished"),
		logging.Int("processed", t.processed),
		logging.Int("failed", t.failed),
		logging.Bool("stopped", stopped),
		logging.Duration("duration", duration),
	)
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := o.notifier.NotifyRunCompleted(notifyCtx, summary); err != nil {
		logger.Debug("run completion notification failed", logging.Error(err))
	}

	o.mu.Lock()
	o.window.End = end
	o.state = StateIdle
	o.paused = false
	o.current = nil
	close(o.done)
	o.mu.Unlock()
}
