package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"voicequeue/internal/api"
	"voicequeue/internal/config"
	"voicequeue/internal/history"
	"voicequeue/internal/lines"
	"voicequeue/internal/logging"
	"voicequeue/internal/notifications"
	"voicequeue/internal/orchestrator"
	"voicequeue/internal/preflight"
	"voicequeue/internal/recovery"
	"voicequeue/internal/session"
	"voicequeue/internal/store"
	"voicequeue/internal/ttsclient"
)

// Deps are the externally constructed services the daemon coordinates.
type Deps struct {
	Store    *store.Store
	Backend  ttsclient.Service
	Notifier notifications.Service
	Logger   *slog.Logger
}

// Daemon owns the line queue, session settings, run orchestrator, recovery
// snapshots and export history, and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	backend  ttsclient.Service
	notifier notifications.Service

	queue    *lines.Queue
	session  *session.Store
	ledger   *history.Ledger
	recovery *recovery.Manager
	orch     *orchestrator.Orchestrator
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	SocketPath   string
	Transport    string
	Run          orchestrator.Status
	Recovery     *recovery.Snapshot
	Checks       []preflight.Result
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, deps Deps) (*Daemon, error) {
	if cfg == nil || deps.Store == nil || deps.Backend == nil {
		return nil, errors.New("daemon requires config, store, and tts backend")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	queue := lines.NewQueue()
	sess := session.NewStore(session.FromConfig(cfg))
	ledger := history.NewLedger(deps.Store, cfg.History.Limit)

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    deps.Store,
		backend:  deps.Backend,
		notifier: notifier,
		queue:    queue,
		session:  sess,
		ledger:   ledger,
		recovery: recovery.NewManager(queue, sess, deps.Store, logger, recovery.Options{
			Interval: cfg.RecoveryInterval(),
			Debounce: cfg.RecoveryDebounce(),
			MaxAge:   cfg.RecoveryMaxAge(),
		}),
		orch: orchestrator.New(orchestrator.Deps{
			Queue:    queue,
			Session:  sess,
			Ledger:   ledger,
			Backend:  deps.Backend,
			Notifier: notifier,
			Logger:   logger,
		}, orchestrator.OptionsFromConfig(cfg)),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}

	apiSrv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, fmt.Errorf("configure api server: %w", err)
	}
	d.api = apiSrv
	return d, nil
}

// Start acquires the daemon lock, loads persisted state and starts the
// background services.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another voicequeue daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.ledger.Load(d.ctx); err != nil {
		logging.WarnWithContext(d.logger, "export history unavailable", "history_load_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history starts empty for this session"),
		)
	}

	if snap, err := d.recovery.Pending(d.ctx); err != nil {
		d.logger.Debug("recovery lookup failed", logging.Error(err))
	} else if snap != nil {
		done, remaining := snap.Counts()
		d.logger.Info("previous session can be restored",
			logging.String(logging.FieldEventType, "recovery_available"),
			logging.Int("done", done),
			logging.Int("remaining", remaining),
			logging.String(logging.FieldErrorHint, "run 'voicequeue recovery restore' or 'voicequeue recovery discard'"),
		)
	}
	d.recovery.Start(d.ctx)

	if err := d.backend.Subscribe(d.ctx, d.orch.HandleEvent); err != nil {
		logging.WarnWithContext(d.logger, "tts event subscription failed", "tts_subscribe_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "credit balance updates only after each conversion"),
		)
	}
	runCtx := d.ctx
	go func() {
		if _, err := d.orch.RefreshCredits(runCtx); err != nil {
			d.logger.Debug("initial credit refresh failed", logging.Error(err))
		}
	}()

	if err := d.api.start(d.ctx); err != nil {
		d.recovery.Stop()
		d.cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("voicequeue daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("transport", d.cfg.Backend.Transport),
	)
	return nil
}

// Stop ends any active run, writes a final recovery snapshot and releases the
// daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.orch.Close()
	d.recovery.Stop()
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("voicequeue daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if d.backend != nil {
		errs = append(errs, d.backend.Close())
	}
	if d.store != nil {
		errs = append(errs, d.store.Close())
	}
	return errors.Join(errs...)
}

// Status returns the current daemon status. Readiness checks contact the
// backend, so callers that poll should expect a short delay.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		SocketPath:   d.cfg.Paths.SocketPath,
		Transport:    d.cfg.Backend.Transport,
		Run:          d.orch.Status(),
	}
	if snap, err := d.recovery.Pending(ctx); err == nil {
		status.Recovery = snap
	}
	status.Checks = preflight.RunAll(ctx, d.cfg, d.session.Get().OutputFolder, d.backend)
	return status
}

// Payload converts the status into its wire form.
func (d *Daemon) Payload(status Status) api.DaemonStatus {
	return api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		SocketPath:   status.SocketPath,
		Transport:    status.Transport,
		Run:          api.FromRunStatus(status.Run),
		Stats:        api.FromStats(d.orch.Stats()),
		Session:      api.FromSession(d.session.Get()),
		Recovery:     api.FromSnapshot(status.Recovery),
		Checks:       api.FromChecks(status.Checks),
	}
}

// DatabaseHealth returns database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (store.Health, error) {
	return d.store.CheckHealth(ctx)
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" && !d.cfg.Notifications.Desktop {
		return false, "no notification channel configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
