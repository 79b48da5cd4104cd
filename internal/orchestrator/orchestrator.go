package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"voicequeue/internal/config"
	"voicequeue/internal/history"
	"voicequeue/internal/lines"
	"voicequeue/internal/logging"
	"voicequeue/internal/notifications"
	"voicequeue/internal/session"
	"voicequeue/internal/stats"
	"voicequeue/internal/ttsclient"
)

// State is the lifecycle state of the orchestrator.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
)

var (
	// ErrNoPendingLines rejects a start with nothing to do.
	ErrNoPendingLines = errors.New("no pending lines to process")
	// ErrNoOutputFolder rejects a start without a destination folder.
	ErrNoOutputFolder = errors.New("output folder is not set")
	// ErrMissingVoice rejects a start when a pending line cannot resolve a voice.
	ErrMissingVoice = errors.New("pending lines have no voice and no default voice is set")
	// ErrRunActive rejects a start while another run has not settled.
	ErrRunActive = errors.New("a run is already active")
	// ErrPauseUnsupported is returned when pausing a parallel run.
	ErrPauseUnsupported = errors.New("pause is not supported for parallel runs")
	// ErrNotRunning is returned by run controls when no run is active.
	ErrNotRunning = errors.New("no active run")
	// ErrInvalidPolicy rejects unknown dispatch policies.
	ErrInvalidPolicy = errors.New("unknown dispatch policy")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("orchestrator is closed")
)

const noVoiceMessage = "No voice assigned"

// Options tunes dispatch behaviour.
type Options struct {
	Policy        string
	Concurrency   int
	PollInterval  time.Duration
	RequestDelay  time.Duration
	CreditTimeout time.Duration
	Now           func() time.Time
}

// OptionsFromConfig maps the orchestrator section of cfg onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		Policy:        cfg.Orchestrator.Policy,
		Concurrency:   cfg.Orchestrator.Concurrency,
		PollInterval:  cfg.PausePollInterval(),
		RequestDelay:  cfg.RequestDelay(),
		CreditTimeout: time.Duration(cfg.Orchestrator.CreditRefreshTimeout) * time.Second,
	}
}

// Deps are the collaborators a run reads from and writes to.
type Deps struct {
	Queue    *lines.Queue
	Session  *session.Store
	Ledger   *history.Ledger
	Backend  ttsclient.Service
	Notifier notifications.Service
	Logger   *slog.Logger
}

// Status is a point-in-time view of the orchestrator.
type Status struct {
	State       State      `json:"state"`
	Policy      string     `json:"policy,omitempty"`
	Concurrency int        `json:"concurrency,omitempty"`
	RunID       string     `json:"run_id,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Credits     *int       `json:"credits,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// Orchestrator owns run state. All methods are safe for concurrent use.
type Orchestrator struct {
	queue    *lines.Queue
	session  *session.Store
	ledger   *history.Ledger
	backend  ttsclient.Service
	notifier notifications.Service
	logger   *slog.Logger
	opts     Options

	baseCtx    context.Context
	cancelBase context.CancelFunc
	wg         sync.WaitGroup

	mu              sync.Mutex
	closed          bool
	state           State
	paused          bool
	current         *run
	lastRunID       string
	lastPolicy      string
	lastConcurrency int
	window          stats.Window
	credits         int
	creditsKnown    bool
	lastErr         string
	done            chan struct{}
}

// New constructs an idle orchestrator.
func New(deps Deps, opts Options) *Orchestrator {
	if opts.Policy == "" {
		opts.Policy = config.PolicySequential
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	if opts.CreditTimeout <= 0 {
		opts.CreditTimeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		queue:      deps.Queue,
		session:    deps.Session,
		ledger:     deps.Ledger,
		backend:    deps.Backend,
		notifier:   notifier,
		logger:     logging.NewComponentLogger(deps.Logger, "orchestrator"),
		opts:       opts,
		baseCtx:    ctx,
		cancelBase: cancel,
		state:      StateIdle,
	}
}

// Start validates the queue and launches a run. An empty policy or a
// non-positive concurrency falls back to the configured defaults.
func (o *Orchestrator) Start(policy string, concurrency int) (Status, error) {
	policy = strings.ToLower(strings.TrimSpace(policy))
	if policy == "" {
		policy = o.opts.Policy
	}
	if policy != config.PolicySequential && policy != config.PolicyParallel {
		return Status{}, fmt.Errorf("%w: %q", ErrInvalidPolicy, policy)
	}
	if concurrency <= 0 {
		concurrency = o.opts.Concurrency
	}
	concurrency = config.ClampConcurrency(concurrency)

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return Status{}, ErrClosed
	}
	if o.state != StateIdle {
		o.mu.Unlock()
		return Status{}, ErrRunActive
	}

	settings := o.session.Get()
	r, err := prepareRun(o.queue.List(), settings)
	if err != nil {
		o.mu.Unlock()
		return Status{}, err
	}
	r.id = uuid.NewString()
	r.policy = policy
	r.concurrency = concurrency
	r.stop = make(chan struct{})

	o.current = r
	o.state = StateRunning
	o.paused = false
	o.lastRunID = r.id
	o.lastPolicy = policy
	o.lastConcurrency = concurrency
	o.window = stats.Window{Start: o.opts.Now()}
	o.lastErr = ""
	o.done = make(chan struct{})
	o.wg.Add(1)
	o.mu.Unlock()

	go o.execute(r)
	return o.Status(), nil
}

// prepareRun checks the start preconditions and snapshots pending ids in
// index order.
func prepareRun(items []lines.Line, settings session.Settings) (*run, error) {
	var (
		ids     []string
		noVoice int
	)
	for _, line := range items {
		if line.Status != lines.StatusPending {
			continue
		}
		ids = append(ids, line.ID)
		if !line.HasVoice() && !settings.HasDefaultVoice() {
			noVoice++
		}
	}
	if len(ids) == 0 {
		return nil, ErrNoPendingLines
	}
	if strings.TrimSpace(settings.OutputFolder) == "" {
		return nil, ErrNoOutputFolder
	}
	if noVoice > 0 {
		return nil, fmt.Errorf("%w (%d lines)", ErrMissingVoice, noVoice)
	}
	return &run{ids: ids, settings: settings}, nil
}

// Pause suspends a sequential run before its next item.
func (o *Orchestrator) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.state {
	case StatePaused:
		return nil
	case StateRunning:
		if o.current != nil && o.current.policy == config.PolicyParallel {
			return ErrPauseUnsupported
		}
		o.state = StatePaused
		o.paused = true
		return nil
	default:
		return ErrNotRunning
	}
}

// Resume continues a paused run.
func (o *Orchestrator) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.state {
	case StateRunning:
		return nil
	case StatePaused:
		o.state = StateRunning
		o.paused = false
		return nil
	default:
		return ErrNotRunning
	}
}

// Stop asks the active run to finish. In-flight calls settle before the
// orchestrator returns to idle.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.state {
	case StateStopped:
		return nil
	case StateRunning, StatePaused:
		o.state = StateStopped
		o.paused = false
		o.current.requestStop()
		return nil
	default:
		return ErrNotRunning
	}
}

// Retry resets failed lines to pending. Lines reset during a sequential run
// are not picked up by that run.
func (o *Orchestrator) Retry(ids []string) []string {
	reset := o.queue.Retry(ids)
	if len(reset) > 0 {
		o.logger.Info("lines reset for retry",
			logging.Int("count", len(reset)),
			logging.String(logging.FieldEventType, "lines_retried"),
		)
	}
	return reset
}

// Stats aggregates the live queue against the current or last run window.
func (o *Orchestrator) Stats() stats.Stats {
	o.mu.Lock()
	window := o.window
	o.mu.Unlock()
	return stats.Compute(o.queue.List(), window, o.opts.Now())
}

// Status reports the run state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	status := Status{
		State:       o.state,
		Policy:      o.lastPolicy,
		Concurrency: o.lastConcurrency,
		RunID:       o.lastRunID,
		LastError:   o.lastErr,
	}
	if !o.window.Start.IsZero() {
		start := o.window.Start
		status.StartedAt = &start
	}
	if !o.window.End.IsZero() {
		end := o.window.End
		status.FinishedAt = &end
	}
	if o.creditsKnown {
		credits := o.credits
		status.Credits = &credits
	}
	return status
}

// Wait blocks until the orchestrator is idle or ctx ends.
func (o *Orchestrator) Wait(ctx context.Context) error {
	o.mu.Lock()
	if o.state == StateIdle {
		o.mu.Unlock()
		return nil
	}
	done := o.done
	o.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleEvent consumes asynchronous service events.
func (o *Orchestrator) HandleEvent(ev ttsclient.Event) {
	switch ev.Type {
	case ttsclient.EventCredits:
		o.setCredits(ev.Credits)
	case ttsclient.EventProgress:
		o.logger.Debug("synthesis progress",
			logging.String(logging.FieldLineID, ev.LineID),
			logging.String("job_id", ev.JobID),
			logging.Float64("percent", ev.Percent),
		)
	default:
		o.logger.Debug("ignoring service event", logging.String("type", ev.Type))
	}
}

// RefreshCredits fetches the balance from the service and records it.
func (o *Orchestrator) RefreshCredits(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.CreditTimeout)
	defer cancel()
	balance, err := o.backend.CreditBalance(ctx)
	if err != nil {
		return 0, fmt.Errorf("credit balance: %w", err)
	}
	o.setCredits(balance)
	return balance, nil
}

// Close stops any active run, cancels in-flight calls and waits for the run
// goroutine to exit.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	_ = o.Stop()
	o.cancelBase()
	o.wg.Wait()
}

func (o *Orchestrator) setCredits(balance int) {
	o.mu.Lock()
	o.credits = balance
	o.creditsKnown = true
	o.mu.Unlock()
}

func (o *Orchestrator) recordError(err error) {
	if err == nil {
		return
	}
	o.mu.Lock()
	o.lastErr = err.Error()
	o.mu.Unlock()
}

func (o *Orchestrator) isPaused() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.paused
}
