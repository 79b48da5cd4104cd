package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"voicequeue/internal/config"
)

const userAgent = "voicequeue/0.1"

// RunSummary describes a finished processing run.
type RunSummary struct {
	Policy    string
	Processed int
	Failed    int
	Stopped   bool
	Duration  time.Duration
}

// Service defines the notification surface exposed to the orchestrator.
type Service interface {
	NotifyRunStarted(ctx context.Context, policy string, count int) error
	NotifyRunCompleted(ctx context.Context, summary RunSummary) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds the configured notifiers. ntfy is used when a topic is
// set and the desktop notifier when enabled; with neither a noop is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	var sinks []sender
	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		sinks = append(sinks, &ntfySender{endpoint: topic, client: &http.Client{Timeout: timeout}})
	}
	if cfg.Notifications.Desktop {
		if path, err := exec.LookPath("notify-send"); err == nil {
			sinks = append(sinks, &desktopSender{binary: path})
		}
	}
	if len(sinks) == 0 {
		return noopService{}
	}
	return &notifier{
		sinks:        sinks,
		runStarted:   cfg.Notifications.RunStarted,
		runCompleted: cfg.Notifications.RunCompleted,
		errors:       cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type sender interface {
	send(ctx context.Context, data payload) error
}

type notifier struct {
	sinks        []sender
	runStarted   bool
	runCompleted bool
	errors       bool
}

func (n *notifier) NotifyRunStarted(ctx context.Context, policy string, count int) error {
	if !n.runStarted {
		return nil
	}
	return n.broadcast(ctx, payload{
		title:   "voicequeue - Run Started",
		message: fmt.Sprintf("Processing %d lines (%s)", count, policy),
		tags:    []string{"voicequeue", "run", "started"},
	})
}

func (n *notifier) NotifyRunCompleted(ctx context.Context, summary RunSummary) error {
	if !n.runCompleted {
		return nil
	}
	return n.broadcast(ctx, completedPayload(summary))
}

func completedPayload(summary RunSummary) payload {
	duration := summary.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	data := payload{tags: []string{"voicequeue", "run", "completed"}}
	switch {
	case summary.Stopped:
		data.title = "voicequeue - Run Stopped"
		data.message = fmt.Sprintf("Stopped after %s: %d done, %d failed", duration, summary.Processed, summary.Failed)
		data.tags[2] = "stopped"
	case summary.Failed > 0:
		data.title = "voicequeue - Run Complete (with errors)"
		data.message = fmt.Sprintf("%d succeeded, %d failed in %s", summary.Processed, summary.Failed, duration)
		data.priority = "high"
	default:
		data.title = "voicequeue - Run Complete"
		data.message = fmt.Sprintf("%d lines converted in %s", summary.Processed, duration)
	}
	return data
}

func (n *notifier) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" during ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.broadcast(ctx, payload{
		title:    "voicequeue - Error",
		message:  builder.String(),
		tags:     []string{"voicequeue", "error"},
		priority: "high",
	})
}

func (n *notifier) TestNotification(ctx context.Context) error {
	return n.broadcast(ctx, payload{
		title:    "voicequeue - Test",
		message:  "Notification system test",
		tags:     []string{"voicequeue", "test"},
		priority: "low",
	})
}

func (n *notifier) broadcast(ctx context.Context, data payload) error {
	var errs []error
	for _, sink := range n.sinks {
		if err := sink.send(ctx, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type ntfySender struct {
	endpoint string
	client   *http.Client
}

func (n *ntfySender) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("ntfy returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

// desktopSender shows notifications through the freedesktop notify-send tool.
type desktopSender struct {
	binary string
}

func (d *desktopSender) send(ctx context.Context, data payload) error {
	urgency := "normal"
	switch data.priority {
	case "high":
		urgency = "critical"
	case "low":
		urgency = "low"
	}
	cmd := exec.CommandContext(ctx, d.binary, "--app-name=voicequeue", "--urgency="+urgency, data.title, data.message)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("notify-send: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyRunStarted(context.Context, string, int) error { return nil }

func (noopService) NotifyRunCompleted(context.Context, RunSummary) error { return nil }

func (noopService) NotifyError(context.Context, error, string) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
