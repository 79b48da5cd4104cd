package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"voicequeue/internal/config"
	"voicequeue/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newNtfyServer(t *testing.T) (*httptest.Server, func() []captured) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []captured
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), reqs...)
	}
}

func TestNewServiceReturnsNoopWhenUnconfigured(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRunCompleted(context.Background(), notifications.RunSummary{Processed: 1}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("expected noop test notification to return nil, got %v", err)
	}
}

func TestNtfyFormatsRunPayloads(t *testing.T) {
	tests := []struct {
		name           string
		summary        notifications.RunSummary
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "clean run",
			summary:       notifications.RunSummary{Processed: 3, Duration: 90 * time.Second},
			expectTitle:   "voicequeue - Run Complete",
			expectMessage: "3 lines converted in 1m30s",
			expectTags:    "voicequeue,run,completed",
		},
		{
			name:           "run with failures",
			summary:        notifications.RunSummary{Processed: 2, Failed: 1, Duration: 4 * time.Second},
			expectTitle:    "voicequeue - Run Complete (with errors)",
			expectMessage:  "2 succeeded, 1 failed in 4s",
			expectTags:     "voicequeue,run,completed",
			expectPriority: "high",
		},
		{
			name:          "stopped run",
			summary:       notifications.RunSummary{Processed: 1, Stopped: true, Duration: 2 * time.Second},
			expectTitle:   "voicequeue - Run Stopped",
			expectMessage: "Stopped after 2s: 1 done, 0 failed",
			expectTags:    "voicequeue,run,stopped",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, requests := newNtfyServer(t)
			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			svc := notifications.NewService(&cfg)

			if err := svc.NotifyRunCompleted(context.Background(), tt.summary); err != nil {
				t.Fatalf("NotifyRunCompleted: %v", err)
			}
			got := requests()
			if len(got) != 1 {
				t.Fatalf("expected 1 request, got %d", len(got))
			}
			if got[0].title != tt.expectTitle || got[0].body != tt.expectMessage {
				t.Fatalf("unexpected payload: %+v", got[0])
			}
			if got[0].tags != tt.expectTags || got[0].priority != tt.expectPriority {
				t.Fatalf("unexpected headers: %+v", got[0])
			}
		})
	}
}

func TestNtfyRespectsEventToggles(t *testing.T) {
	server, requests := newNtfyServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.RunStarted = false
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyRunStarted(context.Background(), "sequential", 4); err != nil {
		t.Fatalf("NotifyRunStarted: %v", err)
	}
	if err := svc.NotifyError(context.Background(), errors.New("backend down"), "credit refresh"); err != nil {
		t.Fatalf("NotifyError: %v", err)
	}
	got := requests()
	if len(got) != 1 {
		t.Fatalf("expected only the error notification, got %d", len(got))
	}
	if !strings.Contains(got[0].body, "during credit refresh: backend down") {
		t.Fatalf("unexpected error body %q", got[0].body)
	}
}

func TestNtfyReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
