// Package logging assembles structured slog loggers and formatting helpers used
// across voicequeue services.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and defines the standard field names (component, event_type,
// line_id, run_id) so daemon and orchestrator logs share one shape. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
