// Package notifications tells the user when processing runs start, finish or
// fail.
//
// NewService inspects configuration and fans out to ntfy (HTTP POST with
// Title/Tags/Priority headers) and the desktop notifier. With neither enabled
// it returns a no-op so callers never need nil checks. Delivery errors are
// returned but callers treat them as best effort.
package notifications
