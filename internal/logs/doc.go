// Package logs reads the daemon log file for `voicequeue logs`.
//
// Tail returns the last N lines or everything after a byte offset, and can
// wait briefly for new output so the CLI can poll in follow mode. Offsets only
// ever advance past complete lines.
package logs
