// Package daemon coordinates the long-running voicequeue process.
//
// It wires configuration, the SQLite store, the TTS backend and notifications
// into a single lifecycle around the line queue, session settings, run
// orchestrator, recovery snapshots and export history. flock-based locking
// prevents a second instance from sharing the same data directory.
//
// Daemon methods are the operations the IPC server exposes; the optional
// read-only HTTP API serves status, lines, stats, session and history as JSON.
// Conversion logic lives in the orchestrator. Keep this package to startup,
// shutdown and high level coordination.
package daemon
