// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the CLI.
//
// The server registers a single "VoiceQueue" receiver whose methods map onto
// daemon operations: line management, session settings, run control, stats,
// export history, recovery, log tailing and diagnostics. Responses reuse the
// camelCase DTOs from the api package so the CLI and HTTP API render the same
// shapes.
package ipc
