// Package orchestrator drives queued text lines through the remote TTS
// service.
//
// A run starts from the idle state, snapshots the pending lines and
// dispatches them with one of two policies:
//
//   - sequential: one remote call at a time in index order, honouring pause
//     and stop between items.
//   - parallel: a single batch request carrying a concurrency hint; the
//     service fans out internally. Pause is not available.
//
// Stop is cooperative. It prevents new dispatches while calls already in
// flight are allowed to settle, because remote calls run on the orchestrator's
// own context which only Close cancels. Each success is appended to the export
// history and triggers a best-effort credit refresh. Exactly one end-of-run
// notification is sent per run.
package orchestrator
