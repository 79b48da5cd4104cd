// Package api defines wire-format types and converters shared by the IPC and
// HTTP layers. It translates internal line, run and ledger models into
// transport-friendly DTOs so clients never couple to internal types.
//
// DTOs use camelCase JSON tags. Internal enums (lines.Status,
// orchestrator.State) are exposed as lowercase strings and timestamps use
// RFC3339 with milliseconds.
package api
