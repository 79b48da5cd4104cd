// Package preflight provides readiness checks for the TTS backend and the
// filesystem paths voicequeue writes to.
//
// The daemon runs RunAll when reporting status so the CLI can show why a run
// would fail before one is started. Individual checks are exported for reuse
// by the CLI.
package preflight
