// Package main hosts the voicequeue CLI and the hidden daemon entrypoint.
//
// Commands translate terminal invocations into IPC calls against the daemon:
// queue management under "lines", run control under "run", session defaults,
// export history, crash recovery, and log tailing. Output is either rendered
// tables or, with --json, the wire DTOs verbatim.
//
// Keep this package thin. New behavior belongs in the internal packages and is
// surfaced here through a command or flag.
package main
