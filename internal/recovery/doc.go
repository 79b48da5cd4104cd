// Package recovery protects queue progress against unclean shutdowns.
//
// A Manager observes the line queue and writes a Snapshot shortly after each
// burst of mutations and on a fixed interval while lines exist. On the next
// launch the snapshot is offered only if it holds at least one line, is younger
// than the configured maximum age, and the queue is still empty. Restoring
// keeps finished lines finished and returns every other line to pending.
package recovery
