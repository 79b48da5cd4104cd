// Package store persists small JSON documents in an embedded SQLite database.
//
// The daemon keeps exactly two documents here: the crash-recovery snapshot and
// the export history ledger. Each is written whole under a fixed key, so a
// write either lands completely or not at all. Writes retry briefly when
// SQLite reports the database as busy.
package store
