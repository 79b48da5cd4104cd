// Package lines holds the ordered queue of text lines awaiting speech synthesis.
//
// A Line's Index always equals its position; every structural change (append,
// delete, reorder, replace) re-derives indices before observers are told about
// it. Status changes flow through SetStatus, MarkDone and Retry so the error
// and output fields stay consistent with the status they belong to.
package lines
