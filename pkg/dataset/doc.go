// Package dataset implements the read-only Dataset View: a snapshot
// produced by a source.Branch at a given isolation level, merging any
// pending change-sets with the underlying committed state. It also
// defines the generic single-pass Iterator used throughout the core,
// the TripleSource capability surface query evaluation consumes, and
// Interlock, which releases a dataset and its branch in reverse order
// when the caller's result iterator closes.
package dataset

import "errors"

// errClosed is returned by Iterator.Next after Iterator.Close.
var errClosed = errors.New("dataset: iterator used after close")
