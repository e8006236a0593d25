// Package sailerr defines the store's error taxonomy: usage errors,
// conflict errors, backing-store I/O errors, cancellation/timeout,
// and value-expression evaluation errors, per spec §7. Errors are
// always wrapped so callers can still unwrap to the underlying cause
// with errors.Is/errors.As.
package sailerr

import (
	"context"
	"errors"

	"github.com/zeebo/errs"
)

// Class taxonomy. Each class is a distinct error kind a caller can
// test for with errors.Is(err, Class) after wrapping with New/Wrap,
// or with the class's own Has method.
var (
	// Usage covers malformed queries, unsupported query languages,
	// and transaction-state errors (no active transaction; already
	// active; connection closed).
	Usage = errs.Class("usage")

	// Conflict is raised when prepare() detects an isolation
	// conflict: observed state changed underneath a transaction.
	Conflict = errs.Class("conflict")

	// StoreIO wraps failures from the backing statement store
	// (durable or in-memory).
	StoreIO = errs.Class("store io")

	// Cancelled wraps context cancellation and query
	// max-execution-time exceeded.
	Cancelled = errs.Class("cancelled")

	// Eval wraps value-expression evaluation errors propagated from
	// a query evaluator consuming the TripleSource surface.
	Eval = errs.Class("eval")
)

// IsConflict reports whether err (or any error it wraps) is a
// Conflict-class error.
func IsConflict(err error) bool { return Conflict.Has(err) }

// IsCancelled reports whether err is a Cancelled-class error, or
// wraps context.Canceled/context.DeadlineExceeded directly.
func IsCancelled(err error) bool {
	if Cancelled.Has(err) {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsUsage reports whether err is a Usage-class error.
func IsUsage(err error) bool { return Usage.Has(err) }

// FromContext wraps ctx.Err() as a Cancelled error, or returns nil if
// ctx carries no error.
func FromContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return Cancelled.Wrap(err)
	}
	return nil
}
