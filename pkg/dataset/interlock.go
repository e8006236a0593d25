package dataset

import "sync"

// Interlock wraps a result Iterator[T] together with the View (and,
// transitively, the source.Branch) it was produced from, so that when
// the caller closes the outer iterator — normally or abnormally — the
// view and branch release in reverse acquisition order: iterator,
// then view, then branch. Query evaluation holds these open for the
// life of a result; Interlock is what makes "closing the result
// cleans everything up" true regardless of how evaluation unwound.
type Interlock[T any] struct {
	mu      sync.Mutex
	inner   Iterator[T]
	view    *View
	release func() error
	closed  bool
}

// NewInterlock builds an Interlock around inner, wired to close view
// and then invoke releaseBranch (typically the owning branch's
// Release) when the interlock itself closes.
func NewInterlock[T any](inner Iterator[T], view *View, releaseBranch func() error) *Interlock[T] {
	return &Interlock[T]{inner: inner, view: view, release: releaseBranch}
}

func (l *Interlock[T]) Next() (T, bool, error) {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()

	var zero T
	if closed {
		return zero, false, errClosed
	}
	item, ok, err := l.inner.Next()
	if err != nil || !ok {
		// Exhausted or failed: release eagerly rather than waiting
		// for an explicit Close the caller may never issue.
		_ = l.Close()
	}
	return item, ok, err
}

func (l *Interlock[T]) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	innerErr := l.inner.Close()
	viewErr := l.view.Close()
	var releaseErr error
	if l.release != nil {
		releaseErr = l.release()
	}

	switch {
	case innerErr != nil:
		return innerErr
	case viewErr != nil:
		return viewErr
	default:
		return releaseErr
	}
}
