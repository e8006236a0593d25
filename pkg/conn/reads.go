package conn

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/quaddb/sail/pkg/dataset"
	"github.com/quaddb/sail/pkg/isolation"
	"github.com/quaddb/sail/pkg/leakcheck"
	"github.com/quaddb/sail/pkg/rdf"
	"github.com/quaddb/sail/pkg/sailerr"
	"github.com/quaddb/sail/pkg/source"
)

// selectReadBranch implements the branch-selection algorithm of
// spec §4.6: a branch already held open by an active transaction is
// reused (release is nil, since the transaction owns its lifetime);
// otherwise a fresh branch is forked for the read's duration and
// release tears it down when the caller is done.
func (c *Connection) selectReadBranch(ctx context.Context, includeInferred bool) (*source.Branch, *source.Branch, func() error, error) {
	if err := sailerr.FromContext(ctx); err != nil {
		return nil, nil, nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state == Closed {
		return nil, nil, nil, errClosed
	}

	if c.state == Active {
		var inferred *source.Branch
		if includeInferred {
			inferred = c.inferredBranch
		}
		return c.explicitBranch, inferred, nil, nil
	}

	explicit := c.store.explicitRoot.Fork()
	var inferred *source.Branch
	if includeInferred && c.store.inferredRoot != nil {
		inferred = c.store.inferredRoot.Fork()
	}
	release := func() error {
		err1 := explicit.Release()
		var err2 error
		if inferred != nil {
			err2 = inferred.Release()
		}
		if err1 != nil {
			return err1
		}
		return err2
	}
	return explicit, inferred, release, nil
}

// recordObservation registers pattern against branch's pending
// change-set for serializability conflict checking, when the current
// transaction runs at SERIALIZABLE. A branch forked just for an ad
// hoc, no-transaction read is never SERIALIZABLE, so this only fires
// for reads taken against the transaction's own persistent branch.
func (c *Connection) recordObservation(branch *source.Branch, pattern rdf.Pattern) {
	c.mu.RLock()
	level := c.txLevel
	active := c.state == Active
	c.mu.RUnlock()
	if active && isolation.AtLeast(level, isolation.Serializable) {
		branch.Pending().Observe(pattern)
	}
}

// readLevel is the isolation level dataset views are constructed at
// for the current read: the transaction's negotiated level while
// active, or READ_COMMITTED for ad hoc reads outside any transaction.
func (c *Connection) readLevel() isolation.Level {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state == Active {
		return c.txLevel
	}
	return isolation.ReadCommitted
}

// Statements evaluates pattern over the connection's current read
// target, merging explicit and inferred statements when includeInferred
// is set. The returned iterator is tracked in the active-iteration
// registry until it is closed or the connection closes it forcibly.
func (c *Connection) Statements(ctx context.Context, pattern rdf.Pattern, includeInferred bool) (dataset.Iterator[rdf.Statement], error) {
	explicitBranch, inferredBranch, release, err := c.reader.branch(ctx, includeInferred)
	if err != nil {
		return nil, err
	}

	c.recordObservation(explicitBranch, pattern)

	level := c.readLevel()
	explicitView := dataset.New(explicitBranch, level)
	explicitIt, err := explicitView.Statements(pattern)
	if err != nil {
		_ = explicitView.Close()
		if release != nil {
			_ = release()
		}
		return nil, c.wrapIO(err)
	}

	if inferredBranch == nil {
		return c.track(dataset.NewInterlock(explicitIt, explicitView, release)), nil
	}

	inferredView := dataset.New(inferredBranch, level)
	inferredIt, err := inferredView.Statements(pattern)
	if err != nil {
		_ = explicitIt.Close()
		_ = explicitView.Close()
		_ = inferredView.Close()
		if release != nil {
			_ = release()
		}
		return nil, c.wrapIO(err)
	}

	merged, err := mergeDedup(explicitIt, inferredIt)
	_ = explicitView.Close()
	_ = inferredView.Close()
	if release != nil {
		_ = release()
	}
	if err != nil {
		return nil, c.wrapIO(err)
	}
	return c.track(dataset.FromSlice(merged)), nil
}

// mergeDedup drains both iterators (closing neither — callers already
// own that) and de-duplicates the combined result by 4-tuple identity,
// matching the dataset merge algorithm's final step.
func mergeDedup(a, b dataset.Iterator[rdf.Statement]) ([]rdf.Statement, error) {
	seen := make(map[rdf.StatementKey]struct{})
	var out []rdf.Statement
	for _, it := range []dataset.Iterator[rdf.Statement]{a, b} {
		for {
			stmt, ok, err := it.Next()
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			key := stmt.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, stmt)
		}
	}
	return out, nil
}

// trackedSeq wraps an iterator so the connection's active-iteration
// registry and leak tracker are kept consistent across Close.
type trackedSeq[T any] struct {
	inner  dataset.Iterator[T]
	c      *Connection
	id     uint64
	handle leakcheck.Handle
	closed atomic.Bool
}

func (t *trackedSeq[T]) Next() (T, bool, error) {
	v, ok, err := t.inner.Next()
	if !ok || err != nil {
		_ = t.Close()
	}
	return v, ok, err
}

func (t *trackedSeq[T]) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.c.untrack(t.id, t.handle)
	return t.inner.Close()
}

func (c *Connection) track(it dataset.Iterator[rdf.Statement]) dataset.Iterator[rdf.Statement] {
	site := captureSite()

	c.mu.Lock()
	id := c.nextIterationID
	c.nextIterationID++
	t := &trackedSeq[rdf.Statement]{inner: it, c: c, id: id}
	var handle leakcheck.Handle
	if c.tracker != nil {
		handle = c.tracker.Track("iterator", closerResource{t})
	}
	c.iterations[id] = &trackedIteration{closeFn: t.Close, site: site}
	t.handle = handle
	c.mu.Unlock()
	return t
}

// captureSite names the caller of the exported read method that
// produced a tracked iterator, so Close's leak warning can point
// somewhere useful.
func captureSite() string {
	var pcs [8]uintptr
	n := runtime.Callers(4, pcs[:])
	if n == 0 {
		return ""
	}
	frame, _ := runtime.CallersFrames(pcs[:n]).Next()
	return fmt.Sprintf("%s:%d", frame.File, frame.Line)
}

func (c *Connection) untrack(id uint64, handle leakcheck.Handle) {
	c.mu.Lock()
	delete(c.iterations, id)
	c.mu.Unlock()
	if c.tracker != nil {
		c.tracker.Untrack(handle)
	}
}

// trackedIteration is the active-iteration registry's bookkeeping
// entry; closeFn is the tracked iterator's own Close, so a forced
// close from Connection.Close reuses the same idempotent path a normal
// caller-driven close would take.
type trackedIteration struct {
	closeFn func() error
	site    string
}

func (t *trackedIteration) close() error { return t.closeFn() }

// closerResource adapts a Close()-only value to leakcheck.Resource.
type closerResource struct {
	c interface{ Close() error }
}

func (r closerResource) Release() error { return r.c.Close() }
