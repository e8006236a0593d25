package source

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/quaddb/sail/pkg/changeset"
	"github.com/quaddb/sail/pkg/metrics"
	"github.com/quaddb/sail/pkg/rdf"
	"github.com/quaddb/sail/pkg/sailerr"
	"github.com/quaddb/sail/pkg/store"
)

// ParentSource is whatever a Branch forks from: either a store.Source
// (the root) or another Branch (a nested fork). Both already satisfy
// this read surface.
type ParentSource interface {
	Statements(pattern rdf.Pattern) (store.StatementIterator, error)
	Contexts() (store.ContextIterator, error)
	Namespaces() (store.NamespaceIterator, error)
	Namespace(prefix string) (string, bool, error)
}

// Branch is one layer of change over a parent source: the unit of
// isolation. It owns a pending change-set accumulating writes from its
// sink, plus a "prepend list" of change-sets committed into it by
// children since it last forked.
type Branch struct {
	arena  *Arena
	handle Handle

	mu sync.RWMutex

	parent  ParentSource
	pending *changeset.ChangeSet

	// prependList holds every change-set flushed into this branch by
	// its children, preserved in commit order for visibility and
	// conflict checks.
	prependList []*changeset.ChangeSet

	// forkIndex is len(parent's prependList) as observed at the moment
	// this branch forked. Prepare conflict-checks only against entries
	// appended to the parent's prepend list at or after this index —
	// commits that were already part of the parent's history when this
	// branch began are not "siblings committed since we forked" and
	// must not be able to conflict with it.
	forkIndex int

	// commitMu serializes flush() into this branch acting as a
	// parent, matching spec §5's per-source commit mutex.
	commitMu sync.Mutex

	active   bool
	released bool
}

// Root forks a new, arena-tracked top-level branch directly over a
// store.Source.
func Root(arena *Arena, parent store.Source) *Branch {
	return newBranch(arena, parent)
}

func newBranch(arena *Arena, parent ParentSource) *Branch {
	b := &Branch{
		arena:   arena,
		parent:  parent,
		pending: changeset.New(),
		active:  true,
	}
	b.handle = arena.register(b)
	return b
}

// Handle returns the arena handle for this branch.
func (b *Branch) Handle() Handle { return b.handle }

// Fork creates a child branch with an empty change-set observing this
// branch's state plus nothing else. Forking is O(1): it allocates no
// snapshot of the parent's data. The child records the current length
// of this branch's prepend list, so its own Prepare later only
// conflict-checks against siblings committed after this moment, not
// this branch's entire prior history.
func (b *Branch) Fork() *Branch {
	child := newBranch(b.arena, b)
	b.mu.RLock()
	child.forkIndex = len(b.prependList)
	b.mu.RUnlock()
	return child
}

// Pending returns this branch's own in-flight change-set, the one its
// sink is currently writing into.
func (b *Branch) Pending() *changeset.ChangeSet {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pending
}

// Parent returns the source this branch forked from.
func (b *Branch) Parent() ParentSource {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.parent
}

// PrependList returns a snapshot slice of change-sets committed into
// this branch by children since those children forked, in commit
// order. Safe to retain: each entry is itself immutable once queued
// (see changeset.ChangeSet.Clone).
func (b *Branch) PrependList() []*changeset.ChangeSet {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*changeset.ChangeSet, len(b.prependList))
	copy(out, b.prependList)
	return out
}

// PrependListSince returns a snapshot of the change-sets appended to
// this branch's prepend list at or after idx, in commit order. Used by
// Prepare to scope a conflict check to commits that postdate a given
// sibling's fork point.
func (b *Branch) PrependListSince(idx int) []*changeset.ChangeSet {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if idx > len(b.prependList) {
		idx = len(b.prependList)
	}
	out := make([]*changeset.ChangeSet, len(b.prependList)-idx)
	copy(out, b.prependList[idx:])
	return out
}

// IsActive reports whether the branch has not yet been released.
func (b *Branch) IsActive() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.active
}

// Prepare recursively prepares the parent branch (if any), then
// conflict-checks this branch's observations against the sibling
// change-sets appended to its parent's prepend list since this branch
// forked (at or after forkIndex), per spec §4.3. Siblings are
// checked concurrently since each check is a read-only pattern match
// independent of the others.
func (b *Branch) Prepare(ctx context.Context) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PrepareLatency)

	b.mu.RLock()
	parent := b.parent
	pending := b.pending
	b.mu.RUnlock()

	if pb, ok := parent.(*Branch); ok {
		if err := pb.Prepare(ctx); err != nil {
			return err
		}
	}

	if err := sailerr.FromContext(ctx); err != nil {
		return err
	}

	pb, ok := parent.(*Branch)
	if !ok {
		return nil
	}
	siblings := pb.PrependListSince(b.forkIndex)
	metrics.PrependListDepth.Observe(float64(len(siblings)))
	if len(siblings) == 0 {
		return nil
	}

	g, _ := errgroup.WithContext(ctx)
	for _, sibling := range siblings {
		sibling := sibling
		g.Go(func() error {
			if pending.Conflicts(sibling) {
				return sailerr.Conflict.New("observed state changed since this transaction began")
			}
			return nil
		})
	}
	return g.Wait()
}

// Flush transfers this branch's pending change-set into its parent,
// atomically: for a parent Branch, the change-set is cloned onto the
// parent's prepend list so concurrently open sibling snapshots keep
// seeing the pre-flush state; for a parent store.Source, it is applied
// directly to durable/in-memory storage. After a successful flush the
// branch's own pending change-set is reset to empty, leaving the
// branch usable for a further round of writes.
//
// Invariant carried from spec §4.2: once Prepare has succeeded, Flush
// must not itself fail for isolation-related reasons — any conflict is
// caught by Prepare, not here.
func (b *Branch) Flush() error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.FlushLatency)

	b.mu.Lock()
	parent := b.parent
	pending := b.pending
	b.mu.Unlock()

	if pending.IsEmpty() {
		return nil
	}

	switch p := parent.(type) {
	case *Branch:
		p.commitMu.Lock()
		p.mu.Lock()
		p.prependList = append(p.prependList, pending.Clone())
		p.mu.Unlock()
		p.commitMu.Unlock()
	case store.Source:
		if err := p.Apply(pending); err != nil {
			return sailerr.StoreIO.Wrap(err)
		}
	}

	b.mu.Lock()
	b.pending = changeset.New()
	b.mu.Unlock()
	return nil
}

// Release discards the branch. Any unflushed change-set is lost.
// Releasing an already-released branch is a no-op.
func (b *Branch) Release() error {
	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		return nil
	}
	b.released = true
	b.active = false
	b.mu.Unlock()

	b.arena.forget(b.handle)
	return nil
}

// Statements, Contexts, Namespaces and Namespace satisfy ParentSource
// so a Branch can itself be forked from, but they answer only from
// the parent's committed state — they deliberately do NOT merge in
// this branch's own pending change-set. That merge is dataset.View's
// job; a Branch on its own is a write accumulator and a link in the
// lineage chain, not a mergeable read view.

func (b *Branch) Statements(pattern rdf.Pattern) (store.StatementIterator, error) {
	return b.Parent().Statements(pattern)
}

func (b *Branch) Contexts() (store.ContextIterator, error) {
	return b.Parent().Contexts()
}

func (b *Branch) Namespaces() (store.NamespaceIterator, error) {
	return b.Parent().Namespaces()
}

func (b *Branch) Namespace(prefix string) (string, bool, error) {
	return b.Parent().Namespace(prefix)
}
