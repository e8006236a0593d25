package source

import (
	"sync"

	"github.com/quaddb/sail/pkg/metrics"
)

// Handle is an opaque reference to a live Branch, issued by an Arena;
// Resolve maps it back to the branch until the branch is released.
// Upper layers do not go through Handles: dataset.View, the connection
// and child branches hold *Branch pointers directly.
type Handle uint64

// Arena owns the set of live branches for one store and hands out
// Handles for them.
type Arena struct {
	mu       sync.Mutex
	next     Handle
	branches map[Handle]*Branch
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{branches: make(map[Handle]*Branch)}
}

// register allocates a fresh handle for b and returns it.
func (a *Arena) register(b *Branch) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	h := a.next
	a.branches[h] = b
	metrics.OpenBranchesTotal.Inc()
	return h
}

// Resolve returns the live branch for h, or ok=false if it has been
// released.
func (a *Arena) Resolve(h Handle) (*Branch, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.branches[h]
	return b, ok
}

// forget removes h from the arena, called from Branch.Release.
func (a *Arena) forget(h Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.branches[h]; ok {
		delete(a.branches, h)
		metrics.OpenBranchesTotal.Dec()
	}
}

// Live returns the number of branches currently registered, sampled by
// the metrics collector.
func (a *Arena) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.branches)
}
