// Package changeset implements the in-memory record of one in-flight
// transaction's pending statement and namespace edits, and the
// observation-based conflict check applied at SERIALIZABLE isolation.
package changeset

import (
	"sync"

	"github.com/quaddb/sail/pkg/rdf"
)

// ChangeSet accumulates the approvals, deprecations, observations and
// namespace edits of one branch's in-flight transaction. It is not
// safe for concurrent use by multiple goroutines except where noted;
// a sink serializes all mutation through its own branch.
type ChangeSet struct {
	mu sync.Mutex

	approved   map[rdf.StatementKey]rdf.Statement
	deprecated map[rdf.StatementKey]rdf.Statement

	approvedContexts   map[rdf.StatementKey]rdf.Resource
	deprecatedContexts []rdf.Resource

	statementCleared bool

	addedNamespaces map[string]string
	removedPrefixes map[string]struct{}
	namespaceCleared bool

	observations []rdf.Pattern
}

// New returns an empty change-set.
func New() *ChangeSet {
	return &ChangeSet{
		approved:         make(map[rdf.StatementKey]rdf.Statement),
		deprecated:       make(map[rdf.StatementKey]rdf.Statement),
		approvedContexts: make(map[rdf.StatementKey]rdf.Resource),
		addedNamespaces:  make(map[string]string),
		removedPrefixes:  make(map[string]struct{}),
	}
}

// Approve records s as a statement to add on commit (invariant 1: s is
// removed from deprecated; invariant 2: its context, if any, is
// recorded in approvedContexts).
func (c *ChangeSet) Approve(s rdf.Statement) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := s.Key()
	delete(c.deprecated, key)
	c.approved[key] = s
	if s.Context != nil {
		c.approvedContexts[ctxKey(s.Context)] = s.Context
	}
}

// Deprecate records s as a statement to remove on commit, removing it
// from approved first. If s.Context has no other approved statement
// remaining, the context is dropped from approvedContexts.
func (c *ChangeSet) Deprecate(s rdf.Statement) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := s.Key()
	delete(c.approved, key)
	c.deprecated[key] = s

	if s.Context != nil {
		ck := ctxKey(s.Context)
		stillUsed := false
		for _, a := range c.approved {
			if rdf.ResourceEqual(a.Context, s.Context) {
				stillUsed = true
				break
			}
		}
		if !stillUsed {
			delete(c.approvedContexts, ck)
		}
	}
}

// Observe records pattern p as read by this transaction. Callers
// should only invoke this when the active isolation level is
// SERIALIZABLE or stronger (invariant 4); this type does not itself
// know the active level.
func (c *ChangeSet) Observe(p rdf.Pattern) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observations = append(c.observations, p)
}

// Clear removes approvals matching contexts. An empty contexts list
// sets StatementCleared and discards all current approvals; a
// non-empty list instead records the contexts for wholesale removal
// against the parent on flush.
func (c *ChangeSet) Clear(contexts ...rdf.Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(contexts) == 0 {
		c.statementCleared = true
		c.approved = make(map[rdf.StatementKey]rdf.Statement)
		c.approvedContexts = make(map[rdf.StatementKey]rdf.Resource)
		return
	}

	c.deprecatedContexts = append(c.deprecatedContexts, contexts...)
	for key, s := range c.approved {
		for _, ctx := range contexts {
			if rdf.ResourceEqual(s.Context, ctx) {
				delete(c.approved, key)
				delete(c.approvedContexts, ctxKey(ctx))
				break
			}
		}
	}
}

// SetNamespace records prefix -> name, undoing any pending removal of
// the same prefix (invariant 5).
func (c *ChangeSet) SetNamespace(prefix, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.removedPrefixes, prefix)
	c.addedNamespaces[prefix] = name
}

// RemoveNamespace records prefix for removal, undoing any pending
// addition of the same prefix.
func (c *ChangeSet) RemoveNamespace(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.addedNamespaces, prefix)
	c.removedPrefixes[prefix] = struct{}{}
}

// ClearNamespaces resets both namespace edit sets and asserts
// namespaceCleared (invariant 5).
func (c *ChangeSet) ClearNamespaces() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addedNamespaces = make(map[string]string)
	c.removedPrefixes = make(map[string]struct{})
	c.namespaceCleared = true
}

// Approved returns a snapshot slice of statements approved for
// commit.
func (c *ChangeSet) Approved() []rdf.Statement {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]rdf.Statement, 0, len(c.approved))
	for _, s := range c.approved {
		out = append(out, s)
	}
	return out
}

// Deprecated returns a snapshot slice of statements deprecated for
// commit.
func (c *ChangeSet) Deprecated() []rdf.Statement {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]rdf.Statement, 0, len(c.deprecated))
	for _, s := range c.deprecated {
		out = append(out, s)
	}
	return out
}

// DeprecatedContexts returns the contexts recorded by Clear(contexts...).
func (c *ChangeSet) DeprecatedContexts() []rdf.Resource {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]rdf.Resource, len(c.deprecatedContexts))
	copy(out, c.deprecatedContexts)
	return out
}

// StatementCleared reports whether a full clear() was issued.
func (c *ChangeSet) StatementCleared() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statementCleared
}

// AddedNamespaces returns a copy of the pending prefix->name additions.
func (c *ChangeSet) AddedNamespaces() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.addedNamespaces))
	for k, v := range c.addedNamespaces {
		out[k] = v
	}
	return out
}

// RemovedPrefixes returns a copy of the pending prefix removals.
func (c *ChangeSet) RemovedPrefixes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.removedPrefixes))
	for p := range c.removedPrefixes {
		out = append(out, p)
	}
	return out
}

// NamespaceCleared reports whether clearNamespaces() was issued.
func (c *ChangeSet) NamespaceCleared() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.namespaceCleared
}

// Observations returns a snapshot slice of recorded read patterns.
func (c *ChangeSet) Observations() []rdf.Pattern {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]rdf.Pattern, len(c.observations))
	copy(out, c.observations)
	return out
}

// IsEmpty reports whether the change-set carries no pending edits at
// all, used by Sink.Flush to implement idempotent double-flush.
func (c *ChangeSet) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.approved) == 0 &&
		len(c.deprecated) == 0 &&
		!c.statementCleared &&
		len(c.deprecatedContexts) == 0 &&
		len(c.addedNamespaces) == 0 &&
		len(c.removedPrefixes) == 0 &&
		!c.namespaceCleared &&
		len(c.observations) == 0
}

// Clone returns a deep copy of c, safe to retain independently (e.g.
// in a branch's prepend list) after the original is mutated further.
//
// Resolves an open question left by the distilled spec over whether
// queuing a change-set into a prepend list aliases live mutable state:
// here it never does — the prepend list holds frozen clones.
func (c *ChangeSet) Clone() *ChangeSet {
	c.mu.Lock()
	defer c.mu.Unlock()

	clone := New()
	for k, v := range c.approved {
		clone.approved[k] = v
	}
	for k, v := range c.deprecated {
		clone.deprecated[k] = v
	}
	for k, v := range c.approvedContexts {
		clone.approvedContexts[k] = v
	}
	clone.deprecatedContexts = append(clone.deprecatedContexts, c.deprecatedContexts...)
	clone.statementCleared = c.statementCleared
	for k, v := range c.addedNamespaces {
		clone.addedNamespaces[k] = v
	}
	for k := range c.removedPrefixes {
		clone.removedPrefixes[k] = struct{}{}
	}
	clone.namespaceCleared = c.namespaceCleared
	clone.observations = append(clone.observations, c.observations...)
	return clone
}

// Conflicts reports whether any observation in c matches an approved
// or deprecated statement in sibling, implementing the write-skew
// check of §4.3: for every observation pattern P recorded by this
// change-set, if sibling's approved or deprecated set contains a
// statement matching P, the two change-sets conflict.
func (c *ChangeSet) Conflicts(sibling *ChangeSet) bool {
	observations := c.Observations()
	if len(observations) == 0 {
		return false
	}
	approved := sibling.Approved()
	deprecated := sibling.Deprecated()
	for _, p := range observations {
		for _, s := range approved {
			if p.Matches(s) {
				return true
			}
		}
		for _, s := range deprecated {
			if p.Matches(s) {
				return true
			}
		}
	}
	return false
}

func ctxKey(r rdf.Resource) rdf.StatementKey {
	return rdf.Statement{Context: r}.Key()
}
