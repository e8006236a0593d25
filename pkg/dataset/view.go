package dataset

import (
	"sync"

	"github.com/quaddb/sail/pkg/changeset"
	"github.com/quaddb/sail/pkg/isolation"
	"github.com/quaddb/sail/pkg/metrics"
	"github.com/quaddb/sail/pkg/rdf"
	"github.com/quaddb/sail/pkg/source"
)

// View is a read-only snapshot produced by a branch at a given
// isolation level. It merges the branch's own pending change-set (a
// transaction always sees its own writes) with, for READ_COMMITTED
// and stronger, the branch's parent's whole prepend list of change-sets
// committed into it, including those committed before this branch
// forked.
//
// For SNAPSHOT_READ and stronger the prepend list is captured once at
// construction, giving repeatable reads for the life of the view; for
// weaker levels it is re-read live on every call.
type View struct {
	mu     sync.Mutex
	branch *source.Branch
	level  isolation.Level
	closed bool

	// frozenSiblings is non-nil only at SNAPSHOT_READ and stronger.
	frozenSiblings []*changeset.ChangeSet
}

// New returns a View over branch at level. It takes no lock on the
// branch or its parent: a flush into the parent from another goroutine
// is not blocked while the view is open. At SNAPSHOT_READ and stronger
// the parent's prepend list is copied here, so such a flush does not
// change what this view returns.
func New(branch *source.Branch, level isolation.Level) *View {
	v := &View{branch: branch, level: level}
	if isolation.AtLeast(level, isolation.SnapshotRead) {
		if parent, ok := branch.Parent().(*source.Branch); ok {
			v.frozenSiblings = parent.PrependList()
		}
	}
	metrics.OpenSnapshotsTotal.WithLabelValues(string(level)).Inc()
	return v
}

func (v *View) siblings() []*changeset.ChangeSet {
	if v.frozenSiblings != nil {
		return v.frozenSiblings
	}
	if !isolation.AtLeast(v.level, isolation.ReadCommitted) {
		return nil
	}
	if parent, ok := v.branch.Parent().(*source.Branch); ok {
		return parent.PrependList()
	}
	return nil
}

// overlay applies one change-set on top of a working set of
// statements matching pattern, per spec §4.4 steps 2-4.
func overlay(base []rdf.Statement, cs *changeset.ChangeSet, pattern rdf.Pattern) []rdf.Statement {
	if cs.StatementCleared() {
		base = nil
	} else {
		deprecated := make(map[rdf.StatementKey]bool)
		for _, s := range cs.Deprecated() {
			deprecated[s.Key()] = true
		}
		clearedContexts := cs.DeprecatedContexts()

		filtered := base[:0:0]
		for _, s := range base {
			if deprecated[s.Key()] {
				continue
			}
			clearedByContext := false
			for _, ctx := range clearedContexts {
				if rdf.ResourceEqual(s.Context, ctx) {
					clearedByContext = true
					break
				}
			}
			if clearedByContext {
				continue
			}
			filtered = append(filtered, s)
		}
		base = filtered
	}

	for _, s := range cs.Approved() {
		if pattern.Matches(s) {
			base = append(base, s)
		}
	}
	return base
}

// dedup applies spec §4.4 step 5: de-duplication by full 4-tuple
// identity, preserving first-seen order.
func dedup(stmts []rdf.Statement) []rdf.Statement {
	seen := make(map[rdf.StatementKey]bool, len(stmts))
	out := stmts[:0:0]
	for _, s := range stmts {
		k := s.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}

// Statements returns an iterator over statements matching pattern in
// the merged view. The result is fully materialized before return.
func (v *View) Statements(pattern rdf.Pattern) (Iterator[rdf.Statement], error) {
	base, err := collectFromParent(v.branch, pattern)
	if err != nil {
		return nil, err
	}

	for _, sibling := range v.siblings() {
		base = overlay(base, sibling, pattern)
	}
	base = overlay(base, v.branch.Pending(), pattern)
	base = dedup(base)

	return FromSlice(base), nil
}

func collectFromParent(branch *source.Branch, pattern rdf.Pattern) ([]rdf.Statement, error) {
	it, err := branch.Statements(pattern)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []rdf.Statement
	for {
		s, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, s)
	}
	return out, nil
}

// Contexts returns an iterator over distinct context resources visible
// in the merged view. The result is fully materialized before return.
func (v *View) Contexts() (Iterator[rdf.Resource], error) {
	all, err := v.Statements(rdf.NewPattern(nil, "", nil))
	if err != nil {
		return nil, err
	}
	seen := make(map[rdf.StatementKey]bool)
	var out []rdf.Resource
	for {
		s, ok, err := all.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if s.Context == nil {
			continue
		}
		ck := rdf.Statement{Subject: s.Context}.Key()
		if !seen[ck] {
			seen[ck] = true
			out = append(out, s.Context)
		}
	}
	return FromSlice(out), nil
}

// Namespaces returns an iterator over the merged namespace table. The
// result is fully materialized before return.
func (v *View) Namespaces() (Iterator[rdf.Namespace], error) {
	it, err := v.branch.Namespaces()
	if err != nil {
		return nil, err
	}
	defer it.Close()

	nss := make(map[string]string)
	for {
		ns, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		nss[ns.Prefix] = ns.Name
	}

	for _, cs := range append(append([]*changeset.ChangeSet{}, v.siblings()...), v.branch.Pending()) {
		if cs.NamespaceCleared() {
			nss = make(map[string]string)
		} else {
			for _, p := range cs.RemovedPrefixes() {
				delete(nss, p)
			}
		}
		for prefix, name := range cs.AddedNamespaces() {
			nss[prefix] = name
		}
	}

	out := make([]rdf.Namespace, 0, len(nss))
	for prefix, name := range nss {
		out = append(out, rdf.Namespace{Prefix: prefix, Name: name})
	}
	return FromSlice(out), nil
}

// Namespace looks up a single prefix in the merged view.
func (v *View) Namespace(prefix string) (string, bool, error) {
	it, err := v.Namespaces()
	if err != nil {
		return "", false, err
	}
	defer it.Close()
	for {
		ns, ok, err := it.Next()
		if err != nil {
			return "", false, err
		}
		if !ok {
			return "", false, nil
		}
		if ns.Prefix == prefix {
			return ns.Name, true, nil
		}
	}
}

// Close releases the view. Idempotent.
func (v *View) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true
	metrics.OpenSnapshotsTotal.WithLabelValues(string(v.level)).Dec()
	return nil
}

// Branch returns the branch this view was created over, used by
// Interlock to release it after the view itself closes.
func (v *View) Branch() *source.Branch { return v.branch }
