// Package store implements the Statement Store layer: the ultimate
// source of truth for committed statements and namespaces. It exposes
// two independently-versioned Source implementations (explicit and
// inferred) plus evaluation statistics used by query planning.
package store

import (
	"errors"

	"github.com/quaddb/sail/pkg/changeset"
	"github.com/quaddb/sail/pkg/rdf"
)

// ErrNamespaceNotFound names a missing namespace prefix. Memory and
// Bolt do not return it: their Namespace reports an unregistered
// prefix as ok=false with a nil error.
var ErrNamespaceNotFound = errors.New("store: namespace prefix not found")

// StatementIterator yields matching statements one at a time. It must
// be closed after use, even on error.
type StatementIterator interface {
	// Next advances the iterator. It returns ok=false once exhausted;
	// a non-nil error indicates the iteration failed partway.
	Next() (stmt rdf.Statement, ok bool, err error)
	Close() error
}

// NamespaceIterator yields registered namespaces one at a time.
type NamespaceIterator interface {
	Next() (ns rdf.Namespace, ok bool, err error)
	Close() error
}

// ContextIterator yields distinct context resources one at a time. A
// nil entry is never produced: the default graph is not a context.
type ContextIterator interface {
	Next() (ctx rdf.Resource, ok bool, err error)
	Close() error
}

// Source is the lowest-level, durable or in-memory holder of
// committed statements and namespaces. It is the root parent that
// source.Branch forks from.
type Source interface {
	// Statements returns an iterator over statements matching pattern
	// as committed at the time of the call. Memory and Bolt
	// materialize the result before returning (see sliceIterator).
	Statements(pattern rdf.Pattern) (StatementIterator, error)

	// Contexts returns an iterator over distinct context IRIs in use,
	// with no ordering guarantee.
	Contexts() (ContextIterator, error)

	// Namespaces returns an iterator over registered namespaces.
	Namespaces() (NamespaceIterator, error)

	// Namespace looks up a single prefix.
	Namespace(prefix string) (name string, ok bool, err error)

	// Apply commits cs atomically: deprecations and clears are applied
	// before approvals, then namespace edits, matching the merge order
	// of dataset.View so a subsequent read sees exactly what a dataset
	// merge over an empty parent would have shown.
	Apply(cs *changeset.ChangeSet) error

	// Close releases any resources (file handles, in-memory indices)
	// held by the source. Idempotent.
	Close() error
}

// Statistics exposes per-pattern cardinality estimates to the query
// optimizer for join ordering. Implementations may cache estimates;
// Invalidate must be called after any Apply to the source it
// estimates.
type Statistics interface {
	// Cardinality estimates the number of statements matching pattern.
	Cardinality(pattern rdf.Pattern) (int64, error)

	// Invalidate drops any cached estimate depending on stale state.
	Invalidate()
}

// sliceIterator adapts a pre-materialized slice to StatementIterator.
// Sources backed by in-memory indices or a single bbolt transaction
// materialize their result before returning, since both hold no
// cursor state safely usable across the iterator's lifetime without
// pinning a transaction open; this keeps Source.Close() simple.
type sliceIterator struct {
	stmts []rdf.Statement
	pos   int
}

func newSliceIterator(stmts []rdf.Statement) *sliceIterator {
	return &sliceIterator{stmts: stmts}
}

func (it *sliceIterator) Next() (rdf.Statement, bool, error) {
	if it.pos >= len(it.stmts) {
		return rdf.Statement{}, false, nil
	}
	s := it.stmts[it.pos]
	it.pos++
	return s, true, nil
}

func (it *sliceIterator) Close() error { return nil }

type nsSliceIterator struct {
	nss []rdf.Namespace
	pos int
}

func newNSSliceIterator(nss []rdf.Namespace) *nsSliceIterator {
	return &nsSliceIterator{nss: nss}
}

func (it *nsSliceIterator) Next() (rdf.Namespace, bool, error) {
	if it.pos >= len(it.nss) {
		return rdf.Namespace{}, false, nil
	}
	ns := it.nss[it.pos]
	it.pos++
	return ns, true, nil
}

func (it *nsSliceIterator) Close() error { return nil }

type ctxSliceIterator struct {
	ctxs []rdf.Resource
	pos  int
}

func newCtxSliceIterator(ctxs []rdf.Resource) *ctxSliceIterator {
	return &ctxSliceIterator{ctxs: ctxs}
}

func (it *ctxSliceIterator) Next() (rdf.Resource, bool, error) {
	if it.pos >= len(it.ctxs) {
		return nil, false, nil
	}
	c := it.ctxs[it.pos]
	it.pos++
	return c, true, nil
}

func (it *ctxSliceIterator) Close() error { return nil }
