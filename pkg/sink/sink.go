// Package sink implements the buffered write handle bound to one
// source branch at one isolation level, per spec §4.5.
package sink

import (
	"context"
	"sync"

	"github.com/quaddb/sail/pkg/isolation"
	"github.com/quaddb/sail/pkg/rdf"
	"github.com/quaddb/sail/pkg/source"
)

// Sink accumulates statement and namespace edits into its branch's
// pending change-set, flushing them atomically on Flush.
type Sink struct {
	mu     sync.Mutex
	branch *source.Branch
	level  isolation.Level
	closed bool
}

// New returns a sink writing into branch at level.
func New(branch *source.Branch, level isolation.Level) *Sink {
	return &Sink{branch: branch, level: level}
}

// Approve stages s for addition on commit.
func (s *Sink) Approve(stmt rdf.Statement) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.branch.Pending().Approve(stmt)
	return nil
}

// Deprecate stages s for removal on commit.
func (s *Sink) Deprecate(stmt rdf.Statement) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.branch.Pending().Deprecate(stmt)
	return nil
}

// Observe records a read pattern for serializability conflict
// detection, which Branch.Prepare applies. The pattern is recorded
// only when the sink's isolation level is SERIALIZABLE or stronger; at
// weaker levels Observe is a no-op.
func (s *Sink) Observe(pattern rdf.Pattern) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if isolation.AtLeast(s.level, isolation.Serializable) {
		s.branch.Pending().Observe(pattern)
	}
	return nil
}

// Clear stages a removal of all statements in contexts (or, with no
// arguments, all statements).
func (s *Sink) Clear(contexts ...rdf.Resource) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.branch.Pending().Clear(contexts...)
	return nil
}

// SetNamespace stages a namespace addition/update.
func (s *Sink) SetNamespace(prefix, name string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.branch.Pending().SetNamespace(prefix, name)
	return nil
}

// RemoveNamespace stages a namespace removal.
func (s *Sink) RemoveNamespace(prefix string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.branch.Pending().RemoveNamespace(prefix)
	return nil
}

// ClearNamespaces stages removal of every namespace.
func (s *Sink) ClearNamespaces() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.branch.Pending().ClearNamespaces()
	return nil
}

// Flush prepares (conflict-checks) and then propagates the bound
// branch's change-set to its parent. Calling Flush twice on an empty
// change-set is idempotent, since source.Branch.Flush itself no-ops
// on an empty pending change-set.
func (s *Sink) Flush(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.branch.Prepare(ctx); err != nil {
		return err
	}
	return s.branch.Flush()
}

// Close releases the sink's buffers. Idempotent; does not flush
// pending changes — callers that want them durable must Flush first.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Sink) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosedSink
	}
	return nil
}
