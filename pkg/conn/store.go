package conn

import (
	"github.com/quaddb/sail/pkg/leakcheck"
	"github.com/quaddb/sail/pkg/metrics"
	"github.com/quaddb/sail/pkg/sailconfig"
	"github.com/quaddb/sail/pkg/source"
	"github.com/quaddb/sail/pkg/store"
)

// Store is the long-lived handle on one statement store: it owns the
// arena and the persistent root branches every connection's
// transactions fork from, so that sibling transactions share a common
// parent branch and its prepend list — the structure Branch.Prepare
// relies on for write-skew conflict detection. A Connection forked
// directly from a store.Source with no shared root branch would never
// see a sibling's commits as a conflict candidate.
type Store struct {
	arena        *source.Arena
	explicitRoot *source.Branch
	inferredRoot *source.Branch // nil when the store carries no separate inferred source

	cfg       sailconfig.Config
	tracker   *leakcheck.Tracker
	collector *metrics.Collector
}

// Open builds a Store over explicit (and, optionally, inferred),
// forking one persistent root branch for each. cfg supplies the
// negotiable isolation set and auto-flush threshold every connection
// inherits; tracker may be nil to disable leak diagnostics.
func Open(explicit, inferred store.Source, cfg sailconfig.Config, tracker *leakcheck.Tracker) *Store {
	arena := source.NewArena()
	s := &Store{arena: arena, cfg: cfg, tracker: tracker}
	s.explicitRoot = source.Root(arena, explicit)
	if inferred != nil {
		s.inferredRoot = source.Root(arena, inferred)
	}

	s.collector = metrics.NewCollector(arena, tracker)
	s.collector.Start()
	return s
}

// Connection opens a new client-facing connection over the store.
func (s *Store) Connection() *Connection {
	return New(s)
}

// Close releases the store's persistent root branches. Any connection
// still open against the store is left pointing at released branches
// and should itself be closed first.
func (s *Store) Close() error {
	s.collector.Stop()

	err := s.explicitRoot.Release()
	if s.inferredRoot != nil {
		if ierr := s.inferredRoot.Release(); err == nil {
			err = ierr
		}
	}
	return err
}
