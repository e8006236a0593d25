package conn

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quaddb/sail/pkg/isolation"
	"github.com/quaddb/sail/pkg/leakcheck"
	"github.com/quaddb/sail/pkg/log"
	"github.com/quaddb/sail/pkg/metrics"
	"github.com/quaddb/sail/pkg/sailerr"
	"github.com/quaddb/sail/pkg/source"
)

// Connection is the client-facing façade over a pair of statement-store
// branches (explicit and inferred). It is built once by New from three
// capabilities — reader, writer, inferencer — assembled at construction
// rather than through subclassing, per the composition design spec §9
// prescribes in place of a deep connection class hierarchy.
type Connection struct {
	id string

	mu       sync.RWMutex // connection lock: read-path helpers take RLock; Begin/Commit/Rollback, writes, update contexts, iterator tracking and Close take Lock
	updateMu sync.Mutex   // update lock: held across begin/commit/rollback and each write op

	store *Store

	supported          []isolation.Level
	autoFlushBlockSize int

	state State

	txLevel        isolation.Level
	explicitBranch *source.Branch
	inferredBranch *source.Branch

	bufferedCount         int
	currentUpdate         *updateState
	currentInferredUpdate *updateState

	updates map[UpdateContext]*updateState

	iterations      map[uint64]*trackedIteration
	nextIterationID uint64

	reader     reader
	writer     writer
	inferencer inferencer

	tracker *leakcheck.Tracker

	listenersMu sync.Mutex
	listeners   []Listener

	log zerolog.Logger
}

// New builds a connection over st. Most callers should use
// Store.Connection instead; New is exported for tests and for callers
// assembling a Connection outside the usual Store lifecycle.
func New(st *Store) *Connection {
	id := uuid.NewString()
	c := &Connection{
		id:                 id,
		store:              st,
		supported:          st.cfg.SupportedIsolationLevels,
		autoFlushBlockSize: st.cfg.AutoFlushBlockSize,
		state:              Open,
		updates:            make(map[UpdateContext]*updateState),
		iterations:         make(map[uint64]*trackedIteration),
		tracker:            st.tracker,
		log:                log.WithConnection(id),
	}
	c.reader = connReader{c}
	c.writer = connWriter{c}
	c.inferencer = connInferencer{c}
	metrics.ConnectionsOpenTotal.Inc()
	return c
}

// ID returns the connection's opaque identifier, used for logging.
func (c *Connection) ID() string { return c.id }

// Begin starts a transaction, negotiating requested against the
// connection's supported isolation set (spec §4.8). NONE also forks a
// transaction branch; its writes are flushed into the root on every
// single write.
func (c *Connection) Begin(requested isolation.Level) error {
	c.updateMu.Lock()
	defer c.updateMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Closed {
		return errClosed
	}
	if c.state == Active || c.state == Prepared {
		return errTxAlreadyActive
	}

	chosen, ok := isolation.Negotiate(requested, c.supported)
	if !ok {
		return errUnsupportedLevel
	}

	c.txLevel = chosen
	// Every level, including NONE, forks a branch off the store's
	// persistent root: arena handles are cheap, so the same
	// merge/flush machinery serves "no transactional semantics" by
	// auto-flushing on every single write rather than by bypassing the
	// branch layer (see effectiveAutoFlushThreshold). Forking from the
	// shared root, rather than minting an independent root branch per
	// transaction, is also what gives sibling transactions a common
	// parent whose prepend list Prepare conflict-checks against.
	c.explicitBranch = c.store.explicitRoot.Fork()
	if c.store.inferredRoot != nil {
		c.inferredBranch = c.store.inferredRoot.Fork()
	}
	c.state = Active
	metrics.TransactionsActiveTotal.WithLabelValues(string(chosen)).Inc()
	c.log.Debug().Str("isolation_level", string(chosen)).Msg("transaction began")
	return nil
}

// Commit performs an implicit prepare and then flushes the
// transaction's branches into their parents.
func (c *Connection) Commit(ctx context.Context) error {
	c.updateMu.Lock()
	defer c.updateMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Closed {
		return errClosed
	}
	if c.state != Active {
		return errNoActiveTx
	}

	if err := c.flushCurrentUpdateLocked(ctx); err != nil {
		c.abortTxLocked()
		metrics.CommitsTotal.WithLabelValues("rolled_back").Inc()
		return err
	}

	c.state = Prepared
	if err := c.prepareLocked(ctx); err != nil {
		c.abortTxLocked()
		metrics.ConflictsTotal.WithLabelValues(string(c.txLevel)).Inc()
		metrics.CommitsTotal.WithLabelValues("rolled_back").Inc()
		return err
	}
	if err := c.flushLocked(); err != nil {
		c.abortTxLocked()
		metrics.CommitsTotal.WithLabelValues("rolled_back").Inc()
		return err
	}

	metrics.TransactionsActiveTotal.WithLabelValues(string(c.txLevel)).Dec()
	metrics.CommitsTotal.WithLabelValues("committed").Inc()
	c.log.Debug().Msg("transaction committed")
	c.resetTxLocked()
	return nil
}

// Rollback discards the transaction's buffered changes.
func (c *Connection) Rollback() error {
	c.updateMu.Lock()
	defer c.updateMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Closed {
		return errClosed
	}
	if c.state != Active && c.state != Prepared {
		return errNoActiveTx
	}

	metrics.TransactionsActiveTotal.WithLabelValues(string(c.txLevel)).Dec()
	c.abortTxLocked()
	c.log.Debug().Msg("transaction rolled back")
	return nil
}

func (c *Connection) prepareLocked(ctx context.Context) error {
	if c.explicitBranch != nil {
		if err := c.explicitBranch.Prepare(ctx); err != nil {
			return err
		}
	}
	if c.inferredBranch != nil {
		if err := c.inferredBranch.Prepare(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *Connection) flushLocked() error {
	if c.explicitBranch != nil {
		if err := c.explicitBranch.Flush(); err != nil {
			return err
		}
	}
	if c.inferredBranch != nil {
		if err := c.inferredBranch.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Connection) abortTxLocked() {
	c.releaseUpdatesLocked()
	if c.explicitBranch != nil {
		_ = c.explicitBranch.Release()
	}
	if c.inferredBranch != nil {
		_ = c.inferredBranch.Release()
	}
	c.resetTxLocked()
}

func (c *Connection) resetTxLocked() {
	c.explicitBranch = nil
	c.inferredBranch = nil
	c.txLevel = ""
	c.bufferedCount = 0
	c.currentUpdate = nil
	c.currentInferredUpdate = nil
	c.state = Open
}

func (c *Connection) releaseUpdatesLocked() {
	for handle, up := range c.updates {
		up.close()
		delete(c.updates, handle)
	}
	if c.currentUpdate != nil {
		c.currentUpdate.close()
	}
	if c.currentInferredUpdate != nil {
		c.currentInferredUpdate.close()
	}
}

// Close releases the connection. An active transaction is implicitly
// rolled back with a warning, and every leftover tracked iterator is
// force-closed, per spec §4.6/§8 S6.
func (c *Connection) Close() error {
	c.mu.Lock()

	if c.state == Closed {
		c.mu.Unlock()
		return nil
	}

	if c.state == Active || c.state == Prepared {
		c.log.Warn().Msg("closing connection with an active transaction; rolling back implicitly")
		c.abortTxLocked()
	}

	// Leftover iterators are closed after c.mu is released: their Close
	// path (untrack) takes c.mu itself.
	leftover := make([]*trackedIteration, 0, len(c.iterations))
	for id, it := range c.iterations {
		leftover = append(leftover, it)
		delete(c.iterations, id)
	}

	c.state = Closed
	metrics.ConnectionsOpenTotal.Dec()
	c.mu.Unlock()

	for _, it := range leftover {
		c.log.Warn().Str("site", it.site).Msg("force-closing iterator left open at connection close")
		_ = it.close()
	}
	return nil
}

func (c *Connection) checkWritable() error {
	switch c.state {
	case Closed:
		return errClosed
	case Active:
		return nil
	default:
		return errWriteWithoutTx
	}
}

func (c *Connection) wrapIO(err error) error {
	if err == nil {
		return nil
	}
	if sailerr.IsConflict(err) || sailerr.IsCancelled(err) || sailerr.IsUsage(err) {
		return err
	}
	return sailerr.StoreIO.Wrap(err)
}
