package conn

import (
	"context"

	"github.com/quaddb/sail/pkg/dataset"
	"github.com/quaddb/sail/pkg/isolation"
	"github.com/quaddb/sail/pkg/metrics"
	"github.com/quaddb/sail/pkg/rdf"
)

// defaultAutoFlushBlockSize is used when a connection's configuration
// leaves AutoFlushBlockSize unset.
const defaultAutoFlushBlockSize = 1000

// AddStatement buffers s for addition into the connection's current
// transaction, auto-flushing once the buffered block size is reached.
func (c *Connection) AddStatement(ctx context.Context, s rdf.Statement) error {
	c.updateMu.Lock()
	defer c.updateMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkWritable(); err != nil {
		return err
	}
	up, err := c.ensureCurrentUpdateLocked()
	if err != nil {
		return err
	}
	if err := up.sink.Approve(s); err != nil {
		return c.wrapIO(err)
	}
	metrics.BufferedStatementsTotal.Inc()
	return c.maybeAutoFlushLocked(ctx)
}

// RemoveStatement buffers s for removal.
func (c *Connection) RemoveStatement(ctx context.Context, s rdf.Statement) error {
	c.updateMu.Lock()
	defer c.updateMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkWritable(); err != nil {
		return err
	}
	up, err := c.ensureCurrentUpdateLocked()
	if err != nil {
		return err
	}
	if err := up.sink.Deprecate(s); err != nil {
		return c.wrapIO(err)
	}
	metrics.BufferedStatementsTotal.Inc()
	return c.maybeAutoFlushLocked(ctx)
}

// Clear buffers removal of every statement in contexts (or, with no
// arguments, every statement in every context).
func (c *Connection) Clear(ctx context.Context, contexts ...rdf.Resource) error {
	c.updateMu.Lock()
	defer c.updateMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkWritable(); err != nil {
		return err
	}
	up, err := c.ensureCurrentUpdateLocked()
	if err != nil {
		return err
	}
	if err := up.sink.Clear(contexts...); err != nil {
		return c.wrapIO(err)
	}
	return c.maybeAutoFlushLocked(ctx)
}

// SetNamespace buffers a namespace prefix binding.
func (c *Connection) SetNamespace(ctx context.Context, prefix, name string) error {
	c.updateMu.Lock()
	defer c.updateMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkWritable(); err != nil {
		return err
	}
	up, err := c.ensureCurrentUpdateLocked()
	if err != nil {
		return err
	}
	if err := up.sink.SetNamespace(prefix, name); err != nil {
		return c.wrapIO(err)
	}
	return c.maybeAutoFlushLocked(ctx)
}

// RemoveNamespace buffers removal of a namespace prefix binding.
func (c *Connection) RemoveNamespace(ctx context.Context, prefix string) error {
	c.updateMu.Lock()
	defer c.updateMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkWritable(); err != nil {
		return err
	}
	up, err := c.ensureCurrentUpdateLocked()
	if err != nil {
		return err
	}
	if err := up.sink.RemoveNamespace(prefix); err != nil {
		return c.wrapIO(err)
	}
	return c.maybeAutoFlushLocked(ctx)
}

// ensureCurrentUpdateLocked lazily creates the connection's unnamed
// buffered update, bound to the active transaction's explicit branch.
func (c *Connection) ensureCurrentUpdateLocked() (*updateState, error) {
	if c.currentUpdate != nil {
		return c.currentUpdate, nil
	}
	branch, err := c.writeBranchLocked()
	if err != nil {
		return nil, err
	}
	c.currentUpdate = newUpdateState(branch, c.writer.sinkFor(branch, c.txLevel))
	return c.currentUpdate, nil
}

func (c *Connection) ensureCurrentInferredUpdateLocked() (*updateState, error) {
	if c.currentInferredUpdate != nil {
		return c.currentInferredUpdate, nil
	}
	if c.inferredBranch == nil {
		return nil, errNoInferredSource
	}
	c.currentInferredUpdate = newUpdateState(c.inferredBranch, c.writer.sinkFor(c.inferredBranch, c.txLevel))
	return c.currentInferredUpdate, nil
}

// effectiveAutoFlushThreshold returns the buffered-write count that
// triggers an auto-flush. NONE runs with a threshold of 1: every
// single write ends and restarts the current update immediately,
// giving "writes apply with no batching, no deferred visibility"
// through the same branch/changeset machinery every other level uses,
// rather than a structurally distinct unbranched write path.
func (c *Connection) effectiveAutoFlushThreshold() int {
	if c.txLevel == isolation.None {
		return 1
	}
	if c.autoFlushBlockSize <= 0 {
		return defaultAutoFlushBlockSize
	}
	return c.autoFlushBlockSize
}

func (c *Connection) maybeAutoFlushLocked(ctx context.Context) error {
	c.bufferedCount++
	if c.bufferedCount < c.effectiveAutoFlushThreshold() {
		return nil
	}
	if err := c.flushCurrentUpdateLocked(ctx); err != nil {
		return err
	}
	metrics.AutoFlushesTotal.Inc()
	return nil
}

// flushCurrentUpdateLocked flushes and tears down both unnamed
// buffered updates (explicit and inferred), resetting the buffered
// write counter. Called both by auto-flush and by Commit, which must
// see its own buffered writes land before Prepare runs.
func (c *Connection) flushCurrentUpdateLocked(ctx context.Context) error {
	defer func() { c.bufferedCount = 0 }()

	if c.currentUpdate != nil {
		up := c.currentUpdate
		c.currentUpdate = nil
		err := up.sink.Flush(ctx)
		up.close()
		if err != nil {
			return c.wrapIO(err)
		}
	}
	if c.currentInferredUpdate != nil {
		up := c.currentInferredUpdate
		c.currentInferredUpdate = nil
		err := up.sink.Flush(ctx)
		up.close()
		if err != nil {
			return c.wrapIO(err)
		}
	}
	return nil
}

// addInferredStatement implements the idempotence protocol: s is
// approved into the inferred branch only if it is present in neither
// the explicit nor the inferred branch already, and listeners are
// notified exactly once when it is newly approved.
func (c *Connection) addInferredStatement(ctx context.Context, s rdf.Statement) (bool, error) {
	c.updateMu.Lock()
	defer c.updateMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkWritable(); err != nil {
		return false, err
	}
	if c.inferredBranch == nil {
		return false, errNoInferredSource
	}

	explicitView := dataset.New(c.explicitBranch, c.txLevel)
	alreadyExplicit, err := exists(explicitView, s)
	_ = explicitView.Close()
	if err != nil {
		return false, c.wrapIO(err)
	}
	if alreadyExplicit {
		return false, nil
	}

	inferredView := dataset.New(c.inferredBranch, c.txLevel)
	alreadyInferred, err := exists(inferredView, s)
	_ = inferredView.Close()
	if err != nil {
		return false, c.wrapIO(err)
	}
	if alreadyInferred {
		return false, nil
	}

	up, err := c.ensureCurrentInferredUpdateLocked()
	if err != nil {
		return false, err
	}
	if err := up.sink.Approve(s); err != nil {
		return false, c.wrapIO(err)
	}
	metrics.BufferedStatementsTotal.Inc()
	if err := c.maybeAutoFlushLocked(ctx); err != nil {
		return false, err
	}

	c.notifyInferred(s)
	return true, nil
}
