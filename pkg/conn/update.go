package conn

import (
	"github.com/google/uuid"

	"github.com/quaddb/sail/pkg/sink"
	"github.com/quaddb/sail/pkg/source"
)

// UpdateContext is an opaque handle naming one in-progress update
// operation, so that a single multi-clause update sees a consistent
// snapshot across its own reads and writes, per spec §4.6.
type UpdateContext uuid.UUID

func newUpdateContext() UpdateContext {
	return UpdateContext(uuid.New())
}

// updateState pairs the branch an update writes into with the sink
// bound to it. It is held by the connection's updates registry and by
// currentUpdate for buffered (context-less) writes.
type updateState struct {
	branch *source.Branch
	sink   *sink.Sink
}

func newUpdateState(branch *source.Branch, sk *sink.Sink) *updateState {
	return &updateState{branch: branch, sink: sk}
}

func (u *updateState) close() {
	_ = u.sink.Close()
}

// BeginUpdate opens a named update context bound to the connection's
// active transaction branch and registers a sink for it under the
// returned handle. It fails with a usage error when no transaction is
// active. The handle names the context only for EndUpdate; AddStatement,
// RemoveStatement and the read methods do not take it.
func (c *Connection) BeginUpdate() (UpdateContext, error) {
	c.updateMu.Lock()
	defer c.updateMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Closed {
		return UpdateContext{}, errClosed
	}

	branch, err := c.writeBranchLocked()
	if err != nil {
		return UpdateContext{}, err
	}

	handle := newUpdateContext()
	c.updates[handle] = newUpdateState(branch, c.writer.sinkFor(branch, c.txLevel))
	return handle, nil
}

// EndUpdate releases the update context's sink without flushing it;
// staged changes stay in the transaction branch until Commit.
func (c *Connection) EndUpdate(handle UpdateContext) error {
	c.updateMu.Lock()
	defer c.updateMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()

	up, ok := c.updates[handle]
	if !ok {
		return errUnknownUpdateCtx
	}
	delete(c.updates, handle)
	up.close()
	return nil
}

// writeBranchLocked returns the branch writes should target: the
// active transaction's explicit branch. Callers must hold c.mu.
func (c *Connection) writeBranchLocked() (*source.Branch, error) {
	if c.state != Active {
		return nil, errWriteWithoutTx
	}
	return c.explicitBranch, nil
}
