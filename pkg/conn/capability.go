package conn

import (
	"context"

	"github.com/quaddb/sail/pkg/dataset"
	"github.com/quaddb/sail/pkg/isolation"
	"github.com/quaddb/sail/pkg/rdf"
	"github.com/quaddb/sail/pkg/sink"
	"github.com/quaddb/sail/pkg/source"
)

// reader is the capability to produce a branch to read statements
// from, per the branch-selection algorithm in spec §4.6. release is
// non-nil only when the returned branch is owned by the caller (an
// ephemeral fork made just for this read) rather than a branch already
// held open by an active transaction.
type reader interface {
	branch(ctx context.Context, includeInferred bool) (explicit, inferred *source.Branch, release func() error, err error)
}

// writer is the capability to produce a sink bound to the connection's
// write target at a given isolation level.
type writer interface {
	sinkFor(branch *source.Branch, level isolation.Level) *sink.Sink
}

// inferencer is the capability to add inferred statements with the
// idempotence protocol spec §4.6 describes.
type inferencer interface {
	addInferred(ctx context.Context, s rdf.Statement) (bool, error)
}

// connReader adapts *Connection to reader. It is assembled once by New
// so Connection composes capabilities rather than subclassing them.
type connReader struct{ c *Connection }

func (r connReader) branch(ctx context.Context, includeInferred bool) (*source.Branch, *source.Branch, func() error, error) {
	return r.c.selectReadBranch(ctx, includeInferred)
}

type connWriter struct{ c *Connection }

func (w connWriter) sinkFor(branch *source.Branch, level isolation.Level) *sink.Sink {
	return sink.New(branch, level)
}

type connInferencer struct{ c *Connection }

func (n connInferencer) addInferred(ctx context.Context, s rdf.Statement) (bool, error) {
	return n.c.addInferredStatement(ctx, s)
}

// exists reports whether a statement is present in a view, draining
// and closing the pattern match iterator it builds.
func exists(view *dataset.View, s rdf.Statement) (bool, error) {
	pattern := rdf.NewPattern(s.Subject, s.Predicate, s.Object, s.Context)
	it, err := view.Statements(pattern)
	if err != nil {
		return false, err
	}
	defer it.Close()
	for {
		stmt, ok, err := it.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		if stmt.Equal(s) {
			return true, nil
		}
	}
}
