package sink

import (
	"context"
	"testing"

	"github.com/quaddb/sail/pkg/isolation"
	"github.com/quaddb/sail/pkg/rdf"
	"github.com/quaddb/sail/pkg/sailerr"
	"github.com/quaddb/sail/pkg/source"
	"github.com/quaddb/sail/pkg/store"
)

func stmt(s, p, o string) rdf.Statement {
	return rdf.Statement{Subject: rdf.IRI(s), Predicate: rdf.IRI(p), Object: rdf.IRI(o)}
}

func TestSinkApproveThenFlush(t *testing.T) {
	mem := store.NewMemory()
	arena := source.NewArena()
	branch := source.Root(arena, mem)
	sk := New(branch, isolation.ReadCommitted)

	if err := sk.Approve(stmt("s", "p", "o")); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if err := sk.Flush(context.Background()); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	it, _ := mem.Statements(rdf.NewPattern(nil, "", nil))
	defer it.Close()
	count := 0
	for {
		_, ok, _ := it.Next()
		if !ok {
			break
		}
		count++
	}
	if count != 1 {
		t.Fatalf("expected 1 flushed statement, got %d", count)
	}
}

func TestSinkFlushTwiceIsIdempotent(t *testing.T) {
	arena := source.NewArena()
	branch := source.Root(arena, store.NewMemory())
	sk := New(branch, isolation.ReadCommitted)

	if err := sk.Flush(context.Background()); err != nil {
		t.Fatalf("first flush failed: %v", err)
	}
	if err := sk.Flush(context.Background()); err != nil {
		t.Fatalf("second flush on empty change-set should be idempotent, got: %v", err)
	}
}

func TestSinkOperationsFailAfterClose(t *testing.T) {
	arena := source.NewArena()
	branch := source.Root(arena, store.NewMemory())
	sk := New(branch, isolation.ReadCommitted)
	if err := sk.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if err := sk.Approve(stmt("s", "p", "o")); err == nil || !sailerr.IsUsage(err) {
		t.Fatalf("expected a usage error approving into a closed sink, got %v", err)
	}
}

func TestSinkObserveOnlyRecordedUnderSerializable(t *testing.T) {
	arena := source.NewArena()
	branch := source.Root(arena, store.NewMemory())

	readCommitted := New(branch, isolation.ReadCommitted)
	_ = readCommitted.Observe(rdf.NewPattern(rdf.IRI("s"), "", nil))
	if len(branch.Pending().Observations()) != 0 {
		t.Fatalf("expected no observation recorded below SERIALIZABLE")
	}

	serializable := New(branch, isolation.Serializable)
	_ = serializable.Observe(rdf.NewPattern(rdf.IRI("s"), "", nil))
	if len(branch.Pending().Observations()) != 1 {
		t.Fatalf("expected one observation recorded at SERIALIZABLE")
	}
}
