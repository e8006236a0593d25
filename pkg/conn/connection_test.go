package conn

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/quaddb/sail/pkg/isolation"
	"github.com/quaddb/sail/pkg/leakcheck"
	"github.com/quaddb/sail/pkg/rdf"
	"github.com/quaddb/sail/pkg/sailconfig"
	"github.com/quaddb/sail/pkg/sailerr"
	"github.com/quaddb/sail/pkg/store"
)

func stmt(s, p, o string) rdf.Statement {
	return rdf.Statement{Subject: rdf.IRI(s), Predicate: rdf.IRI(p), Object: rdf.IRI(o)}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st := Open(store.NewMemory(), store.NewMemory(), sailconfig.Default(), nil)
	t.Cleanup(func() { st.Close() })
	return st
}

func countPattern(t *testing.T, c *Connection, includeInferred bool) int {
	t.Helper()
	it, err := c.Statements(context.Background(), rdf.NewPattern(nil, "", nil), includeInferred)
	if err != nil {
		t.Fatalf("Statements failed: %v", err)
	}
	defer it.Close()
	n := 0
	for {
		_, ok, err := it.Next()
		if err != nil {
			t.Fatalf("iteration failed: %v", err)
		}
		if !ok {
			break
		}
		n++
	}
	return n
}

// TestIndependentCommitsAcrossConnections covers spec §8 S1: two
// connections over the same store commit independent writes, and each
// becomes visible to new reads only after its own commit.
func TestIndependentCommitsAcrossConnections(t *testing.T) {
	st := newTestStore(t)

	c1 := st.Connection()
	c2 := st.Connection()
	defer c1.Close()
	defer c2.Close()

	if err := c1.Begin(isolation.ReadCommitted); err != nil {
		t.Fatalf("begin c1: %v", err)
	}
	if err := c1.AddStatement(context.Background(), stmt("a", "p", "o")); err != nil {
		t.Fatalf("add c1: %v", err)
	}
	if err := c1.Commit(context.Background()); err != nil {
		t.Fatalf("commit c1: %v", err)
	}

	if err := c2.Begin(isolation.ReadCommitted); err != nil {
		t.Fatalf("begin c2: %v", err)
	}
	if err := c2.AddStatement(context.Background(), stmt("b", "p", "o")); err != nil {
		t.Fatalf("add c2: %v", err)
	}
	if n := countPattern(t, c2, false); n != 2 {
		t.Fatalf("expected c2 to see c1's earlier commit plus its own pending write before commit, got %d", n)
	}
	if err := c2.Commit(context.Background()); err != nil {
		t.Fatalf("commit c2: %v", err)
	}

	c3 := st.Connection()
	defer c3.Close()
	if n := countPattern(t, c3, false); n != 2 {
		t.Fatalf("expected a fresh connection to see both committed statements, got %d", n)
	}
}

// TestSerializableWriteConflict covers spec §8 S2: a SERIALIZABLE
// transaction that observed a pattern must fail to commit if a
// concurrent transaction committed a change matching that pattern
// first.
func TestSerializableWriteConflict(t *testing.T) {
	st := newTestStore(t)

	c1 := st.Connection()
	c2 := st.Connection()
	defer c1.Close()
	defer c2.Close()

	if err := c1.Begin(isolation.Serializable); err != nil {
		t.Fatalf("begin c1: %v", err)
	}
	if err := c2.Begin(isolation.Serializable); err != nil {
		t.Fatalf("begin c2: %v", err)
	}

	if _, err := c1.Statements(context.Background(), rdf.NewPattern(rdf.IRI("a"), "", nil), false); err != nil {
		t.Fatalf("observe read c1: %v", err)
	}

	if err := c2.AddStatement(context.Background(), stmt("a", "p", "o")); err != nil {
		t.Fatalf("add c2: %v", err)
	}
	if err := c2.Commit(context.Background()); err != nil {
		t.Fatalf("commit c2: %v", err)
	}

	if err := c1.AddStatement(context.Background(), stmt("x", "p", "o")); err != nil {
		t.Fatalf("add c1: %v", err)
	}
	err := c1.Commit(context.Background())
	if err == nil {
		t.Fatalf("expected c1's commit to fail on write-skew conflict")
	}
	if !sailerr.IsConflict(err) {
		t.Fatalf("expected a conflict-classed error, got %v", err)
	}
}

// TestSerializableSurvivesPriorStoreHistory guards against a
// regression where a SERIALIZABLE transaction beginning well after the
// store already has committed history would spuriously conflict on
// its first commit, because Prepare checked the parent's entire
// prepend list instead of only commits made after this transaction's
// connection forked.
func TestSerializableSurvivesPriorStoreHistory(t *testing.T) {
	st := newTestStore(t)

	// Build up unrelated history on the shared root branch before the
	// transaction under test ever begins.
	for i := 0; i < 5; i++ {
		warmup := st.Connection()
		if err := warmup.Begin(isolation.ReadCommitted); err != nil {
			t.Fatalf("begin warmup %d: %v", i, err)
		}
		if err := warmup.AddStatement(context.Background(), stmt("old", "p", rdf.IRI(string(rune('a'+i))).String())); err != nil {
			t.Fatalf("add warmup %d: %v", i, err)
		}
		if err := warmup.Commit(context.Background()); err != nil {
			t.Fatalf("commit warmup %d: %v", i, err)
		}
		if err := warmup.Close(); err != nil {
			t.Fatalf("close warmup %d: %v", i, err)
		}
	}

	c := st.Connection()
	defer c.Close()

	if err := c.Begin(isolation.Serializable); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := c.Statements(context.Background(), rdf.NewPattern(rdf.IRI("new"), "", nil), false); err != nil {
		t.Fatalf("observe read: %v", err)
	}
	if err := c.AddStatement(context.Background(), stmt("new", "p", "o")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.Commit(context.Background()); err != nil {
		t.Fatalf("expected commit disjoint from pre-existing history to succeed, got %v", err)
	}
}

// TestAddInferredStatementIdempotence covers spec §8 S3: adding the
// same inferred fact twice approves it once and notifies listeners
// exactly once; a fact already explicit is never duplicated into the
// inferred branch.
func TestAddInferredStatementIdempotence(t *testing.T) {
	st := newTestStore(t)
	c := st.Connection()
	defer c.Close()

	var mu sync.Mutex
	notified := 0
	c.AddListener(ListenerFunc(func(s rdf.Statement) {
		mu.Lock()
		notified++
		mu.Unlock()
	}))

	if err := c.Begin(isolation.ReadCommitted); err != nil {
		t.Fatalf("begin: %v", err)
	}

	s := stmt("a", "p", "o")
	added, err := c.addInferredStatement(context.Background(), s)
	if err != nil {
		t.Fatalf("add inferred: %v", err)
	}
	if !added {
		t.Fatalf("expected first addInferredStatement to report newly added")
	}

	added, err = c.addInferredStatement(context.Background(), s)
	if err != nil {
		t.Fatalf("add inferred again: %v", err)
	}
	if added {
		t.Fatalf("expected second addInferredStatement to be a no-op")
	}

	if err := c.AddStatement(context.Background(), stmt("b", "p", "o")); err != nil {
		t.Fatalf("add explicit: %v", err)
	}
	added, err = c.addInferredStatement(context.Background(), stmt("b", "p", "o"))
	if err != nil {
		t.Fatalf("add inferred matching explicit: %v", err)
	}
	if added {
		t.Fatalf("expected addInferredStatement to decline a fact already explicit")
	}

	mu.Lock()
	got := notified
	mu.Unlock()
	if got != 1 {
		t.Fatalf("expected exactly one notification, got %d", got)
	}
}

// TestClearContextSemantics covers spec §8 S4: Clear with a context
// argument removes only that context's statements.
func TestClearContextSemantics(t *testing.T) {
	st := newTestStore(t)
	c := st.Connection()
	defer c.Close()

	if err := c.Begin(isolation.ReadCommitted); err != nil {
		t.Fatalf("begin: %v", err)
	}
	g1 := rdf.IRI("g1")
	g2 := rdf.IRI("g2")
	if err := c.AddStatement(context.Background(), rdf.Statement{Subject: rdf.IRI("a"), Predicate: rdf.IRI("p"), Object: rdf.IRI("o"), Context: g1}); err != nil {
		t.Fatalf("add g1: %v", err)
	}
	if err := c.AddStatement(context.Background(), rdf.Statement{Subject: rdf.IRI("b"), Predicate: rdf.IRI("p"), Object: rdf.IRI("o"), Context: g2}); err != nil {
		t.Fatalf("add g2: %v", err)
	}
	if err := c.Clear(context.Background(), g1); err != nil {
		t.Fatalf("clear g1: %v", err)
	}
	if err := c.Commit(context.Background()); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if n := countPattern(t, c, false); n != 1 {
		t.Fatalf("expected only g2's statement to survive Clear(g1), got %d", n)
	}
}

// TestSnapshotRepeatableRead covers spec §8 S5: a SNAPSHOT read does
// not observe a sibling commit made after the snapshot was taken.
func TestSnapshotRepeatableRead(t *testing.T) {
	st := newTestStore(t)

	reader := st.Connection()
	writer := st.Connection()
	defer reader.Close()
	defer writer.Close()

	if err := reader.Begin(isolation.Snapshot); err != nil {
		t.Fatalf("begin reader: %v", err)
	}
	it, err := reader.Statements(context.Background(), rdf.NewPattern(nil, "", nil), false)
	if err != nil {
		t.Fatalf("initial read: %v", err)
	}
	it.Close()

	if err := writer.Begin(isolation.ReadCommitted); err != nil {
		t.Fatalf("begin writer: %v", err)
	}
	if err := writer.AddStatement(context.Background(), stmt("a", "p", "o")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := writer.Commit(context.Background()); err != nil {
		t.Fatalf("commit writer: %v", err)
	}

	if n := countPattern(t, reader, false); n != 0 {
		t.Fatalf("expected SNAPSHOT reader not to observe the writer's later commit, got %d", n)
	}
}

// TestCloseForceClosesAbandonedIterators covers spec §8 S6: closing a
// connection force-closes any iterator the caller never closed itself,
// and the leak tracker reflects the cleanup.
func TestCloseForceClosesAbandonedIterators(t *testing.T) {
	tracker := leakcheck.New(false, 0, 0, zerolog.Nop())
	st := Open(store.NewMemory(), store.NewMemory(), sailconfig.Default(), tracker)
	t.Cleanup(func() { st.Close() })
	c := st.Connection()

	if _, err := c.Statements(context.Background(), rdf.NewPattern(nil, "", nil), false); err != nil {
		t.Fatalf("statements: %v", err)
	}
	if got := tracker.Live(); got != 1 {
		t.Fatalf("expected one tracked iterator before close, got %d", got)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := tracker.Live(); got != 0 {
		t.Fatalf("expected Close to release the abandoned iterator, got %d live", got)
	}
}

func TestWriteWithoutActiveTransactionFails(t *testing.T) {
	st := newTestStore(t)
	c := st.Connection()
	defer c.Close()

	err := c.AddStatement(context.Background(), stmt("a", "p", "o"))
	if !sailerr.IsUsage(err) {
		t.Fatalf("expected a usage error writing without an active transaction, got %v", err)
	}
}

func TestDoubleBeginFails(t *testing.T) {
	st := newTestStore(t)
	c := st.Connection()
	defer c.Close()

	if err := c.Begin(isolation.ReadCommitted); err != nil {
		t.Fatalf("first begin: %v", err)
	}
	if err := c.Begin(isolation.ReadCommitted); err == nil {
		t.Fatalf("expected second begin to fail while a transaction is active")
	}
}

func TestCloseWithActiveTransactionRollsBackImplicitly(t *testing.T) {
	st := newTestStore(t)
	c := st.Connection()

	if err := c.Begin(isolation.ReadCommitted); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := c.AddStatement(context.Background(), stmt("a", "p", "o")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	c2 := st.Connection()
	defer c2.Close()
	if n := countPattern(t, c2, false); n != 0 {
		t.Fatalf("expected implicit rollback to discard the uncommitted write, got %d statements", n)
	}
}
