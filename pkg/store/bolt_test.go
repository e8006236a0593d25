package store

import (
	"testing"

	"github.com/quaddb/sail/pkg/changeset"
	"github.com/quaddb/sail/pkg/rdf"
)

func TestBoltApplyAndStatements(t *testing.T) {
	dir := t.TempDir()
	b, err := OpenBolt(dir)
	if err != nil {
		t.Fatalf("open bolt: %v", err)
	}
	defer b.Close()

	cs := changeset.New()
	cs.Approve(rdf.Statement{Subject: rdf.IRI("s1"), Predicate: rdf.IRI("p"), Object: rdf.IRI("o1")})
	if err := b.Apply(cs); err != nil {
		t.Fatalf("apply: %v", err)
	}

	it, err := b.Statements(rdf.NewPattern(nil, rdf.IRI("p"), nil))
	if err != nil {
		t.Fatalf("statements: %v", err)
	}
	out := drainStatements(t, it)
	if len(out) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(out))
	}
}

// TestBoltBoundSubjectScanIsExact exercises boltPrefixBound's cursor
// seek-and-walk, checking that a subject whose key is a literal prefix
// of another ("s1" vs "s10") never cross-matches.
func TestBoltBoundSubjectScanIsExact(t *testing.T) {
	dir := t.TempDir()
	b, err := OpenBolt(dir)
	if err != nil {
		t.Fatalf("open bolt: %v", err)
	}
	defer b.Close()

	cs := changeset.New()
	cs.Approve(rdf.Statement{Subject: rdf.IRI("s1"), Predicate: rdf.IRI("p"), Object: rdf.IRI("a")})
	cs.Approve(rdf.Statement{Subject: rdf.IRI("s1"), Predicate: rdf.IRI("p"), Object: rdf.IRI("b")})
	cs.Approve(rdf.Statement{Subject: rdf.IRI("s10"), Predicate: rdf.IRI("p"), Object: rdf.IRI("c")})
	cs.Approve(rdf.Statement{Subject: rdf.IRI("s2"), Predicate: rdf.IRI("p"), Object: rdf.IRI("d")})
	if err := b.Apply(cs); err != nil {
		t.Fatalf("apply: %v", err)
	}

	it, err := b.Statements(rdf.NewPattern(rdf.IRI("s1"), "", nil))
	if err != nil {
		t.Fatalf("statements: %v", err)
	}
	out := drainStatements(t, it)
	if len(out) != 2 {
		t.Fatalf("expected exactly 2 statements for subject s1, got %d: %v", len(out), out)
	}
	for _, s := range out {
		if !s.Subject.Equal(rdf.IRI("s1")) {
			t.Fatalf("expected every result to have subject s1, got %v", s)
		}
	}
}

func TestBoltNamespacesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	b, err := OpenBolt(dir)
	if err != nil {
		t.Fatalf("open bolt: %v", err)
	}
	defer b.Close()

	cs := changeset.New()
	cs.SetNamespace("ex", "https://example.org/")
	if err := b.Apply(cs); err != nil {
		t.Fatalf("apply: %v", err)
	}

	name, ok, err := b.Namespace("ex")
	if err != nil || !ok || name != "https://example.org/" {
		t.Fatalf("expected registered namespace, got %q ok=%v err=%v", name, ok, err)
	}
}

func TestBoltRoundTripsBlankNodesAndLiterals(t *testing.T) {
	dir := t.TempDir()
	b, err := OpenBolt(dir)
	if err != nil {
		t.Fatalf("open bolt: %v", err)
	}
	defer b.Close()

	origin := rdf.NewOrigin()
	bnode := rdf.BlankNode{ID: "n1", Origin: origin}
	lit := rdf.Literal{Lexical: "hello", Lang: "en", Datatype: rdf.IRI("https://example.org/str")}

	cs := changeset.New()
	cs.Approve(rdf.Statement{Subject: bnode, Predicate: rdf.IRI("p"), Object: lit, Context: bnode})
	if err := b.Apply(cs); err != nil {
		t.Fatalf("apply: %v", err)
	}

	it, err := b.Statements(rdf.NewPattern(nil, "", nil))
	if err != nil {
		t.Fatalf("statements: %v", err)
	}
	out := drainStatements(t, it)
	if len(out) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(out))
	}

	got := out[0]
	gotBnode, ok := got.Subject.(rdf.BlankNode)
	if !ok {
		t.Fatalf("expected subject to decode back to a BlankNode, got %T", got.Subject)
	}
	if !gotBnode.Equal(bnode) {
		t.Fatalf("blank node did not round-trip: got %+v, want %+v", gotBnode, bnode)
	}

	gotLit, ok := got.Object.(rdf.Literal)
	if !ok {
		t.Fatalf("expected object to decode back to a Literal, got %T", got.Object)
	}
	if !gotLit.Equal(lit) {
		t.Fatalf("literal did not round-trip: got %+v, want %+v", gotLit, lit)
	}

	gotCtx, ok := got.Context.(rdf.BlankNode)
	if !ok || !gotCtx.Equal(bnode) {
		t.Fatalf("context blank node did not round-trip: got %+v", got.Context)
	}
}

func TestBoltDeprecationRemovesStatement(t *testing.T) {
	dir := t.TempDir()
	b, err := OpenBolt(dir)
	if err != nil {
		t.Fatalf("open bolt: %v", err)
	}
	defer b.Close()

	s := rdf.Statement{Subject: rdf.IRI("s1"), Predicate: rdf.IRI("p"), Object: rdf.IRI("o1")}
	add := changeset.New()
	add.Approve(s)
	if err := b.Apply(add); err != nil {
		t.Fatalf("apply: %v", err)
	}

	remove := changeset.New()
	remove.Deprecate(s)
	if err := b.Apply(remove); err != nil {
		t.Fatalf("apply: %v", err)
	}

	it, _ := b.Statements(rdf.NewPattern(nil, "", nil))
	out := drainStatements(t, it)
	if len(out) != 0 {
		t.Fatalf("expected statement removed, found %d", len(out))
	}
}
