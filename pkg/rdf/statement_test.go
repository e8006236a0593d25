package rdf

import "testing"

func TestStatementEqual(t *testing.T) {
	a := Statement{Subject: IRI("s"), Predicate: IRI("p"), Object: IRI("o")}
	b := Statement{Subject: IRI("s"), Predicate: IRI("p"), Object: IRI("o")}
	c := Statement{Subject: IRI("s"), Predicate: IRI("p"), Object: IRI("o"), Context: IRI("g")}

	if !a.Equal(b) {
		t.Fatalf("expected identical statements to be equal")
	}
	if a.Equal(c) {
		t.Fatalf("expected statements with differing context to be unequal")
	}
}

func TestStatementKeyDeduplication(t *testing.T) {
	a := Statement{Subject: IRI("s"), Predicate: IRI("p"), Object: IRI("o")}
	b := Statement{Subject: IRI("s"), Predicate: IRI("p"), Object: IRI("o")}
	if a.Key() != b.Key() {
		t.Fatalf("expected equal statements to produce equal keys")
	}

	seen := map[StatementKey]struct{}{}
	seen[a.Key()] = struct{}{}
	if _, ok := seen[b.Key()]; !ok {
		t.Fatalf("expected b's key to collide with a's in a de-duplication set")
	}

	c := Statement{Subject: IRI("s"), Predicate: IRI("p"), Object: IRI("o"), Context: IRI("g")}
	if a.Key() == c.Key() {
		t.Fatalf("expected differing context to produce a distinct key")
	}
}

func TestStatementKeyDistinguishesBlankNodeOrigins(t *testing.T) {
	o1 := NewOrigin()
	o2 := NewOrigin()
	a := Statement{Subject: BlankNode{ID: "x", Origin: o1}, Predicate: IRI("p"), Object: IRI("o")}
	b := Statement{Subject: BlankNode{ID: "x", Origin: o2}, Predicate: IRI("p"), Object: IRI("o")}
	if a.Key() == b.Key() {
		t.Fatalf("expected blank nodes with differing origins to produce distinct keys")
	}
}

func TestStatementStringDefaultGraph(t *testing.T) {
	s := Statement{Subject: IRI("s"), Predicate: IRI("p"), Object: IRI("o")}
	if got := s.String(); got == "" {
		t.Fatalf("expected non-empty string representation")
	}
}
