package rdf

import "testing"

func TestIRIEqual(t *testing.T) {
	a := IRI("https://example.org/picasso")
	b := IRI("https://example.org/picasso")
	c := IRI("https://example.org/rembrandt")

	if !a.Equal(b) {
		t.Fatalf("expected equal IRIs to be equal")
	}
	if a.Equal(c) {
		t.Fatalf("expected different IRIs to be unequal")
	}
}

func TestBlankNodeOriginScoping(t *testing.T) {
	origin1 := NewOrigin()
	origin2 := NewOrigin()

	b1 := BlankNode{ID: "b1", Origin: origin1}
	b2 := BlankNode{ID: "b1", Origin: origin1}
	b3 := BlankNode{ID: "b1", Origin: origin2}

	if !b1.Equal(b2) {
		t.Fatalf("same ID, same origin: expected equal")
	}
	if b1.Equal(b3) {
		t.Fatalf("same ID, different origin: expected unequal")
	}
}

func TestLiteralEqual(t *testing.T) {
	l1 := Literal{Lexical: "42", Datatype: IRI("xsd:integer")}
	l2 := Literal{Lexical: "42", Datatype: IRI("xsd:integer")}
	l3 := Literal{Lexical: "42", Lang: "en"}

	if !l1.Equal(l2) {
		t.Fatalf("expected equal literals to be equal")
	}
	if l1.Equal(l3) {
		t.Fatalf("expected literals with different lang/datatype to be unequal")
	}
}

func TestResourceEqualNilHandling(t *testing.T) {
	if !ResourceEqual(nil, nil) {
		t.Fatalf("two nil resources (default graph) should be equal")
	}
	if ResourceEqual(nil, IRI("https://example.org/g1")) {
		t.Fatalf("nil and non-nil resource should not be equal")
	}
}
