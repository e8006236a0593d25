package rdf

import (
	"fmt"

	"github.com/google/uuid"
)

// Value is an RDF term: an IRI, a blank node, or a literal.
//
// Value is a closed sum type: the only implementations are IRI,
// BlankNode and Literal. Callers type-switch on the concrete type
// rather than adding new implementations.
type Value interface {
	isValue()
	// Equal reports whether other denotes the same RDF term.
	Equal(other Value) bool
	String() string
}

// Resource is a Value that may appear as a subject or a graph name:
// an IRI or a BlankNode, never a Literal.
type Resource interface {
	Value
	isResource()
}

// IRI is an internationalized resource identifier. Equality is by
// string per spec.
type IRI string

func (IRI) isValue()    {}
func (IRI) isResource() {}

// Equal reports whether other is an IRI with the same string value.
func (i IRI) Equal(other Value) bool {
	o, ok := other.(IRI)
	return ok && i == o
}

func (i IRI) String() string { return string(i) }

// BlankNode is an anonymous resource. Its identity is the pair
// (ID, Origin): two blank nodes with the same ID minted in different
// origins (different parses, different connections) are not equal,
// per spec.md §3.
type BlankNode struct {
	ID     string
	Origin Origin
}

// Origin scopes a blank node identifier to the document or session
// that minted it. The zero Origin is a valid scope distinct from any
// non-zero Origin; two blank nodes with a zero Origin are only equal
// to each other when BlankNode.ID also matches, i.e. the zero Origin
// behaves like any other fixed scope rather than as a wildcard.
type Origin uuid.UUID

// NewOrigin mints a fresh, universally unique origin scope, used to
// tag every blank node produced by one parse or one connection.
func NewOrigin() Origin {
	return Origin(uuid.New())
}

func (BlankNode) isValue()    {}
func (BlankNode) isResource() {}

// Equal reports whether other is a BlankNode with the same ID and the
// same Origin.
func (b BlankNode) Equal(other Value) bool {
	o, ok := other.(BlankNode)
	return ok && b.ID == o.ID && b.Origin == o.Origin
}

func (b BlankNode) String() string { return fmt.Sprintf("_:%s", b.ID) }

// Literal is a typed or language-tagged RDF literal.
type Literal struct {
	Lexical  string
	Lang     string // optional; "" if absent
	Datatype IRI    // optional; "" if absent (implies xsd:string semantics upstream)
}

func (Literal) isValue() {}

// Equal reports whether other is a Literal with the same lexical
// form, language tag and datatype.
func (l Literal) Equal(other Value) bool {
	o, ok := other.(Literal)
	return ok && l.Lexical == o.Lexical && l.Lang == o.Lang && l.Datatype == o.Datatype
}

func (l Literal) String() string {
	switch {
	case l.Lang != "":
		return fmt.Sprintf("%q@%s", l.Lexical, l.Lang)
	case l.Datatype != "":
		return fmt.Sprintf("%q^^%s", l.Lexical, l.Datatype)
	default:
		return fmt.Sprintf("%q", l.Lexical)
	}
}

// ResourceEqual reports whether two (possibly nil) resources are
// equal, treating nil as the unnamed default graph: two nils are
// equal, a nil and a non-nil resource are not.
func ResourceEqual(a, b Resource) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}
