package rdf

import "fmt"

// Statement is an RDF quad: subject, predicate, object and an optional
// context (named graph). A nil Context denotes the unnamed default
// graph. Statements are value objects: equal iff all four fields are
// equal.
type Statement struct {
	Subject   Resource
	Predicate IRI
	Object    Value
	Context   Resource
}

// Equal reports whether s and other have equal subject, predicate,
// object and context.
func (s Statement) Equal(other Statement) bool {
	return ResourceEqual(s.Subject, other.Subject) &&
		s.Predicate == other.Predicate &&
		valueOrNilEqual(s.Object, other.Object) &&
		ResourceEqual(s.Context, other.Context)
}

func valueOrNilEqual(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}

func (s Statement) String() string {
	ctx := "(default)"
	if s.Context != nil {
		ctx = s.Context.String()
	}
	return fmt.Sprintf("%s %s %s [%s]", s.Subject, s.Predicate, s.Object, ctx)
}

// Key returns a value usable as a map key that uniquely identifies
// the statement's 4-tuple identity, used for de-duplication during
// dataset merges (spec.md §4.4 step 5).
func (s Statement) Key() StatementKey {
	return StatementKey{
		Subject:   termKey(s.Subject),
		Predicate: string(s.Predicate),
		Object:    termKey(s.Object),
		Context:   termKey(s.Context),
	}
}

// StatementKey is a comparable projection of a Statement, suitable as
// a Go map key.
type StatementKey struct {
	Subject   string
	Predicate string
	Object    string
	Context   string
}

func termKey(v Value) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case IRI:
		return "I" + string(t)
	case BlankNode:
		return fmt.Sprintf("B%s\x00%x", t.ID, t.Origin)
	case Literal:
		return fmt.Sprintf("L%s\x00%s\x00%s", t.Lexical, t.Lang, t.Datatype)
	default:
		return "?" + v.String()
	}
}
