package rdf

// Pattern is a statement-matching shape: each of Subject, Predicate
// and Object may be left nil/"" to mean "unbound" (matches any
// value), and Contexts is a variadic graph filter.
//
// Contexts has three states, matching spec.md §6's "empty-length
// distinguished from wildcard":
//   - nil (the zero value): unconstrained — matches statements in any
//     graph, named or default.
//   - non-nil and empty ([]Resource{}): matches only the unnamed
//     default graph.
//   - non-nil and non-empty: matches a statement if its context equals
//     any entry (a nil entry within the slice denotes the default
//     graph), i.e. the entries are OR'd together.
type Pattern struct {
	Subject   Resource
	Bound     BoundMask
	Predicate IRI
	Object    Value
	Contexts  []Resource
}

// BoundMask records which of Subject/Predicate/Object are bound,
// distinguishing "unbound" from the zero value of a bound field (an
// IRI("") predicate is never valid RDF, but a blank Pattern also sets
// Predicate to "" — the mask disambiguates intent when callers build
// patterns programmatically rather than with the constructors below).
type BoundMask uint8

const (
	BoundSubject BoundMask = 1 << iota
	BoundPredicate
	BoundObject
)

// NewPattern builds a Pattern from optional components; pass nil for
// an unbound Subject/Object and "" for an unbound Predicate.
func NewPattern(subject Resource, predicate IRI, object Value, contexts ...Resource) Pattern {
	var mask BoundMask
	if subject != nil {
		mask |= BoundSubject
	}
	if predicate != "" {
		mask |= BoundPredicate
	}
	if object != nil {
		mask |= BoundObject
	}
	return Pattern{
		Subject:   subject,
		Bound:     mask,
		Predicate: predicate,
		Object:    object,
		Contexts:  contexts,
	}
}

// Matches reports whether s satisfies p.
func (p Pattern) Matches(s Statement) bool {
	if p.Bound&BoundSubject != 0 && !ResourceEqual(p.Subject, s.Subject) {
		return false
	}
	if p.Bound&BoundPredicate != 0 && p.Predicate != s.Predicate {
		return false
	}
	if p.Bound&BoundObject != 0 && !valueOrNilEqual(p.Object, s.Object) {
		return false
	}
	return p.MatchesContext(s.Context)
}

// MatchesContext applies just the Contexts filter of p to ctx.
func (p Pattern) MatchesContext(ctx Resource) bool {
	if p.Contexts == nil {
		return true
	}
	if len(p.Contexts) == 0 {
		return ctx == nil
	}
	for _, c := range p.Contexts {
		if ResourceEqual(c, ctx) {
			return true
		}
	}
	return false
}

// IsWildcard reports whether p matches every statement regardless of
// graph (no subject/predicate/object bound and Contexts is nil).
func (p Pattern) IsWildcard() bool {
	return p.Bound == 0 && p.Contexts == nil
}
