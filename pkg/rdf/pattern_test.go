package rdf

import "testing"

func stmt(s, p, o string, ctx Resource) Statement {
	return Statement{
		Subject:   IRI(s),
		Predicate: IRI(p),
		Object:    IRI(o),
		Context:   ctx,
	}
}

func TestPatternWildcardMatchesEverything(t *testing.T) {
	p := Pattern{}
	if !p.IsWildcard() {
		t.Fatalf("zero-value Pattern should be a wildcard")
	}
	if !p.Matches(stmt("s", "p", "o", IRI("g"))) {
		t.Fatalf("wildcard pattern should match any statement")
	}
}

func TestPatternBoundPredicate(t *testing.T) {
	p := NewPattern(nil, IRI("rdf:type"), nil)
	if !p.Matches(stmt("s1", "rdf:type", "Painter", nil)) {
		t.Fatalf("expected match on bound predicate")
	}
	if p.Matches(stmt("s1", "rdf:other", "Painter", nil)) {
		t.Fatalf("expected no match for differing predicate")
	}
}

func TestPatternContextsNilMeansAllGraphs(t *testing.T) {
	p := NewPattern(nil, "", nil) // Contexts left nil
	if !p.MatchesContext(nil) {
		t.Fatalf("nil Contexts should match default graph")
	}
	if !p.MatchesContext(IRI("g1")) {
		t.Fatalf("nil Contexts should match named graph")
	}
}

func TestPatternContextsEmptyMeansDefaultGraphOnly(t *testing.T) {
	p := Pattern{Contexts: []Resource{}}
	if !p.MatchesContext(nil) {
		t.Fatalf("empty non-nil Contexts should match default graph")
	}
	if p.MatchesContext(IRI("g1")) {
		t.Fatalf("empty non-nil Contexts should not match named graph")
	}
}

func TestPatternContextsOrSemantics(t *testing.T) {
	p := Pattern{Contexts: []Resource{IRI("g1"), IRI("g2")}}
	if !p.MatchesContext(IRI("g1")) || !p.MatchesContext(IRI("g2")) {
		t.Fatalf("expected match against either listed context")
	}
	if p.MatchesContext(IRI("g3")) {
		t.Fatalf("expected no match against unlisted context")
	}
	if p.MatchesContext(nil) {
		t.Fatalf("expected no match against default graph when only named contexts listed")
	}
}
