package dataset

import (
	"github.com/google/uuid"

	"github.com/quaddb/sail/pkg/rdf"
)

// TripleSource is the capability surface published to query
// evaluation over a dataset, per spec §4.7.
type TripleSource interface {
	// GetStatements returns a lazy sequence of statements matching the
	// given pattern components. contexts follows the three-state
	// convention documented on rdf.Pattern.Contexts.
	GetStatements(subj rdf.Resource, pred rdf.IRI, obj rdf.Value, contexts ...rdf.Resource) (Iterator[rdf.Statement], error)

	// ValueFactory returns a factory for constructing values scoped to
	// this dataset's parse/connection origin.
	ValueFactory() ValueFactory
}

// ValueFactory constructs rdf.Value instances, minting blank nodes
// scoped to one origin so that two blank nodes parsed within the same
// document or connection compare equal only to each other.
type ValueFactory struct {
	origin rdf.Origin
}

// NewValueFactory returns a factory with a fresh origin token.
func NewValueFactory() ValueFactory {
	return ValueFactory{origin: rdf.NewOrigin()}
}

func (f ValueFactory) CreateIRI(value string) rdf.IRI { return rdf.IRI(value) }

func (f ValueFactory) CreateBlankNode(id string) rdf.BlankNode {
	return rdf.BlankNode{ID: id, Origin: f.origin}
}

// CreateAnonBlankNode mints a blank node with a fresh, collision-free
// identifier within this factory's origin.
func (f ValueFactory) CreateAnonBlankNode() rdf.BlankNode {
	return rdf.BlankNode{ID: uuid.NewString(), Origin: f.origin}
}

func (f ValueFactory) CreateLiteral(lexical string) rdf.Literal {
	return rdf.Literal{Lexical: lexical}
}

func (f ValueFactory) CreateLangLiteral(lexical, lang string) rdf.Literal {
	return rdf.Literal{Lexical: lexical, Lang: lang}
}

func (f ValueFactory) CreateTypedLiteral(lexical string, datatype rdf.IRI) rdf.Literal {
	return rdf.Literal{Lexical: lexical, Datatype: datatype}
}

// tripleSource adapts a View to the TripleSource capability.
type tripleSource struct {
	view    *View
	factory ValueFactory
}

// NewTripleSource publishes view as a TripleSource.
func NewTripleSource(view *View) TripleSource {
	return &tripleSource{view: view, factory: NewValueFactory()}
}

func (t *tripleSource) GetStatements(subj rdf.Resource, pred rdf.IRI, obj rdf.Value, contexts ...rdf.Resource) (Iterator[rdf.Statement], error) {
	pattern := rdf.NewPattern(subj, pred, obj, contexts...)
	return t.view.Statements(pattern)
}

func (t *tripleSource) ValueFactory() ValueFactory { return t.factory }
