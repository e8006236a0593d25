// Package rdf defines the core RDF data model shared by every layer of
// the store: values (IRI, BlankNode, Literal), statements (quads) and
// namespaces.
//
// Value is a closed sum type rather than an interface{} bag, so that
// equality and pattern matching are total functions instead of
// runtime type assertions scattered across the codebase. Statement
// and Pattern share one matching algorithm (Pattern.Matches), used by
// change-set conflict detection, dataset merge and the TripleSource
// surface alike.
package rdf
