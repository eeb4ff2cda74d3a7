// Package rdfgraph provides an in-memory RDF graph over rdf-go terms with
// the lookups, label resolution, bounded descriptions and skolemization needed
// to post-process SHACL validation reports.
package rdfgraph

import (
	"github.com/geoknoesis/rdf-go/rdf"
)

// Graph is an insertion-ordered set of triples. It is not safe for
// concurrent mutation.
type Graph struct {
	triples []rdf.Triple
	seen    map[string]struct{}

	bySubject   map[string][]int
	byPredicate map[string][]int
	byObject    map[string][]int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		seen:        make(map[string]struct{}),
		bySubject:   make(map[string][]int),
		byPredicate: make(map[string][]int),
		byObject:    make(map[string][]int),
	}
}

// Key returns a stable identity string for a term. Two terms with equal keys
// are the same RDF term.
func Key(t rdf.Term) string {
	if t == nil {
		return ""
	}
	switch v := t.(type) {
	case rdf.IRI:
		return "<" + v.Value + ">"
	case rdf.BlankNode:
		return v.String()
	case rdf.Literal:
		return v.String()
	default:
		return t.String()
	}
}

func tripleKey(s rdf.Term, p rdf.IRI, o rdf.Term) string {
	return Key(s) + " " + Key(p) + " " + Key(o)
}

// Add inserts a triple. It reports false when the triple was already present
// or is incomplete.
func (g *Graph) Add(s rdf.Term, p rdf.IRI, o rdf.Term) bool {
	if s == nil || p.Value == "" || o == nil {
		return false
	}
	k := tripleKey(s, p, o)
	if _, ok := g.seen[k]; ok {
		return false
	}
	g.seen[k] = struct{}{}
	idx := len(g.triples)
	g.triples = append(g.triples, rdf.Triple{S: s, P: p, O: o})
	g.bySubject[Key(s)] = append(g.bySubject[Key(s)], idx)
	g.byPredicate[p.Value] = append(g.byPredicate[p.Value], idx)
	g.byObject[Key(o)] = append(g.byObject[Key(o)], idx)
	return true
}

// AddTriple inserts t.
func (g *Graph) AddTriple(t rdf.Triple) bool {
	return g.Add(t.S, t.P, t.O)
}

// Has reports whether the triple is in the graph.
func (g *Graph) Has(s rdf.Term, p rdf.IRI, o rdf.Term) bool {
	_, ok := g.seen[tripleKey(s, p, o)]
	return ok
}

// Len returns the number of triples.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.triples)
}

// Triples returns a copy of the triples in insertion order.
func (g *Graph) Triples() []rdf.Triple {
	out := make([]rdf.Triple, len(g.triples))
	copy(out, g.triples)
	return out
}

// Merge adds every triple of other to g.
func (g *Graph) Merge(other *Graph) {
	if other == nil {
		return
	}
	for _, t := range other.triples {
		g.AddTriple(t)
	}
}

// Clone returns an independent copy of g.
func (g *Graph) Clone() *Graph {
	out := New()
	out.Merge(g)
	return out
}

// Objects returns the objects of (s, p, ?) in insertion order.
func (g *Graph) Objects(s rdf.Term, p rdf.IRI) []rdf.Term {
	var out []rdf.Term
	for _, idx := range g.bySubject[Key(s)] {
		t := g.triples[idx]
		if t.P.Value == p.Value {
			out = append(out, t.O)
		}
	}
	return out
}

// Value returns the first object of (s, p, ?).
func (g *Graph) Value(s rdf.Term, p rdf.IRI) (rdf.Term, bool) {
	for _, idx := range g.bySubject[Key(s)] {
		t := g.triples[idx]
		if t.P.Value == p.Value {
			return t.O, true
		}
	}
	return nil, false
}

// Subjects returns the distinct subjects of (?, p, o) in insertion order.
func (g *Graph) Subjects(p rdf.IRI, o rdf.Term) []rdf.Term {
	var out []rdf.Term
	seen := make(map[string]struct{})
	for _, idx := range g.byObject[Key(o)] {
		t := g.triples[idx]
		if t.P.Value != p.Value {
			continue
		}
		k := Key(t.S)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t.S)
	}
	return out
}

// Subject returns the first subject of (?, p, o).
func (g *Graph) Subject(p rdf.IRI, o rdf.Term) (rdf.Term, bool) {
	subjects := g.Subjects(p, o)
	if len(subjects) == 0 {
		return nil, false
	}
	return subjects[0], true
}

// ObjectsOf returns the objects of (?, p, ?) in insertion order.
func (g *Graph) ObjectsOf(p rdf.IRI) []rdf.Term {
	var out []rdf.Term
	for _, idx := range g.byPredicate[p.Value] {
		out = append(out, g.triples[idx].O)
	}
	return out
}

// Outgoing returns the triples with subject s in insertion order.
func (g *Graph) Outgoing(s rdf.Term) []rdf.Triple {
	idxs := g.bySubject[Key(s)]
	out := make([]rdf.Triple, 0, len(idxs))
	for _, idx := range idxs {
		out = append(out, g.triples[idx])
	}
	return out
}

// IRI is shorthand for rdf.IRI{Value: v}.
func IRI(v string) rdf.IRI {
	return rdf.IRI{Value: v}
}

// Literal returns a plain literal.
func Literal(lexical string) rdf.Literal {
	return rdf.Literal{Lexical: lexical}
}

// TypedLiteral returns a literal with the given datatype IRI.
func TypedLiteral(lexical, datatype string) rdf.Literal {
	return rdf.Literal{Lexical: lexical, Datatype: rdf.IRI{Value: datatype}}
}

// IsIRI reports whether t is an IRI.
func IsIRI(t rdf.Term) bool {
	return t != nil && t.Kind() == rdf.TermIRI
}

// IsBlank reports whether t is a blank node.
func IsBlank(t rdf.Term) bool {
	return t != nil && t.Kind() == rdf.TermBlankNode
}

// IsLiteral reports whether t is a literal.
func IsLiteral(t rdf.Term) bool {
	return t != nil && t.Kind() == rdf.TermLiteral
}
