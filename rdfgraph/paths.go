package rdfgraph

import (
	"github.com/geoknoesis/rdf-go/rdf"
)

// Path is a sequence property path. A single-element path is a plain
// predicate.
type Path []rdf.IRI

// P builds a single-predicate path.
func P(iri string) Path {
	return Path{IRI(iri)}
}

// Seq builds a sequence path from predicate IRIs.
func Seq(iris ...string) Path {
	p := make(Path, len(iris))
	for i, v := range iris {
		p[i] = IRI(v)
	}
	return p
}

// String renders the path as IRIs joined by "/".
func (p Path) String() string {
	out := ""
	for i, step := range p {
		if i > 0 {
			out += "/"
		}
		out += "<" + step.Value + ">"
	}
	return out
}

// PathObjects follows path from s and returns the reached nodes in
// traversal order without duplicates.
func (g *Graph) PathObjects(s rdf.Term, path Path) []rdf.Term {
	current := []rdf.Term{s}
	for _, step := range path {
		var next []rdf.Term
		seen := make(map[string]struct{})
		for _, node := range current {
			for _, o := range g.Objects(node, step) {
				k := Key(o)
				if _, ok := seen[k]; ok {
					continue
				}
				seen[k] = struct{}{}
				next = append(next, o)
			}
		}
		current = next
		if len(current) == 0 {
			return nil
		}
	}
	return current
}
