package rdfgraph

import (
	"context"
	"fmt"
	"strings"

	"github.com/geoknoesis/rdf-go/rdf"
	"github.com/google/uuid"
)

// DefaultSkolemBase is the IRI prefix for skolem IRIs when no base path is
// given.
const DefaultSkolemBase = "https://rdflib.github.io/.well-known/genid/rdflib/"

// CBD returns the concise bounded description of node: all outgoing triples,
// followed transitively through blank node objects.
func (g *Graph) CBD(node rdf.Term) *Graph {
	out := New()
	visited := make(map[string]struct{})
	queue := []rdf.Term{node}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		k := Key(current)
		if _, ok := visited[k]; ok {
			continue
		}
		visited[k] = struct{}{}
		for _, t := range g.Outgoing(current) {
			out.AddTriple(t)
			if IsBlank(t.O) {
				queue = append(queue, t.O)
			}
		}
	}
	return out
}

// CBDTurtle renders the concise bounded description of node as Turtle,
// keeping at most maxLines lines. Truncated output ends with "\n...".
func (g *Graph) CBDTurtle(ctx context.Context, node rdf.Term, prefixes map[string]string, maxLines int) (string, error) {
	var sb strings.Builder
	if err := g.CBD(node).SerializeTurtle(ctx, &sb, prefixes); err != nil {
		return "", fmt.Errorf("render description of %s: %w", node, err)
	}
	text := sb.String()
	if maxLines <= 0 {
		return text, nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > maxLines {
		return strings.Join(lines[:maxLines], "\n") + "\n...", nil
	}
	return text, nil
}

// Skolemize returns a copy of g in which every blank node is replaced by an
// IRI made of basePath and a fresh identifier. The returned map is keyed by
// the original blank node identifier.
func (g *Graph) Skolemize(basePath string) (*Graph, map[string]rdf.IRI) {
	if basePath == "" {
		basePath = DefaultSkolemBase
	}
	mapping := make(map[string]rdf.IRI)
	skolem := func(t rdf.Term) rdf.Term {
		b, ok := t.(rdf.BlankNode)
		if !ok {
			return t
		}
		if iri, ok := mapping[b.ID]; ok {
			return iri
		}
		iri := rdf.IRI{Value: basePath + NewBlankID()}
		mapping[b.ID] = iri
		return iri
	}
	out := New()
	for _, t := range g.triples {
		out.Add(skolem(t.S), t.P, skolem(t.O))
	}
	return out, mapping
}

// Unskolemize returns a copy of g with the skolem IRIs of mapping replaced
// by the blank nodes they were minted for.
func (g *Graph) Unskolemize(mapping map[string]rdf.IRI) *Graph {
	nodes := make(map[string]rdf.BlankNode, len(mapping))
	for id, iri := range mapping {
		nodes[iri.Value] = rdf.BlankNode{ID: id}
	}
	restore := func(t rdf.Term) rdf.Term {
		if iri, ok := t.(rdf.IRI); ok {
			if b, ok := nodes[iri.Value]; ok {
				return b
			}
		}
		return t
	}
	out := New()
	for _, t := range g.triples {
		out.Add(restore(t.S), t.P, restore(t.O))
	}
	return out
}

// NewBlankID mints a blank node identifier of the form N<32 hex digits>.
func NewBlankID() string {
	return "N" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
