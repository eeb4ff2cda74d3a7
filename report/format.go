package report

import (
	"context"

	"github.com/c360studio/semshacl/rdfgraph"
	"github.com/c360studio/semshacl/vocabulary/shacl"
	"github.com/geoknoesis/rdf-go/rdf"
)

// DescriptionLines caps the Turtle rendering of blank node cells.
const DescriptionLines = 50

// DefaultPrefixes are bound when rendering blank node descriptions.
var DefaultPrefixes = map[string]string{
	"rdf":  shacl.RDF,
	"rdfs": shacl.RDFS,
	"sh":   shacl.SH,
	"xsd":  shacl.XSD,
}

// Formatter renders validation result properties as table cells.
type Formatter struct {
	// Data and Shapes are consulted for labels.
	Data   *rdfgraph.Graph
	Shapes *rdfgraph.Graph

	// IncludeGraphLabels replaces resources by their label when one exists.
	IncludeGraphLabels bool

	// Prefixes are used for blank node descriptions. Nil means
	// DefaultPrefixes.
	Prefixes map[string]string
}

// labelGraph returns the graph labels of the predicate's objects come from.
func (f *Formatter) labelGraph(predicate string) *rdfgraph.Graph {
	switch predicate {
	case shacl.SourceShape, shacl.Conforms:
		return f.Shapes
	case shacl.Value, shacl.ResultPath, shacl.FocusNode:
		return f.Data
	}
	return nil
}

func (f *Formatter) label(predicate string, node rdf.Term) (string, bool) {
	g := f.labelGraph(predicate)
	if g == nil {
		return "", false
	}
	return g.LabelText(node)
}

// Cell renders the first value of predicate on result.
func (f *Formatter) Cell(ctx context.Context, g *rdfgraph.Graph, result rdf.Term, predicate string) (string, error) {
	obj, ok := g.Value(result, rdfgraph.IRI(predicate))
	if !ok {
		return "", nil
	}

	switch v := obj.(type) {
	case rdf.IRI:
		if f.IncludeGraphLabels && predicate != shacl.SourceConstraintComponent && predicate != shacl.ResultSeverity {
			if l, ok := f.label(predicate, v); ok {
				return l, nil
			}
		}
		return v.Value, nil

	case rdf.BlankNode:
		if f.IncludeGraphLabels {
			if l, ok := f.label(predicate, v); ok && l != "" {
				return l, nil
			}
		}
		prefixes := f.Prefixes
		if prefixes == nil {
			prefixes = DefaultPrefixes
		}
		return g.CBDTurtle(ctx, v, prefixes, DescriptionLines)

	case rdf.Literal:
		switch predicate {
		case shacl.Value:
			if v.Datatype.Value != "" {
				return `"` + v.Lexical + `"^^<` + v.Datatype.Value + `>`, nil
			}
			return `"` + v.Lexical + `"`, nil
		case shacl.ResultMessage:
			return v.Lexical, nil
		}
	}
	return "", nil
}
