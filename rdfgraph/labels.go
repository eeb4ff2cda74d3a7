package rdfgraph

import (
	"github.com/c360studio/semshacl/vocabulary/shacl"
	"github.com/geoknoesis/rdf-go/rdf"
)

// AnyLang disables language filtering in PreferredLabel.
const AnyLang = "*"

// LabelPaths is the default label lookup order: rdfs:label, then the SKOS-XL
// preferred label's literal form, then skos:prefLabel.
var LabelPaths = []Path{
	P(shacl.RDFSLabel),
	Seq(shacl.SkosXLPrefLabel, shacl.SkosXLLiteralForm),
	P(shacl.SkosPrefLabel),
}

// LabelMatch is one label found by PreferredLabel.
type LabelMatch struct {
	Path  Path
	Value rdf.Term
}

// PreferredLabel returns every label reached by the first path in paths that
// yields at least one label after language filtering. lang is AnyLang for no
// filter, "" for untagged literals only, or an exact language tag.
func (g *Graph) PreferredLabel(s rdf.Term, lang string, paths ...Path) []LabelMatch {
	if s == nil {
		return nil
	}
	for _, path := range paths {
		var matches []LabelMatch
		for _, o := range g.PathObjects(s, path) {
			if !langMatches(o, lang) {
				continue
			}
			matches = append(matches, LabelMatch{Path: path, Value: o})
		}
		if len(matches) > 0 {
			return matches
		}
	}
	return nil
}

func langMatches(t rdf.Term, lang string) bool {
	if lang == AnyLang {
		return true
	}
	lit, ok := t.(rdf.Literal)
	if !ok {
		return false
	}
	return lit.Lang == lang
}

// Label returns the first preferred label of s using LabelPaths.
func (g *Graph) Label(s rdf.Term) (rdf.Term, bool) {
	matches := g.PreferredLabel(s, AnyLang, LabelPaths...)
	if len(matches) == 0 {
		return nil, false
	}
	return matches[0].Value, true
}

// LabelText returns the lexical form of the first preferred label of s.
func (g *Graph) LabelText(s rdf.Term) (string, bool) {
	label, ok := g.Label(s)
	if !ok {
		return "", false
	}
	return TermText(label), true
}

// TermText returns the lexical form of a literal and the plain string form of
// other terms.
func TermText(t rdf.Term) string {
	switch v := t.(type) {
	case nil:
		return ""
	case rdf.Literal:
		return v.Lexical
	case rdf.IRI:
		return v.Value
	default:
		return t.String()
	}
}
