// Package report post-processes SHACL validation report graphs: it adds
// provenance, labels and shui:conforms flags, and flattens validation
// results into tabular entities.
package report

import (
	"strings"
	"time"

	"github.com/c360studio/semshacl/rdfgraph"
	"github.com/c360studio/semshacl/vocabulary/shacl"
	"github.com/geoknoesis/rdf-go/rdf"
)

// TimestampLayout is the layout of validation timestamps.
const TimestampLayout = "2006-01-02T15:04:05Z"

// Report labels.
const (
	labelConforms    = "SHACL validation report, conforms"
	labelNonConforms = "SHACL validation report, nonconforms"
)

// Timestamp formats t as a UTC second-precision xsd:dateTime.
func Timestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(TimestampLayout)
}

// ReportNode returns the sh:ValidationReport node of g.
func ReportNode(g *rdfgraph.Graph) (rdf.Term, bool) {
	return g.Subject(rdfgraph.IRI(shacl.RDFType), rdfgraph.IRI(shacl.ValidationReport))
}

// ConformsValue returns the sh:conforms literal of the report.
func ConformsValue(g *rdfgraph.Graph) (rdf.Term, bool) {
	node, ok := ReportNode(g)
	if ok {
		if v, ok := g.Value(node, rdfgraph.IRI(shacl.Conforms)); ok {
			return v, true
		}
	}
	values := g.ObjectsOf(rdfgraph.IRI(shacl.Conforms))
	if len(values) == 0 {
		return nil, false
	}
	return values[0], true
}

// Conforms reports whether the report states sh:conforms true.
func Conforms(g *rdfgraph.Graph) bool {
	v, ok := ConformsValue(g)
	return ok && rdfgraph.TermText(v) == "true"
}

// ResultNodes returns the sh:ValidationResult nodes of g in graph order.
func ResultNodes(g *rdfgraph.Graph) []rdf.Term {
	return g.Subjects(rdfgraph.IRI(shacl.RDFType), rdfgraph.IRI(shacl.ValidationResult))
}

// AddProvenance links the report node to the data and shapes graphs and
// records the generation time.
func AddProvenance(g *rdfgraph.Graph, dataGraph, shapesGraph, timestamp string) {
	node, ok := ReportNode(g)
	if !ok {
		return
	}
	g.Add(node, rdfgraph.IRI(shacl.ProvWasDerivedFrom), rdfgraph.IRI(dataGraph))
	g.Add(node, rdfgraph.IRI(shacl.ProvWasInformedBy), rdfgraph.IRI(shapesGraph))
	g.Add(node, rdfgraph.IRI(shacl.ProvGeneratedAtTime), rdfgraph.TypedLiteral(timestamp, shacl.XSDDateTime))
}

// LabelOptions controls AddLabels.
type LabelOptions struct {
	// IncludeGraphLabels copies labels of focus nodes and values from the
	// data graph and of source shapes from the shapes graph.
	IncludeGraphLabels bool

	// CollectFocusNodes returns the focus nodes seen while labelling.
	// Only effective with IncludeGraphLabels.
	CollectFocusNodes bool
}

// AddLabels adds rdfs:label to the report node and to every validation
// result. It returns the collected focus nodes.
func AddLabels(g, data, shapes *rdfgraph.Graph, opts LabelOptions) []rdf.Term {
	label := rdfgraph.IRI(shacl.RDFSLabel)

	if node, ok := ReportNode(g); ok {
		text := labelNonConforms
		if Conforms(g) {
			text = labelConforms
		}
		g.Add(node, label, rdfgraph.Literal(text))
	}

	var focusNodes []rdf.Term
	for _, result := range ResultNodes(g) {
		g.Add(result, label, rdfgraph.Literal(resultLabel(g, result)))
		if !opts.IncludeGraphLabels {
			continue
		}

		if focus, ok := g.Value(result, rdfgraph.IRI(shacl.FocusNode)); ok {
			if opts.CollectFocusNodes {
				focusNodes = append(focusNodes, focus)
			}
			copyLabel(g, data, focus)
		}
		if value, ok := g.Value(result, rdfgraph.IRI(shacl.Value)); ok && !rdfgraph.IsLiteral(value) {
			copyLabel(g, data, value)
		}
		if shape, ok := g.Value(result, rdfgraph.IRI(shacl.SourceShape)); ok {
			copyLabel(g, shapes, shape)
		}
	}
	return focusNodes
}

func resultLabel(g *rdfgraph.Graph, result rdf.Term) string {
	message := ""
	if m, ok := g.Value(result, rdfgraph.IRI(shacl.ResultMessage)); ok {
		message = rdfgraph.TermText(m)
	}
	path := ""
	if p, ok := g.Value(result, rdfgraph.IRI(shacl.ResultPath)); ok {
		path = rdfgraph.TermText(p)
	}
	return ResultLabel(path, message)
}

// ResultLabel renders "SHACL: <path name>: <message>", or "SHACL: <message>"
// without a path.
func ResultLabel(path, message string) string {
	if path == "" {
		return "SHACL: " + message
	}
	return "SHACL: " + lastSegment(path) + ": " + message
}

// lastSegment returns the part of s after the final slash.
func lastSegment(s string) string {
	return s[strings.LastIndex(s, "/")+1:]
}

func copyLabel(dst, src *rdfgraph.Graph, node rdf.Term) {
	if src == nil {
		return
	}
	if l, ok := src.Label(node); ok {
		dst.Add(node, rdfgraph.IRI(shacl.RDFSLabel), l)
	}
}

// AddShuiConforms flags focus nodes with shui:conforms false. When
// focusNodes is empty the focus nodes of results are used.
func AddShuiConforms(g *rdfgraph.Graph, results, focusNodes []rdf.Term) {
	nodes := focusNodes
	if len(nodes) == 0 {
		for _, result := range results {
			if focus, ok := g.Value(result, rdfgraph.IRI(shacl.FocusNode)); ok {
				nodes = append(nodes, focus)
			}
		}
	}
	flag := rdfgraph.TypedLiteral("false", shacl.XSDBoolean)
	for _, node := range nodes {
		g.Add(node, rdfgraph.IRI(shacl.ShuiConforms), flag)
	}
}
