// Package validation runs the SHACL validation workflow: parameter
// handling and checks, graph loading, engine invocation and report
// post-processing with optional upload of the validation graph.
package validation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/c360studio/semshacl/engine"
	"github.com/c360studio/semshacl/vocabulary/shacl"
)

// Parameter names.
const (
	ParamDataGraph          = "data_graph_uri"
	ParamShaclGraph         = "shacl_graph_uri"
	ParamValidationGraph    = "validation_graph_uri"
	ParamGenerateGraph      = "generate_graph"
	ParamOutputValues       = "output_values"
	ParamClearGraph         = "clear_validation_graph"
	ParamOWLImports         = "owl_imports_resolution"
	ParamSkolemize          = "skolemize_validation_graph"
	ParamAddLabels          = "add_labels_to_validation_graph"
	ParamIncludeGraphLabels = "include_graphs_labels"
	ParamAddShuiConforms    = "add_shui_conforms_to_validation_graph"
	ParamMetaSHACL          = "meta_shacl"
	ParamOntologyGraph      = "ontology_graph_uri"
	ParamInference          = "inference"
)

// Parameters configure one validation run.
type Parameters struct {
	DataGraphURI                     string `json:"data_graph_uri" yaml:"data_graph_uri"`
	ShaclGraphURI                    string `json:"shacl_graph_uri" yaml:"shacl_graph_uri"`
	ValidationGraphURI               string `json:"validation_graph_uri" yaml:"validation_graph_uri"`
	GenerateGraph                    bool   `json:"generate_graph" yaml:"generate_graph"`
	OutputValues                     bool   `json:"output_values" yaml:"output_values"`
	ClearValidationGraph             bool   `json:"clear_validation_graph" yaml:"clear_validation_graph"`
	OWLImportsResolution             bool   `json:"owl_imports_resolution" yaml:"owl_imports_resolution"`
	SkolemizeValidationGraph         bool   `json:"skolemize_validation_graph" yaml:"skolemize_validation_graph"`
	AddLabelsToValidationGraph       bool   `json:"add_labels_to_validation_graph" yaml:"add_labels_to_validation_graph"`
	IncludeGraphsLabels              bool   `json:"include_graphs_labels" yaml:"include_graphs_labels"`
	AddShuiConformsToValidationGraph bool   `json:"add_shui_conforms_to_validation_graph" yaml:"add_shui_conforms_to_validation_graph"`
	MetaSHACL                        bool   `json:"meta_shacl" yaml:"meta_shacl"`
	OntologyGraphURI                 string `json:"ontology_graph_uri" yaml:"ontology_graph_uri"`
	Inference                        string `json:"inference" yaml:"inference"`
}

// DefaultParameters returns the parameter defaults. The data and shapes
// graphs have no default.
func DefaultParameters() Parameters {
	return Parameters{
		OutputValues:               true,
		ClearValidationGraph:       true,
		OWLImportsResolution:       true,
		SkolemizeValidationGraph:   true,
		AddLabelsToValidationGraph: true,
		Inference:                  engine.InferenceNone,
	}
}

// Kind is the type of a parameter.
type Kind string

// Parameter kinds.
const (
	KindGraph  Kind = "graph"
	KindString Kind = "string"
	KindBool   Kind = "bool"
	KindChoice Kind = "choice"
)

// Choice is one option of a choice parameter.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Descriptor documents a parameter.
type Descriptor struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Kind        Kind     `json:"kind"`
	Default     string   `json:"default,omitempty"`
	Advanced    bool     `json:"advanced,omitempty"`
	Classes     []string `json:"classes,omitempty"`
	Choices     []Choice `json:"choices,omitempty"`
}

var descriptors = []Descriptor{
	{
		Name:  ParamDataGraph,
		Label: "Data graph URI",
		Description: "Data graph URI, will only list graphs of type di:Dataset, " +
			"void:Dataset, shui:ShapeCatalog, owl:Ontology, dsm:ThesaurusProject",
		Kind:    KindGraph,
		Classes: shacl.DataGraphTypes,
	},
	{
		Name:        ParamShaclGraph,
		Label:       "SHACL shapes graph URI",
		Description: "SHACL shapes graph URI, will only list graphs of type shui:ShapeCatalog",
		Kind:        KindGraph,
		Classes:     shacl.ShapesGraphTypes,
	},
	{
		Name:        ParamValidationGraph,
		Label:       "Validation graph URI",
		Description: "Validation graph URI",
		Kind:        KindString,
	},
	{
		Name:        ParamGenerateGraph,
		Label:       "Generate validation graph",
		Description: "Generate validation graph",
		Kind:        KindBool,
		Default:     "false",
	},
	{
		Name:        ParamOutputValues,
		Label:       "Output values",
		Description: "Output values",
		Kind:        KindBool,
		Default:     "true",
	},
	{
		Name:        ParamClearGraph,
		Label:       "Clear validation graph",
		Description: "Clear validation graph before workflow execution",
		Kind:        KindBool,
		Default:     "true",
	},
	{
		Name:        ParamOWLImports,
		Label:       "Resolve owl:imports",
		Description: "Resolve graph tree defined via owl:imports",
		Kind:        KindBool,
		Default:     "true",
		Advanced:    true,
	},
	{
		Name:        ParamSkolemize,
		Label:       "Blank node skolemization",
		Description: "Skolemize blank nodes in the validation graph into URIs",
		Kind:        KindBool,
		Default:     "true",
		Advanced:    true,
	},
	{
		Name:        ParamAddLabels,
		Label:       "Add labels",
		Description: "Add labels to validation graph",
		Kind:        KindBool,
		Default:     "true",
		Advanced:    true,
	},
	{
		Name:  ParamIncludeGraphLabels,
		Label: "Add labels to focus nodes and values",
		Description: "Add labels from data and SHACL shapes graph to source shapes, " +
			"focus nodes and values in the validation graph. Only applied " +
			`when the option "Add labels" is activated.`,
		Kind:     KindBool,
		Default:  "false",
		Advanced: true,
	},
	{
		Name:        ParamAddShuiConforms,
		Label:       "Add shui:conforms flag to focus node resources.",
		Description: "Add shui:conforms flag to focus node resources",
		Kind:        KindBool,
		Default:     "false",
		Advanced:    true,
	},
	{
		Name:  ParamMetaSHACL,
		Label: "Meta-SHACL.",
		Description: "Validate the SHACL shapes graph against the shacl-shacl " +
			"shapes graph before validating the data graph",
		Kind:     KindBool,
		Default:  "false",
		Advanced: true,
	},
	{
		Name:  ParamOntologyGraph,
		Label: "Ontology graph URI",
		Description: "Ontology graph which gets parsed and mixed with the data " +
			"graph before pre-inferencing, will only list graphs of type owl:Ontology",
		Kind:     KindGraph,
		Classes:  shacl.OntologyGraphTypes,
		Advanced: true,
	},
	{
		Name:  ParamInference,
		Label: "Inference",
		Description: "indicates whether or not to perform OWL inferencing " +
			"expansion of the data graph before validation",
		Kind:    KindChoice,
		Default: engine.InferenceNone,
		Choices: []Choice{
			{Value: engine.InferenceNone, Label: "None"},
			{Value: engine.InferenceRDFS, Label: "RDFS"},
			{Value: engine.InferenceOWLRL, Label: "OWLRL"},
			{Value: engine.InferenceBoth, Label: "Both"},
		},
		Advanced: true,
	},
}

// Descriptors returns the parameter descriptors in declaration order.
func Descriptors() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

// Lookup returns the descriptor of a parameter.
func Lookup(name string) (Descriptor, bool) {
	for _, d := range descriptors {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Names returns the names of parameters of the given kinds.
func Names(kinds ...Kind) []string {
	var out []string
	for _, d := range descriptors {
		for _, k := range kinds {
			if d.Kind == k {
				out = append(out, d.Name)
				break
			}
		}
	}
	return out
}

// ParseBool parses a truth value. It accepts y, yes, t, true, on and 1 as
// true and n, no, f, false, off and 0 as false, case-insensitively.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "t", "true", "on", "1":
		return true, nil
	case "n", "no", "f", "false", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid truth value %q", s)
}

func (p *Parameters) boolField(name string) *bool {
	switch name {
	case ParamGenerateGraph:
		return &p.GenerateGraph
	case ParamOutputValues:
		return &p.OutputValues
	case ParamClearGraph:
		return &p.ClearValidationGraph
	case ParamOWLImports:
		return &p.OWLImportsResolution
	case ParamSkolemize:
		return &p.SkolemizeValidationGraph
	case ParamAddLabels:
		return &p.AddLabelsToValidationGraph
	case ParamIncludeGraphLabels:
		return &p.IncludeGraphsLabels
	case ParamAddShuiConforms:
		return &p.AddShuiConformsToValidationGraph
	case ParamMetaSHACL:
		return &p.MetaSHACL
	}
	return nil
}

func (p *Parameters) stringField(name string) *string {
	switch name {
	case ParamDataGraph:
		return &p.DataGraphURI
	case ParamShaclGraph:
		return &p.ShaclGraphURI
	case ParamValidationGraph:
		return &p.ValidationGraphURI
	case ParamOntologyGraph:
		return &p.OntologyGraphURI
	case ParamInference:
		return &p.Inference
	}
	return nil
}

// Set assigns a parameter from its string form.
func (p *Parameters) Set(name, value string) error {
	if b := p.boolField(name); b != nil {
		v, err := ParseBool(value)
		if err != nil {
			return &ParameterError{Message: "Invalid truth value for parameter " + name}
		}
		*b = v
		return nil
	}
	if s := p.stringField(name); s != nil {
		*s = value
		return nil
	}
	return &ParameterError{Message: "Invalid parameter: " + name}
}

// Get returns the string form of a parameter.
func (p *Parameters) Get(name string) (string, bool) {
	if b := p.boolField(name); b != nil {
		return strconv.FormatBool(*b), true
	}
	if s := p.stringField(name); s != nil {
		return *s, true
	}
	return "", false
}

// ApplyInputs overrides parameters from workflow input values. Only graph
// and boolean parameters may be set this way.
func (p *Parameters) ApplyInputs(inputs map[string]string) error {
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		d, ok := Lookup(name)
		if !ok || (d.Kind != KindGraph && d.Kind != KindBool) {
			return &ParameterError{Message: "Invalid parameter: " + name}
		}
		if err := p.Set(name, inputs[name]); err != nil {
			return err
		}
	}
	return nil
}

// Values returns every parameter in string form keyed by name.
func (p *Parameters) Values() map[string]string {
	out := make(map[string]string, len(descriptors))
	for _, d := range descriptors {
		v, _ := p.Get(d.Name)
		out[d.Name] = v
	}
	return out
}
