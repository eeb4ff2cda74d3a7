// Package engine runs SHACL validation of a data graph against a shapes
// graph and returns the validation report graph.
package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/c360studio/semshacl/rdfgraph"
)

// Inference modes applied to the data graph before validation.
const (
	InferenceNone  = "none"
	InferenceRDFS  = "rdfs"
	InferenceOWLRL = "owlrl"
	InferenceBoth  = "both"
)

// InferenceModes lists the accepted inference values.
var InferenceModes = []string{InferenceNone, InferenceRDFS, InferenceOWLRL, InferenceBoth}

// ValidInference reports whether mode is an accepted inference value.
func ValidInference(mode string) bool {
	return slices.Contains(InferenceModes, mode)
}

// Request is one validation run.
type Request struct {
	// Data is the graph to validate.
	Data *rdfgraph.Graph

	// Shapes holds the SHACL shapes.
	Shapes *rdfgraph.Graph

	// Ontology is mixed into the data graph before validation. Optional.
	Ontology *rdfgraph.Graph

	// MetaSHACL validates the shapes graph against the SHACL-SHACL
	// shapes before validating the data graph.
	MetaSHACL bool

	// Inference is one of the Inference constants. Empty means none.
	Inference string
}

// Validate checks the request is complete.
func (r Request) Validate() error {
	if r.Data == nil {
		return fmt.Errorf("data graph is required")
	}
	if r.Shapes == nil {
		return fmt.Errorf("shapes graph is required")
	}
	if r.Inference != "" && !ValidInference(r.Inference) {
		return fmt.Errorf("invalid inference mode %q", r.Inference)
	}
	return nil
}

// Outcome is the result of a validation run.
type Outcome struct {
	Conforms bool
	Report   *rdfgraph.Graph
	Stderr   string
	Duration time.Duration
}

// Validator validates data graphs against shapes graphs.
type Validator interface {
	Validate(ctx context.Context, req Request) (*Outcome, error)
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(ctx context.Context, req Request) (*Outcome, error)

// Validate calls f.
func (f ValidatorFunc) Validate(ctx context.Context, req Request) (*Outcome, error) {
	return f(ctx, req)
}
