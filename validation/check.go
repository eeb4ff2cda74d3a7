package validation

import (
	"errors"
	"log/slog"
	"net/url"

	"github.com/c360studio/semshacl/engine"
	"github.com/c360studio/semshacl/graphstore"
	"github.com/c360studio/semshacl/vocabulary/shacl"
)

// ParameterError reports parameters that prevent a run from starting.
type ParameterError struct {
	Message string
}

func (e *ParameterError) Error() string {
	return e.Message
}

// IsParameterError reports whether err is caused by invalid parameters.
func IsParameterError(err error) bool {
	var pe *ParameterError
	return errors.As(err, &pe)
}

func invalid(msg string) error {
	return &ParameterError{Message: msg}
}

// validURL reports whether s is an absolute http, https or ftp URL with a
// host.
func validURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https", "ftp":
	default:
		return false
	}
	return u.Host != ""
}

// checkBasic runs the checks that need no graph catalog.
func (p *Parameters) checkBasic() error {
	if !p.OutputValues && !p.GenerateGraph {
		return invalid("Generate validation graph or Output values parameter needs to be set to true")
	}
	if !validURL(p.DataGraphURI) {
		return invalid("Data graph URI parameter is invalid")
	}
	if !validURL(p.ShaclGraphURI) {
		return invalid("SHACL graph URI parameter is invalid")
	}
	return nil
}

// Check validates the parameters against the graph catalog. Disabled labels
// also disable graph labels.
func (p *Parameters) Check(catalog graphstore.Catalog, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if err := p.checkBasic(); err != nil {
		return err
	}

	if p.OntologyGraphURI != "" {
		if !validURL(p.OntologyGraphURI) {
			return invalid("Ontology graph URI parameter is invalid")
		}
		if !catalog.Has(p.OntologyGraphURI) {
			return invalid("Ontology graph <" + p.OntologyGraphURI + "> not found")
		}
		if !catalog.HasClass(p.OntologyGraphURI, shacl.OntologyGraphTypes...) {
			return invalid("Invalid graph type for Ontology graph <" + p.OntologyGraphURI + ">")
		}
	}

	if !catalog.Has(p.DataGraphURI) {
		return invalid("Data graph <" + p.DataGraphURI + "> not found")
	}
	if !catalog.Has(p.ShaclGraphURI) {
		return invalid("SHACL graph <" + p.ShaclGraphURI + "> not found")
	}
	if !catalog.HasClass(p.DataGraphURI, shacl.DataGraphTypes...) {
		return invalid("Invalid graph type for data graph <" + p.DataGraphURI + ">")
	}
	if !catalog.HasClass(p.ShaclGraphURI, shacl.ShapesGraphTypes...) {
		return invalid("Invalid graph type for SHACL graph <" + p.ShaclGraphURI + ">")
	}

	if p.GenerateGraph {
		if !validURL(p.ValidationGraphURI) {
			return invalid("Validation graph URI parameter is invalid")
		}
		if catalog.Has(p.ValidationGraphURI) {
			logger.Warn("Graph <" + p.ValidationGraphURI + "> already exists")
		}
	}
	if !p.AddLabelsToValidationGraph {
		p.IncludeGraphsLabels = false
	}

	if !engine.ValidInference(p.Inference) {
		return invalid("Invalid value for inference parameter")
	}

	logger.Info("Parameters OK")
	for _, name := range Names(KindGraph, KindBool) {
		v, _ := p.Get(name)
		logger.Debug("Parameter", "name", name, "value", v)
	}
	return nil
}
