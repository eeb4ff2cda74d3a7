package shaclvalidation

import (
	"fmt"

	"github.com/c360studio/semstreams/component"
)

// RegistryInterface defines the minimal interface required for registration.
type RegistryInterface interface {
	RegisterWithConfig(component.RegistrationConfig) error
}

// Register registers the shacl-validation component with the given registry.
func Register(registry RegistryInterface) error {
	if registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        componentName,
		Factory:     NewComponent,
		Schema:      shaclValidationSchema,
		Type:        "processor",
		Protocol:    "workflow",
		Domain:      "semshacl",
		Description: "Validates RDF data graphs against SHACL shapes as a workflow step",
		Version:     "0.1.0",
	})
}
