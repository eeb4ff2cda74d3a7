package shaclvalidation

import (
	"fmt"
	"reflect"
	"time"

	"github.com/c360studio/semshacl/engine"
	"github.com/c360studio/semshacl/graphstore"
	"github.com/c360studio/semshacl/storage"
	"github.com/c360studio/semshacl/validation"
	"github.com/c360studio/semstreams/component"
)

// componentName is the registered component name.
const componentName = "shacl-validation"

// shaclValidationSchema defines the configuration schema.
var shaclValidationSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the shacl-validation component.
type Config struct {
	// StreamName is the JetStream stream for consuming triggers and publishing results.
	StreamName string `json:"stream_name" schema:"type:string,description:JetStream stream for workflow triggers,category:basic,default:WORKFLOWS"`

	// ConsumerName is the durable consumer name for trigger consumption.
	ConsumerName string `json:"consumer_name" schema:"type:string,description:Durable consumer name for trigger consumption,category:basic,default:shacl-validation"`

	// ExecutionTimeout bounds a single validation run including graph transfer.
	ExecutionTimeout string `json:"execution_timeout" schema:"type:string,description:Validation run timeout (duration string),category:advanced,default:15m"`

	// RunBucket is the KV bucket for run history. Empty disables history.
	RunBucket string `json:"run_bucket" schema:"type:string,description:KV bucket for validation run history,category:advanced,default:SHACL_RUNS"`

	// PublishEntities publishes every validation result as a graph entity.
	PublishEntities bool `json:"publish_entities" schema:"type:bool,description:Publish validation results to the knowledge graph,category:advanced,default:false"`

	// GraphStore selects the graph store holding data and shapes graphs.
	GraphStore graphstore.Settings `json:"graph_store" schema:"type:object,description:Graph store connection,category:basic"`

	// Engine configures the SHACL validation engine.
	Engine engine.Settings `json:"engine" schema:"type:object,description:SHACL engine command and timeout,category:advanced"`

	// Defaults are the validation parameters requests start from.
	Defaults validation.Parameters `json:"defaults" schema:"type:object,description:Default validation parameters,category:basic"`

	// Ports contains input/output port definitions.
	Ports *component.PortConfig `json:"ports,omitempty" schema:"type:ports,description:Input/output port definitions,category:basic"`
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		StreamName:       "WORKFLOWS",
		ConsumerName:     componentName,
		ExecutionTimeout: "15m",
		RunBucket:        storage.BucketRuns,
		GraphStore: graphstore.Settings{
			Local: &graphstore.LocalSettings{Root: "."},
		},
		Defaults: validation.DefaultParameters(),
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "validation-triggers",
					Type:        "jetstream",
					Subject:     "workflow.trigger.shacl-validation",
					StreamName:  "WORKFLOWS",
					Description: "Receive SHACL validation requests",
					Required:    true,
				},
			},
			Outputs: []component.PortDefinition{
				{
					Name:        "validation-results",
					Type:        "nats",
					Subject:     "workflow.result.shacl-validation.>",
					Description: "Publish SHACL validation results",
					Required:    false,
				},
				{
					Name:        "graph-entities",
					Type:        "jetstream",
					Subject:     graphIngestSubject,
					StreamName:  "GRAPH",
					Description: "Publish validation results as graph entities",
					Required:    false,
				},
			},
		},
	}
}

// GetExecutionTimeout parses the execution timeout.
// Returns 15 minutes if the field is empty or unparseable.
func (c *Config) GetExecutionTimeout() time.Duration {
	if c.ExecutionTimeout == "" {
		return 15 * time.Minute
	}
	d, err := time.ParseDuration(c.ExecutionTimeout)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

// TriggerSubject returns the subject requests are consumed from.
func (c *Config) TriggerSubject() string {
	if c.Ports != nil && len(c.Ports.Inputs) > 0 && c.Ports.Inputs[0].Subject != "" {
		return c.Ports.Inputs[0].Subject
	}
	return "workflow.trigger.shacl-validation"
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.StreamName == "" {
		return fmt.Errorf("stream_name is required")
	}
	if c.ConsumerName == "" {
		return fmt.Errorf("consumer_name is required")
	}
	if c.ExecutionTimeout != "" {
		if _, err := time.ParseDuration(c.ExecutionTimeout); err != nil {
			return fmt.Errorf("invalid execution_timeout: %w", err)
		}
	}
	if err := c.GraphStore.Validate(); err != nil {
		return err
	}
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if c.Defaults.Inference != "" && !engine.ValidInference(c.Defaults.Inference) {
		return fmt.Errorf("invalid default inference %q", c.Defaults.Inference)
	}
	return nil
}
