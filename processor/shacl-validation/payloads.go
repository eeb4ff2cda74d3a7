package shaclvalidation

import (
	"encoding/json"
	"fmt"

	"github.com/c360studio/semshacl/report"
	"github.com/c360studio/semshacl/validation"
	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
)

// ValidationRequest is published to workflow.trigger.shacl-validation.
// Parameters override the component defaults field by field; Inputs are
// applied afterwards with workflow input semantics.
type ValidationRequest struct {
	RequestID string `json:"request_id"`

	// Parameters are string-valued parameter overrides keyed by name.
	Parameters map[string]string `json:"parameters,omitempty"`

	// Inputs are workflow input values. Only graph and boolean
	// parameters are accepted.
	Inputs map[string]string `json:"inputs,omitempty"`

	// AccessToken authorizes graph store access on behalf of the user.
	AccessToken string `json:"access_token,omitempty"`
}

// Schema implements message.Payload.
func (p *ValidationRequest) Schema() message.Type {
	return ValidationRequestType
}

// Validate implements message.Payload.
func (p *ValidationRequest) Validate() error {
	if p.RequestID == "" {
		return fmt.Errorf("request_id is required")
	}
	for name := range p.Parameters {
		if _, ok := validation.Lookup(name); !ok {
			return fmt.Errorf("unknown parameter %q", name)
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p *ValidationRequest) MarshalJSON() ([]byte, error) {
	type Alias ValidationRequest
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *ValidationRequest) UnmarshalJSON(data []byte) error {
	type Alias ValidationRequest
	return json.Unmarshal(data, (*Alias)(p))
}

// ValidationOutput is published to workflow.result.shacl-validation.<run_id>.
type ValidationOutput struct {
	RunID       string            `json:"run_id"`
	RequestID   string            `json:"request_id"`
	Success     bool              `json:"success"`
	Conforms    bool              `json:"conforms"`
	ResultCount int               `json:"result_count"`
	Posted      bool              `json:"posted"`
	Timestamp   string            `json:"timestamp,omitempty"`
	Parameters  map[string]string `json:"parameters,omitempty"`
	Entities    *report.Entities  `json:"entities,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Schema implements message.Payload.
func (p *ValidationOutput) Schema() message.Type {
	return ValidationOutputType
}

// Validate implements message.Payload.
func (p *ValidationOutput) Validate() error {
	if p.RunID == "" {
		return fmt.Errorf("run_id is required")
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p *ValidationOutput) MarshalJSON() ([]byte, error) {
	type Alias ValidationOutput
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *ValidationOutput) UnmarshalJSON(data []byte) error {
	type Alias ValidationOutput
	return json.Unmarshal(data, (*Alias)(p))
}

// ValidationRequestType is the message type for validation requests.
var ValidationRequestType = message.Type{
	Domain:   "workflow",
	Category: "shacl-validation-request",
	Version:  "v1",
}

// ValidationOutputType is the message type for validation results.
var ValidationOutputType = message.Type{
	Domain:   "workflow",
	Category: "shacl-validation-result",
	Version:  "v1",
}

// parseRequest extracts a ValidationRequest from a BaseMessage envelope.
func parseRequest(data []byte) (*ValidationRequest, error) {
	var wire struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("unmarshal BaseMessage: %w", err)
	}
	if len(wire.Payload) == 0 || string(wire.Payload) == "null" {
		return nil, fmt.Errorf("empty payload in BaseMessage")
	}
	var req ValidationRequest
	if err := json.Unmarshal(wire.Payload, &req); err != nil {
		return nil, fmt.Errorf("unmarshal payload into %T: %w", req, err)
	}
	return &req, nil
}

func init() {
	if err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "workflow",
		Category:    "shacl-validation-request",
		Version:     "v1",
		Description: "SHACL validation request with parameter overrides",
		Factory:     func() any { return &ValidationRequest{} },
	}); err != nil {
		panic("failed to register ValidationRequest: " + err.Error())
	}

	if err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "workflow",
		Category:    "shacl-validation-result",
		Version:     "v1",
		Description: "SHACL validation result with result entities",
		Factory:     func() any { return &ValidationOutput{} },
	}); err != nil {
		panic("failed to register ValidationOutput: " + err.Error())
	}

	if err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "shacl",
		Category:    "result",
		Version:     "v1",
		Description: "SHACL validation result entity payload for graph ingestion",
		Factory:     func() any { return &ResultEntityPayload{} },
	}); err != nil {
		panic("failed to register ResultEntityPayload: " + err.Error())
	}
}
