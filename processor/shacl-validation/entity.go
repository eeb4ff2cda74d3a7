package shaclvalidation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/c360studio/semshacl/report"
	"github.com/c360studio/semshacl/vocabulary/shacl"
	"github.com/c360studio/semstreams/message"
)

// graphIngestSubject is where result entities are published for graph ingestion.
const graphIngestSubject = "graph.ingest.entity"

// resultColumns maps result table columns to graph predicates.
var resultColumns = []struct {
	column    string
	predicate string
}{
	{shacl.FocusNode, shacl.ResultFocusNode},
	{shacl.ResultPath, shacl.ResultPathPredicate},
	{shacl.Value, shacl.ResultValue},
	{shacl.SourceShape, shacl.ResultSourceShape},
	{shacl.SourceConstraintComponent, shacl.ResultConstraint},
	{shacl.ResultMessage, shacl.ResultMessagePredicate},
	{shacl.ResultSeverity, shacl.ResultSeverityPredicate},
}

// ResultEntity converts one row of a validation result table to graph triples.
type ResultEntity struct {
	runID    string
	index    int
	org      string
	entities *report.Entities
	entity   report.Entity
}

// NewResultEntity creates the entity for the index-th result of a run.
func NewResultEntity(org, runID string, index int, entities *report.Entities) *ResultEntity {
	return &ResultEntity{
		runID:    runID,
		index:    index,
		org:      org,
		entities: entities,
		entity:   entities.Entities[index],
	}
}

// EntityID returns the 6-part entity identifier.
// Format: {org}.semshacl.shacl.result.{run_id}.{index}
func (e *ResultEntity) EntityID() string {
	return fmt.Sprintf("%s.semshacl.shacl.result.%s.%d", e.org, e.runID, e.index)
}

// Triples converts the result row to graph triples. Empty cells are omitted.
func (e *ResultEntity) Triples() []message.Triple {
	id := e.EntityID()
	triples := []message.Triple{
		{Subject: id, Predicate: shacl.ReportRun, Object: e.runID},
	}
	for _, c := range resultColumns {
		v := e.value(c.column)
		if v == "" {
			continue
		}
		triples = append(triples, message.Triple{Subject: id, Predicate: c.predicate, Object: v})
	}
	triples = append(triples, message.Triple{
		Subject:   id,
		Predicate: shacl.ResultLabel,
		Object:    report.ResultLabel(e.value(shacl.ResultPath), e.value(shacl.ResultMessage)),
	})

	if v := e.value(shacl.Conforms); v != "" {
		conforms, err := strconv.ParseBool(v)
		if err == nil {
			triples = append(triples, message.Triple{Subject: id, Predicate: shacl.ReportConforms, Object: conforms})
		}
	}
	if v := e.value(shacl.ProvWasDerivedFrom); v != "" {
		triples = append(triples, message.Triple{Subject: id, Predicate: shacl.ReportDataGraph, Object: v})
	}
	if v := e.value(shacl.ProvWasInformedBy); v != "" {
		triples = append(triples, message.Triple{Subject: id, Predicate: shacl.ReportShapesGraph, Object: v})
	}
	if v := e.value(shacl.ProvGeneratedAtTime); v != "" {
		triples = append(triples, message.Triple{Subject: id, Predicate: shacl.ReportGeneratedAt, Object: v})
	}
	return triples
}

func (e *ResultEntity) value(column string) string {
	i := e.entities.Column(column)
	if i < 0 {
		return ""
	}
	return e.entity.Value(i)
}

// ResultEntityType is the message type for result entity payloads.
var ResultEntityType = message.Type{Domain: "shacl", Category: "result", Version: "v1"}

// ResultEntityPayload implements message.Payload and graph.Graphable.
type ResultEntityPayload struct {
	ID         string           `json:"id"`
	TripleData []message.Triple `json:"triples"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// EntityID returns the entity identifier.
func (p *ResultEntityPayload) EntityID() string {
	return p.ID
}

// Triples returns the graph triples for this entity.
func (p *ResultEntityPayload) Triples() []message.Triple {
	return p.TripleData
}

// Schema returns the message type.
func (p *ResultEntityPayload) Schema() message.Type {
	return ResultEntityType
}

// Validate ensures the payload has required fields.
func (p *ResultEntityPayload) Validate() error {
	if p.ID == "" {
		return errors.New("entity ID is required")
	}
	if len(p.TripleData) == 0 {
		return errors.New("at least one triple is required")
	}
	return nil
}

// MarshalJSON implements json.Marshaler for the Payload interface.
func (p *ResultEntityPayload) MarshalJSON() ([]byte, error) {
	type Alias ResultEntityPayload
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON implements json.Unmarshaler for the Payload interface.
func (p *ResultEntityPayload) UnmarshalJSON(data []byte) error {
	type Alias ResultEntityPayload
	return json.Unmarshal(data, (*Alias)(p))
}

// Publisher publishes raw messages to a JetStream subject.
// *natsclient.Client satisfies it.
type Publisher interface {
	PublishToStream(ctx context.Context, subject string, data []byte) error
}

// publishEntities publishes one graph entity per validation result.
// Returns the number of entities published.
func publishEntities(ctx context.Context, pub Publisher, org, runID string, entities *report.Entities, now time.Time) (int, error) {
	published := 0
	for i := range entities.Len() {
		ent := NewResultEntity(org, runID, i, entities)
		payload := &ResultEntityPayload{
			ID:         ent.EntityID(),
			TripleData: ent.Triples(),
			UpdatedAt:  now,
		}
		msg := message.NewBaseMessage(ResultEntityType, payload, componentName)
		data, err := json.Marshal(msg)
		if err != nil {
			return published, fmt.Errorf("marshal result entity %s: %w", payload.ID, err)
		}
		if err := pub.PublishToStream(ctx, graphIngestSubject, data); err != nil {
			return published, fmt.Errorf("publish result entity %s: %w", payload.ID, err)
		}
		published++
	}
	return published, nil
}
