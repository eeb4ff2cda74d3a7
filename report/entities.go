package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/c360studio/semshacl/rdfgraph"
	"github.com/c360studio/semshacl/vocabulary/shacl"
	"github.com/geoknoesis/rdf-go/rdf"
)

// Schema describes the columns of an entity table.
type Schema struct {
	TypeURI string   `json:"type_uri"`
	Paths   []string `json:"paths"`
}

// Entity is one table row. Values holds one value list per schema path.
type Entity struct {
	URI    string     `json:"uri"`
	Values [][]string `json:"values"`
}

// Value returns the first value of column i.
func (e Entity) Value(i int) string {
	if i < 0 || i >= len(e.Values) || len(e.Values[i]) == 0 {
		return ""
	}
	return e.Values[i][0]
}

// Entities is a table of validation results.
type Entities struct {
	Schema   Schema   `json:"schema"`
	Entities []Entity `json:"entities"`
}

// Meta is appended to every result row.
type Meta struct {
	DataGraph   string
	ShapesGraph string
	Timestamp   string
}

// ResultSchema is the schema of validation result tables.
func ResultSchema() Schema {
	paths := make([]string, 0, len(shacl.ResultColumns)+len(shacl.MetaColumns))
	paths = append(paths, shacl.ResultColumns...)
	paths = append(paths, shacl.MetaColumns...)
	return Schema{TypeURI: shacl.ValidationResult, Paths: paths}
}

// MakeEntities builds one entity per validation result of g.
func MakeEntities(ctx context.Context, g *rdfgraph.Graph, f *Formatter, meta Meta) (*Entities, error) {
	conforms := ""
	if v, ok := ConformsValue(g); ok {
		conforms = rdfgraph.TermText(v)
	}

	out := &Entities{Schema: ResultSchema(), Entities: []Entity{}}
	for _, result := range ResultNodes(g) {
		values := make([][]string, 0, len(out.Schema.Paths))
		for _, p := range shacl.ResultColumns {
			cell, err := f.Cell(ctx, g, result, p)
			if err != nil {
				return nil, fmt.Errorf("format %s of %s: %w", p, result, err)
			}
			values = append(values, []string{cell})
		}
		values = append(values,
			[]string{conforms},
			[]string{meta.DataGraph},
			[]string{meta.ShapesGraph},
			[]string{meta.Timestamp},
		)
		out.Entities = append(out.Entities, Entity{URI: nodeURI(result), Values: values})
	}
	return out, nil
}

// nodeURI renders a result node as an entity URI. Blank nodes are
// rendered by their bare identifier.
func nodeURI(t rdf.Term) string {
	if b, ok := t.(rdf.BlankNode); ok {
		return b.ID
	}
	return rdfgraph.TermText(t)
}

// Remap replaces blank node entity URIs by the IRIs they were skolemized to.
func (e *Entities) Remap(mapping map[string]rdf.IRI) {
	for i, ent := range e.Entities {
		if iri, ok := mapping[ent.URI]; ok {
			e.Entities[i].URI = iri.Value
		}
	}
}

// Len returns the number of entities.
func (e *Entities) Len() int {
	if e == nil {
		return 0
	}
	return len(e.Entities)
}

// Header returns the column names of Rows.
func (e *Entities) Header() []string {
	header := make([]string, 0, len(e.Schema.Paths)+1)
	header = append(header, "uri")
	for _, p := range e.Schema.Paths {
		header = append(header, ColumnName(p))
	}
	return header
}

// Rows returns one row per entity: the URI followed by the first value of
// each column.
func (e *Entities) Rows() [][]string {
	rows := make([][]string, 0, len(e.Entities))
	for _, ent := range e.Entities {
		row := make([]string, 0, len(e.Schema.Paths)+1)
		row = append(row, ent.URI)
		for i := range e.Schema.Paths {
			row = append(row, ent.Value(i))
		}
		rows = append(rows, row)
	}
	return rows
}

// Column returns the index of path in the schema, or -1.
func (e *Entities) Column(path string) int {
	for i, p := range e.Schema.Paths {
		if p == path {
			return i
		}
	}
	return -1
}

// WriteCSV writes a header line and the rows as CSV.
func (e *Entities) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(e.Header()); err != nil {
		return err
	}
	if err := cw.WriteAll(e.Rows()); err != nil {
		return err
	}
	return cw.Error()
}

// ColumnName shortens a property IRI to its local name.
func ColumnName(iri string) string {
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 && i < len(iri)-1 {
		return iri[i+1:]
	}
	return iri
}
