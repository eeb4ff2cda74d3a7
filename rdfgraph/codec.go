package rdfgraph

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/geoknoesis/rdf-go/rdf"
)

// Serialization formats supported for graphs.
const (
	FormatTurtle   = rdf.FormatTurtle
	FormatNTriples = rdf.FormatNTriples
	FormatRDFXML   = rdf.FormatRDFXML
	FormatJSONLD   = rdf.FormatJSONLD
)

// MIME types for the supported formats.
const (
	MIMETurtle   = "text/turtle"
	MIMENTriples = "application/n-triples"
	MIMERDFXML   = "application/rdf+xml"
	MIMEJSONLD   = "application/ld+json"
)

// MIMEType returns the content type for a format.
func MIMEType(format rdf.Format) string {
	switch format {
	case FormatNTriples:
		return MIMENTriples
	case FormatRDFXML:
		return MIMERDFXML
	case FormatJSONLD:
		return MIMEJSONLD
	default:
		return MIMETurtle
	}
}

// FormatForContentType maps a response content type to a triple format.
// Unknown or empty types fall back to Turtle.
func FormatForContentType(contentType string) rdf.Format {
	f, err := rdf.ResolveAnyFormatFromContentType(contentType)
	if err != nil || f.Kind != rdf.FormatTriples {
		return FormatTurtle
	}
	return rdf.Format(f.Name)
}

// FormatForPath infers a triple format from a file extension.
func FormatForPath(path string) (rdf.Format, error) {
	f, err := rdf.ResolveAnyFormatFromPath(path)
	if err != nil {
		return "", err
	}
	if f.Kind != rdf.FormatTriples {
		return "", fmt.Errorf("%s: named graph formats are not supported", path)
	}
	return rdf.Format(f.Name), nil
}

// Parse reads a graph in the given format.
func Parse(ctx context.Context, r io.Reader, format rdf.Format) (*Graph, error) {
	quads, err := rdf.ParseAny(ctx, r, string(format), rdf.AnyFormatOptions{})
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", format, err)
	}
	g := New()
	for _, q := range quads {
		g.Add(q.S, q.P, q.O)
	}
	return g, nil
}

// ParseBytes parses data in the given format.
func ParseBytes(ctx context.Context, data []byte, format rdf.Format) (*Graph, error) {
	return Parse(ctx, bytes.NewReader(data), format)
}

// ParseString parses an N-Triples or Turtle document held in a string.
func ParseString(ctx context.Context, data string, format rdf.Format) (*Graph, error) {
	return Parse(ctx, strings.NewReader(data), format)
}

// Serialize writes g in the given format.
func (g *Graph) Serialize(ctx context.Context, w io.Writer, format rdf.Format) error {
	return g.serialize(ctx, w, format, rdf.AnyFormatOptions{})
}

// SerializeTurtle writes g as Turtle using the given prefix map.
func (g *Graph) SerializeTurtle(ctx context.Context, w io.Writer, prefixes map[string]string) error {
	return g.serialize(ctx, w, FormatTurtle, rdf.AnyFormatOptions{
		Turtle: &rdf.TurtleEncodeOptions{Prefixes: prefixes},
	})
}

func (g *Graph) serialize(ctx context.Context, w io.Writer, format rdf.Format, opts rdf.AnyFormatOptions) error {
	quads := make([]rdf.Quad, 0, len(g.triples))
	for _, t := range g.triples {
		quads = append(quads, t.ToQuad())
	}
	if err := rdf.SerializeAny(ctx, w, string(format), quads, opts); err != nil {
		return fmt.Errorf("serialize %s: %w", format, err)
	}
	return nil
}

// Bytes serializes g into memory.
func (g *Graph) Bytes(ctx context.Context, format rdf.Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := g.Serialize(ctx, &buf, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
