// Package graphstore provides access to the named graphs of an RDF graph
// store: catalog listing, graph download, graph upload and deletion.
//
// Client talks to the eccenca DataPlatform graph proxy API over HTTP.
// LocalStore serves the same interface from files on disk.
package graphstore

import (
	"context"
	"errors"
	"slices"

	"github.com/c360studio/semshacl/rdfgraph"
)

// Common graph store errors.
var (
	// ErrGraphNotFound is returned when a graph does not exist in the store.
	ErrGraphNotFound = errors.New("graph not found")

	// ErrReadOnly is returned when a store does not accept uploads.
	ErrReadOnly = errors.New("graph store is read-only")
)

// GraphInfo describes one named graph in the store catalog.
type GraphInfo struct {
	IRI             string   `json:"iri"`
	AssignedClasses []string `json:"assignedClasses"`
	Label           string   `json:"label,omitempty"`
}

// HasClass reports whether the graph is assigned any of the given classes.
func (g GraphInfo) HasClass(classes ...string) bool {
	for _, c := range classes {
		if slices.Contains(g.AssignedClasses, c) {
			return true
		}
	}
	return false
}

// GetOptions controls graph download.
type GetOptions struct {
	// OWLImportsResolution includes the graphs reachable via owl:imports.
	OWLImportsResolution bool
}

// PostOptions controls graph upload.
type PostOptions struct {
	// Replace clears the target graph before the upload.
	Replace bool
}

// Store is a named graph store.
type Store interface {
	ListGraphs(ctx context.Context) ([]GraphInfo, error)
	GetGraph(ctx context.Context, iri string, opts GetOptions) (*rdfgraph.Graph, error)
	PostGraph(ctx context.Context, iri string, g *rdfgraph.Graph, opts PostOptions) error
	DeleteGraph(ctx context.Context, iri string) error
}

// Catalog indexes a graph listing by IRI.
type Catalog map[string]GraphInfo

// NewCatalog builds a Catalog from a listing.
func NewCatalog(graphs []GraphInfo) Catalog {
	c := make(Catalog, len(graphs))
	for _, g := range graphs {
		c[g.IRI] = g
	}
	return c
}

// LoadCatalog lists the graphs of s into a Catalog.
func LoadCatalog(ctx context.Context, s Store) (Catalog, error) {
	graphs, err := s.ListGraphs(ctx)
	if err != nil {
		return nil, err
	}
	return NewCatalog(graphs), nil
}

// Has reports whether iri is in the catalog.
func (c Catalog) Has(iri string) bool {
	_, ok := c[iri]
	return ok
}

// HasClass reports whether iri is in the catalog with any of the classes.
func (c Catalog) HasClass(iri string, classes ...string) bool {
	g, ok := c[iri]
	return ok && g.HasClass(classes...)
}

// Filter returns the catalog entries carrying any of the classes, sorted by
// IRI. With no classes every entry is returned.
func (c Catalog) Filter(classes ...string) []GraphInfo {
	out := make([]GraphInfo, 0, len(c))
	for _, g := range c {
		if len(classes) == 0 || g.HasClass(classes...) {
			out = append(out, g)
		}
	}
	slices.SortFunc(out, func(a, b GraphInfo) int {
		switch {
		case a.IRI < b.IRI:
			return -1
		case a.IRI > b.IRI:
			return 1
		}
		return 0
	})
	return out
}
