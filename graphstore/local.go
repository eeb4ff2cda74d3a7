package graphstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/c360studio/semshacl/rdfgraph"
	"github.com/c360studio/semshacl/vocabulary/shacl"
)

// owlImports is the owl:imports property followed during import resolution.
const owlImports = shacl.OWL + "imports"

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// LocalGraph maps a graph IRI to files on disk.
type LocalGraph struct {
	// IRI is the graph name.
	IRI string `yaml:"iri" json:"iri"`

	// Label is an optional display label.
	Label string `yaml:"label" json:"label,omitempty"`

	// Files are doublestar glob patterns relative to the store root. All
	// matching files are parsed into the graph.
	Files []string `yaml:"files" json:"files"`

	// Classes are the graph classes reported in the catalog.
	Classes []string `yaml:"classes" json:"classes"`
}

// LocalStore is a Store backed by RDF files. Uploaded graphs are written as
// N-Triples into an output directory and served from memory afterwards.
type LocalStore struct {
	root      string
	outputDir string
	logger    *slog.Logger

	mu     sync.RWMutex
	graphs map[string]LocalGraph
	posted map[string]*rdfgraph.Graph
}

// NewLocalStore creates a LocalStore. Relative file patterns resolve against
// root. When outputDir is empty the store is read-only.
func NewLocalStore(root, outputDir string, graphs []LocalGraph, logger *slog.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	s := &LocalStore{
		root:      absRoot,
		outputDir: outputDir,
		logger:    logger,
		graphs:    make(map[string]LocalGraph, len(graphs)),
		posted:    make(map[string]*rdfgraph.Graph),
	}
	for _, g := range graphs {
		if g.IRI == "" {
			return nil, fmt.Errorf("local graph without iri")
		}
		s.graphs[g.IRI] = g
	}
	return s, nil
}

// ListGraphs returns the configured and uploaded graphs.
func (s *LocalStore) ListGraphs(_ context.Context) ([]GraphInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]GraphInfo, 0, len(s.graphs)+len(s.posted))
	for _, g := range s.graphs {
		out = append(out, GraphInfo{IRI: g.IRI, AssignedClasses: g.Classes, Label: g.Label})
	}
	for iri := range s.posted {
		if _, ok := s.graphs[iri]; !ok {
			out = append(out, GraphInfo{IRI: iri, AssignedClasses: []string{}})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IRI < out[j].IRI })
	return out, nil
}

// GetGraph parses the files of a graph. With import resolution, graphs named
// by owl:imports that are known to the store are merged in transitively.
func (s *LocalStore) GetGraph(ctx context.Context, iri string, opts GetOptions) (*rdfgraph.Graph, error) {
	g, err := s.load(ctx, iri)
	if err != nil {
		return nil, err
	}
	if !opts.OWLImportsResolution {
		return g, nil
	}

	visited := map[string]bool{iri: true}
	queue := importsOf(g)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if visited[next] {
			continue
		}
		visited[next] = true
		imported, err := s.load(ctx, next)
		if err != nil {
			s.logger.Debug("Skipping unresolved import", "graph", iri, "import", next, "error", err)
			continue
		}
		g.Merge(imported)
		queue = append(queue, importsOf(imported)...)
	}
	return g, nil
}

func importsOf(g *rdfgraph.Graph) []string {
	var out []string
	for _, o := range g.ObjectsOf(rdfgraph.IRI(owlImports)) {
		if rdfgraph.IsIRI(o) {
			out = append(out, rdfgraph.TermText(o))
		}
	}
	return out
}

func (s *LocalStore) load(ctx context.Context, iri string) (*rdfgraph.Graph, error) {
	s.mu.RLock()
	posted, isPosted := s.posted[iri]
	def, isDefined := s.graphs[iri]
	s.mu.RUnlock()

	if isPosted {
		return posted.Clone(), nil
	}
	if !isDefined {
		return nil, fmt.Errorf("get graph <%s>: %w", iri, ErrGraphNotFound)
	}

	files, err := s.resolve(def)
	if err != nil {
		return nil, fmt.Errorf("get graph <%s>: %w", iri, err)
	}
	g := rdfgraph.New()
	for _, path := range files {
		format, err := rdfgraph.FormatForPath(path)
		if err != nil {
			return nil, fmt.Errorf("get graph <%s>: %w", iri, err)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("get graph <%s>: %w", iri, err)
		}
		part, err := rdfgraph.Parse(ctx, f, format)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("get graph <%s> from %s: %w", iri, path, err)
		}
		g.Merge(part)
	}
	return g, nil
}

// resolve expands the file patterns of a graph definition.
func (s *LocalStore) resolve(def LocalGraph) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, pattern := range def.Files {
		absPattern := pattern
		if !filepath.IsAbs(pattern) {
			absPattern = filepath.Join(s.root, pattern)
		}
		matches, err := doublestar.FilepathGlob(absPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files match %v", def.Files)
	}
	return files, nil
}

// Files returns every file backing the configured graphs.
func (s *LocalStore) Files() []string {
	s.mu.RLock()
	defs := make([]LocalGraph, 0, len(s.graphs))
	for _, g := range s.graphs {
		defs = append(defs, g)
	}
	s.mu.RUnlock()

	var out []string
	for _, def := range defs {
		files, err := s.resolve(def)
		if err != nil {
			continue
		}
		out = append(out, files...)
	}
	sort.Strings(out)
	return out
}

// Root returns the absolute store root.
func (s *LocalStore) Root() string {
	return s.root
}

// PostGraph stores g and writes it to the output directory as N-Triples.
func (s *LocalStore) PostGraph(ctx context.Context, iri string, g *rdfgraph.Graph, opts PostOptions) error {
	if s.outputDir == "" {
		return fmt.Errorf("post graph <%s>: %w", iri, ErrReadOnly)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := g.Clone()
	if existing, ok := s.posted[iri]; ok && !opts.Replace {
		merged = existing.Clone()
		merged.Merge(g)
	}

	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	path := s.OutputPath(iri)
	data, err := merged.Bytes(ctx, rdfgraph.FormatNTriples)
	if err != nil {
		return fmt.Errorf("post graph <%s>: %w", iri, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write graph <%s>: %w", iri, err)
	}
	s.posted[iri] = merged
	s.logger.Debug("Wrote graph", "graph", iri, "path", path, "triples", merged.Len())
	return nil
}

// OutputPath returns the file an uploaded graph is written to.
func (s *LocalStore) OutputPath(iri string) string {
	name := unsafeFileChars.ReplaceAllString(iri, "_")
	return filepath.Join(s.outputDir, name+".nt")
}

// DeleteGraph removes an uploaded graph and its output file.
func (s *LocalStore) DeleteGraph(_ context.Context, iri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posted[iri]; !ok {
		return fmt.Errorf("delete graph <%s>: %w", iri, ErrGraphNotFound)
	}
	delete(s.posted, iri)
	if err := os.Remove(s.OutputPath(iri)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete graph <%s>: %w", iri, err)
	}
	return nil
}

// Compile-time interface checks.
var (
	_ Store = (*Client)(nil)
	_ Store = (*LocalStore)(nil)
)
