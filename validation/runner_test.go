package validation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/c360studio/semshacl/engine"
	"github.com/c360studio/semshacl/graphstore"
	"github.com/c360studio/semshacl/rdfgraph"
	"github.com/c360studio/semshacl/vocabulary/shacl"
	"github.com/geoknoesis/rdf-go/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ex = "http://example.org/"

// memStore is an in-memory graph store.
type memStore struct {
	mu       sync.Mutex
	catalog  []graphstore.GraphInfo
	graphs   map[string]*rdfgraph.Graph
	posted   map[string]*rdfgraph.Graph
	replace  map[string]bool
	tokens   []string
	postErr  error
	imports  []bool
	listErrs error
}

func newMemStore() *memStore {
	data := rdfgraph.New()
	data.Add(rdfgraph.IRI(ex+"alice"), rdfgraph.IRI(shacl.RDFSLabel), rdfgraph.Literal("Alice"))
	shapes := rdfgraph.New()
	shapes.Add(rdfgraph.IRI(ex+"PersonShape"), rdfgraph.IRI(shacl.RDFSLabel), rdfgraph.Literal("Person shape"))
	return &memStore{
		catalog: testCatalog().Filter(),
		graphs: map[string]*rdfgraph.Graph{
			dataURI:     data,
			shapesURI:   shapes,
			ontologyURI: rdfgraph.New(),
		},
		posted:  map[string]*rdfgraph.Graph{},
		replace: map[string]bool{},
	}
}

func (m *memStore) ListGraphs(ctx context.Context) ([]graphstore.GraphInfo, error) {
	if m.listErrs != nil {
		return nil, m.listErrs
	}
	return m.catalog, nil
}

func (m *memStore) GetGraph(ctx context.Context, iri string, opts graphstore.GetOptions) (*rdfgraph.Graph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token, ok := graphstore.AccessTokenFrom(ctx); ok {
		m.tokens = append(m.tokens, token)
	}
	m.imports = append(m.imports, opts.OWLImportsResolution)
	g, ok := m.graphs[iri]
	if !ok {
		return nil, graphstore.ErrGraphNotFound
	}
	return g.Clone(), nil
}

func (m *memStore) PostGraph(ctx context.Context, iri string, g *rdfgraph.Graph, opts graphstore.PostOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postErr != nil {
		return m.postErr
	}
	m.posted[iri] = g
	m.replace[iri] = opts.Replace
	return nil
}

func (m *memStore) DeleteGraph(ctx context.Context, iri string) error {
	return nil
}

// fakeReport returns an engine that reports one violation on ex:alice.
func fakeReport(seen *engine.Request) engine.Validator {
	return engine.ValidatorFunc(func(ctx context.Context, req engine.Request) (*engine.Outcome, error) {
		if seen != nil {
			*seen = req
		}
		g := rdfgraph.New()
		node := rdf.BlankNode{ID: "report"}
		result := rdf.BlankNode{ID: "result"}
		g.Add(node, rdfgraph.IRI(shacl.RDFType), rdfgraph.IRI(shacl.ValidationReport))
		g.Add(node, rdfgraph.IRI(shacl.Conforms), rdfgraph.TypedLiteral("false", shacl.XSDBoolean))
		g.Add(node, rdfgraph.IRI(shacl.Result), result)
		g.Add(result, rdfgraph.IRI(shacl.RDFType), rdfgraph.IRI(shacl.ValidationResult))
		g.Add(result, rdfgraph.IRI(shacl.FocusNode), rdfgraph.IRI(ex+"alice"))
		g.Add(result, rdfgraph.IRI(shacl.ResultPath), rdfgraph.IRI(ex+"age"))
		g.Add(result, rdfgraph.IRI(shacl.SourceShape), rdfgraph.IRI(ex+"PersonShape"))
		g.Add(result, rdfgraph.IRI(shacl.ResultMessage), rdfgraph.Literal("Less than 1 values on alice->age"))
		g.Add(result, rdfgraph.IRI(shacl.ResultSeverity), rdfgraph.IRI(shacl.SH+"Violation"))
		return &engine.Outcome{Conforms: false, Report: g, Duration: 10 * time.Millisecond}, nil
	})
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
}

func TestExecuteOutputValues(t *testing.T) {
	store := newMemStore()
	var seen engine.Request
	runner := NewRunner(store, fakeReport(&seen), WithClock(fixedClock))

	p := validParameters()
	p.MetaSHACL = true
	p.Inference = engine.InferenceRDFS
	p.OntologyGraphURI = ontologyURI

	ctx := graphstore.WithAccessToken(context.Background(), "user-token")
	res, err := runner.Execute(ctx, p, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.False(t, res.Conforms)
	assert.Equal(t, 1, res.ResultCount)
	assert.Equal(t, "2024-05-01T10:00:00Z", res.Timestamp)
	assert.False(t, res.Posted)
	assert.Empty(t, store.posted)

	require.Equal(t, 1, res.Entities.Len())
	e := res.Entities.Entities[0]
	assert.Equal(t, "result", e.URI)
	assert.Equal(t, ex+"alice", e.Value(res.Entities.Column(shacl.FocusNode)))
	assert.Equal(t, dataURI, e.Value(res.Entities.Column(shacl.ProvWasDerivedFrom)))

	assert.True(t, seen.MetaSHACL)
	assert.Equal(t, engine.InferenceRDFS, seen.Inference)
	assert.NotNil(t, seen.Ontology)
	assert.Equal(t, []string{"user-token", "user-token", "user-token"}, store.tokens)
	assert.Equal(t, []bool{true, true, true}, store.imports)
}

func TestExecuteGenerateGraph(t *testing.T) {
	store := newMemStore()
	runner := NewRunner(store, fakeReport(nil), WithClock(fixedClock))

	p := validParameters()
	p.GenerateGraph = true
	p.ValidationGraphURI = validationURI
	p.IncludeGraphsLabels = true
	p.AddShuiConformsToValidationGraph = true
	p.ClearValidationGraph = false

	res, err := runner.Execute(context.Background(), p, nil)
	require.NoError(t, err)
	assert.True(t, res.Posted)
	assert.False(t, store.replace[validationURI])

	vg := store.posted[validationURI]
	require.NotNil(t, vg)
	for _, tr := range vg.Triples() {
		assert.False(t, rdfgraph.IsBlank(tr.S), "subject %s not skolemized", tr.S)
		assert.False(t, rdfgraph.IsBlank(tr.O), "object %s not skolemized", tr.O)
	}

	results := vg.Subjects(rdfgraph.IRI(shacl.RDFType), rdfgraph.IRI(shacl.ValidationResult))
	require.Len(t, results, 1)
	resultIRI := rdfgraph.TermText(results[0])
	assert.True(t, strings.HasPrefix(resultIRI, validationURI))
	assert.Equal(t, resultIRI, res.Entities.Entities[0].URI)

	label := rdfgraph.IRI(shacl.RDFSLabel)
	assert.True(t, vg.Has(results[0], label, rdfgraph.Literal("SHACL: age: Less than 1 values on alice->age")))
	assert.True(t, vg.Has(rdfgraph.IRI(ex+"alice"), label, rdfgraph.Literal("Alice")))
	assert.True(t, vg.Has(rdfgraph.IRI(ex+"PersonShape"), label, rdfgraph.Literal("Person shape")))
	assert.True(t, vg.Has(rdfgraph.IRI(ex+"alice"), rdfgraph.IRI(shacl.ShuiConforms), rdfgraph.TypedLiteral("false", shacl.XSDBoolean)))

	reportNode, ok := vg.Subject(rdfgraph.IRI(shacl.RDFType), rdfgraph.IRI(shacl.ValidationReport))
	require.True(t, ok)
	assert.True(t, vg.Has(reportNode, rdfgraph.IRI(shacl.ProvWasDerivedFrom), rdfgraph.IRI(dataURI)))
	assert.True(t, vg.Has(reportNode, rdfgraph.IRI(shacl.ProvGeneratedAtTime), rdfgraph.TypedLiteral("2024-05-01T10:00:00Z", shacl.XSDDateTime)))
}

func TestExecuteShuiWithoutGraphLabels(t *testing.T) {
	store := newMemStore()
	runner := NewRunner(store, fakeReport(nil))

	p := validParameters()
	p.GenerateGraph = true
	p.OutputValues = false
	p.ValidationGraphURI = "https://example.org/new-validation/"
	p.SkolemizeValidationGraph = false
	p.AddShuiConformsToValidationGraph = true

	res, err := runner.Execute(context.Background(), p, nil)
	require.NoError(t, err)
	assert.Nil(t, res.Entities)

	vg := store.posted["https://example.org/new-validation/"]
	require.NotNil(t, vg)
	assert.True(t, vg.Has(rdfgraph.IRI(ex+"alice"), rdfgraph.IRI(shacl.ShuiConforms), rdfgraph.TypedLiteral("false", shacl.XSDBoolean)))
	_, hasLabel := vg.Value(rdfgraph.IRI(ex+"alice"), rdfgraph.IRI(shacl.RDFSLabel))
	assert.False(t, hasLabel)
	assert.True(t, store.replace["https://example.org/new-validation/"])
}

func TestExecuteInputs(t *testing.T) {
	store := newMemStore()
	runner := NewRunner(store, fakeReport(nil))

	_, err := runner.Execute(context.Background(), validParameters(), map[string]string{
		ParamOWLImports: "false",
	})
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false}, store.imports)

	_, err = runner.Execute(context.Background(), validParameters(), map[string]string{
		ParamInference: "rdfs",
	})
	require.Error(t, err)
	assert.True(t, IsParameterError(err))
}

func TestExecuteErrors(t *testing.T) {
	t.Run("invalid parameters", func(t *testing.T) {
		store := newMemStore()
		store.listErrs = errors.New("unused")
		p := validParameters()
		p.DataGraphURI = "bad"
		_, err := NewRunner(store, fakeReport(nil)).Execute(context.Background(), p, nil)
		require.Error(t, err)
		assert.Equal(t, "Data graph URI parameter is invalid", err.Error())
	})

	t.Run("catalog failure", func(t *testing.T) {
		store := newMemStore()
		store.listErrs = errors.New("connection refused")
		_, err := NewRunner(store, fakeReport(nil)).Execute(context.Background(), validParameters(), nil)
		require.Error(t, err)
		assert.False(t, IsParameterError(err))
	})

	t.Run("graph load failure", func(t *testing.T) {
		store := newMemStore()
		delete(store.graphs, shapesURI)
		_, err := NewRunner(store, fakeReport(nil)).Execute(context.Background(), validParameters(), nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, graphstore.ErrGraphNotFound))
	})

	t.Run("engine failure", func(t *testing.T) {
		failing := engine.ValidatorFunc(func(ctx context.Context, req engine.Request) (*engine.Outcome, error) {
			return nil, &engine.ExecError{Command: "pyshacl", ExitCode: 2, Stderr: "boom"}
		})
		_, err := NewRunner(newMemStore(), failing).Execute(context.Background(), validParameters(), nil)
		var execErr *engine.ExecError
		require.True(t, errors.As(err, &execErr))
	})

	t.Run("post failure", func(t *testing.T) {
		store := newMemStore()
		store.postErr = errors.New("status 500")
		p := validParameters()
		p.GenerateGraph = true
		p.ValidationGraphURI = validationURI
		_, err := NewRunner(store, fakeReport(nil)).Execute(context.Background(), p, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "post validation graph")
	})
}
