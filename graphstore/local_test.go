package graphstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/c360studio/semshacl/rdfgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newLocalStore(t *testing.T) (*LocalStore, string) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "data/a.nt", "<http://example.org/a> <http://example.org/p> \"a\" .\n")
	writeFile(t, dir, "data/nested/b.nt", "<http://example.org/b> <http://example.org/p> \"b\" .\n"+
		"<https://example.org/data/> <http://www.w3.org/2002/07/owl#imports> <https://example.org/vocab/> .\n")
	writeFile(t, dir, "vocab.ttl", "@prefix ex: <http://example.org/> .\nex:Thing ex:p \"vocab\" .\n")

	store, err := NewLocalStore(dir, filepath.Join(dir, "out"), []LocalGraph{
		{IRI: "https://example.org/data/", Files: []string{"data/**/*.nt"}, Classes: []string{"https://vocab.eccenca.com/di/Dataset"}},
		{IRI: "https://example.org/vocab/", Files: []string{"vocab.ttl"}, Classes: []string{"http://www.w3.org/2002/07/owl#Ontology"}},
		{IRI: "https://example.org/empty/", Files: []string{"missing/*.nt"}},
	}, nil)
	require.NoError(t, err)
	return store, dir
}

func TestLocalStoreList(t *testing.T) {
	store, _ := newLocalStore(t)
	graphs, err := store.ListGraphs(context.Background())
	require.NoError(t, err)
	require.Len(t, graphs, 3)
	assert.Equal(t, "https://example.org/data/", graphs[0].IRI)
}

func TestLocalStoreGetGraph(t *testing.T) {
	store, _ := newLocalStore(t)
	ctx := context.Background()

	g, err := store.GetGraph(ctx, "https://example.org/data/", GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, g.Len())

	withImports, err := store.GetGraph(ctx, "https://example.org/data/", GetOptions{OWLImportsResolution: true})
	require.NoError(t, err)
	assert.Equal(t, 4, withImports.Len())

	_, err = store.GetGraph(ctx, "https://example.org/unknown/", GetOptions{})
	assert.True(t, errors.Is(err, ErrGraphNotFound))

	_, err = store.GetGraph(ctx, "https://example.org/empty/", GetOptions{})
	assert.Error(t, err)
}

func TestLocalStorePostGraph(t *testing.T) {
	store, _ := newLocalStore(t)
	ctx := context.Background()
	iri := "https://example.org/report/"

	g := rdfgraph.New()
	g.Add(rdfgraph.IRI("http://example.org/r"), rdfgraph.IRI("http://example.org/p"), rdfgraph.Literal("1"))
	require.NoError(t, store.PostGraph(ctx, iri, g, PostOptions{Replace: true}))

	more := rdfgraph.New()
	more.Add(rdfgraph.IRI("http://example.org/r"), rdfgraph.IRI("http://example.org/p"), rdfgraph.Literal("2"))
	require.NoError(t, store.PostGraph(ctx, iri, more, PostOptions{Replace: false}))

	got, err := store.GetGraph(ctx, iri, GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())

	data, err := os.ReadFile(store.OutputPath(iri))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\"2\"")

	require.NoError(t, store.PostGraph(ctx, iri, more, PostOptions{Replace: true}))
	got, err = store.GetGraph(ctx, iri, GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())

	graphs, err := store.ListGraphs(ctx)
	require.NoError(t, err)
	assert.Len(t, graphs, 4)

	require.NoError(t, store.DeleteGraph(ctx, iri))
	_, err = os.Stat(store.OutputPath(iri))
	assert.True(t, os.IsNotExist(err))
	assert.True(t, errors.Is(store.DeleteGraph(ctx, iri), ErrGraphNotFound))
}

func TestLocalStoreReadOnly(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "", nil, nil)
	require.NoError(t, err)
	err = store.PostGraph(context.Background(), "https://example.org/r/", rdfgraph.New(), PostOptions{})
	assert.True(t, errors.Is(err, ErrReadOnly))
}

func TestLocalStoreFiles(t *testing.T) {
	store, dir := newLocalStore(t)
	files := store.Files()
	assert.Equal(t, []string{
		filepath.Join(dir, "data/a.nt"),
		filepath.Join(dir, "data/nested/b.nt"),
		filepath.Join(dir, "vocab.ttl"),
	}, files)
}
