//go:build integration

package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/c360studio/semstreams/natsclient"
)

func newTestRunStore(t *testing.T) *RunStore {
	t.Helper()
	tc := natsclient.NewTestClient(t, natsclient.WithJetStream())
	js, err := tc.Client.JetStream()
	if err != nil {
		t.Fatalf("JetStream() error = %v", err)
	}
	store, err := NewRunStore(context.Background(), js, "")
	if err != nil {
		t.Fatalf("NewRunStore() error = %v", err)
	}
	return store
}

func TestRunStore_RecordAndGet(t *testing.T) {
	store := newTestRunStore(t)
	ctx := context.Background()

	conforms := false
	run := &Run{
		ID:          "run-record-get",
		Status:      RunStatusRunning,
		Parameters:  map[string]string{"data_graph_uri": "https://example.org/data/"},
		StartedAt:   time.Now().UTC(),
		Conforms:    &conforms,
		ResultCount: 3,
	}
	if err := store.Record(ctx, run); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	run.SetStatus(RunStatusCompleted, time.Now().UTC())
	if err := store.Record(ctx, run); err != nil {
		t.Fatalf("Record() update error = %v", err)
	}

	got, err := store.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != RunStatusCompleted {
		t.Errorf("Status = %q, want completed", got.Status)
	}
	if got.Conforms == nil || *got.Conforms {
		t.Errorf("Conforms = %v, want false", got.Conforms)
	}
	if got.Parameters["data_graph_uri"] != "https://example.org/data/" {
		t.Errorf("Parameters = %v", got.Parameters)
	}
}

func TestRunStore_GetMissing(t *testing.T) {
	store := newTestRunStore(t)
	_, err := store.Get(context.Background(), "does-not-exist")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestRunStore_List(t *testing.T) {
	store := newTestRunStore(t)
	ctx := context.Background()

	runs, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() on empty bucket error = %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("List() = %d runs, want 0", len(runs))
	}

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		r := &Run{ID: fmt.Sprintf("run-%d", i), Status: RunStatusCompleted, StartedAt: base.Add(time.Duration(i) * time.Second)}
		if err := store.Record(ctx, r); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	runs, err = store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("List() = %d runs, want 2", len(runs))
	}
	if runs[0].ID != "run-2" || runs[1].ID != "run-1" {
		t.Errorf("List() order = %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestRunStore_RecordRequiresID(t *testing.T) {
	store := newTestRunStore(t)
	if err := store.Record(context.Background(), &Run{}); err == nil {
		t.Fatal("expected error for run without id")
	}
}
