// Package storage records validation run history in NATS KV.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// BucketRuns is the KV bucket holding run records.
const BucketRuns = "SHACL_RUNS"

// ErrNotFound is returned when a run is not found.
var ErrNotFound = errors.New("run not found")

// RunStatus is the state of a run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusRejected  RunStatus = "rejected"
)

// Run is one validation run.
type Run struct {
	ID            string            `json:"id"`
	RequestID     string            `json:"request_id,omitempty"`
	Status        RunStatus         `json:"status"`
	Parameters    map[string]string `json:"parameters"`
	Conforms      *bool             `json:"conforms,omitempty"`
	ResultCount   int               `json:"result_count"`
	Posted        bool              `json:"posted"`
	StartedAt     time.Time         `json:"started_at"`
	FinishedAt    *time.Time        `json:"finished_at,omitempty"`
	DurationMs    int64             `json:"duration_ms"`
	Error         string            `json:"error,omitempty"`
	StatusChanges []StatusChange    `json:"status_changes,omitempty"`
}

// StatusChange records a status transition.
type StatusChange struct {
	From      RunStatus `json:"from"`
	To        RunStatus `json:"to"`
	Timestamp time.Time `json:"timestamp"`
}

// Finished reports whether the run reached a terminal status.
func (r *Run) Finished() bool {
	return r.Status == RunStatusCompleted || r.Status == RunStatusFailed || r.Status == RunStatusRejected
}

// SetStatus moves the run to status, recording the transition and the
// finish time for terminal states.
func (r *Run) SetStatus(status RunStatus, now time.Time) {
	if r.Status == status {
		return
	}
	r.StatusChanges = append(r.StatusChanges, StatusChange{From: r.Status, To: status, Timestamp: now})
	r.Status = status
	if r.Finished() {
		r.FinishedAt = &now
		r.DurationMs = now.Sub(r.StartedAt).Milliseconds()
	}
}

// RunStore provides run storage backed by NATS KV.
type RunStore struct {
	runs jetstream.KeyValue
}

// NewRunStore opens the run bucket, creating it if it doesn't exist.
func NewRunStore(ctx context.Context, js jetstream.JetStream, bucket string) (*RunStore, error) {
	if bucket == "" {
		bucket = BucketRuns
	}
	kv, err := getOrCreateBucket(ctx, js, bucket)
	if err != nil {
		return nil, fmt.Errorf("create runs bucket: %w", err)
	}
	return &RunStore{runs: kv}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Semshacl %s storage", strings.ToLower(name)),
		History:     5,
	})
}

// Record stores run, replacing any previous revision.
func (s *RunStore) Record(ctx context.Context, run *Run) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	if _, err := s.runs.Put(ctx, run.ID, data); err != nil {
		return fmt.Errorf("store run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID.
func (s *RunStore) Get(ctx context.Context, id string) (*Run, error) {
	entry, err := s.runs.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}

	var r Run
	if err := json.Unmarshal(entry.Value(), &r); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}
	return &r, nil
}

// List returns up to limit runs, newest first. A limit of zero or less
// returns all runs.
func (s *RunStore) List(ctx context.Context, limit int) ([]*Run, error) {
	keys, err := s.runs.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list run keys: %w", err)
	}

	runs := make([]*Run, 0, len(keys))
	for _, key := range keys {
		entry, err := s.runs.Get(ctx, key)
		if err != nil {
			continue // Skip entries that fail to load
		}
		var r Run
		if err := json.Unmarshal(entry.Value(), &r); err != nil {
			continue
		}
		runs = append(runs, &r)
	}

	SortNewestFirst(runs)
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// SortNewestFirst orders runs by start time, most recent first.
func SortNewestFirst(runs []*Run) {
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound) || strings.Contains(err.Error(), "key not found")
}
