// Package store records compile and estimate runs so that they can be
// listed and fetched again by id.
//
// Backends:
//   - [SQLiteStore]: a local database file, the CLI default
//   - [MongoStore]: a shared collection for server deployments
//   - [NullStore]: records nothing
//
// A run keeps its input and its JSON result, not the rendered artifacts;
// those are cheap to regenerate through the pipeline cache.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Kind is what a run computed.
type Kind string

// Run kinds.
const (
	KindCompile  Kind = "compile"
	KindEstimate Kind = "estimate"
	KindSweep    Kind = "sweep"
)

// Run is one recorded invocation.
type Run struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	// InputHash identifies the input, the stream hash for compiles.
	InputHash string `json:"input_hash"`
	// Input is the instruction stream or the estimator experiment.
	Input string `json:"input,omitempty"`
	// Summary is a one-line description for listings.
	Summary string          `json:"summary"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// NewRun creates a run with a fresh id. result is marshaled to JSON.
func NewRun(kind Kind, inputHash, input, summary string, result any) (*Run, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return &Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
		InputHash: inputHash,
		Input:     input,
		Summary:   summary,
		Result:    data,
	}, nil
}

// ListOptions filters [Store.ListRuns].
type ListOptions struct {
	// Kind restricts the listing; empty lists every kind.
	Kind Kind
	// Limit caps the number of runs, newest first. Zero means DefaultLimit.
	Limit int
}

// DefaultLimit is the listing size when none is given.
const DefaultLimit = 50

func (o ListOptions) limit() int {
	if o.Limit <= 0 {
		return DefaultLimit
	}
	return o.Limit
}

// Store is the interface for run storage backends.
type Store interface {
	// SaveRun inserts run. Saving an existing id replaces it.
	SaveRun(ctx context.Context, run *Run) error

	// GetRun returns the run with id, or ErrNotFound.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context, opts ListOptions) ([]*Run, error)

	Close() error
}
