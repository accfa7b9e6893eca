package store

import "context"

// NullStore records nothing.
type NullStore struct{}

// SaveRun does nothing.
func (NullStore) SaveRun(context.Context, *Run) error { return nil }

// GetRun always reports ErrNotFound.
func (NullStore) GetRun(context.Context, string) (*Run, error) { return nil, ErrNotFound }

// ListRuns returns no runs.
func (NullStore) ListRuns(context.Context, ListOptions) ([]*Run, error) { return nil, nil }

// Close does nothing.
func (NullStore) Close() error { return nil }

var _ Store = NullStore{}
