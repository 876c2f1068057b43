// Package memory keeps the run ledger in process memory. It backs tests
// and one-shot runs that should leave no database behind.
package memory

import (
	"context"
	"fmt"
	"sync"

	"orthoset/internal/ledger/core"
)

// Store implements core.Store with a mutex-guarded map.
type Store struct {
	mu   sync.RWMutex
	runs map[string]core.Run
}

// NewStore returns an empty ledger.
func NewStore() *Store {
	return &Store{runs: make(map[string]core.Run)}
}

// Driver returns the ledger driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Record upserts run.
func (s *Store) Record(_ context.Context, run core.Run) error {
	if err := run.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run.Clone()
	return nil
}

// Get returns the run with id.
func (s *Store) Get(_ context.Context, id string) (core.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return core.Run{}, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	return run.Clone(), nil
}

// List returns up to limit runs, newest first.
func (s *Store) List(_ context.Context, limit int) ([]core.Run, error) {
	s.mu.RLock()
	out := make([]core.Run, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run.Clone())
	}
	s.mu.RUnlock()
	return core.Newest(out, limit), nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
