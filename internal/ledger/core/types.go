// Package core defines the run ledger record and the storage contract
// implemented by the persistence drivers.
package core

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"
)

// Driver identifies a ledger backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverMemory   Driver = "memory"
)

// Status is the outcome of a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one analysis execution as recorded in the ledger.
type Run struct {
	ID         string         `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Status     Status         `json:"status"`
	Error      string         `json:"error,omitempty"`
	Dataset    string         `json:"dataset"`
	Counts     map[string]int `json:"counts,omitempty"`
	Artifacts  []string       `json:"artifacts,omitempty"`
}

// Store persists run records. Record upserts by ID.
type Store interface {
	Record(ctx context.Context, run Run) error
	Get(ctx context.Context, id string) (Run, error)
	// List returns the most recent runs first; limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Run, error)
	Close() error
	Driver() Driver
}

// ErrRunNotFound is returned by Get for unknown run IDs.
var ErrRunNotFound = errors.New("ledger: run not found")

// Validate rejects records that cannot be stored.
func (r Run) Validate() error {
	if r.ID == "" {
		return errors.New("ledger: run id is required")
	}
	if r.StartedAt.IsZero() {
		return errors.New("ledger: run start time is required")
	}
	return nil
}

// Newest orders runs by start time descending, breaking ties by ID, and
// truncates to limit when limit > 0.
func Newest(runs []Run, limit int) []Run {
	slices.SortFunc(runs, func(a, b Run) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs
}

// Clone deep-copies r so stores never share maps or slices with callers.
func (r Run) Clone() Run {
	if r.Counts != nil {
		counts := make(map[string]int, len(r.Counts))
		for k, v := range r.Counts {
			counts[k] = v
		}
		r.Counts = counts
	}
	r.Artifacts = slices.Clone(r.Artifacts)
	return r
}
