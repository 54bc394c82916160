// Package repository persists solve records.
package repository

import (
	"context"
	"time"

	"github.com/okian/pcmatch/internal/domain/solver"
)

// Status is the lifecycle state of a solve.
type Status string

// Solve states.
const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is expected.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Record is one solve as seen by clients.
type Record struct {
	ID                string         `json:"id"`
	Round             string         `json:"round"`
	Status            Status         `json:"status"`
	Error             string         `json:"error,omitempty"`
	FailureKind       string         `json:"failure_kind,omitempty"`
	Underserved       int            `json:"underserved,omitempty"`
	UnderservedPapers []string       `json:"underserved_papers,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	Result            *solver.Result `json:"result,omitempty"`
}

// Store provides read/write access to solve records.
type Store interface {
	// Save inserts rec or replaces the record with the same ID.
	Save(ctx context.Context, rec Record) error

	// Get returns the record with id.
	// Returns ErrNotFound if the id is unknown.
	Get(ctx context.Context, id string) (Record, error)

	// List returns up to limit records, newest first.
	List(ctx context.Context, limit int) ([]Record, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) int

	// CountByStatus returns the number of stored records per status.
	CountByStatus(ctx context.Context) (map[Status]int, error)

	Close() error
}
