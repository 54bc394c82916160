// Package loadgen drives a running pcmatch server with synthetic solves
// and checks the finished assignments.
package loadgen

import (
	"time"

	"github.com/okian/pcmatch/internal/domain/model"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Solves       int           // Number of solves to submit
	Workers      int           // Number of concurrent submitters
	Round        model.Round   // Round of every solve
	Reviewers    int           // Reviewers per synthetic snapshot
	Papers       int           // Papers per synthetic snapshot
	Seed         int64         // Seed of the first snapshot; solve i uses Seed+i
	RunID        string        // Idempotency key prefix; a random one per run when empty
	Timeout      time.Duration // HTTP request timeout
	PollInterval time.Duration // Delay between status polls
	Deadline     time.Duration // Upper bound on waiting for all solves
}

// Stats holds run statistics.
type Stats struct {
	RunID      string
	Submitted  int
	Accepted   int
	Duplicate  int
	Rejected   int
	Failed     int
	Succeeded  int
	Infeasible int
	Violations int
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}
