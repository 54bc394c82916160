// Package solver runs the full assignment pipeline for one round: it
// normalizes the snapshot, scores every reviewer-paper pair, matches and
// reports.
package solver

import (
	"context"
	"errors"
	"time"

	"github.com/okian/pcmatch/internal/domain/conflict"
	"github.com/okian/pcmatch/internal/domain/external"
	"github.com/okian/pcmatch/internal/domain/matching"
	"github.com/okian/pcmatch/internal/domain/model"
	"github.com/okian/pcmatch/internal/domain/preference"
	"github.com/okian/pcmatch/internal/domain/report"
	"github.com/okian/pcmatch/internal/domain/roster"
	"github.com/okian/pcmatch/internal/domain/scoring"
	"github.com/okian/pcmatch/pkg/logger"
	"github.com/okian/pcmatch/pkg/metrics"
)

// Result is the outcome of a successful solve.
type Result struct {
	Round         model.Round          `json:"round"`
	Reviewers     []model.Reviewer     `json:"reviewers"`
	Papers        []model.Paper        `json:"papers"`
	Cells         []model.ScoreCell    `json:"-"`
	Assignments   []model.Assignment   `json:"assignments"`
	Stats         report.Stats         `json:"stats"`
	Compact       []report.CompactRow  `json:"compact"`
	Detailed      []report.DetailedRow `json:"detailed"`
	ConflictPairs int                  `json:"conflict_pairs"`
}

// Solver is safe for concurrent use; every Solve call owns its state.
type Solver struct {
	policy     roster.Policy
	aggregator scoring.Aggregator
	matcher    matching.Matcher
	logger     logger.Logger
}

// Option configures a Solver.
type Option func(*Solver)

// WithPolicy replaces the round table.
func WithPolicy(p roster.Policy) Option {
	return func(s *Solver) {
		if len(p) > 0 {
			s.policy = p
		}
	}
}

// WithAggregator replaces the score aggregator.
func WithAggregator(a scoring.Aggregator) Option {
	return func(s *Solver) {
		if a != nil {
			s.aggregator = a
		}
	}
}

// WithMatcher replaces the assignment strategy.
func WithMatcher(m matching.Matcher) Option {
	return func(s *Solver) {
		if m != nil {
			s.matcher = m
		}
	}
}

// WithLogger sets the logger; the global "solver" logger is used otherwise.
func WithLogger(l logger.Logger) Option {
	return func(s *Solver) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Solver with the default policy, mean aggregation and
// greedy matching.
func New(opts ...Option) *Solver {
	s := &Solver{
		policy:     roster.DefaultPolicy(),
		aggregator: scoring.NewAggregator(),
		matcher:    matching.NewGreedy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("solver")
	}
	return s
}

// Policy returns the round table in use.
func (s *Solver) Policy() roster.Policy { return s.policy }

// Solve computes the assignment of round over snap. It fails with
// roster.ErrUnknownRound, a *matching.InfeasibleError or a context error
// and never returns a partial result.
func (s *Solver) Solve(ctx context.Context, round model.Round, snap model.Snapshot) (*Result, error) {
	start := time.Now()
	res, err := s.solve(ctx, round, snap)
	elapsed := time.Since(start)
	latencyMs := float64(elapsed.Microseconds()) / 1000

	if err != nil {
		outcome := outcomeOf(err)
		metrics.RecordSolve(string(round), outcome, latencyMs)
		fields := []logger.Field{
			logger.String("round", string(round)),
			logger.String("outcome", outcome),
			logger.Duration("elapsed", elapsed),
			logger.Error(err),
		}
		var inf *matching.InfeasibleError
		if errors.As(err, &inf) {
			metrics.UpdateUnderservedPapers(inf.Underserved)
			fields = append(fields, logger.Int("underserved", inf.Underserved))
		}
		s.logger.Warn(ctx, "solve failed", fields...)
		return nil, err
	}

	metrics.RecordSolve(string(round), metrics.OutcomeSucceeded, latencyMs)
	metrics.RecordAssignments(string(round), len(res.Assignments))
	metrics.UpdateConflictPairs(res.ConflictPairs)
	s.logger.Info(ctx, "solve finished",
		logger.String("round", string(round)),
		logger.Int("reviewers", len(res.Reviewers)),
		logger.Int("papers", len(res.Papers)),
		logger.Int("cells", len(res.Cells)),
		logger.Int("assignments", len(res.Assignments)),
		logger.Int("conflict_pairs", res.ConflictPairs),
		logger.Float64("mean_score", res.Stats.MeanScore),
		logger.Duration("elapsed", elapsed),
	)
	return res, nil
}

func (s *Solver) solve(ctx context.Context, round model.Round, snap model.Snapshot) (*Result, error) {
	// Unknown rounds fail before any work is done.
	if _, err := s.policy.Lookup(round); err != nil {
		return nil, err
	}

	reviewers := roster.FilterReviewers(snap.Reviewers)
	papers := roster.FilterPapers(snap.Papers)
	members := roster.Members(reviewers)
	reviewers, papers, err := roster.Decorate(s.policy, round, reviewers, papers, snap.Demand)
	if err != nil {
		return nil, err
	}

	prefs := preference.Build(snap.Preferences, members)
	ext := external.Resolve(snap.ExternalScores, external.NewAliases(snap.Aliases))
	conflicts := conflict.NewSet(snap.Conflicts, members)

	cells, err := s.aggregator.Aggregate(ctx, scoring.Input{
		Reviewers:   reviewers,
		Papers:      papers,
		Preferences: prefs,
		External:    ext,
	})
	if err != nil {
		return nil, err
	}

	assignments, err := s.matcher.Match(ctx, matching.Problem{
		Reviewers: reviewers,
		Papers:    papers,
		Cells:     cells,
		Conflicts: conflicts,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Round:         round,
		Reviewers:     reviewers,
		Papers:        papers,
		Cells:         cells,
		Assignments:   assignments,
		Stats:         report.Summarize(assignments, cells, reviewers, papers),
		Compact:       report.Compact(round, assignments),
		Detailed:      report.Detailed(assignments, cells, reviewers, papers),
		ConflictPairs: conflicts.Len(),
	}, nil
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, matching.ErrInfeasible):
		return metrics.OutcomeInfeasible
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCancelled
	default:
		return metrics.OutcomeError
	}
}
