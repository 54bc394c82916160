// Package matching assigns reviewers to papers from scored candidate pairs
// under reviewer capacity, paper demand and reviewer-pair conflicts.
package matching

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/pcmatch/internal/domain/conflict"
	"github.com/okian/pcmatch/internal/domain/model"
)

const defaultCheckInterval = 1024

// Problem is one immutable matching instance.
type Problem struct {
	Reviewers []model.Reviewer
	Papers    []model.Paper
	Cells     []model.ScoreCell
	Conflicts *conflict.Set
}

// Matcher produces a feasible assignment or fails. Implementations must not
// return partial results.
type Matcher interface {
	Match(ctx context.Context, p Problem) ([]model.Assignment, error)
}

// Option applies a configuration option to the Greedy matcher.
type Option func(*Greedy)

// WithCheckInterval sets how many cells are scanned between context checks.
func WithCheckInterval(n int) Option {
	return func(g *Greedy) {
		if n > 0 {
			g.checkInterval = n
		}
	}
}

// Greedy is a single-pass, highest-score-first, first-fit matcher. It does
// not backtrack, so it may fail on instances an exact solver could satisfy.
type Greedy struct {
	checkInterval int
}

// NewGreedy creates a greedy matcher with configuration options.
func NewGreedy(opts ...Option) *Greedy {
	g := &Greedy{checkInterval: defaultCheckInterval}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Match runs the scan. Ties on score are broken by reviewer email, then
// paper ID, both ascending.
func (g *Greedy) Match(ctx context.Context, p Problem) ([]model.Assignment, error) {
	capacity := make(map[string]int, len(p.Reviewers))
	for _, r := range p.Reviewers {
		capacity[r.Email] = r.MaxLoad
	}
	demand := make(map[string]int, len(p.Papers))
	for _, pp := range p.Papers {
		demand[pp.ID] = pp.NumReviews
	}

	candidates := make([]model.ScoreCell, 0, len(p.Cells))
	for _, c := range p.Cells {
		if !c.Conflict {
			candidates = append(candidates, c)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Composite != b.Composite {
			return a.Composite > b.Composite
		}
		if a.Reviewer != b.Reviewer {
			return a.Reviewer < b.Reviewer
		}
		return a.Paper < b.Paper
	})

	// Counters are local to this call.
	load := make(map[string]int, len(p.Reviewers))
	onPaper := make(map[string][]string, len(p.Papers))
	var out []model.Assignment

	for i, c := range candidates {
		if i%g.checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("match: %w", err)
			}
		}
		maxLoad, ok := capacity[c.Reviewer]
		if !ok || load[c.Reviewer] >= maxLoad {
			continue
		}
		need, ok := demand[c.Paper]
		if !ok || len(onPaper[c.Paper]) >= need {
			continue
		}
		if conflictsWithAny(p.Conflicts, c.Reviewer, onPaper[c.Paper]) {
			continue
		}
		out = append(out, model.Assignment{Reviewer: c.Reviewer, Paper: c.Paper, Score: c.Composite})
		load[c.Reviewer]++
		onPaper[c.Paper] = append(onPaper[c.Paper], c.Reviewer)
	}

	var short []string
	for _, pp := range p.Papers {
		if len(onPaper[pp.ID]) < pp.NumReviews {
			short = append(short, pp.ID)
		}
	}
	if len(short) > 0 {
		sort.Strings(short)
		return nil, &InfeasibleError{Underserved: len(short), Papers: short}
	}
	return out, nil
}

func conflictsWithAny(set *conflict.Set, reviewer string, assigned []string) bool {
	for _, other := range assigned {
		if set.Conflicted(reviewer, other) {
			return true
		}
	}
	return false
}
