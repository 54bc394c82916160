// Package scoring computes the composite score of every (reviewer, paper)
// pair from preference, affinity and external sub-scores.
package scoring

import (
	"context"
	"fmt"

	"github.com/okian/pcmatch/internal/domain/external"
	"github.com/okian/pcmatch/internal/domain/model"
	"github.com/okian/pcmatch/internal/domain/preference"
)

// Default component weights. Equal weights make the composite the plain mean.
const (
	defaultPreferenceWeight = 1.0
	defaultAffinityWeight   = 1.0
	defaultExternalWeight   = 1.0
)

// Option applies a configuration option to the MeanAggregator.
type Option func(*MeanAggregator)

// WithWeights sets the component weights. Negative weights, or weights that
// sum to zero, are ignored.
func WithWeights(pref, affinity, ext float64) Option {
	return func(a *MeanAggregator) {
		if pref < 0 || affinity < 0 || ext < 0 || pref+affinity+ext == 0 {
			return
		}
		a.prefWeight = pref
		a.affinityWeight = affinity
		a.externalWeight = ext
	}
}

// Input bundles what the aggregator needs for one solve.
type Input struct {
	Reviewers   []model.Reviewer
	Papers      []model.Paper
	Preferences *preference.Index
	External    *external.Index
}

// Aggregator computes score cells for the full reviewer × paper product.
type Aggregator interface {
	// Aggregate returns one cell per pair, reviewer-major, honoring ctx for cancellation.
	Aggregate(ctx context.Context, in Input) ([]model.ScoreCell, error)
}

// MeanAggregator implements Aggregator as a weighted mean of the components.
type MeanAggregator struct {
	prefWeight     float64
	affinityWeight float64
	externalWeight float64
}

// NewAggregator creates an aggregator with configuration options.
func NewAggregator(opts ...Option) *MeanAggregator {
	a := &MeanAggregator{
		prefWeight:     defaultPreferenceWeight,
		affinityWeight: defaultAffinityWeight,
		externalWeight: defaultExternalWeight,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Aggregate scores the cross product. Missing entries contribute 0; the
// conflict flag comes from the preference entry when one exists.
func (a *MeanAggregator) Aggregate(ctx context.Context, in Input) ([]model.ScoreCell, error) {
	cells := make([]model.ScoreCell, 0, len(in.Reviewers)*len(in.Papers))
	for _, r := range in.Reviewers {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("aggregate scores: %w", err)
		}
		for _, p := range in.Papers {
			cells = append(cells, a.Cell(r.Email, p.ID, in.Preferences, in.External))
		}
	}
	return cells, nil
}

// Cell scores a single pair.
func (a *MeanAggregator) Cell(email, paper string, prefs *preference.Index, ext *external.Index) model.ScoreCell {
	c := model.ScoreCell{Reviewer: email, Paper: paper}
	if e, ok := prefs.Lookup(email, paper); ok {
		c.Preference = e.Preference
		c.Affinity = e.Affinity
		c.Conflict = e.Conflict
	}
	if s, ok := ext.Lookup(email, paper); ok {
		c.External = s
	}
	c.Composite = a.composite(c.Preference, c.Affinity, c.External)
	return c
}

func (a *MeanAggregator) composite(pref, affinity, ext float64) float64 {
	total := a.prefWeight + a.affinityWeight + a.externalWeight
	return (a.prefWeight*pref + a.affinityWeight*affinity + a.externalWeight*ext) / total
}
