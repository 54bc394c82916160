package roster

import (
	"fmt"

	"github.com/okian/pcmatch/internal/domain/model"
)

// RoundPolicy holds the demand and capacity settings of one round.
type RoundPolicy struct {
	ReviewsPerPaper int `koanf:"reviews_per_paper" json:"reviews_per_paper"`
	SeniorMaxLoad   int `koanf:"senior_max_load" json:"senior_max_load"`
	StandardMaxLoad int `koanf:"standard_max_load" json:"standard_max_load"`
}

// Validate reports whether the policy can produce a solvable instance shape.
func (p RoundPolicy) Validate() error {
	switch {
	case p.ReviewsPerPaper < 1:
		return fmt.Errorf("%w: reviews_per_paper must be >= 1", ErrInvalidPolicy)
	case p.SeniorMaxLoad < 0 || p.StandardMaxLoad < 0:
		return fmt.Errorf("%w: max loads must be >= 0", ErrInvalidPolicy)
	}
	return nil
}

// Policy maps every known round to its settings.
type Policy map[model.Round]RoundPolicy

// DefaultPolicy returns the standard round table.
func DefaultPolicy() Policy {
	return Policy{
		model.RoundR1: {ReviewsPerPaper: 2, SeniorMaxLoad: 7, StandardMaxLoad: 3},
		model.RoundR2: {ReviewsPerPaper: 2, SeniorMaxLoad: 12, StandardMaxLoad: 5},
		model.RoundDL: {ReviewsPerPaper: 1, SeniorMaxLoad: 2, StandardMaxLoad: 1},
	}
}

// Merge returns a copy of p with the entries of overrides applied on top.
func (p Policy) Merge(overrides Policy) Policy {
	out := make(Policy, len(p)+len(overrides))
	for r, rp := range p {
		out[r] = rp
	}
	for r, rp := range overrides {
		out[r] = rp
	}
	return out
}

// Lookup returns the settings of a round.
func (p Policy) Lookup(round model.Round) (RoundPolicy, error) {
	rp, ok := p[round]
	if !ok {
		return RoundPolicy{}, fmt.Errorf("%w: %q", ErrUnknownRound, round)
	}
	return rp, nil
}
