package synth

// Config shapes a generated instance. Rates are probabilities in [0,1].
type Config struct {
	Reviewers     int     // PC members, chairs included
	Papers        int     // papers, withdrawn included
	Seed          int64   // same seed, same snapshot
	Chairs        int     // reviewers carrying the chair role
	SeniorRate    float64 // share of reviewers tagged "full"
	WithdrawnRate float64 // share of papers not in Submitted state
	BidRate       float64 // share of reviewer-paper pairs with a preference record
	ConflictBids  float64 // share of preference records that declare a conflict
	ExternalRate  float64 // share of reviewer-paper pairs with an external score
	AliasRate     float64 // share of reviewers known to the external system by an alias
	ConflictPairs int     // reviewer-reviewer conflict declarations
}

// DefaultConfig returns a small, usually feasible instance shape.
func DefaultConfig() Config {
	return Config{
		Reviewers:     30,
		Papers:        20,
		Seed:          1,
		Chairs:        1,
		SeniorRate:    0.3,
		WithdrawnRate: 0.1,
		BidRate:       0.4,
		ConflictBids:  0.05,
		ExternalRate:  0.5,
		AliasRate:     0.2,
		ConflictPairs: 5,
	}
}
