package model

// Snapshot is the immutable input of a single solve.
type Snapshot struct {
	Reviewers      []ReviewerRecord   `json:"reviewers" yaml:"reviewers"`
	Papers         []PaperRecord      `json:"papers" yaml:"papers"`
	Preferences    []PreferenceRecord `json:"preferences" yaml:"preferences"`
	ExternalScores []ExternalScoreRow `json:"external_scores,omitempty" yaml:"external_scores,omitempty"`
	Aliases        []AliasRecord      `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Conflicts      []ConflictRecord   `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	// Demand overrides the per-paper review count of the round, keyed by paper ID.
	// Deployments use it to supply R2 counts.
	Demand map[string]int `json:"demand,omitempty" yaml:"demand,omitempty"`
}
