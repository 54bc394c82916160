// Package model contains domain models passed between layers.
package model

import "strings"

// Round identifies an assignment phase. Each round carries its own
// capacity and demand policy.
type Round string

// Known rounds.
const (
	RoundR1 Round = "R1"
	RoundR2 Round = "R2"
	RoundDL Round = "DL" // discussion lead
)

// Rounds lists the known rounds in policy order.
func Rounds() []Round { return []Round{RoundR1, RoundR2, RoundDL} }

// ReviewerRecord is a raw program-committee member as handed over by the loader.
type ReviewerRecord struct {
	Email      string   `json:"email" yaml:"email"`
	GivenName  string   `json:"given_name" yaml:"given_name"`
	FamilyName string   `json:"family_name" yaml:"family_name"`
	Roles      []string `json:"roles,omitempty" yaml:"roles,omitempty"`
	Tags       []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// PaperRecord is a raw submission record.
type PaperRecord struct {
	ID     string `json:"ID" yaml:"ID"`
	Title  string `json:"Title" yaml:"Title"`
	Status string `json:"Status" yaml:"Status"`
}

// PreferenceRecord is a raw bid of one reviewer on one paper.
// Missing numeric fields decode as 0; Conflict is an optional marker.
type PreferenceRecord struct {
	Email      string  `json:"email" yaml:"email"`
	Paper      string  `json:"paper" yaml:"paper"`
	TopicScore float64 `json:"topic_score" yaml:"topic_score"`
	Bid        float64 `json:"preference" yaml:"preference"`
	Conflict   string  `json:"conflict,omitempty" yaml:"conflict,omitempty"`
}

// AliasRecord maps a raw external identity to a canonical reviewer email.
type AliasRecord struct {
	ExternalEmail string `json:"tpms_email" yaml:"tpms_email"`
	AliasEmail    string `json:"alias_email" yaml:"alias_email"`
}

// ConflictRecord states that two reviewers must not co-review a paper.
type ConflictRecord struct {
	Email         string `json:"email" yaml:"email"`
	ConflictEmail string `json:"conflict_email" yaml:"conflict_email"`
}

// Reviewer is a normalized PC member.
type Reviewer struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Senior     bool   `json:"full_pc"`
	MaxLoad    int    `json:"max_load"`
}

// Name returns the display name of the reviewer.
func (r Reviewer) Name() string {
	return strings.TrimSpace(r.GivenName + " " + r.FamilyName)
}

// Paper is a submitted paper taking part in the assignment.
type Paper struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	NumReviews int    `json:"num_reviews"`
}

// ScoreCell is the score detail of one (reviewer, paper) pair.
type ScoreCell struct {
	Reviewer   string  `json:"reviewer"`
	Paper      string  `json:"paper"`
	Preference float64 `json:"preference"`
	Affinity   float64 `json:"affinity"`
	External   float64 `json:"external"`
	Composite  float64 `json:"score"`
	Conflict   bool    `json:"conflict"`
}

// Assignment is one committed (reviewer, paper) pair.
type Assignment struct {
	Reviewer string  `json:"reviewer"`
	Paper    string  `json:"paper"`
	Score    float64 `json:"score"`
}

// Key identifies a (reviewer, paper) pair.
type Key struct {
	Email string
	Paper string
}
