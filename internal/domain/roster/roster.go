// Package roster turns raw reviewer and paper records into the canonical,
// round-decorated form consumed by scoring and matching.
package roster

import (
	"slices"

	"github.com/okian/pcmatch/internal/domain/model"
)

const (
	chairRole       = "chair"
	fullTag         = "full"
	submittedStatus = "Submitted"
)

// FilterReviewers drops chairs and derives the senior flag. Input order is kept.
// Only the first record of an email counts; later repeats are ignored.
func FilterReviewers(records []model.ReviewerRecord) []model.Reviewer {
	out := make([]model.Reviewer, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.Email]; dup {
			continue
		}
		seen[rec.Email] = struct{}{}
		if slices.Contains(rec.Roles, chairRole) {
			continue
		}
		out = append(out, model.Reviewer{
			Email:      rec.Email,
			GivenName:  rec.GivenName,
			FamilyName: rec.FamilyName,
			Senior:     slices.Contains(rec.Tags, fullTag),
		})
	}
	return out
}

// FilterPapers keeps papers whose status is exactly "Submitted". The first
// record of a paper ID decides; later repeats are ignored.
func FilterPapers(records []model.PaperRecord) []model.Paper {
	out := make([]model.Paper, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		if rec.Status != submittedStatus {
			continue
		}
		out = append(out, model.Paper{ID: rec.ID, Title: rec.Title})
	}
	return out
}

// Members returns the set of reviewer emails.
func Members(reviewers []model.Reviewer) map[string]struct{} {
	m := make(map[string]struct{}, len(reviewers))
	for _, r := range reviewers {
		m[r.Email] = struct{}{}
	}
	return m
}

// Decorate returns copies of reviewers and papers carrying the round's max
// load and review demand. A positive demand entry for a paper replaces the
// round default for that paper.
func Decorate(policy Policy, round model.Round, reviewers []model.Reviewer, papers []model.Paper, demand map[string]int) ([]model.Reviewer, []model.Paper, error) {
	rp, err := policy.Lookup(round)
	if err != nil {
		return nil, nil, err
	}

	rs := make([]model.Reviewer, len(reviewers))
	for i, r := range reviewers {
		r.MaxLoad = rp.StandardMaxLoad
		if r.Senior {
			r.MaxLoad = rp.SeniorMaxLoad
		}
		rs[i] = r
	}

	ps := make([]model.Paper, len(papers))
	for i, p := range papers {
		p.NumReviews = rp.ReviewsPerPaper
		if n, ok := demand[p.ID]; ok && n > 0 {
			p.NumReviews = n
		}
		ps[i] = p
	}
	return rs, ps, nil
}
