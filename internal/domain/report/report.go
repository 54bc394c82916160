// Package report aggregates summary statistics and export rows from a
// completed assignment. It holds no solving logic.
package report

import (
	"sort"

	"github.com/okian/pcmatch/internal/domain/model"
	"github.com/okian/pcmatch/internal/domain/preference"
)

// Export actions.
const (
	ActionPrimaryReview = "primaryreview"
	ActionLead          = "lead"
)

// PreferenceHistogram counts assignments by preference level.
type PreferenceHistogram struct {
	Expert       int `json:"expert"`
	Like         int `json:"like"`
	NoPreference int `json:"no_preference"`
}

// Stats summarizes an assignment.
type Stats struct {
	Assignments   int                 `json:"assignments"`
	ReviewerLoad  map[string]int      `json:"reviewer_load"`
	LoadHistogram map[int]int         `json:"load_histogram"`
	PaperCoverage map[string]int      `json:"paper_coverage"`
	MeanScore     float64             `json:"mean_score"`
	Preferences   PreferenceHistogram `json:"preferences"`
}

// CompactRow is one line of the assignment table.
type CompactRow struct {
	Paper    string `json:"paper"`
	Action   string `json:"action"`
	Reviewer string `json:"email"`
	Round    string `json:"round"`
}

// DetailedRow is one line of the detailed assignment table.
type DetailedRow struct {
	Paper        string  `json:"paper"`
	Reviewer     string  `json:"email"`
	Score        float64 `json:"score"`
	Preference   float64 `json:"preference"`
	Affinity     float64 `json:"affinity"`
	External     float64 `json:"external"`
	ReviewerName string  `json:"name"`
	PaperTitle   string  `json:"title"`
}

// Summarize computes statistics. Reviewers and papers with no assignment
// appear with a zero count.
func Summarize(assignments []model.Assignment, cells []model.ScoreCell, reviewers []model.Reviewer, papers []model.Paper) Stats {
	st := Stats{
		Assignments:   len(assignments),
		ReviewerLoad:  make(map[string]int, len(reviewers)),
		LoadHistogram: make(map[int]int),
		PaperCoverage: make(map[string]int, len(papers)),
	}
	for _, r := range reviewers {
		st.ReviewerLoad[r.Email] = 0
	}
	for _, p := range papers {
		st.PaperCoverage[p.ID] = 0
	}

	byPair := indexCells(cells)
	var total float64
	for _, a := range assignments {
		st.ReviewerLoad[a.Reviewer]++
		st.PaperCoverage[a.Paper]++
		total += a.Score
		switch byPair[model.Key{Email: a.Reviewer, Paper: a.Paper}].Preference {
		case preference.Expert:
			st.Preferences.Expert++
		case preference.Like:
			st.Preferences.Like++
		default:
			st.Preferences.NoPreference++
		}
	}
	for _, n := range st.ReviewerLoad {
		st.LoadHistogram[n]++
	}
	if len(assignments) > 0 {
		st.MeanScore = total / float64(len(assignments))
	}
	return st
}

// Compact builds the assignment table. The discussion-lead round exports
// "lead" actions; every other round exports "primaryreview".
func Compact(round model.Round, assignments []model.Assignment) []CompactRow {
	action := ActionPrimaryReview
	if round == model.RoundDL {
		action = ActionLead
	}
	rows := make([]CompactRow, len(assignments))
	for i, a := range assignments {
		rows[i] = CompactRow{Paper: a.Paper, Action: action, Reviewer: a.Reviewer, Round: string(round)}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Paper != rows[j].Paper {
			return rows[i].Paper < rows[j].Paper
		}
		return rows[i].Reviewer < rows[j].Reviewer
	})
	return rows
}

// Detailed builds the detailed table joining score detail, names and titles.
func Detailed(assignments []model.Assignment, cells []model.ScoreCell, reviewers []model.Reviewer, papers []model.Paper) []DetailedRow {
	names := make(map[string]string, len(reviewers))
	for _, r := range reviewers {
		names[r.Email] = r.Name()
	}
	titles := make(map[string]string, len(papers))
	for _, p := range papers {
		titles[p.ID] = p.Title
	}
	byPair := indexCells(cells)

	rows := make([]DetailedRow, len(assignments))
	for i, a := range assignments {
		c := byPair[model.Key{Email: a.Reviewer, Paper: a.Paper}]
		rows[i] = DetailedRow{
			Paper:        a.Paper,
			Reviewer:     a.Reviewer,
			Score:        a.Score,
			Preference:   c.Preference,
			Affinity:     c.Affinity,
			External:     c.External,
			ReviewerName: names[a.Reviewer],
			PaperTitle:   titles[a.Paper],
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Paper != rows[j].Paper {
			return rows[i].Paper < rows[j].Paper
		}
		return rows[i].Reviewer < rows[j].Reviewer
	})
	return rows
}

func indexCells(cells []model.ScoreCell) map[model.Key]model.ScoreCell {
	m := make(map[model.Key]model.ScoreCell, len(cells))
	for _, c := range cells {
		m[model.Key{Email: c.Reviewer, Paper: c.Paper}] = c
	}
	return m
}
