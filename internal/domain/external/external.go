// Package external merges third-party affinity scores keyed by reviewer
// identity, resolving identity aliases first.
package external

import "github.com/okian/pcmatch/internal/domain/model"

// Aliases maps a raw external identity to a canonical reviewer email.
type Aliases map[string]string

// NewAliases builds the alias table. Later records win.
func NewAliases(records []model.AliasRecord) Aliases {
	a := make(Aliases, len(records))
	for _, rec := range records {
		a[rec.ExternalEmail] = rec.AliasEmail
	}
	return a
}

// Canonical resolves one level of aliasing. Unknown identities resolve to
// themselves.
func (a Aliases) Canonical(identity string) string {
	if email, ok := a[identity]; ok {
		return email
	}
	return identity
}

// Index holds resolved raw scores keyed by (canonical email, paper).
type Index struct {
	scores map[model.Key]float64
}

// Resolve keys every row by its canonical email. Duplicate keys keep the
// last row.
func Resolve(rows []model.ExternalScoreRow, aliases Aliases) *Index {
	idx := &Index{scores: make(map[model.Key]float64, len(rows))}
	for _, row := range rows {
		idx.scores[model.Key{Email: aliases.Canonical(row.Identity), Paper: row.Paper}] = row.Score
	}
	return idx
}

// Lookup returns the raw score of a pair.
func (x *Index) Lookup(email, paper string) (float64, bool) {
	if x == nil {
		return 0, false
	}
	s, ok := x.scores[model.Key{Email: email, Paper: paper}]
	return s, ok
}

// Len returns the number of resolved pairs.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.scores)
}
