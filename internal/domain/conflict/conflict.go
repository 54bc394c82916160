// Package conflict holds the symmetric set of reviewer pairs that must never
// review the same paper.
package conflict

import "github.com/okian/pcmatch/internal/domain/model"

// Pair is an unordered reviewer pair in canonical (sorted) order.
type Pair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// NewPair canonicalizes a pair.
func NewPair(a, b string) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Set is a deduplicated set of conflict pairs. The zero value is empty and
// ready to use. Not safe for concurrent writers.
type Set struct {
	pairs map[Pair]struct{}
}

// NewSet keeps the records whose both identities are PC members.
func NewSet(records []model.ConflictRecord, members map[string]struct{}) *Set {
	s := &Set{pairs: make(map[Pair]struct{}, len(records))}
	for _, rec := range records {
		if _, ok := members[rec.Email]; !ok {
			continue
		}
		if _, ok := members[rec.ConflictEmail]; !ok {
			continue
		}
		s.Add(rec.Email, rec.ConflictEmail)
	}
	return s
}

// Add inserts the pair (a, b). Self pairs are ignored.
func (s *Set) Add(a, b string) {
	if a == b {
		return
	}
	if s.pairs == nil {
		s.pairs = make(map[Pair]struct{})
	}
	s.pairs[NewPair(a, b)] = struct{}{}
}

// Conflicted reports whether a and b may not co-review.
func (s *Set) Conflicted(a, b string) bool {
	if s == nil || len(s.pairs) == 0 {
		return false
	}
	_, ok := s.pairs[NewPair(a, b)]
	return ok
}

// Len returns the number of stored pairs.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.pairs)
}
