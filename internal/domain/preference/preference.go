// Package preference maps raw bids to normalized preference scores and
// min-max normalizes topic affinity over a solve's preference set.
package preference

import (
	"strings"

	"github.com/okian/pcmatch/internal/domain/model"
)

// Bid thresholds and the preference level of each bucket.
const (
	ExpertBid   = 20
	ConflictBid = -999

	Expert       = 1.0
	Like         = 0.75
	NoPreference = 0.0

	conflictMarker = "conflict"
)

// Entry is a normalized preference of one reviewer on one paper.
type Entry struct {
	Email       string
	Paper       string
	Bid         float64
	Preference  float64
	Conflict    bool
	RawAffinity float64
	Affinity    float64
}

// MapBid buckets a raw bid. It never fails: every bid lands in a bucket.
func MapBid(bid float64) (pref float64, conflict bool) {
	switch {
	case bid >= ExpertBid:
		return Expert, false
	case bid > 0:
		return Like, false
	case bid > ConflictBid:
		return NoPreference, false
	default:
		return NoPreference, true
	}
}

// IsConflictMarker reports whether a raw conflict field flags a conflict.
func IsConflictMarker(marker string) bool {
	return strings.TrimSpace(marker) == conflictMarker
}

// NormalizeAffinity min-max scales values into [0,1]. When every value is
// equal (including a single value) all outputs are 0.
func NormalizeAffinity(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if hi == lo {
		return out
	}
	span := hi - lo
	for i, v := range values {
		out[i] = (v - lo) / span
	}
	return out
}

// Index holds at most one entry per (reviewer, paper).
type Index struct {
	entries map[model.Key]Entry
}

// Build keeps records of PC members, maps their bids and normalizes
// affinity once over the whole filtered set. A later record for the same
// pair replaces an earlier one.
func Build(records []model.PreferenceRecord, members map[string]struct{}) *Index {
	kept := make([]model.PreferenceRecord, 0, len(records))
	for _, rec := range records {
		if _, ok := members[rec.Email]; ok {
			kept = append(kept, rec)
		}
	}

	raw := make([]float64, len(kept))
	for i, rec := range kept {
		raw[i] = rec.TopicScore
	}
	norm := NormalizeAffinity(raw)

	idx := &Index{entries: make(map[model.Key]Entry, len(kept))}
	for i, rec := range kept {
		pref, conflict := MapBid(rec.Bid)
		idx.entries[model.Key{Email: rec.Email, Paper: rec.Paper}] = Entry{
			Email:       rec.Email,
			Paper:       rec.Paper,
			Bid:         rec.Bid,
			Preference:  pref,
			Conflict:    conflict || IsConflictMarker(rec.Conflict),
			RawAffinity: rec.TopicScore,
			Affinity:    norm[i],
		}
	}
	return idx
}

// Lookup returns the entry of a pair.
func (x *Index) Lookup(email, paper string) (Entry, bool) {
	if x == nil {
		return Entry{}, false
	}
	e, ok := x.entries[model.Key{Email: email, Paper: paper}]
	return e, ok
}

// Len returns the number of distinct pairs.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.entries)
}
