// Package synth generates deterministic synthetic snapshots for load and
// invariant testing.
package synth

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"github.com/google/uuid"
	"github.com/okian/pcmatch/internal/domain/model"
	"github.com/okian/pcmatch/pkg/logger"
)

// Bid levels drawn for generated preference records.
var bidLevels = []float64{20, 20, 10, 5, 0, 0, -10, -999}

// Generate builds a snapshot from cfg. The output depends only on cfg.
func Generate(ctx context.Context, cfg Config) (model.Snapshot, error) {
	if cfg.Reviewers < 0 || cfg.Papers < 0 {
		return model.Snapshot{}, fmt.Errorf("synth: negative size (reviewers=%d papers=%d)", cfg.Reviewers, cfg.Papers)
	}
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // deterministic test data

	snap := model.Snapshot{
		Reviewers: make([]model.ReviewerRecord, cfg.Reviewers),
		Papers:    make([]model.PaperRecord, cfg.Papers),
	}

	aliases := make(map[string]string)
	for i := range snap.Reviewers {
		email, err := newEmail(rng, "pc.example.org")
		if err != nil {
			return model.Snapshot{}, err
		}
		rec := model.ReviewerRecord{
			Email:      email,
			GivenName:  "Reviewer",
			FamilyName: strconv.Itoa(i + 1),
			Roles:      []string{"pc"},
		}
		if i < cfg.Chairs {
			rec.Roles = append(rec.Roles, "chair")
		}
		if rng.Float64() < cfg.SeniorRate {
			rec.Tags = append(rec.Tags, "full")
		}
		snap.Reviewers[i] = rec

		if rng.Float64() < cfg.AliasRate {
			alias, err := newEmail(rng, "ext.example.org")
			if err != nil {
				return model.Snapshot{}, err
			}
			aliases[email] = alias
			snap.Aliases = append(snap.Aliases, model.AliasRecord{ExternalEmail: alias, AliasEmail: email})
		}
	}

	for j := range snap.Papers {
		status := "Submitted"
		if rng.Float64() < cfg.WithdrawnRate {
			status = "Withdrawn"
		}
		snap.Papers[j] = model.PaperRecord{
			ID:     strconv.Itoa(j + 1),
			Title:  "Synthetic paper " + strconv.Itoa(j+1),
			Status: status,
		}
	}

	for i, r := range snap.Reviewers {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return model.Snapshot{}, fmt.Errorf("synth: %w", err)
			}
		}
		for _, p := range snap.Papers {
			if rng.Float64() < cfg.BidRate {
				rec := model.PreferenceRecord{
					Email:      r.Email,
					Paper:      p.ID,
					TopicScore: math.Round(rng.Float64()*1000) / 10,
					Bid:        bidLevels[rng.Intn(len(bidLevels))],
				}
				if rng.Float64() < cfg.ConflictBids {
					rec.Conflict = "conflict"
				}
				snap.Preferences = append(snap.Preferences, rec)
			}
			if rng.Float64() < cfg.ExternalRate {
				identity := r.Email
				if alias, ok := aliases[r.Email]; ok {
					identity = alias
				}
				snap.ExternalScores = append(snap.ExternalScores, model.ExternalScoreRow{
					Paper:    p.ID,
					Identity: identity,
					Score:    math.Round(rng.Float64()*100) / 100,
				})
			}
		}
	}

	if cfg.Reviewers > 1 {
		for k := 0; k < cfg.ConflictPairs; k++ {
			a := rng.Intn(cfg.Reviewers)
			b := rng.Intn(cfg.Reviewers)
			snap.Conflicts = append(snap.Conflicts, model.ConflictRecord{
				Email:         snap.Reviewers[a].Email,
				ConflictEmail: snap.Reviewers[b].Email,
			})
		}
	}

	logger.Named("synth").Debug(ctx, "generated snapshot",
		logger.Int("reviewers", len(snap.Reviewers)),
		logger.Int("papers", len(snap.Papers)),
		logger.Int("preferences", len(snap.Preferences)),
		logger.Int("external_scores", len(snap.ExternalScores)),
		logger.Int("conflicts", len(snap.Conflicts)),
		logger.Any("seed", cfg.Seed),
	)
	return snap, nil
}

// newEmail draws a UUID from rng so emails are reproducible under a seed.
func newEmail(rng *rand.Rand, domain string) (string, error) {
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		return "", fmt.Errorf("synth: generate id: %w", err)
	}
	return id.String() + "@" + domain, nil
}
