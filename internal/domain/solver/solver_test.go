package solver_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/okian/pcmatch/internal/domain/conflict"
	"github.com/okian/pcmatch/internal/domain/matching"
	"github.com/okian/pcmatch/internal/domain/model"
	"github.com/okian/pcmatch/internal/domain/roster"
	"github.com/okian/pcmatch/internal/domain/solver"
	"github.com/okian/pcmatch/internal/synth"
	"github.com/okian/pcmatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init(logger.WithWriter(io.Discard))
}

func dlSnapshot() model.Snapshot {
	return model.Snapshot{
		Reviewers: []model.ReviewerRecord{
			{Email: "chair@x.org", Roles: []string{"chair"}},
			{Email: "senior@x.org", Tags: []string{"full"}},
			{Email: "std@x.org"},
		},
		Papers: []model.PaperRecord{
			{ID: "1", Title: "One", Status: "Submitted"},
			{ID: "2", Title: "Two", Status: "Submitted"},
			{ID: "3", Title: "Three", Status: "Submitted"},
			{ID: "4", Title: "Gone", Status: "Withdrawn"},
		},
		Preferences: []model.PreferenceRecord{
			{Email: "senior@x.org", Paper: "1", Bid: 20, TopicScore: 9},
			{Email: "std@x.org", Paper: "3", Bid: 20, TopicScore: 8},
			{Email: "chair@x.org", Paper: "2", Bid: 20, TopicScore: 100},
		},
	}
}

func TestSolve_RoundPolicy(t *testing.T) {
	Convey("Given a snapshot solved in the discussion-lead round", t, func() {
		s := solver.New()

		res, err := s.Solve(context.Background(), model.RoundDL, dlSnapshot())

		Convey("Then every paper should get exactly one lead", func() {
			So(err, ShouldBeNil)
			So(res.Papers, ShouldHaveLength, 3)
			for _, p := range res.Papers {
				So(p.NumReviews, ShouldEqual, 1)
				So(res.Stats.PaperCoverage[p.ID], ShouldEqual, 1)
			}
		})

		Convey("And seniors should be capped at 2 and others at 1", func() {
			for _, r := range res.Reviewers {
				if r.Senior {
					So(r.MaxLoad, ShouldEqual, 2)
				} else {
					So(r.MaxLoad, ShouldEqual, 1)
				}
				So(res.Stats.ReviewerLoad[r.Email], ShouldBeLessThanOrEqualTo, r.MaxLoad)
			}
			So(res.Stats.ReviewerLoad["senior@x.org"], ShouldEqual, 2)
		})

		Convey("And chairs and withdrawn papers should be left out", func() {
			So(res.Reviewers, ShouldHaveLength, 2)
			So(res.Cells, ShouldHaveLength, 6)
			_, chair := res.Stats.ReviewerLoad["chair@x.org"]
			So(chair, ShouldBeFalse)
		})

		Convey("And export rows should be lead actions", func() {
			So(res.Compact, ShouldHaveLength, 3)
			for _, row := range res.Compact {
				So(row.Action, ShouldEqual, "lead")
				So(row.Round, ShouldEqual, "DL")
			}
			So(res.Detailed, ShouldHaveLength, 3)
		})
	})
}

func TestSolve_Failures(t *testing.T) {
	Convey("Given the default solver", t, func() {
		s := solver.New()

		Convey("When the round is unknown", func() {
			_, err := s.Solve(context.Background(), model.Round("R9"), dlSnapshot())

			Convey("Then it should fail with ErrUnknownRound", func() {
				So(errors.Is(err, roster.ErrUnknownRound), ShouldBeTrue)
			})
		})

		Convey("When one reviewer must cover two papers", func() {
			snap := model.Snapshot{
				Reviewers: []model.ReviewerRecord{{Email: "only@x.org"}},
				Papers: []model.PaperRecord{
					{ID: "1", Status: "Submitted"},
					{ID: "2", Status: "Submitted"},
				},
			}
			res, err := s.Solve(context.Background(), model.RoundDL, snap)

			Convey("Then it should fail citing one under-served paper", func() {
				So(res, ShouldBeNil)
				var inf *matching.InfeasibleError
				So(errors.As(err, &inf), ShouldBeTrue)
				So(inf.Underserved, ShouldEqual, 1)
				So(errors.Is(err, matching.ErrInfeasible), ShouldBeTrue)
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := s.Solve(ctx, model.RoundR1, dlSnapshot())

			Convey("Then the context error should surface", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})

	Convey("Given a custom policy", t, func() {
		s := solver.New(solver.WithPolicy(roster.Policy{
			model.RoundR1: {ReviewsPerPaper: 1, SeniorMaxLoad: 1, StandardMaxLoad: 1},
		}))

		Convey("Then rounds missing from it should be unknown", func() {
			_, err := s.Solve(context.Background(), model.RoundDL, dlSnapshot())
			So(errors.Is(err, roster.ErrUnknownRound), ShouldBeTrue)
		})
	})
}

func TestSolve_RepeatedRecords(t *testing.T) {
	Convey("Given a snapshot listing the same reviewer twice", t, func() {
		s := solver.New()
		snap := model.Snapshot{
			Reviewers: []model.ReviewerRecord{{Email: "a@x.org"}, {Email: "a@x.org"}, {Email: "b@x.org"}},
			Papers: []model.PaperRecord{
				{ID: "1", Status: "Submitted"},
				{ID: "1", Status: "Submitted"},
			},
			Preferences: []model.PreferenceRecord{{Email: "a@x.org", Paper: "1", Bid: 20}},
		}

		Convey("When solving round one", func() {
			res, err := s.Solve(context.Background(), model.RoundR1, snap)

			Convey("Then the paper should get two distinct reviewers", func() {
				So(err, ShouldBeNil)
				So(res.Papers, ShouldHaveLength, 1)
				So(res.Assignments, ShouldHaveLength, 2)
				So(res.Assignments[0].Reviewer, ShouldNotEqual, res.Assignments[1].Reviewer)
				So(res.Cells, ShouldHaveLength, 2)
			})
		})

		Convey("When the repeated reviewer is the only one", func() {
			snap.Reviewers = snap.Reviewers[:2]
			_, err := s.Solve(context.Background(), model.RoundR1, snap)

			Convey("Then the paper should be reported under-served", func() {
				var inf *matching.InfeasibleError
				So(errors.As(err, &inf), ShouldBeTrue)
				So(inf.Underserved, ShouldEqual, 1)
			})
		})
	})
}

func TestSolve_SyntheticInvariants(t *testing.T) {
	Convey("Given randomized instances", t, func() {
		s := solver.New()
		succeeded := 0

		for seed := int64(1); seed <= 25; seed++ {
			cfg := synth.DefaultConfig()
			cfg.Seed = seed
			snap, err := synth.Generate(context.Background(), cfg)
			So(err, ShouldBeNil)

			for _, round := range model.Rounds() {
				res, err := s.Solve(context.Background(), round, snap)
				if err != nil {
					So(errors.Is(err, matching.ErrInfeasible), ShouldBeTrue)
					continue
				}
				succeeded++
				assertInvariants(res, snap)
			}
		}

		Convey("Then some instances should be solvable", func() {
			So(succeeded, ShouldBeGreaterThan, 0)
		})
	})
}

func assertInvariants(res *solver.Result, snap model.Snapshot) {
	load := make(map[string]int)
	onPaper := make(map[string][]string)
	for _, a := range res.Assignments {
		load[a.Reviewer]++
		onPaper[a.Paper] = append(onPaper[a.Paper], a.Reviewer)
	}
	for _, r := range res.Reviewers {
		So(load[r.Email], ShouldBeLessThanOrEqualTo, r.MaxLoad)
	}
	for _, p := range res.Papers {
		So(len(onPaper[p.ID]), ShouldEqual, p.NumReviews)
	}

	members := make(map[string]struct{}, len(res.Reviewers))
	for _, r := range res.Reviewers {
		members[r.Email] = struct{}{}
	}
	pairs := conflict.NewSet(snap.Conflicts, members)
	for _, rs := range onPaper {
		for i := range rs {
			for j := i + 1; j < len(rs); j++ {
				So(pairs.Conflicted(rs[i], rs[j]), ShouldBeFalse)
			}
		}
	}
}
