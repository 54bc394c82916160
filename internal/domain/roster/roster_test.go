package roster_test

import (
	"errors"
	"testing"

	"github.com/okian/pcmatch/internal/domain/model"
	"github.com/okian/pcmatch/internal/domain/roster"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFilterReviewers(t *testing.T) {
	Convey("Given raw reviewer records", t, func() {
		records := []model.ReviewerRecord{
			{Email: "chair@x.org", Roles: []string{"pc", "chair"}},
			{Email: "full@x.org", GivenName: "Fu", FamilyName: "Ll", Tags: []string{"full"}},
			{Email: "std@x.org", Tags: []string{"external"}},
			{Email: "bare@x.org"},
		}

		Convey("When filtering", func() {
			got := roster.FilterReviewers(records)

			Convey("Then chairs should be excluded", func() {
				So(got, ShouldHaveLength, 3)
				for _, r := range got {
					So(r.Email, ShouldNotEqual, "chair@x.org")
				}
			})

			Convey("And only full-tagged reviewers should be senior", func() {
				So(got[0].Email, ShouldEqual, "full@x.org")
				So(got[0].Senior, ShouldBeTrue)
				So(got[0].Name(), ShouldEqual, "Fu Ll")
				So(got[1].Senior, ShouldBeFalse)
				So(got[2].Senior, ShouldBeFalse)
			})
		})
	})
}

func TestFilterPapers(t *testing.T) {
	Convey("Given papers in various states", t, func() {
		records := []model.PaperRecord{
			{ID: "1", Title: "A", Status: "Submitted"},
			{ID: "2", Title: "B", Status: "Withdrawn"},
			{ID: "3", Title: "C", Status: "submitted"},
			{ID: "4", Title: "D", Status: "Submitted"},
		}

		Convey("Then only exactly Submitted papers should remain", func() {
			got := roster.FilterPapers(records)
			So(got, ShouldHaveLength, 2)
			So(got[0].ID, ShouldEqual, "1")
			So(got[1].ID, ShouldEqual, "4")
		})
	})
}

func TestFilter_Duplicates(t *testing.T) {
	Convey("Given reviewer records that repeat an email", t, func() {
		records := []model.ReviewerRecord{
			{Email: "a@x.org", Tags: []string{"full"}},
			{Email: "a@x.org"},
			{Email: "b@x.org"},
			{Email: "c@x.org", Roles: []string{"chair"}},
			{Email: "c@x.org"},
		}

		Convey("Then the first record of each email should decide", func() {
			got := roster.FilterReviewers(records)
			So(got, ShouldHaveLength, 2)
			So(got[0].Email, ShouldEqual, "a@x.org")
			So(got[0].Senior, ShouldBeTrue)
			So(got[1].Email, ShouldEqual, "b@x.org")
		})
	})

	Convey("Given paper records that repeat an ID", t, func() {
		records := []model.PaperRecord{
			{ID: "1", Title: "First", Status: "Submitted"},
			{ID: "1", Title: "Again", Status: "Submitted"},
			{ID: "2", Title: "Gone", Status: "Withdrawn"},
			{ID: "2", Title: "Back", Status: "Submitted"},
		}

		Convey("Then each paper should appear at most once", func() {
			got := roster.FilterPapers(records)
			So(got, ShouldHaveLength, 1)
			So(got[0].Title, ShouldEqual, "First")
		})
	})
}

func TestDecorate(t *testing.T) {
	Convey("Given filtered reviewers and papers", t, func() {
		reviewers := []model.Reviewer{{Email: "s@x.org", Senior: true}, {Email: "n@x.org"}}
		papers := []model.Paper{{ID: "1"}, {ID: "2"}}
		policy := roster.DefaultPolicy()

		cases := []struct {
			round            model.Round
			demand, sen, std int
		}{
			{model.RoundR1, 2, 7, 3},
			{model.RoundR2, 2, 12, 5},
			{model.RoundDL, 1, 2, 1},
		}
		for _, c := range cases {
			Convey("When decorating for round "+string(c.round), func() {
				rs, ps, err := roster.Decorate(policy, c.round, reviewers, papers, nil)

				Convey("Then the policy table should apply", func() {
					So(err, ShouldBeNil)
					So(rs[0].MaxLoad, ShouldEqual, c.sen)
					So(rs[1].MaxLoad, ShouldEqual, c.std)
					for _, p := range ps {
						So(p.NumReviews, ShouldEqual, c.demand)
					}
				})

				Convey("And the inputs should not be mutated", func() {
					So(reviewers[0].MaxLoad, ShouldEqual, 0)
					So(papers[0].NumReviews, ShouldEqual, 0)
				})
			})
		}

		Convey("When a per-paper demand is supplied", func() {
			_, ps, err := roster.Decorate(policy, model.RoundR2, reviewers, papers, map[string]int{"2": 3, "1": 0})

			Convey("Then positive entries should override the round default", func() {
				So(err, ShouldBeNil)
				So(ps[0].NumReviews, ShouldEqual, 2)
				So(ps[1].NumReviews, ShouldEqual, 3)
			})
		})

		Convey("When the round is unknown", func() {
			_, _, err := roster.Decorate(policy, model.Round("R9"), reviewers, papers, nil)

			Convey("Then it should fail with ErrUnknownRound", func() {
				So(errors.Is(err, roster.ErrUnknownRound), ShouldBeTrue)
			})
		})
	})
}

func TestPolicy(t *testing.T) {
	Convey("Given the default policy", t, func() {
		p := roster.DefaultPolicy()

		Convey("When merging an override", func() {
			merged := p.Merge(roster.Policy{model.RoundR2: {ReviewsPerPaper: 3, SeniorMaxLoad: 10, StandardMaxLoad: 4}})

			Convey("Then only the overridden round should change", func() {
				So(merged[model.RoundR2].ReviewsPerPaper, ShouldEqual, 3)
				So(merged[model.RoundR1], ShouldResemble, p[model.RoundR1])
				So(p[model.RoundR2].ReviewsPerPaper, ShouldEqual, 2)
			})
		})

		Convey("When validating", func() {
			So(p[model.RoundDL].Validate(), ShouldBeNil)
			err := roster.RoundPolicy{ReviewsPerPaper: 0}.Validate()
			So(errors.Is(err, roster.ErrInvalidPolicy), ShouldBeTrue)
			err = roster.RoundPolicy{ReviewsPerPaper: 1, SeniorMaxLoad: -1}.Validate()
			So(errors.Is(err, roster.ErrInvalidPolicy), ShouldBeTrue)
		})
	})
}
