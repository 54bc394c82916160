package config_test

import (
	"errors"
	"testing"

	"github.com/okian/pcmatch/internal/config"
	"github.com/okian/pcmatch/internal/domain/model"
	"github.com/okian/pcmatch/internal/domain/roster"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.RetryAttempts, convey.ShouldEqual, 3)
			convey.So(cfg.StoreMaxRecords, convey.ShouldEqual, 1000)
			convey.So(cfg.Rounds, convey.ShouldHaveLength, 3)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a valid config", t, func() {
		cfg := config.New()

		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"unknown driver", func(c *config.Config) { c.StoreDriver = "mongo" }},
			{"sqlite without dsn", func(c *config.Config) { c.StoreDriver = config.DriverSQLite }},
			{"postgres without dsn", func(c *config.Config) { c.StoreDriver = config.DriverPostgres }},
			{"negative weight", func(c *config.Config) { c.Weights.Affinity = -1 }},
			{"all-zero weights", func(c *config.Config) { c.Weights = config.Weights{} }},
			{"non-positive round value", func(c *config.Config) {
				rp := c.Rounds["R1"]
				rp.ReviewsPerPaper = 0
				c.Rounds["R1"] = rp
			}},
			{"negative max load", func(c *config.Config) {
				rp := c.Rounds["DL"]
				rp.StandardMaxLoad = -1
				c.Rounds["DL"] = rp
			}},
			{"negative store bound", func(c *config.Config) { c.StoreMaxRecords = -1 }},
		}

		for _, tc := range cases {
			convey.Convey("When it has "+tc.name, func() {
				tc.mutate(cfg)

				convey.Convey("Then Validate should reject it", func() {
					convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}

		convey.Convey("When a round allows zero load for standard reviewers", func() {
			rp := cfg.Rounds["DL"]
			rp.StandardMaxLoad = 0
			cfg.Rounds["DL"] = rp

			convey.Convey("Then it should be accepted like the round policy does", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
				convey.So(rp.Validate(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When a round value is invalid", func() {
			rp := cfg.Rounds["R2"]
			rp.SeniorMaxLoad = -2
			cfg.Rounds["R2"] = rp

			convey.Convey("Then the error should carry both kinds", func() {
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(errors.Is(err, roster.ErrInvalidPolicy), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When sqlite has a dsn", func() {
			cfg.StoreDriver = config.DriverSQLite
			cfg.StoreDSN = "file.db"

			convey.Convey("Then it should be accepted", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})
	})
}

func TestConfig_Policy(t *testing.T) {
	convey.Convey("Given a config that only lists one round", t, func() {
		cfg := config.New()
		cfg.Rounds = map[string]roster.RoundPolicy{
			"dl": {ReviewsPerPaper: 2, SeniorMaxLoad: 4, StandardMaxLoad: 0},
		}

		convey.Convey("Then the missing rounds should keep their defaults", func() {
			p := cfg.Policy()
			convey.So(p, convey.ShouldHaveLength, 3)
			convey.So(p[model.RoundR1], convey.ShouldResemble, roster.DefaultPolicy()[model.RoundR1])
			convey.So(p[model.RoundDL], convey.ShouldResemble, roster.RoundPolicy{ReviewsPerPaper: 2, SeniorMaxLoad: 4})
		})
	})
}
