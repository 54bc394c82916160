package loadgen_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/pcmatch/internal/adapters/http/api"
	"github.com/okian/pcmatch/internal/adapters/repository"
	service "github.com/okian/pcmatch/internal/app"
	"github.com/okian/pcmatch/internal/domain/model"
	"github.com/okian/pcmatch/internal/domain/report"
	"github.com/okian/pcmatch/internal/domain/solver"
	"github.com/okian/pcmatch/internal/loadgen"
	"github.com/okian/pcmatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func newServer(ctx context.Context, opts ...service.Option) (*httptest.Server, *service.Service) {
	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(ctx, mux)
	return httptest.NewServer(mux), svc
}

func TestRun(t *testing.T) {
	Convey("Given a running server", t, func() {
		ctx := context.Background()
		srv, svc := newServer(ctx, service.WithWorkerCount(2))
		defer srv.Close()
		defer svc.Stop()

		Convey("When a load run completes", func() {
			stats, err := loadgen.Run(ctx, loadgen.Config{
				BaseURL:   srv.URL,
				Solves:    6,
				Workers:   3,
				Round:     model.RoundR1,
				Reviewers: 30,
				Papers:    15,
				Deadline:  20 * time.Second,
			})

			Convey("Then every solve should be accounted for without violations", func() {
				So(err, ShouldBeNil)
				So(stats.Submitted, ShouldEqual, 6)
				So(stats.Accepted, ShouldEqual, 6)
				So(stats.Succeeded+stats.Infeasible+stats.Failed, ShouldEqual, 6)
				So(stats.Violations, ShouldEqual, 0)
				So(stats.Duration, ShouldBeGreaterThan, 0)
			})

			Convey("And a second run should submit fresh solves", func() {
				again, err := loadgen.Run(ctx, loadgen.Config{BaseURL: srv.URL, Solves: 6, Workers: 2, Reviewers: 30, Papers: 15})
				So(err, ShouldBeNil)
				So(again.RunID, ShouldNotEqual, stats.RunID)
				So(again.Accepted, ShouldEqual, 6)
				So(again.Duplicate, ShouldEqual, 0)
			})

			Convey("And replaying the same run id should hit the idempotency keys", func() {
				again, err := loadgen.Run(ctx, loadgen.Config{
					BaseURL: srv.URL, Solves: 6, Workers: 2, Reviewers: 30, Papers: 15, RunID: stats.RunID,
				})
				So(err, ShouldBeNil)
				So(again.Duplicate, ShouldEqual, 6)
				So(again.Accepted, ShouldEqual, 0)
			})
		})
	})

	Convey("Given an unreachable server", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		Convey("Then the run should fail", func() {
			_, err := loadgen.Run(context.Background(), loadgen.Config{BaseURL: url, Solves: 1, Workers: 1, Timeout: time.Second})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestClient(t *testing.T) {
	Convey("Given a server that always signals backpressure", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"code":"backpressure"}`))
		}))
		defer srv.Close()
		client := loadgen.NewClient(srv.URL+"/", time.Second)

		Convey("Then submit should report a rejection", func() {
			_, err := client.Submit(context.Background(), "", model.RoundR1, model.Snapshot{})
			So(errors.Is(err, loadgen.ErrRejected), ShouldBeTrue)
		})

		Convey("And get should report the status", func() {
			_, err := client.Get(context.Background(), "x")
			So(errors.Is(err, loadgen.ErrStatus), ShouldBeTrue)
		})
	})
}

func TestViolations(t *testing.T) {
	Convey("Given a finished solve", t, func() {
		res := &solver.Result{
			Reviewers:   []model.Reviewer{{Email: "a@x.org", MaxLoad: 1}},
			Papers:      []model.Paper{{ID: "1", NumReviews: 1}, {ID: "2", NumReviews: 1}},
			Assignments: []model.Assignment{{Reviewer: "a@x.org", Paper: "1"}, {Reviewer: "a@x.org", Paper: "2"}},
			Stats: report.Stats{
				ReviewerLoad:  map[string]int{"a@x.org": 2},
				PaperCoverage: map[string]int{"1": 1, "2": 1},
			},
		}

		Convey("When the reviewer is over capacity", func() {
			v := loadgen.Violations(repository.Record{Status: repository.StatusSucceeded, Result: res})
			So(v, ShouldHaveLength, 1)
			So(v[0], ShouldContainSubstring, "load 2 over 1")
		})

		Convey("When a paper is short of reviews", func() {
			res.Reviewers[0].MaxLoad = 2
			res.Stats.PaperCoverage["2"] = 0
			v := loadgen.Violations(repository.Record{Result: res})
			So(v, ShouldHaveLength, 1)
			So(v[0], ShouldContainSubstring, "paper 2")
		})

		Convey("When there is no result", func() {
			So(loadgen.Violations(repository.Record{}), ShouldBeEmpty)
		})
	})
}
