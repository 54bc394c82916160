package service_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	service "github.com/okian/pcmatch/internal/app"
	"github.com/okian/pcmatch/internal/adapters/repository"
	"github.com/okian/pcmatch/internal/domain/model"
	"github.com/okian/pcmatch/internal/domain/roster"
	"github.com/okian/pcmatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init(logger.WithWriter(io.Discard))
	if err != nil {
		panic(err)
	}
}

func smallSnapshot() model.Snapshot {
	return model.Snapshot{
		Reviewers: []model.ReviewerRecord{
			{Email: "a@x.org", Tags: []string{"full"}},
			{Email: "b@x.org"},
			{Email: "c@x.org"},
		},
		Papers: []model.PaperRecord{
			{ID: "1", Title: "One", Status: "Submitted"},
			{ID: "2", Title: "Two", Status: "Submitted"},
		},
		Preferences: []model.PreferenceRecord{
			{Email: "a@x.org", Paper: "1", Bid: 20},
			{Email: "b@x.org", Paper: "2", Bid: 10},
		},
	}
}

// waitTerminal polls until the solve reaches a terminal status.
func waitTerminal(ctx context.Context, svc *service.Service, id string) repository.Record {
	deadline := time.Now().Add(5 * time.Second)
	for {
		rec, err := svc.Get(ctx, id)
		if err == nil && rec.Status.Terminal() {
			return rec
		}
		if time.Now().After(deadline) {
			return rec
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats(context.Background())
			So(stats.Started, ShouldEqual, false)
			So(stats.QueueCapacity, ShouldEqual, 1024)
			So(stats.StoreDriver, ShouldEqual, "memory")
			So(stats.StoreMaxRecords, ShouldEqual, 1000)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(50_000),
			service.WithDedupeSize(25_000),
			service.WithSolveTimeout(time.Second),
			service.WithRetryAttempts(5),
			service.WithWeights(2, 1, 0),
		)

		Convey("Then it should be created successfully", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats(context.Background())
			So(stats.Workers, ShouldEqual, 8)
			So(stats.QueueCapacity, ShouldEqual, 50_000)
			So(stats.DedupeSize, ShouldEqual, 25_000)
		})
	})

	Convey("Given invalid option values", t, func() {
		svc := service.New(service.WithWorkerCount(-1), service.WithQueueSize(0))

		Convey("Then the defaults should be kept", func() {
			stats := svc.GetStats(context.Background())
			So(stats.Workers, ShouldBeGreaterThan, 0)
			So(stats.QueueCapacity, ShouldEqual, 1024)
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()
		// Ensure service is stopped after test
		defer svc.Stop()

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
			})

			Convey("And it should be marked as started", func() {
				stats := svc.GetStats(context.Background())
				So(stats.Started, ShouldEqual, true)
				So(stats.QueueLength, ShouldEqual, 0)
			})

			Convey("And starting again should be a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})
	})

	Convey("Given a service with an unknown store driver", t, func() {
		svc := service.New(service.WithStoreDriver("oracle", "dsn"))

		Convey("Then starting should fail", func() {
			err := svc.Start(context.Background())
			So(err, ShouldNotBeNil)
			So(errors.Is(err, repository.ErrUnknownDriver), ShouldBeTrue)
			So(svc.GetStats(context.Background()).Started, ShouldEqual, false)
		})
	})
}

func TestService_Stop(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := svc.Start(ctx)
		So(err, ShouldBeNil)

		Convey("When stopping the service", func() {
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				stats := svc.GetStats(context.Background())
				So(stats.Started, ShouldEqual, false)
			})

			Convey("And operations should report it is not started", func() {
				_, _, err := svc.Submit(ctx, "", model.RoundR1, smallSnapshot())
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				_, err = svc.SolveNow(ctx, model.RoundR1, smallSnapshot())
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				_, err = svc.List(ctx, 10)
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})

			Convey("And stopping again should be safe", func() {
				svc.Stop()
				So(svc.GetStats(context.Background()).Started, ShouldEqual, false)
			})
		})
	})
}

func TestService_Submit(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithWorkerCount(2))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When submitting a feasible snapshot", func() {
			id, dup, err := svc.Submit(ctx, "", model.RoundR1, smallSnapshot())

			Convey("Then it should be accepted and eventually succeed", func() {
				So(err, ShouldBeNil)
				So(dup, ShouldBeFalse)
				So(id, ShouldNotBeEmpty)

				rec := waitTerminal(ctx, svc, id)
				So(rec.Status, ShouldEqual, repository.StatusSucceeded)
				So(rec.Round, ShouldEqual, "R1")
				So(rec.Result, ShouldNotBeNil)
				So(rec.Result.Stats.Assignments, ShouldEqual, 4)
			})
		})

		Convey("When submitting twice with the same key", func() {
			first, dup1, err1 := svc.Submit(ctx, "key-1", model.RoundR1, smallSnapshot())
			second, dup2, err2 := svc.Submit(ctx, "key-1", model.RoundR1, smallSnapshot())

			Convey("Then the second call should return the original solve", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(dup1, ShouldBeFalse)
				So(dup2, ShouldBeTrue)
				So(second, ShouldEqual, first)
			})
		})

		Convey("When submitting without a key", func() {
			first, _, _ := svc.Submit(ctx, "", model.RoundR1, smallSnapshot())
			second, dup, _ := svc.Submit(ctx, "", model.RoundR1, smallSnapshot())

			Convey("Then each call should create a new solve", func() {
				So(dup, ShouldBeFalse)
				So(second, ShouldNotEqual, first)
			})
		})

		Convey("When submitting an unknown round", func() {
			_, _, err := svc.Submit(ctx, "k", model.Round("R9"), smallSnapshot())

			Convey("Then it should be refused up front", func() {
				So(errors.Is(err, roster.ErrUnknownRound), ShouldBeTrue)
			})
		})

		Convey("When submitting an infeasible snapshot", func() {
			snap := smallSnapshot()
			snap.Reviewers = snap.Reviewers[:1]
			id, _, err := svc.Submit(ctx, "", model.RoundR1, snap)

			Convey("Then the solve should fail as infeasible", func() {
				So(err, ShouldBeNil)
				rec := waitTerminal(ctx, svc, id)
				So(rec.Status, ShouldEqual, repository.StatusFailed)
				So(rec.FailureKind, ShouldEqual, "infeasible")
				So(rec.Error, ShouldNotBeEmpty)
			})
		})
	})
}

func TestService_SolveNow(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithWorkerCount(1))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When solving synchronously", func() {
			res, err := svc.SolveNow(ctx, model.RoundDL, smallSnapshot())

			Convey("Then a result should be returned without touching the store", func() {
				So(err, ShouldBeNil)
				So(res.Round, ShouldEqual, model.RoundDL)
				So(res.Compact, ShouldHaveLength, 2)
				So(svc.GetStats(context.Background()).Solves, ShouldEqual, 0)
			})
		})
	})
}

func TestService_GetStats(t *testing.T) {
	Convey("Given a started service with one finished solve", t, func() {
		svc := service.New(service.WithWorkerCount(1), service.WithQueueSize(10))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		id, _, err := svc.Submit(ctx, "stats-key", model.RoundR1, smallSnapshot())
		So(err, ShouldBeNil)
		waitTerminal(ctx, svc, id)

		Convey("Then stats should reflect the service state", func() {
			stats := svc.GetStats(context.Background())
			So(stats.Started, ShouldEqual, true)
			So(stats.Workers, ShouldEqual, 1)
			So(stats.QueueCapacity, ShouldEqual, 10)
			So(stats.Solves, ShouldEqual, 1)
			So(stats.IdempotencyKeys, ShouldEqual, int64(1))
			So(stats.SolvesByStatus, ShouldResemble, map[repository.Status]int{repository.StatusSucceeded: 1})
		})
	})
}

func TestService_StoreBound(t *testing.T) {
	Convey("Given a service whose memory store keeps two solves", t, func() {
		svc := service.New(service.WithWorkerCount(1), service.WithStoreMaxRecords(2))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		var ids []string
		for i := 0; i < 3; i++ {
			id, _, err := svc.Submit(ctx, "", model.RoundR1, smallSnapshot())
			So(err, ShouldBeNil)
			So(waitTerminal(ctx, svc, id).Status, ShouldEqual, repository.StatusSucceeded)
			ids = append(ids, id)
			time.Sleep(2 * time.Millisecond)
		}

		Convey("Then the oldest solve should be evicted", func() {
			_, err := svc.Get(ctx, ids[0])
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			recs, err := svc.List(ctx, 10)
			So(err, ShouldBeNil)
			So(recs, ShouldHaveLength, 2)
			So(recs[0].ID, ShouldEqual, ids[2])

			stats := svc.GetStats(ctx)
			So(stats.Solves, ShouldEqual, 2)
			So(stats.StoreMaxRecords, ShouldEqual, 2)
		})
	})
}

func TestService_Restart(t *testing.T) {
	Convey("Given a sqlite-backed service that was stopped", t, func() {
		dsn := filepath.Join(t.TempDir(), "restart.db")
		svc := service.New(service.WithWorkerCount(1), service.WithStoreDriver("sqlite", dsn))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)

		first, _, err := svc.Submit(ctx, "", model.RoundR1, smallSnapshot())
		So(err, ShouldBeNil)
		waitTerminal(ctx, svc, first)
		svc.Stop()

		Convey("When it is started again", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("Then it should reopen the store and keep serving", func() {
				rec, err := svc.Get(ctx, first)
				So(err, ShouldBeNil)
				So(rec.Status, ShouldEqual, repository.StatusSucceeded)

				id, _, err := svc.Submit(ctx, "", model.RoundR1, smallSnapshot())
				So(err, ShouldBeNil)
				So(waitTerminal(ctx, svc, id).Status, ShouldEqual, repository.StatusSucceeded)
				So(svc.GetStats(ctx).Solves, ShouldEqual, 2)
			})
		})
	})
}
