// Package worker runs queued solves and persists their outcome.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/okian/pcmatch/internal/adapters/mq/queue"
	"github.com/okian/pcmatch/internal/adapters/repository"
	"github.com/okian/pcmatch/internal/domain/matching"
	"github.com/okian/pcmatch/internal/domain/model"
	"github.com/okian/pcmatch/internal/domain/roster"
	"github.com/okian/pcmatch/internal/domain/solver"
	"github.com/okian/pcmatch/pkg/logger"
	"github.com/okian/pcmatch/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultSolveTimeout  = 30 * time.Second
	defaultRetryAttempts = 3
	defaultRetryDelay    = 50 * time.Millisecond
	maxRetryDelay        = 2 * time.Second
	poolShutdownTimeout  = 30 * time.Second
)

// Failure kinds stored on failed records.
const (
	FailureInfeasible   = "infeasible"
	FailureUnknownRound = "unknown_round"
	FailureTimeout      = "timeout"
	FailureCancelled    = "cancelled"
	FailureInternal     = "internal"
)

// FailureKind classifies a solve error.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, matching.ErrInfeasible):
		return FailureInfeasible
	case errors.Is(err, roster.ErrUnknownRound):
		return FailureUnknownRound
	case errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.Is(err, context.Canceled):
		return FailureCancelled
	default:
		return FailureInternal
	}
}

// Solver computes an assignment.
type Solver interface {
	Solve(ctx context.Context, round model.Round, snap model.Snapshot) (*solver.Result, error)
}

// Saver persists solve records.
type Saver interface {
	Save(ctx context.Context, rec repository.Record) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for queued solves.
type InMemoryWorker struct {
	queue  Queue
	solver Solver
	store  Saver
	name   string

	solveTimeout  time.Duration
	retryAttempts int
	retryDelay    time.Duration

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, s Solver, store Saver, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:         q,
		solver:        s,
		store:         store,
		name:          "worker",
		solveTimeout:  defaultSolveTimeout,
		retryAttempts: defaultRetryAttempts,
		retryDelay:    defaultRetryDelay,
		shutdown:      make(chan struct{}),
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.logger.Error(ctx, "error processing solve", logger.String("id", j.ID), logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process runs one job and stores its terminal record.
func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) error { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	metrics.IncWorkerActive()
	defer metrics.DecWorkerActive()

	rec := repository.Record{
		ID:        j.ID,
		Round:     string(j.Round),
		Status:    repository.StatusRunning,
		CreatedAt: j.EnqueuedAt,
		UpdatedAt: time.Now().UTC(),
	}
	if err := w.persist(ctx, rec); err != nil {
		// The terminal save below is what clients wait for; keep going.
		w.logger.Warn(ctx, "could not mark solve running", logger.String("id", j.ID), logger.Error(err))
	}

	sctx, cancel := context.WithTimeout(ctx, w.solveTimeout)
	res, err := w.solver.Solve(sctx, j.Round, j.Snapshot)
	cancel()

	rec.UpdatedAt = time.Now().UTC()
	if err != nil {
		metrics.RecordWorkerError()
		rec.Status = repository.StatusFailed
		rec.Error = err.Error()
		rec.FailureKind = FailureKind(err)
		var inf *matching.InfeasibleError
		if errors.As(err, &inf) {
			rec.Underserved = inf.Underserved
			rec.UnderservedPapers = inf.Papers
		}
	} else {
		rec.Status = repository.StatusSucceeded
		rec.Result = res
	}

	// A finished solve is stored even when the worker is being stopped.
	if err := w.persist(context.WithoutCancel(ctx), rec); err != nil {
		return fmt.Errorf("persist solve %s: %w", j.ID, err)
	}
	return nil
}

func (w *InMemoryWorker) persist(ctx context.Context, rec repository.Record) error { //nolint:gocritic // hugeParam: record is copied into the store
	return retry.Do(
		func() error {
			return w.store.Save(ctx, rec)
		},
		retry.Context(ctx),
		retry.Attempts(uint(w.retryAttempts)),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(w.retryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.OnRetry(func(n uint, err error) {
			metrics.RecordWorkerRetry()
			w.logger.Warn(ctx, "retrying solve save",
				logger.String("id", rec.ID),
				logger.Int("attempt", int(n)+1),
				logger.Int("max_attempts", w.retryAttempts),
				logger.Error(err),
			)
		}),
		retry.LastErrorOnly(true),
	)
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a new worker pool. Options apply to every worker.
func NewPool(workerCount int, q Queue, s Solver, store Saver, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, s, store, wopts...)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to finish.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
