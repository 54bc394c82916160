// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	solvequeue "github.com/okian/pcmatch/internal/adapters/mq/queue"
	workerpool "github.com/okian/pcmatch/internal/adapters/mq/worker"
	"github.com/okian/pcmatch/internal/adapters/repository"
	"github.com/okian/pcmatch/internal/domain/idempotency"
	"github.com/okian/pcmatch/internal/domain/model"
	"github.com/okian/pcmatch/internal/domain/roster"
	"github.com/okian/pcmatch/internal/domain/scoring"
	"github.com/okian/pcmatch/internal/domain/solver"
	"github.com/okian/pcmatch/pkg/logger"
	"github.com/okian/pcmatch/pkg/metrics"
)

// Failure kind stored when the queue refuses a submission.
const failureRejected = "rejected"

// Service implements the API dependencies for the assignment system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	registry idempotency.Registry
	queue    *solvequeue.InMemoryQueue
	solver   *solver.Solver
	pool     *workerpool.Pool

	// Configuration
	workerCount   int
	queueSize     int
	dedupeSize    int
	solveTimeout  time.Duration
	retryAttempts int
	policy        roster.Policy
	weights       [3]float64
	storeDriver     string
	storeDSN        string
	storeMaxRecords int

	// State
	started   bool
	ownsStore bool // store was opened by Start and is closed by Stop

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued solves.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many idempotency keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSolveTimeout bounds every solve.
func WithSolveTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.solveTimeout = d
		}
	}
}

// WithRetryAttempts sets the persistence retry budget of workers.
func WithRetryAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.retryAttempts = n
		}
	}
}

// WithPolicy sets the round table.
func WithPolicy(p roster.Policy) Option {
	return func(s *Service) {
		if len(p) > 0 {
			s.policy = p
		}
	}
}

// WithWeights sets the composite score weights.
func WithWeights(pref, affinity, ext float64) Option {
	return func(s *Service) {
		s.weights = [3]float64{pref, affinity, ext}
	}
}

// WithStore injects a ready store; it takes precedence over WithStoreDriver.
// The caller keeps ownership and closes it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithStoreDriver selects the store opened on Start: memory, sqlite or postgres.
func WithStoreDriver(driver, dsn string) Option {
	return func(s *Service) {
		if driver != "" {
			s.storeDriver = driver
			s.storeDSN = dsn
		}
	}
}

// WithStoreMaxRecords bounds the memory store. Zero keeps every record.
func WithStoreMaxRecords(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.storeMaxRecords = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU(),
		queueSize:     1024,
		dedupeSize:    10_000,
		solveTimeout:  30 * time.Second,
		retryAttempts: 3,
		policy:        roster.DefaultPolicy(),
		weights:       [3]float64{1, 1, 1},
		storeDriver:     "memory",
		storeMaxRecords: 1000,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting assignment service...")

	if s.store == nil {
		store, err := openStore(ctx, s.storeDriver, s.storeDSN, s.storeMaxRecords)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
		s.ownsStore = true
	}
	s.logger.Info(ctx, "using store", logger.String("driver", s.storeDriver))

	s.registry = idempotency.NewInMemoryRegistry(idempotency.WithMaxSize(s.dedupeSize))
	s.queue = solvequeue.NewInMemoryQueue(solvequeue.WithCapacity(s.queueSize))
	s.solver = solver.New(
		solver.WithPolicy(s.policy),
		solver.WithAggregator(scoring.NewAggregator(scoring.WithWeights(s.weights[0], s.weights[1], s.weights[2]))),
		solver.WithLogger(s.logger.Named("solver")),
	)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.solver, s.store,
		workerpool.WithSolveTimeout(s.solveTimeout),
		workerpool.WithRetryAttempts(s.retryAttempts),
	)
	// Workers outlive the start context; Stop ends them by closing the queue.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "assignment service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Duration("solveTimeout", s.solveTimeout),
	)

	return nil
}

func openStore(ctx context.Context, driver, dsn string, maxRecords int) (repository.Store, error) {
	if isMemoryDriver(driver) {
		return repository.NewMemoryStore(repository.WithMaxRecords(maxRecords)), nil
	}
	return repository.NewSQLStore(ctx, driver, dsn)
}

func isMemoryDriver(driver string) bool {
	return driver == "" || driver == "memory"
}

// Stop gracefully shuts down the service. Queued solves are drained first.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping assignment service...")

	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
	}

	// An injected store stays open for its owner; one opened by Start is
	// closed here and reopened by the next Start.
	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(ctx, "closing store", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}

	s.started = false
	s.logger.Info(ctx, "assignment service stopped")
}

func (s *Service) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Submit queues a solve and returns its ID. A repeated non-empty key
// returns the ID of the original submission with dup set.
func (s *Service) Submit(ctx context.Context, key string, round model.Round, snap model.Snapshot) (string, bool, error) { //nolint:gocritic // hugeParam: snapshot is handed to the queue by value
	if !s.running() {
		return "", false, ErrNotStarted
	}
	if _, err := s.solver.Policy().Lookup(round); err != nil {
		return "", false, err
	}

	id := uuid.NewString()
	if key != "" {
		if existing, dup := s.registry.Claim(ctx, key, id); dup {
			metrics.RecordDuplicateSubmit()
			s.logger.Debug(ctx, "duplicate submission", logger.String("key", key), logger.String("id", existing))
			return existing, true, nil
		}
	}

	now := time.Now().UTC()
	rec := repository.Record{
		ID:        id,
		Round:     string(round),
		Status:    repository.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, rec); err != nil {
		s.release(ctx, key)
		return "", false, fmt.Errorf("save solve: %w", err)
	}

	err := s.queue.Enqueue(ctx, solvequeue.Job{ID: id, Round: round, Snapshot: snap, EnqueuedAt: now})
	if err != nil {
		s.release(ctx, key)
		rec.Status = repository.StatusFailed
		rec.FailureKind = failureRejected
		rec.Error = err.Error()
		rec.UpdatedAt = time.Now().UTC()
		if serr := s.store.Save(ctx, rec); serr != nil {
			s.logger.Warn(ctx, "could not record rejected solve", logger.String("id", id), logger.Error(serr))
		}
		if errors.Is(err, solvequeue.ErrQueueFull) || errors.Is(err, solvequeue.ErrQueueClosed) {
			return "", false, fmt.Errorf("%w: %w", ErrBackpressure, err)
		}
		return "", false, err
	}

	s.logger.Debug(ctx, "solve queued", logger.String("id", id), logger.String("round", string(round)))
	return id, false, nil
}

func (s *Service) release(ctx context.Context, key string) {
	if key != "" {
		s.registry.Release(ctx, key)
	}
}

// SolveNow runs a solve synchronously under the configured timeout.
func (s *Service) SolveNow(ctx context.Context, round model.Round, snap model.Snapshot) (*solver.Result, error) { //nolint:gocritic // hugeParam: snapshot is read-only
	if !s.running() {
		return nil, ErrNotStarted
	}
	ctx, cancel := context.WithTimeout(ctx, s.solveTimeout)
	defer cancel()
	return s.solver.Solve(ctx, round, snap)
}

// Get returns a solve record.
func (s *Service) Get(ctx context.Context, id string) (repository.Record, error) {
	if !s.running() {
		return repository.Record{}, ErrNotStarted
	}
	return s.store.Get(ctx, id)
}

// List returns the newest solve records.
func (s *Service) List(ctx context.Context, limit int) ([]repository.Record, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	return s.store.List(ctx, limit)
}
