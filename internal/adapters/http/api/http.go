// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/pcmatch/internal/adapters/mq/queue"
	"github.com/okian/pcmatch/internal/adapters/repository"
	"github.com/okian/pcmatch/internal/domain/matching"
	"github.com/okian/pcmatch/internal/domain/model"
	"github.com/okian/pcmatch/internal/domain/roster"
	"github.com/okian/pcmatch/internal/domain/solver"
	"github.com/okian/pcmatch/pkg/logger"
	"golang.org/x/time/rate"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit queues a solve. dup is true when key was seen before and id
	// names the original solve.
	Submit(ctx context.Context, key string, round model.Round, snap model.Snapshot) (id string, dup bool, err error)

	// SolveNow runs a solve synchronously.
	SolveNow(ctx context.Context, round model.Round, snap model.Snapshot) (*solver.Result, error)

	// Read operations expose stored solves.
	Get(ctx context.Context, id string) (repository.Record, error)
	List(ctx context.Context, limit int) ([]repository.Record, error)
}

const (
	defaultMaxBodyBytes int64 = 32 << 20
	defaultListLimit          = 50
	maxListLimit              = 1000

	// IdempotencyKeyHeader deduplicates POST /solves.
	IdempotencyKeyHeader = "Idempotency-Key"
)

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	solvesHandler *SolvesHandler

	limiter      *rate.Limiter
	maxBodyBytes int64
	logger       logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		maxBodyBytes:  defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	s.solvesHandler = NewSolvesHandler(deps, s.maxBodyBytes, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/solve", MetricsMiddleware(s.solvesHandler.HandleSolveNow, "solve"))
	mux.HandleFunc("/solves", MetricsMiddleware(
		RateLimitMiddleware(s.limiter, http.MethodPost, s.solvesHandler.HandleSolves), "solves"))
	mux.HandleFunc("/solves/", MetricsMiddleware(s.solvesHandler.HandleSolveByID, "solves_by_id"))
}

// solveRequest mirrors the OpenAPI schema for POST /solves and POST /solve.
type solveRequest struct {
	Round          string          `json:"round"`
	Snapshot       *model.Snapshot `json:"snapshot"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

func (req *solveRequest) validate() error {
	req.Round = strings.ToUpper(strings.TrimSpace(req.Round))
	switch {
	case req.Round == "":
		return errors.New("missing round")
	case req.Snapshot == nil:
		return errors.New("missing snapshot")
	}
	return nil
}

type submitResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type listResponse struct {
	Solves []repository.Record `json:"solves"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// classify maps an error from the handlers or their dependencies to a
// status code and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, ErrBackpressure),
		errors.Is(err, queue.ErrQueueFull),
		errors.Is(err, queue.ErrQueueClosed):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, roster.ErrUnknownRound):
		return http.StatusBadRequest, "unknown_round"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, matching.ErrInfeasible):
		return http.StatusUnprocessableEntity, "infeasible"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeClassified(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}
