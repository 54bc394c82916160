package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/pcmatch/internal/adapters/repository"
	"github.com/okian/pcmatch/internal/domain/matching"
	"github.com/okian/pcmatch/internal/domain/model"
	"github.com/okian/pcmatch/pkg/logger"
)

// Export shapes accepted by GET /solves/{id}/export.
const (
	ShapeCompact  = "compact"
	ShapeDetailed = "detailed"
)

// SolvesHandler handles solve submission, lookup and export.
type SolvesHandler struct {
	deps         Dependencies
	maxBodyBytes int64
	logger       logger.Logger
}

// NewSolvesHandler creates a new solves handler.
func NewSolvesHandler(deps Dependencies, maxBodyBytes int64, l logger.Logger) *SolvesHandler {
	return &SolvesHandler{deps: deps, maxBodyBytes: maxBodyBytes, logger: l}
}

type infeasibleResponse struct {
	errorResponse
	Underserved int      `json:"underserved"`
	Papers      []string `json:"papers"`
}

// HandleSolves handles POST /solves (submit) and GET /solves (list).
func (h *SolvesHandler) HandleSolves(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.submit(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *SolvesHandler) submit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_solve"
	req, err := h.decode(w, r)
	if err != nil {
		writeClassified(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if key == "" {
		key = strings.TrimSpace(req.IdempotencyKey)
	}

	id, dup, err := h.deps.Submit(r.Context(), key, model.Round(req.Round), *req.Snapshot)
	if err != nil {
		status, code := classify(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error(r.Context(), "submit failed", logger.Error(err))
		}
		writeError(w, status, code, Wrap(op, err))
		return
	}
	if dup {
		writeJSON(w, http.StatusOK, submitResponse{ID: id, Status: "duplicate", Duplicate: true})
		return
	}
	w.Header().Set("Location", "/solves/"+id)
	writeJSON(w, http.StatusAccepted, submitResponse{ID: id, Status: string(repository.StatusQueued)})
}

func (h *SolvesHandler) list(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_solves"
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeClassified(w, WrapKind(op, ErrBadRequest, errors.New("limit must be a positive integer")))
			return
		}
		limit = min(n, maxListLimit)
	}

	recs, err := h.deps.List(r.Context(), limit)
	if err != nil {
		writeClassified(w, Wrap(op, err))
		return
	}
	// Listings stay small; full results are served by GET /solves/{id}.
	for i := range recs {
		recs[i].Result = nil
	}
	if recs == nil {
		recs = []repository.Record{}
	}
	writeJSON(w, http.StatusOK, listResponse{Solves: recs})
}

// HandleSolveByID handles GET /solves/{id} and GET /solves/{id}/export.
func (h *SolvesHandler) HandleSolveByID(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_solve"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameters after /solves/
	path := strings.TrimPrefix(r.URL.Path, "/solves/")
	id, rest, _ := strings.Cut(path, "/")
	if id == "" || (rest != "" && rest != "export") {
		writeClassified(w, NewKind(op, ErrBadRequest))
		return
	}

	rec, err := h.deps.Get(r.Context(), id)
	if err != nil {
		writeClassified(w, Wrap(op, err))
		return
	}
	if rest == "" {
		writeJSON(w, http.StatusOK, rec)
		return
	}
	h.export(w, r, rec)
}

func (h *SolvesHandler) export(w http.ResponseWriter, r *http.Request, rec repository.Record) { //nolint:gocritic // hugeParam: record is read-only
	const op = "api.export_solve"
	shape := r.URL.Query().Get("shape")
	if shape == "" {
		shape = ShapeCompact
	}
	if shape != ShapeCompact && shape != ShapeDetailed {
		writeClassified(w, WrapKind(op, ErrBadRequest, errors.New("shape must be compact or detailed")))
		return
	}
	if rec.Status != repository.StatusSucceeded || rec.Result == nil {
		writeError(w, http.StatusConflict, "not_ready", NewKind(op, errors.New("solve "+string(rec.Status))))
		return
	}

	if shape == ShapeDetailed {
		writeJSON(w, http.StatusOK, rec.Result.Detailed)
		return
	}
	writeJSON(w, http.StatusOK, rec.Result.Compact)
}

// HandleSolveNow handles POST /solve, a synchronous solve.
func (h *SolvesHandler) HandleSolveNow(w http.ResponseWriter, r *http.Request) {
	const op = "api.solve_now"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	req, err := h.decode(w, r)
	if err != nil {
		writeClassified(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.SolveNow(r.Context(), model.Round(req.Round), *req.Snapshot)
	if err != nil {
		var inf *matching.InfeasibleError
		if errors.As(err, &inf) {
			writeJSON(w, http.StatusUnprocessableEntity, infeasibleResponse{
				errorResponse: errorResponse{Code: "infeasible", Message: err.Error()},
				Underserved:   inf.Underserved,
				Papers:        inf.Papers,
			})
			return
		}
		status, code := classify(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error(r.Context(), "solve failed", logger.Error(err))
		}
		writeError(w, status, code, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *SolvesHandler) decode(w http.ResponseWriter, r *http.Request) (solveRequest, error) {
	var req solveRequest
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		return req, err
	}
	if err := req.validate(); err != nil {
		return req, err
	}
	return req, nil
}
