package api

import (
	"context"
	"net/http"

	service "github.com/okian/pcmatch/internal/app"
)

// StatsProvider reports the queue, idempotency and store state of the service.
type StatsProvider interface {
	GetStats(ctx context.Context) service.Stats
}

// StatsHandler serves GET /stats.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats writes the current service stats. A stopped service answers
// 503 with the same body so probes can tell it apart from a routing error.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	stats := h.provider.GetStats(r.Context())
	status := http.StatusOK
	if !stats.Started {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, status, stats)
}
