package service

import (
	"context"

	"github.com/okian/pcmatch/internal/adapters/repository"
	"github.com/okian/pcmatch/pkg/logger"
	"github.com/okian/pcmatch/pkg/metrics"
)

// Stats is a point-in-time view of the service served on /stats.
type Stats struct {
	Started         bool   `json:"started"`
	Workers         int    `json:"workers"`
	QueueCapacity   int    `json:"queue_capacity"`
	QueueLength     int    `json:"queue_length"`
	IdempotencyKeys int64  `json:"idempotency_keys"`
	DedupeSize      int    `json:"dedupe_size"`
	StoreDriver     string `json:"store_driver"`
	// StoreMaxRecords is the memory store bound; 0 when unbounded or SQL-backed.
	StoreMaxRecords int                       `json:"store_max_records,omitempty"`
	Solves          int                       `json:"solves"`
	SolvesByStatus  map[repository.Status]int `json:"solves_by_status,omitempty"`
}

// GetStats returns service statistics and refreshes the service gauges.
func (s *Service) GetStats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Started:       s.started,
		Workers:       s.workerCount,
		QueueCapacity: s.queueSize,
		DedupeSize:    s.dedupeSize,
		StoreDriver:   s.storeDriver,
	}
	if s.ownsStore && isMemoryDriver(s.storeDriver) {
		st.StoreMaxRecords = s.storeMaxRecords
	}
	if !s.started {
		return st
	}

	st.QueueCapacity = s.queue.Capacity()
	st.QueueLength = s.queue.Len(ctx)
	st.IdempotencyKeys = s.registry.Size()
	st.Solves = s.store.Count(ctx)

	byStatus, err := s.store.CountByStatus(ctx)
	if err != nil {
		s.logger.Warn(ctx, "counting solves by status", logger.Error(err))
	} else {
		st.SolvesByStatus = byStatus
	}

	metrics.UpdateQueueSize(st.QueueLength)
	metrics.UpdateStoreRecords(st.Solves)
	metrics.UpdateWorkerCount(s.workerCount)
	return st
}
