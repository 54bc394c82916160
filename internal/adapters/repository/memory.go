package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/pcmatch/pkg/metrics"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu         sync.RWMutex
	records    map[string]Record
	maxRecords int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{records: make(map[string]Record)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRecord)
	}
	start := time.Now()
	defer observe("save", start)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	if s.maxRecords > 0 && len(s.records) > s.maxRecords {
		s.evictOldest()
	}
	return nil
}

// evictOldest must be called with s.mu held.
func (s *MemoryStore) evictOldest() {
	var oldest Record
	first := true
	for _, r := range s.records {
		if first || newer(oldest, r) {
			oldest, first = r, false
		}
	}
	delete(s.records, oldest.ID)
}

func (s *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	start := time.Now()
	defer observe("get", start)

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]Record, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	start := time.Now()
	defer observe("list", start)

	s.mu.RLock()
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return newer(out[i], out[j]) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) CountByStatus(_ context.Context) (map[Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Status]int, 4)
	for _, r := range s.records {
		out[r.Status]++
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

// newer orders records by creation time descending, then ID descending.
func newer(a, b Record) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}
