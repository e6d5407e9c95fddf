package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process AuditStore for tests and deployments
// without a database. It keeps a bounded window of recent records.
type MemoryStore struct {
	mu      sync.RWMutex
	records []ConversionRecord
	limit   int
}

// NewMemoryStore creates an empty in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{limit: 1000}
}

func (s *MemoryStore) RecordConversion(_ context.Context, rec ConversionRecord) (ConversionRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	if len(s.records) > s.limit {
		s.records = s.records[len(s.records)-s.limit:]
	}
	return rec, nil
}

func (s *MemoryStore) RecentConversions(_ context.Context, limit int) ([]ConversionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.records)
	if limit > n {
		limit = n
	}

	// Newest first.
	out := make([]ConversionRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

var _ AuditStore = (*MemoryStore)(nil)
