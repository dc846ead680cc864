package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/atcoder-search/internal/store"
)

// HistoryStore implements store.HistoryStore in memory.
type HistoryStore struct {
	mu      sync.RWMutex
	records []store.RunHistory
	now     func() time.Time
	seq     int
}

// NewHistoryStore constructs a HistoryStore. A nil now uses time.Now.
func NewHistoryStore(now func() time.Time) *HistoryStore {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &HistoryStore{now: now}
}

// Seed stores a finished record, e.g. a prior completed run.
func (s *HistoryStore) Seed(h store.RunHistory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, h)
}

// Start records a working run.
func (s *HistoryStore) Start(_ context.Context, key string, _ ...store.StartOption) (*store.RunHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	h := store.RunHistory{
		ID:        fmt.Sprintf("run-%d", s.seq),
		Key:       key,
		StartedAt: s.now(),
		Status:    store.RunWorking,
	}
	s.records = append(s.records, h)
	out := h
	return &out, nil
}

// Complete marks a working run completed.
func (s *HistoryStore) Complete(_ context.Context, h *store.RunHistory) error {
	return s.finish(h, store.RunCompleted)
}

// Abort marks a working run aborted.
func (s *HistoryStore) Abort(_ context.Context, h *store.RunHistory) error {
	return s.finish(h, store.RunAborted)
}

func (s *HistoryStore) finish(h *store.RunHistory, status store.RunStatus) error {
	if h == nil || h.Status != store.RunWorking {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		rec := &s.records[i]
		if rec.ID != h.ID || rec.Status != store.RunWorking {
			continue
		}
		finished := s.now()
		rec.Status = status
		rec.FinishedAt = &finished
		h.Status = status
		h.FinishedAt = &finished
		return nil
	}
	return nil
}

// LatestCompleted returns the newest completed run for key, or nil.
func (s *HistoryStore) LatestCompleted(_ context.Context, key string) (*store.RunHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *store.RunHistory
	for i := range s.records {
		rec := s.records[i]
		if rec.Key != key || rec.Status != store.RunCompleted {
			continue
		}
		if latest == nil || rec.StartedAt.After(latest.StartedAt) {
			latest = &rec
		}
	}
	return latest, nil
}

// Records returns a copy of every record in insertion order.
func (s *HistoryStore) Records() []store.RunHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.RunHistory, len(s.records))
	copy(out, s.records)
	return out
}
