package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/xianxia/internal/domain/model"
	"github.com/okian/xianxia/pkg/metrics"
)

const defaultMaxRecords = 256

// MemoryStore is an in-memory Store. Stored values are deep copies, so
// callers may keep mutating the participants they saved.
type MemoryStore struct {
	mu      sync.RWMutex
	setups  map[string]Setup
	records map[string]Record
	order   []string // record state ids, oldest first

	maxRecords int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		setups:     make(map[string]Setup),
		records:    make(map[string]Record),
		maxRecords: defaultMaxRecords,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveSetup implements Store.
func (s *MemoryStore) SaveSetup(_ context.Context, setup Setup) error {
	defer observe("save_setup", time.Now())
	if setup.StateID == "" {
		metrics.RecordRepositoryError("missing_id")
		return ErrMissingID
	}
	setup.Player = setup.Player.Clone()
	setup.Enemies = cloneAll(setup.Enemies)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setups[setup.StateID] = setup
	return nil
}

// Setup implements Store.
func (s *MemoryStore) Setup(_ context.Context, stateID string) (Setup, error) {
	defer observe("setup", time.Now())
	s.mu.RLock()
	setup, ok := s.setups[stateID]
	s.mu.RUnlock()
	if !ok {
		metrics.RecordRepositoryError("not_found")
		return Setup{}, fmt.Errorf("setup %s: %w", stateID, ErrNotFound)
	}
	setup.Player = setup.Player.Clone()
	setup.Enemies = cloneAll(setup.Enemies)
	return setup, nil
}

// SaveRecord implements Store. Saving a record twice for the same battle
// replaces it without changing its position.
func (s *MemoryStore) SaveRecord(_ context.Context, r Record) error {
	defer observe("save_record", time.Now())
	if r.StateID == "" {
		metrics.RecordRepositoryError("missing_id")
		return ErrMissingID
	}
	r.Roster = cloneAll(r.Roster)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[r.StateID]; !exists {
		s.order = append(s.order, r.StateID)
	}
	s.records[r.StateID] = r
	for len(s.order) > s.maxRecords {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.records, oldest)
		delete(s.setups, oldest)
	}
	metrics.UpdateRepositoryRecords(len(s.records))
	return nil
}

// Record implements Store.
func (s *MemoryStore) Record(_ context.Context, stateID string) (Record, error) {
	defer observe("record", time.Now())
	s.mu.RLock()
	r, ok := s.records[stateID]
	s.mu.RUnlock()
	if !ok {
		metrics.RecordRepositoryError("not_found")
		return Record{}, fmt.Errorf("record %s: %w", stateID, ErrNotFound)
	}
	r.Roster = cloneAll(r.Roster)
	return r, nil
}

// Recent implements Store.
func (s *MemoryStore) Recent(_ context.Context, n int) ([]Record, error) {
	defer observe("recent", time.Now())
	if n <= 0 {
		metrics.RecordRepositoryError("invalid_limit")
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if n > len(s.order) {
		n = len(s.order)
	}
	out := make([]Record, 0, n)
	for i := len(s.order) - 1; i >= 0 && len(out) < n; i-- {
		r := s.records[s.order[i]]
		r.Roster = cloneAll(r.Roster)
		out = append(out, r)
	}
	return out, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func cloneAll(ps []model.Participant) []model.Participant {
	if ps == nil {
		return nil
	}
	out := make([]model.Participant, len(ps))
	for i := range ps {
		out[i] = ps[i].Clone()
	}
	return out
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryLatency(op, float64(time.Since(start).Microseconds()))
}
