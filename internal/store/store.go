// Package store holds the current collection of expense records and provides
// deterministic mutation primitives. It is an explicit object handed to the
// engine and service layer; persistence is the caller's concern.
package store

import (
	"fmt"
	"sync"

	"fincontrol/internal/core"
)

// Store is an ordered record collection with each record independently
// addressable by id. Mutations either fully apply or leave the store
// untouched. Removal of a missing id is an error (core.ErrNotFound), never a
// silent no-op.
type Store struct {
	mu      sync.Mutex
	records []core.ExpenseRecord
	index   map[string]int
}

func New() *Store {
	return &Store{index: make(map[string]int)}
}

// InsertMany appends records preserving caller-supplied order. IDs must be
// pre-assigned; a collision with the store or within the batch fails the
// whole batch.
func (s *Store) InsertMany(records []core.ExpenseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%w: record without id", core.ErrValidation)
		}
		if _, ok := s.index[r.ID]; ok {
			return fmt.Errorf("%w: %s", core.ErrDuplicateID, r.ID)
		}
		if _, ok := seen[r.ID]; ok {
			return fmt.Errorf("%w: %s repeated in batch", core.ErrDuplicateID, r.ID)
		}
		seen[r.ID] = struct{}{}
	}

	for _, r := range records {
		s.index[r.ID] = len(s.records)
		s.records = append(s.records, r)
	}
	return nil
}

// Remove removes exactly one record.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	s.reindex()
	return nil
}

// ReplaceAll atomically replaces the whole collection. Used by group update
// resolution, which computes a full next-state collection.
func (s *Store) ReplaceAll(records []core.ExpenseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := make(map[string]int, len(records))
	for i, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%w: record without id", core.ErrValidation)
		}
		if _, ok := index[r.ID]; ok {
			return fmt.Errorf("%w: %s", core.ErrDuplicateID, r.ID)
		}
		index[r.ID] = i
	}

	s.records = append([]core.ExpenseRecord(nil), records...)
	s.index = index
	return nil
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (core.ExpenseRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return core.ExpenseRecord{}, false
	}
	return s.records[i], true
}

// Query returns matching records in store order. It never mutates.
func (s *Store) Query(pred func(core.ExpenseRecord) bool) []core.ExpenseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.ExpenseRecord
	for _, r := range s.records {
		if pred == nil || pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// All returns a copy of the full collection in store order.
func (s *Store) All() []core.ExpenseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ExpenseRecord(nil), s.records...)
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.records))
	for i, r := range s.records {
		s.index[r.ID] = i
	}
}
