package memory

import (
	"context"
	"sync"

	"github.com/roundtable-ai/roundtable/core"
)

// DefaultRecallLimit bounds how many entries a recency-based Recall returns
// when no explicit limit is configured.
const DefaultRecallLimit = 10

// SimpleStore is an append-only, process-local memory store. Recall ignores
// the query and returns the most recent entries in chronological order.
// It is safe for concurrent access.
type SimpleStore struct {
	mu      sync.RWMutex
	entries []core.Entry
	limit   int
}

// SimpleOption customizes a SimpleStore.
type SimpleOption func(*SimpleStore)

// WithSimpleRecallLimit overrides the number of entries Recall returns.
func WithSimpleRecallLimit(n int) SimpleOption {
	return func(s *SimpleStore) {
		if n > 0 {
			s.limit = n
		}
	}
}

// NewSimpleStore constructs an empty SimpleStore.
func NewSimpleStore(opts ...SimpleOption) *SimpleStore {
	s := &SimpleStore{limit: DefaultRecallLimit}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Remember implements core.MemoryStore.
func (s *SimpleStore) Remember(_ context.Context, e core.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = core.NewID()
	}
	s.entries = append(s.entries, e)
	return nil
}

// Recall implements core.MemoryStore returning the newest entries oldest
// first. The returned slice is a copy.
func (s *SimpleStore) Recall(_ context.Context, _ string) ([]core.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if len(s.entries) > s.limit {
		start = len(s.entries) - s.limit
	}
	out := make([]core.Entry, len(s.entries)-start)
	copy(out, s.entries[start:])
	return out, nil
}

// Len reports the number of remembered entries.
func (s *SimpleStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
