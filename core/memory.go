package core

import (
	"context"
	"fmt"
)

// Entry is one remembered piece of conversational context for a single agent.
type Entry struct {
	ID      string `json:"id"`
	Round   int    `json:"round"`
	Content string `json:"content"`
}

// MemoryStore persists and retrieves conversational context for one agent.
// Implementations decide the retrieval strategy: a simple store returns the
// most recent entries in chronological order, a vector store returns the
// most similar entries by embedding distance.
//
// Remember is only invoked for accepted turns; rejected attempts must never
// reach a store. A store that cannot complete a read or write returns a
// *MemoryUnavailableError so the caller can fail the enclosing turn instead
// of silently losing context.
type MemoryStore interface {
	// Remember appends an entry to the store.
	Remember(ctx context.Context, e Entry) error

	// Recall returns prior entries relevant to query, oldest first.
	Recall(ctx context.Context, query string) ([]Entry, error)
}

// MemoryUnavailableError reports that a memory backend could not complete a
// read or write. It is infrastructure-level: the enclosing turn fails without
// consuming the agent-quality retry budget.
type MemoryUnavailableError struct {
	Op  string // "remember" or "recall"
	Err error
}

func (e *MemoryUnavailableError) Error() string {
	return fmt.Sprintf("memory unavailable during %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying backend error.
func (e *MemoryUnavailableError) Unwrap() error { return e.Err }
