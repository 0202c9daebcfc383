// Package memory provides the built-in core.MemoryStore backends: an
// append-only in-process store with recency-based recall, a vector store with
// embedding-similarity recall, and a Redis-backed store for processes that
// need agent memory to survive restarts. Each agent owns exactly one store
// instance; stores are never shared across sessions.
package memory
