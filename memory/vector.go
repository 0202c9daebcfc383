package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/roundtable-ai/roundtable/core"
)

// storedVector pairs an entry with its embedding and insertion sequence.
type storedVector struct {
	entry core.Entry
	vec   []float32
	seq   int
}

// VectorStore keys entries by embedding and recalls the top-K most similar
// ones, ties broken by most-recent-first. Embedding failures surface as
// *core.MemoryUnavailableError so the enclosing turn fails loudly instead of
// running with silently degraded context. Safe for concurrent access.
type VectorStore struct {
	mu       sync.RWMutex
	embedder Embedder
	entries  []storedVector
	topK     int
}

// VectorOption customizes a VectorStore.
type VectorOption func(*VectorStore)

// WithTopK overrides how many entries Recall returns.
func WithTopK(k int) VectorOption {
	return func(v *VectorStore) {
		if k > 0 {
			v.topK = k
		}
	}
}

// WithEmbedder injects an embedding client. Defaults to the deterministic
// HashingEmbedder.
func WithEmbedder(e Embedder) VectorOption {
	return func(v *VectorStore) {
		if e != nil {
			v.embedder = e
		}
	}
}

// NewVectorStore constructs an empty VectorStore.
func NewVectorStore(opts ...VectorOption) *VectorStore {
	v := &VectorStore{embedder: NewHashingEmbedder(), topK: DefaultRecallLimit}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Remember implements core.MemoryStore.
func (v *VectorStore) Remember(ctx context.Context, e core.Entry) error {
	vec, err := v.embedder.Embed(ctx, e.Content)
	if err != nil {
		return &core.MemoryUnavailableError{Op: "remember", Err: err}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if e.ID == "" {
		e.ID = core.NewID()
	}
	v.entries = append(v.entries, storedVector{entry: e, vec: vec, seq: len(v.entries)})
	return nil
}

// Recall implements core.MemoryStore returning the top-K entries most similar
// to query, most similar first.
func (v *VectorStore) Recall(ctx context.Context, query string) ([]core.Entry, error) {
	qv, err := v.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &core.MemoryUnavailableError{Op: "recall", Err: err}
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	type scored struct {
		sv    storedVector
		score float64
	}
	ranked := make([]scored, 0, len(v.entries))
	for _, sv := range v.entries {
		ranked = append(ranked, scored{sv: sv, score: cosine(qv, sv.vec)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].sv.seq > ranked[j].sv.seq // ties: most recent first
	})

	n := v.topK
	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]core.Entry, 0, n)
	for _, r := range ranked[:n] {
		out = append(out, r.sv.entry)
	}
	return out, nil
}

// Len reports the number of remembered entries.
func (v *VectorStore) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}
