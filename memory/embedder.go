package memory

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder turns text into a fixed-size vector for similarity recall.
// External embedding services implement this interface; the engine ships a
// deterministic local default so vector memory works without network access.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// hashingDims is the feature-hashing dimensionality of the default embedder.
const hashingDims = 256

// HashingEmbedder is a deterministic bag-of-words embedder using feature
// hashing with L2 normalization. It captures lexical overlap only, which is
// enough for recall tests and offline use; production deployments inject a
// real embedding client instead.
type HashingEmbedder struct{}

// NewHashingEmbedder returns the default local embedder.
func NewHashingEmbedder() *HashingEmbedder { return &HashingEmbedder{} }

// Embed implements Embedder.
func (HashingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, hashingDims)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(tok, ".,!?;:\"'()")))
		vec[h.Sum32()%hashingDims]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

// cosine computes cosine similarity of two equal-length vectors.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
