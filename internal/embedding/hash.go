package embedding

import (
	"context"

	"github.com/hyperjump/docagent/pkg/utils"
)

// HashEmbedder is a deterministic bag-of-words embedder using signed feature hashing.
// Texts that share words get similar vectors, which is enough for lexical retrieval
// without a model file or a network service.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns a hash embedder with the given dimensions (384 when <= 0).
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed returns the unit-length hashed word histogram of text.
// Text without words yields the zero vector.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	emb := make([]float32, e.dimensions)
	for _, word := range SplitWords(text) {
		h := HashString(word)
		sign := float32(1)
		if HashString(word+"#")%2 == 1 {
			sign = -1
		}
		emb[h%e.dimensions] += sign
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch embeds each text in order.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, e, texts)
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Name returns "hash-bow".
func (e *HashEmbedder) Name() string {
	return "hash-bow"
}

// Close is a no-op.
func (e *HashEmbedder) Close() error {
	return nil
}
