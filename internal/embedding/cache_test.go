package embedding

import (
	"context"
	"testing"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Get("a")               // a is now most recent
	c.Set("c", []float32{6}) // evicts b
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to remain")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d", c.Len())
	}
}

type countingEmbedder struct {
	*HashEmbedder
	calls int
	texts int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	c.texts++
	return c.HashEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	c.texts += len(texts)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i], _ = c.HashEmbedder.Embed(ctx, text)
	}
	return out, nil
}

func TestCachedEmbedder(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{HashEmbedder: NewHashEmbedder(16)}
	e := NewCachedEmbedder(inner, 10)

	if _, err := e.Embed(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Embed(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Errorf("second Embed should hit cache, calls=%d", inner.calls)
	}

	out, err := e.EmbedBatch(ctx, []string{"alpha", "beta", "gamma"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 || out[1] == nil || out[2] == nil {
		t.Fatalf("unexpected batch %v", out)
	}
	if inner.calls != 2 || inner.texts != 3 {
		t.Errorf("batch should send only misses in one call: calls=%d texts=%d", inner.calls, inner.texts)
	}
	if e.Name() != "hash-bow" || e.Dimensions() != 16 {
		t.Errorf("wrapper should expose inner fingerprint, got %s/%d", e.Name(), e.Dimensions())
	}
}
