// Package vector provides the collection-backed semantic index used for retrieval.
package vector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/docagent/internal/embedding"
	"github.com/hyperjump/docagent/internal/models"
	"github.com/hyperjump/docagent/internal/storage"
	"github.com/hyperjump/docagent/pkg/utils"
)

// Index stores chunks with their embeddings in named collections and answers
// top-k similarity queries. A collection is bound to the embedder that created it.
type Index struct {
	embedder embedding.Embedder
	store    storage.CollectionStore
	logger   *zap.Logger

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	loaded map[string]*loadedCollection
}

type loadedCollection struct {
	mem   *MemoryIndex
	texts []string
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(idx *Index) { idx.logger = l }
}

// NewIndex creates an index over store that embeds with embedder.
func NewIndex(embedder embedding.Embedder, store storage.CollectionStore, opts ...Option) *Index {
	idx := &Index{
		embedder: embedder,
		store:    store,
		locks:    make(map[string]*sync.Mutex),
		loaded:   make(map[string]*loadedCollection),
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.logger = utils.OrNop(idx.logger)
	return idx
}

// PopulateOption configures a Populate call.
type PopulateOption func(*populateOptions)

type populateOptions struct {
	sourceID string
}

// WithSourceID records the id of the document the chunks came from.
func WithSourceID(id string) PopulateOption {
	return func(o *populateOptions) { o.sourceID = id }
}

// ChunkID returns the entry id of the i-th chunk of a collection.
func ChunkID(i int) string {
	return fmt.Sprintf("chunk_%d", i)
}

// Populate embeds chunks and stores them as entries chunk_0..chunk_{n-1}. When the
// collection already holds at least one entry nothing is embedded or written and 0
// is returned; an empty chunks slice also returns 0.
func (idx *Index) Populate(ctx context.Context, collection string, chunks []string, opts ...PopulateOption) (int, error) {
	var o populateOptions
	for _, opt := range opts {
		opt(&o)
	}

	lock := idx.collectionLock(collection)
	lock.Lock()
	defer lock.Unlock()

	if _, err := idx.ensureCollection(ctx, collection); err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}
	existing, err := idx.store.CountEntries(ctx, collection)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		idx.logger.Info("collection already populated, skipping",
			zap.String("collection", collection), zap.Int("entries", existing))
		return 0, nil
	}

	start := time.Now()
	vectors, err := idx.embed(ctx, chunks)
	if err != nil {
		return 0, err
	}
	entries := make([]models.IndexEntry, len(chunks))
	for i, text := range chunks {
		entries[i] = models.IndexEntry{
			Collection: collection,
			ID:         ChunkID(i),
			Seq:        i,
			Text:       text,
			Embedding:  vectors[i],
		}
	}
	inserted, err := idx.store.InsertIfEmpty(ctx, collection, o.sourceID, entries)
	if err != nil {
		return 0, err
	}
	idx.forget(collection)
	idx.logger.Info("collection populated",
		zap.String("collection", collection),
		zap.Int("inserted", inserted),
		zap.Duration("elapsed", time.Since(start)))
	return inserted, nil
}

// Query returns the texts of up to k entries most similar to queryText, best first.
// Equal scores are ordered by insertion. k must be at least 1.
func (idx *Index) Query(ctx context.Context, collection, queryText string, k int) ([]string, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be >= 1, got %d", models.ErrConfig, k)
	}
	if _, err := idx.ensureCollection(ctx, collection); err != nil {
		return nil, err
	}
	lc, err := idx.load(ctx, collection)
	if err != nil {
		return nil, err
	}
	if lc == nil {
		return nil, nil
	}
	q, err := idx.embed(ctx, []string{queryText})
	if err != nil {
		return nil, err
	}
	hits, err := lc.mem.Search(q[0], k)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = lc.texts[h.Position]
	}
	idx.logger.Debug("collection queried",
		zap.String("collection", collection), zap.Int("k", k), zap.Int("hits", len(hits)))
	return texts, nil
}

// Count returns the number of entries in the collection.
func (idx *Index) Count(ctx context.Context, collection string) (int, error) {
	return idx.store.CountEntries(ctx, collection)
}

// Info describes the collection. It fails with storage.ErrCollectionNotFound for a
// collection that was never referenced.
func (idx *Index) Info(ctx context.Context, collection string) (*models.CollectionInfo, error) {
	return idx.store.GetCollection(ctx, collection)
}

// Embedder returns the embedder the index uses for chunks and queries.
func (idx *Index) Embedder() embedding.Embedder {
	return idx.embedder
}

func (idx *Index) ensureCollection(ctx context.Context, collection string) (*models.CollectionInfo, error) {
	info, err := idx.store.EnsureCollection(ctx, models.CollectionInfo{
		Name:         collection,
		EmbedderName: idx.embedder.Name(),
		Dimensions:   idx.embedder.Dimensions(),
	})
	if err != nil {
		return nil, err
	}
	if info.EmbedderName != idx.embedder.Name() || info.Dimensions != idx.embedder.Dimensions() {
		return nil, fmt.Errorf("%w: collection %q was created with %s/%d, current embedder is %s/%d",
			models.ErrEmbedderMismatch, collection, info.EmbedderName, info.Dimensions,
			idx.embedder.Name(), idx.embedder.Dimensions())
	}
	return info, nil
}

// embed returns unit-length copies of the embedder's vectors.
func (idx *Index) embed(ctx context.Context, texts []string) ([][]float32, error) {
	raw, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", models.ErrEmbeddingUnavailable, err)
	}
	if len(raw) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", models.ErrEmbeddingUnavailable, len(raw), len(texts))
	}
	dims := idx.embedder.Dimensions()
	out := make([][]float32, len(raw))
	for i, v := range raw {
		if len(v) != dims {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d", models.ErrEmbeddingUnavailable, i, len(v), dims)
		}
		out[i] = append([]float32(nil), v...)
		utils.NormalizeL2(out[i])
	}
	return out, nil
}

// load returns the in-memory index for a populated collection, reading it from the
// store on first use. Empty collections are not cached so a later populate by another
// process is seen.
func (idx *Index) load(ctx context.Context, collection string) (*loadedCollection, error) {
	idx.mu.Lock()
	lc, ok := idx.loaded[collection]
	idx.mu.Unlock()
	if ok {
		return lc, nil
	}

	entries, err := idx.store.ListEntries(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	mem, err := NewMemoryIndex(idx.embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(entries))
	vectors := make([][]float32, len(entries))
	texts := make([]string, len(entries))
	for i, e := range entries {
		ids[i], vectors[i], texts[i] = e.ID, e.Embedding, e.Text
	}
	if err := mem.Add(ids, vectors); err != nil {
		return nil, fmt.Errorf("%w: collection %q: %w", models.ErrStorage, collection, err)
	}
	lc = &loadedCollection{mem: mem, texts: texts}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if cached, ok := idx.loaded[collection]; ok {
		return cached, nil
	}
	idx.loaded[collection] = lc
	idx.logger.Debug("collection loaded", zap.String("collection", collection), zap.Int("entries", len(entries)))
	return lc, nil
}

func (idx *Index) forget(collection string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.loaded, collection)
}

func (idx *Index) collectionLock(collection string) *sync.Mutex {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	l, ok := idx.locks[collection]
	if !ok {
		l = &sync.Mutex{}
		idx.locks[collection] = l
	}
	return l
}
