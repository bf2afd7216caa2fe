// Package pipeline wires extraction, retrieval, routing and generation into the
// ingest and ask operations.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/docagent/internal/config"
	"github.com/hyperjump/docagent/internal/embedding"
	"github.com/hyperjump/docagent/internal/extract"
	"github.com/hyperjump/docagent/internal/indexer"
	"github.com/hyperjump/docagent/internal/intent"
	"github.com/hyperjump/docagent/internal/llm"
	"github.com/hyperjump/docagent/internal/models"
	"github.com/hyperjump/docagent/internal/storage"
	"github.com/hyperjump/docagent/internal/tools"
	"github.com/hyperjump/docagent/internal/vector"
	"github.com/hyperjump/docagent/pkg/utils"
)

// Deps are the collaborators a Pipeline runs on. Extractor is optional.
type Deps struct {
	Store     storage.CollectionStore
	Embedder  embedding.Embedder
	Generator llm.Generator
	Extractor *extract.Extractor
}

// Pipeline ingests one source document into a collection and answers queries against it.
type Pipeline struct {
	collection string
	topK       int
	index      *vector.Index
	indexer    *indexer.Indexer
	router     *intent.Router
	dispatcher *tools.Dispatcher
	logger     *zap.Logger
	closers    []io.Closer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger passed down to every component.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New validates cfg and assembles a pipeline from deps. Configuration errors are
// reported before any collaborator is touched.
func New(cfg *config.Config, deps Deps, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", models.ErrConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Store == nil || deps.Embedder == nil || deps.Generator == nil {
		return nil, fmt.Errorf("%w: store, embedder and generator are required", models.ErrConfig)
	}
	chunker, err := indexer.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.OverlapOrDefault())
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		collection: cfg.Collection,
		topK:       cfg.Retrieval.TopK,
		router:     intent.NewRouter(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = utils.OrNop(p.logger)

	extractor := deps.Extractor
	if extractor == nil {
		extractor = extract.NewExtractor(extract.WithLogger(p.logger))
	}
	p.index = vector.NewIndex(deps.Embedder, deps.Store, vector.WithLogger(p.logger))
	p.indexer = indexer.NewIndexer(extractor, chunker, p.index, indexer.WithLogger(p.logger))
	p.dispatcher = tools.NewDispatcher(deps.Generator, tools.WithLogger(p.logger))
	p.logger.Debug("pipeline ready",
		zap.String("collection", p.collection),
		zap.Int("chunk_size", chunker.Size()),
		zap.Int("chunk_overlap", chunker.Overlap()),
		zap.Int("top_k", p.topK),
		zap.String("embedder", p.index.Embedder().Name()),
		zap.String("model", deps.Generator.ModelName()))
	return p, nil
}

// Open validates cfg and builds the production collaborators it names: the SQLite
// collection store, the configured embedder and the Together client. Close releases them.
func Open(cfg *config.Config, logger *zap.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", models.ErrConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = utils.OrNop(logger)

	gen, err := llm.NewTogetherClient(cfg.Generation, llm.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	emb, err := embedding.New(cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrEmbeddingUnavailable, err)
	}
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath, storage.WithDriver(cfg.Storage.Driver))
	if err != nil {
		_ = emb.Close()
		return nil, err
	}
	p, err := New(cfg, Deps{Store: store, Embedder: emb, Generator: gen}, WithLogger(logger))
	if err != nil {
		_ = store.Close()
		_ = emb.Close()
		return nil, err
	}
	p.closers = []io.Closer{store, emb}
	return p, nil
}

// Collection returns the collection the pipeline reads and writes.
func (p *Pipeline) Collection() string {
	return p.collection
}

// Ingest extracts the document at path, chunks it and populates the collection.
// Ingesting into an already populated collection is a no-op (Inserted == 0).
func (p *Pipeline) Ingest(ctx context.Context, path string) (*models.IngestResult, error) {
	start := time.Now()
	res, err := p.indexer.IndexFile(ctx, p.collection, path)
	if err != nil {
		return nil, err
	}
	p.logIngest(res, path, start)
	return res, nil
}

// IngestText is Ingest for a document the caller already holds as text.
func (p *Pipeline) IngestText(ctx context.Context, doc *models.Document) (*models.IngestResult, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", models.ErrExtractionEmpty)
	}
	start := time.Now()
	res, err := p.indexer.IndexDocument(ctx, p.collection, doc)
	if err != nil {
		return nil, err
	}
	p.logIngest(res, doc.Title, start)
	return res, nil
}

func (p *Pipeline) logIngest(res *models.IngestResult, source string, start time.Time) {
	if res.Skipped() {
		p.logger.Info("collection already populated",
			zap.String("collection", res.Collection), zap.String("source", source))
		return
	}
	p.logger.Info("document ingested",
		zap.String("collection", res.Collection),
		zap.String("source", source),
		zap.Int("chunks", res.Chunks),
		zap.Duration("elapsed", time.Since(start)))
}

// Ask retrieves the top-k chunks for query, classifies it and runs the matching tool.
func (p *Pipeline) Ask(ctx context.Context, query string) (*models.AskResult, error) {
	return p.AskQuery(ctx, models.Query{Text: query})
}

// AskQuery is Ask with an optional per-query k (q.TopK == 0 uses the configured default).
// A generation failure is reported in the result's Answer, not as an error.
func (p *Pipeline) AskQuery(ctx context.Context, q models.Query) (*models.AskResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	k := q.TopK
	if k == 0 {
		k = p.topK
	}
	start := time.Now()
	runID := uuid.NewString()
	logger := p.logger.With(zap.String("run_id", runID))

	chunks, err := p.index.Query(ctx, p.collection, q.Text, k)
	if err != nil {
		return nil, err
	}
	contextText := strings.Join(chunks, "\n")
	in := p.router.Classify(q.Text)
	logger.Info("query planned",
		zap.String("query", utils.Truncate(q.Text, 80)),
		zap.String("intent", in.String()),
		zap.Int("k", k),
		zap.Int("chunks", len(chunks)))

	answer := p.dispatcher.Dispatch(ctx, in, contextText, q.Text)
	if chunks == nil {
		chunks = []string{}
	}
	res := &models.AskResult{
		RunID:      runID,
		Query:      q.Text,
		Collection: p.collection,
		Intent:     in,
		Chunks:     chunks,
		Answer:     answer,
		Elapsed:    time.Since(start),
	}
	logger.Debug("query answered", zap.Bool("ok", answer.OK), zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

// Run ingests path and then answers query: the single-pass flow.
func (p *Pipeline) Run(ctx context.Context, path, query string) (*models.IngestResult, *models.AskResult, error) {
	ing, err := p.Ingest(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	ans, err := p.Ask(ctx, query)
	if err != nil {
		return ing, nil, err
	}
	return ing, ans, nil
}

// Status describes the pipeline's collection.
type Status struct {
	Collection   string    `json:"collection"`
	Exists       bool      `json:"exists"`
	Entries      int       `json:"entries"`
	EmbedderName string    `json:"embedder_name,omitempty"`
	Dimensions   int       `json:"dimensions,omitempty"`
	SourceID     string    `json:"source_id,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// Status reports the collection's entry count and embedder binding without creating it.
func (p *Pipeline) Status(ctx context.Context) (*Status, error) {
	info, err := p.index.Info(ctx, p.collection)
	return statusFrom(p.collection, info, err)
}

// ReadStatus is Status read straight from a store, for callers that have no
// generation credentials and so cannot build a Pipeline.
func ReadStatus(ctx context.Context, store storage.CollectionStore, collection string) (*Status, error) {
	info, err := store.GetCollection(ctx, collection)
	return statusFrom(collection, info, err)
}

func statusFrom(collection string, info *models.CollectionInfo, err error) (*Status, error) {
	st := &Status{Collection: collection}
	if errors.Is(err, storage.ErrCollectionNotFound) {
		return st, nil
	}
	if err != nil {
		return nil, err
	}
	st.Exists = true
	st.Entries = info.Count
	st.EmbedderName = info.EmbedderName
	st.Dimensions = info.Dimensions
	st.SourceID = info.SourceID
	st.CreatedAt = info.CreatedAt
	return st, nil
}

// Close releases collaborators created by Open. It is a no-op for pipelines built with New.
func (p *Pipeline) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}
