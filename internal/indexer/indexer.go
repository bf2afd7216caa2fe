// Package indexer splits extracted documents into chunks and loads them into a collection.
package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/docagent/internal/extract"
	"github.com/hyperjump/docagent/internal/fileid"
	"github.com/hyperjump/docagent/internal/models"
	"github.com/hyperjump/docagent/internal/vector"
	"github.com/hyperjump/docagent/pkg/utils"
)

const (
	metaKeySourcePath  = "source_path"
	metaKeySourceMtime = "source_mtime"
	metaKeySourceSize  = "source_size"
)

// Indexer turns a source document into collection entries.
type Indexer struct {
	extractor *extract.Extractor
	chunker   *Chunker
	index     *vector.Index
	logger    *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer. extractor may be nil, in which case files are read as plain text.
func NewIndexer(extractor *extract.Extractor, chunker *Chunker, index *vector.Index, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		extractor: extractor,
		chunker:   chunker,
		index:     index,
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.logger = utils.OrNop(idx.logger)
	if idx.extractor == nil {
		idx.extractor = extract.NewExtractor(extract.WithLogger(idx.logger))
	}
	return idx
}

// ReadFile extracts and preprocesses the document at path. It fails with
// models.ErrExtractionEmpty when no text could be obtained.
func (idx *Indexer) ReadFile(path string) (*models.Document, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	if !isSupported(absPath) {
		idx.logger.Debug("no dedicated decoder, reading as plain text", zap.String("path", absPath))
	}
	raw, err := idx.extractor.Extract(absPath)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	text := Preprocess(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: %s", models.ErrExtractionEmpty, absPath)
	}
	idx.logger.Debug("document extracted",
		zap.String("path", absPath),
		zap.Int("raw_bytes", len(raw)),
		zap.Int("text_bytes", len(text)))
	return &models.Document{
		ID:      fileid.FileDocID(absPath),
		Title:   filepath.Base(absPath),
		Content: text,
		Metadata: map[string]interface{}{
			metaKeySourcePath:  absPath,
			metaKeySourceMtime: strconv.FormatInt(info.ModTime().UnixNano(), 10),
			metaKeySourceSize:  strconv.FormatInt(info.Size(), 10),
		},
		CreatedAt: info.ModTime(),
	}, nil
}

// IndexFile extracts the file at path and indexes it into collection.
func (idx *Indexer) IndexFile(ctx context.Context, collection, path string) (*models.IngestResult, error) {
	doc, err := idx.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return idx.IndexDocument(ctx, collection, doc)
}

// IndexDocument chunks doc.Content as given and populates collection with the
// chunks. When the collection is already populated nothing is written and Inserted
// is 0. Content without any non-space text fails with models.ErrExtractionEmpty.
func (idx *Indexer) IndexDocument(ctx context.Context, collection string, doc *models.Document) (*models.IngestResult, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, fmt.Errorf("%w: document %q", models.ErrExtractionEmpty, doc.Title)
	}
	id := doc.ID
	if id == "" {
		id = fileid.TextDocID(doc.Content)
	}
	chunks := idx.chunker.Split(doc.Content)
	inserted, err := idx.index.Populate(ctx, collection, chunks, vector.WithSourceID(id))
	if err != nil {
		return nil, err
	}
	idx.logger.Debug("document indexed",
		zap.String("doc_id", id),
		zap.String("collection", collection),
		zap.Int("chunks", len(chunks)),
		zap.Int("inserted", inserted))
	return &models.IngestResult{
		DocumentID: id,
		Collection: collection,
		Chunks:     len(chunks),
		Inserted:   inserted,
	}, nil
}

func isSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extract.SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
