// Package models defines core data structures for documents, chunks, queries, and answers.
package models

import "time"

// Document is the extracted text of the single source document of a run.
type Document struct {
	ID        string                 `json:"id" db:"id"`
	Title     string                 `json:"title" db:"title"`
	Content   string                 `json:"content" db:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" db:"-"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}

// Chunk is a window of a Document. Index is its position in document order.
type Chunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// IndexEntry is one stored chunk of a collection. Seq is the insertion order.
type IndexEntry struct {
	Collection string    `json:"collection" db:"collection"`
	ID         string    `json:"id" db:"id"`
	Seq        int       `json:"seq" db:"seq"`
	Text       string    `json:"text" db:"text"`
	Embedding  []float32 `json:"-" db:"-"`
}

// CollectionInfo describes a named collection and the embedder it is bound to.
type CollectionInfo struct {
	Name         string    `json:"name" db:"name"`
	EmbedderName string    `json:"embedder_name" db:"embedder_name"`
	Dimensions   int       `json:"dimensions" db:"dimensions"`
	SourceID     string    `json:"source_id,omitempty" db:"source_id"`
	Count        int       `json:"count" db:"-"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
