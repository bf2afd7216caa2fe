package models

import "errors"

var (
	// ErrConfig marks invalid configuration: chunk parameters, credentials, k.
	ErrConfig = errors.New("invalid configuration")
	// ErrExtractionEmpty is returned when no text could be obtained from the source.
	ErrExtractionEmpty = errors.New("no text extracted from document")
	// ErrEmbeddingUnavailable wraps failures of the embedding collaborator.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrStorage wraps failures of the vector storage collaborator.
	ErrStorage = errors.New("storage error")
	// ErrEmbedderMismatch is returned when a collection is used with a different embedder than it was created with.
	ErrEmbedderMismatch = errors.New("embedder does not match collection")
	// ErrGeneration wraps failures of the generation collaborator.
	ErrGeneration = errors.New("generation failed")
)
