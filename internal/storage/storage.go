// Package storage persists named collections of embedded chunks.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/docagent/internal/models"
)

// ErrCollectionNotFound is returned by GetCollection for an unknown name.
var ErrCollectionNotFound = errors.New("collection not found")

// CollectionStore defines collection persistence. Entries of a collection are
// written once, all together, and read back in insertion order.
type CollectionStore interface {
	// EnsureCollection creates the collection described by info if it does not
	// exist and returns the stored description, which may differ from info.
	EnsureCollection(ctx context.Context, info models.CollectionInfo) (*models.CollectionInfo, error)
	GetCollection(ctx context.Context, name string) (*models.CollectionInfo, error)
	CountEntries(ctx context.Context, collection string) (int, error)
	// InsertIfEmpty atomically inserts entries when the collection holds none and
	// returns how many were inserted; 0 when the collection was already populated.
	// Entry sequence numbers are assigned in slice order.
	InsertIfEmpty(ctx context.Context, collection, sourceID string, entries []models.IndexEntry) (int, error)
	ListEntries(ctx context.Context, collection string) ([]models.IndexEntry, error)
	Close() error
}
