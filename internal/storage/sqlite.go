package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/hyperjump/docagent/internal/models"
)

// SQLiteStore implements CollectionStore using SQLite. Write transactions are
// opened with BEGIN IMMEDIATE so concurrent populators serialize on the database lock.
type SQLiteStore struct {
	db   *sqlx.DB
	path string
}

// Driver names accepted by WithDriver.
const (
	// DriverCGO is github.com/mattn/go-sqlite3.
	DriverCGO = "sqlite3"
	// DriverPure is modernc.org/sqlite, usable in CGO_ENABLED=0 builds.
	DriverPure = "sqlite"
)

type storeOptions struct {
	driver string
}

// StoreOption configures NewSQLiteStore.
type StoreOption func(*storeOptions)

// WithDriver selects the database/sql driver. An empty name keeps the default, DriverCGO.
func WithDriver(name string) StoreOption {
	return func(o *storeOptions) {
		if name != "" {
			o.driver = name
		}
	}
}

// dsn builds the connection string for driver. Both variants take the write lock
// when a transaction begins and wait up to 5s for it.
func dsn(driver, dbPath string) (string, error) {
	switch driver {
	case DriverCGO:
		return dbPath + "?_txlock=immediate&_busy_timeout=5000&_foreign_keys=on", nil
	case DriverPure:
		return dbPath + "?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite", nil
	default:
		return "", fmt.Errorf("%w: unknown sqlite driver %q", models.ErrConfig, driver)
	}
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string, opts ...StoreOption) (*SQLiteStore, error) {
	o := storeOptions{driver: DriverCGO}
	for _, opt := range opts {
		opt(&o)
	}
	conn, err := dsn(o.driver, dbPath)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, wrap("create database directory", err)
		}
	}
	db, err := sqlx.Open(o.driver, conn)
	if err != nil {
		return nil, wrap("open database", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, wrap("enable WAL", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, wrap("initialize schema", err)
	}
	return &SQLiteStore{db: db, path: dbPath}, nil
}

func initSchema(db *sqlx.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		embedder_name TEXT NOT NULL,
		dimensions INTEGER NOT NULL,
		source_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entries (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		text TEXT NOT NULL,
		embedding BLOB NOT NULL,
		PRIMARY KEY (collection, id),
		FOREIGN KEY (collection) REFERENCES collections(name) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_entries_collection_seq ON entries(collection, seq);
	`
	_, err := db.Exec(schema)
	return err
}

func wrap(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", models.ErrStorage, op, err)
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// EnsureCollection inserts the collection if missing and returns the stored row.
func (s *SQLiteStore) EnsureCollection(ctx context.Context, info models.CollectionInfo) (*models.CollectionInfo, error) {
	if info.CreatedAt.IsZero() {
		info.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT OR IGNORE INTO collections (name, embedder_name, dimensions, source_id, created_at)
		 VALUES (:name, :embedder_name, :dimensions, :source_id, :created_at)`, info)
	if err != nil {
		return nil, wrap("create collection", err)
	}
	return s.GetCollection(ctx, info.Name)
}

// GetCollection returns the collection with its entry count.
func (s *SQLiteStore) GetCollection(ctx context.Context, name string) (*models.CollectionInfo, error) {
	var info models.CollectionInfo
	err := s.db.GetContext(ctx, &info,
		`SELECT name, embedder_name, dimensions, source_id, created_at FROM collections WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if err != nil {
		return nil, wrap("get collection", err)
	}
	if info.Count, err = s.CountEntries(ctx, name); err != nil {
		return nil, err
	}
	return &info, nil
}

// CountEntries returns the number of entries in the collection (0 if it does not exist).
func (s *SQLiteStore) CountEntries(ctx context.Context, collection string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM entries WHERE collection = ?`, collection); err != nil {
		return 0, wrap("count entries", err)
	}
	return n, nil
}

// InsertIfEmpty checks and inserts in one immediate transaction.
func (s *SQLiteStore) InsertIfEmpty(ctx context.Context, collection, sourceID string, entries []models.IndexEntry) (inserted int, err error) {
	if len(entries) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, wrap("begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var n int
	if err = tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM entries WHERE collection = ?`, collection); err != nil {
		return 0, wrap("count entries", err)
	}
	if n > 0 {
		if err = tx.Commit(); err != nil {
			return 0, wrap("commit", err)
		}
		return 0, nil
	}

	stmt, err := tx.PreparexContext(ctx,
		`INSERT INTO entries (collection, id, seq, text, embedding) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, wrap("prepare insert", err)
	}
	defer stmt.Close()
	for i, e := range entries {
		if _, err = stmt.ExecContext(ctx, collection, e.ID, i, e.Text, encodeEmbedding(e.Embedding)); err != nil {
			return 0, wrap(fmt.Sprintf("insert entry %s", e.ID), err)
		}
	}
	if sourceID != "" {
		if _, err = tx.ExecContext(ctx, `UPDATE collections SET source_id = ? WHERE name = ?`, sourceID, collection); err != nil {
			return 0, wrap("record source", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, wrap("commit", err)
	}
	return len(entries), nil
}

type entryRow struct {
	Collection string `db:"collection"`
	ID         string `db:"id"`
	Seq        int    `db:"seq"`
	Text       string `db:"text"`
	Embedding  []byte `db:"embedding"`
}

// ListEntries returns all entries of the collection ordered by sequence number.
func (s *SQLiteStore) ListEntries(ctx context.Context, collection string) ([]models.IndexEntry, error) {
	var rows []entryRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT collection, id, seq, text, embedding FROM entries WHERE collection = ? ORDER BY seq`, collection)
	if err != nil {
		return nil, wrap("list entries", err)
	}
	entries := make([]models.IndexEntry, len(rows))
	for i, r := range rows {
		entries[i] = models.IndexEntry{
			Collection: r.Collection,
			ID:         r.ID,
			Seq:        r.Seq,
			Text:       r.Text,
			Embedding:  decodeEmbedding(r.Embedding),
		}
	}
	return entries, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// encodeEmbedding stores a vector as little-endian float32s.
func encodeEmbedding(v []float32) []byte {
	const size = 4
	out := make([]byte, len(v)*size)
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*size:], math.Float32bits(x))
	}
	return out
}

func decodeEmbedding(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size:]))
	}
	return out
}
