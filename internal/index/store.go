package index

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/answerd/answerd/internal/corpus"
)

// dbFileName is the marker file inside the index directory. Its
// existence is the entire rebuild-vs-reuse signal.
const dbFileName = "index.db"

// embedConcurrency bounds parallel embedding calls during a build to
// avoid overwhelming the embedding backend.
const embedConcurrency = 4

// Store is a persisted vector index over document chunks. After Open
// returns, the store only reads; it is safe to share across concurrent
// requests without locking.
type Store struct {
	db       *sql.DB
	embedder Embedder
	count    int
}

// Open returns a ready Store for the index directory.
//
// If a persisted index exists at dir it is loaded as-is and chunks is
// ignored entirely; document changes stay invisible until the index
// directory is cleared by hand. An existing but unreadable index is a
// *LoadError, never a silent rebuild.
//
// If no persisted index exists, every chunk is embedded and the full
// set is written to a temporary file, then published with a single
// rename; a crash mid-build leaves no marker behind. Opening with no
// persisted index and zero chunks fails with ErrEmptyCorpus.
func Open(ctx context.Context, chunks []corpus.Chunk, embedder Embedder, dir string) (*Store, error) {
	dbPath := filepath.Join(dir, dbFileName)

	if _, err := os.Stat(dbPath); err == nil {
		slog.Info("reusing persisted index", "path", dbPath)
		return load(dbPath, embedder)
	} else if !os.IsNotExist(err) {
		return nil, &LoadError{Path: dbPath, Err: err}
	}

	if len(chunks) == 0 {
		return nil, ErrEmptyCorpus
	}

	slog.Info("building index", "path", dbPath, "chunks", len(chunks))
	if err := build(ctx, chunks, embedder, dir, dbPath); err != nil {
		return nil, err
	}
	return load(dbPath, embedder)
}

// load opens an existing index file and verifies it is complete.
func load(dbPath string, embedder Embedder) (*Store, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, &LoadError{Path: dbPath, Err: err}
	}

	// The meta row is written last during a build; a file without it is
	// a partial or foreign database.
	var metaCount int
	if err := db.QueryRow("SELECT chunk_count FROM index_meta").Scan(&metaCount); err != nil {
		db.Close()
		return nil, &LoadError{Path: dbPath, Err: fmt.Errorf("reading index metadata: %w", err)}
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		db.Close()
		return nil, &LoadError{Path: dbPath, Err: fmt.Errorf("counting chunks: %w", err)}
	}
	if count != metaCount {
		db.Close()
		return nil, &LoadError{Path: dbPath, Err: fmt.Errorf("index holds %d chunks, metadata says %d", count, metaCount)}
	}

	return &Store{db: db, embedder: embedder, count: count}, nil
}

// build embeds all chunks into a temporary database file and publishes
// it with an atomic rename.
func build(ctx context.Context, chunks []corpus.Chunk, embedder Embedder, dir, dbPath string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	// Same directory as the final path so the rename cannot cross
	// filesystems.
	tmpPath := dbPath + ".building"
	os.Remove(tmpPath)

	vectors, err := embedChunks(ctx, chunks, embedder)
	if err != nil {
		return fmt.Errorf("embedding corpus: %w", err)
	}

	db, err := openDB(tmpPath)
	if err != nil {
		return fmt.Errorf("creating index database: %w", err)
	}

	if err := writeIndex(db, chunks, vectors); err != nil {
		db.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing index database: %w", err)
	}

	if err := os.Rename(tmpPath, dbPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("publishing index: %w", err)
	}
	return nil
}

// embedChunks embeds all chunk texts with bounded concurrency,
// preserving chunk order.
func embedChunks(ctx context.Context, chunks []corpus.Chunk, embedder Embedder) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for i, c := range chunks {
		g.Go(func() error {
			vec, err := embedder.Embed(gCtx, c.Text)
			if err != nil {
				return fmt.Errorf("embedding chunk %d (%s): %w", i, c.Source, err)
			}
			vectors[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func writeIndex(db *sql.DB, chunks []corpus.Chunk, vectors [][]float32) error {
	if _, err := db.Exec(`
		CREATE TABLE chunks (
			id TEXT PRIMARY KEY,
			seq INTEGER NOT NULL,
			source TEXT NOT NULL,
			text TEXT NOT NULL,
			embedding BLOB NOT NULL
		);
		CREATE TABLE index_meta (
			built_at TEXT NOT NULL,
			chunk_count INTEGER NOT NULL
		)`); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning insert transaction: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO chunks (id, seq, source, text, embedding) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		if _, err := stmt.Exec(uuid.New().String(), i, c.Source, c.Text, encodeFloat32s(vectors[i])); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting chunk %d: %w", i, err)
		}
	}

	// Written last: a database missing this row is treated as partial.
	if _, err := tx.Exec(`INSERT INTO index_meta (built_at, chunk_count) VALUES (?, ?)`,
		time.Now().UTC().Format(time.RFC3339), len(chunks)); err != nil {
		tx.Rollback()
		return fmt.Errorf("writing index metadata: %w", err)
	}

	return tx.Commit()
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Single connection avoids "database is locked" errors.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return db, nil
}

// Count returns the number of indexed chunks.
func (s *Store) Count() int {
	return s.count
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
