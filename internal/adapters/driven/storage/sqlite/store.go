// Package sqlite provides an embedded ChunkStore backed by SQLite. Vectors
// are stored as little-endian float32 blobs and cosine similarity is
// computed in process over a full scan, which trades query speed for
// running without a database server.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/parchlab/ragpipe/internal/core/domain"
	"github.com/parchlab/ragpipe/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ChunkStore = (*Store)(nil)

// Store persists chunks in a single-file SQLite database.
type Store struct {
	db         *sql.DB
	path       string
	dimensions int
}

// NewStore opens (or creates) the database at dataDir/chunks.db. The
// embedding dimension is recorded on first use; reopening with a different
// dimension is a configuration error.
func NewStore(dataDir string, dimensions int) (*Store, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: embedding dimensions must be positive", domain.ErrConfiguration)
	}
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".ragpipe", "data")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "chunks.db")

	// WAL mode for better concurrency between ingestion and queries.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath, dimensions: dimensions}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema and pins the embedding dimension.
func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS rag_chunks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_title TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL CHECK (length(content) > 0),
			embedding BLOB NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("%w: creating rag_chunks table: %v", domain.ErrStorage, err)
	}
	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS rag_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("%w: creating rag_meta table: %v", domain.ErrStorage, err)
	}

	var stored string
	err = s.db.QueryRow("SELECT value FROM rag_meta WHERE key = 'dimensions'").Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.Exec("INSERT INTO rag_meta (key, value) VALUES ('dimensions', ?)",
			strconv.Itoa(s.dimensions))
		if err != nil {
			return fmt.Errorf("%w: recording dimensions: %v", domain.ErrStorage, err)
		}
	case err != nil:
		return fmt.Errorf("%w: reading dimensions: %v", domain.ErrStorage, err)
	default:
		existing, convErr := strconv.Atoi(stored)
		if convErr != nil {
			return fmt.Errorf("%w: corrupt dimensions value %q", domain.ErrStorage, stored)
		}
		if existing != s.dimensions {
			return fmt.Errorf("%w: store has %d-dimensional embeddings, configuration expects %d",
				domain.ErrConfiguration, existing, s.dimensions)
		}
	}
	return nil
}

// InsertBatch writes all chunks of one document inside a transaction.
// Any row failure rolls the whole batch back.
func (s *Store) InsertBatch(ctx context.Context, chunks []domain.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	for _, chunk := range chunks {
		if len(chunk.Embedding) != s.dimensions {
			return 0, fmt.Errorf("%w: chunk %d has a %d-dimensional embedding, store expects %d",
				domain.ErrConfiguration, chunk.Index, len(chunk.Embedding), s.dimensions)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: beginning transaction: %v", domain.ErrStorage, err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rag_chunks (doc_title, chunk_index, content, embedding)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("%w: preparing statement: %v", domain.ErrStorage, err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		blob := float32SliceToBytes(chunk.Embedding)
		if _, err := stmt.ExecContext(ctx, chunk.DocumentTitle, chunk.Index, chunk.Content, blob); err != nil {
			return 0, fmt.Errorf("%w: inserting chunk %d: %v", domain.ErrStorage, chunk.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: committing transaction: %v", domain.ErrStorage, err)
	}
	return len(chunks), nil
}

// Search scans every row, scores it by cosine similarity and returns the
// top k, best match first. Ties break on insertion order.
func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	if len(vector) != s.dimensions {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, store expects %d",
			domain.ErrConfiguration, len(vector), s.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, doc_title, chunk_index, content, embedding FROM rag_chunks
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: reading chunks: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var results []domain.ScoredChunk
	for rows.Next() {
		var hit domain.ScoredChunk
		var blob []byte
		if err := rows.Scan(&hit.Chunk.ID, &hit.Chunk.DocumentTitle, &hit.Chunk.Index,
			&hit.Chunk.Content, &blob); err != nil {
			return nil, fmt.Errorf("%w: scanning chunk row: %v", domain.ErrStorage, err)
		}
		hit.Similarity = cosineSimilarity(vector, bytesToFloat32Slice(blob))
		results = append(results, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading chunk rows: %v", domain.ErrStorage, err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Clear deletes every chunk and resets the autoincrement counter, so a
// fresh ingestion starts with id 1 again.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM rag_chunks"); err != nil {
		return fmt.Errorf("%w: deleting chunks: %v", domain.ErrStorage, err)
	}
	// sqlite_sequence only exists once an AUTOINCREMENT insert happened.
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'sqlite_sequence'").Scan(&count)
	if err != nil {
		return fmt.Errorf("%w: checking id sequence: %v", domain.ErrStorage, err)
	}
	if count > 0 {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM sqlite_sequence WHERE name = 'rag_chunks'"); err != nil {
			return fmt.Errorf("%w: resetting id sequence: %v", domain.ErrStorage, err)
		}
	}
	return nil
}

// Ping verifies the database file is usable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return nil
}

// Dimensions returns the configured vector size.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// float32SliceToBytes converts a float32 slice to a little-endian byte blob.
func float32SliceToBytes(floats []float32) []byte {
	bytes := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(bytes[i*4:], math.Float32bits(f))
	}
	return bytes
}

// bytesToFloat32Slice converts a little-endian byte blob back to floats.
func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Zero vectors score zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
