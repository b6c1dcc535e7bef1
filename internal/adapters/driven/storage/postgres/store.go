// Package postgres provides a ChunkStore backed by PostgreSQL with the
// pgvector extension. Similarity search runs in SQL, ordered by the cosine
// distance operator.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/parchlab/ragpipe/internal/core/domain"
	"github.com/parchlab/ragpipe/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ChunkStore = (*Store)(nil)

// Store persists chunks in a single rag_chunks table.
type Store struct {
	pool       *pgxpool.Pool
	dimensions int
}

// NewStore connects to the database, ensures the schema exists and checks
// that an existing table matches the configured embedding dimension. A
// mismatch is a configuration error and fails startup.
func NewStore(ctx context.Context, databaseURL string, dimensions int) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("%w: database URL is required", domain.ErrConfiguration)
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: embedding dimensions must be positive", domain.ErrConfiguration)
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing database URL: %v", domain.ErrConfiguration, err)
	}
	// The vector extension must exist before its types can be registered,
	// and registration must happen on every pooled connection.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
			return fmt.Errorf("enabling pgvector: %w", err)
		}
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	s := &Store{pool: pool, dimensions: dimensions}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the chunk table and verifies its vector dimension.
func (s *Store) migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS rag_chunks (
			id BIGSERIAL PRIMARY KEY,
			doc_title TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL CHECK (length(content) > 0),
			embedding vector(%d) NOT NULL
		)
	`, s.dimensions)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("%w: creating rag_chunks table: %v", domain.ErrStorage, err)
	}

	// For pgvector columns atttypmod holds the declared dimension. A
	// pre-existing table with a different dimension cannot be used.
	var typmod int
	err := s.pool.QueryRow(ctx, `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = 'rag_chunks'::regclass AND attname = 'embedding'
	`).Scan(&typmod)
	if err != nil {
		return fmt.Errorf("%w: reading embedding column type: %v", domain.ErrStorage, err)
	}
	if typmod > 0 && typmod != s.dimensions {
		return fmt.Errorf("%w: store has %d-dimensional embeddings, configuration expects %d",
			domain.ErrConfiguration, typmod, s.dimensions)
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

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: beginning transaction: %v", domain.ErrStorage, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, chunk := range chunks {
		if _, err := tx.Exec(ctx, `
			INSERT INTO rag_chunks (doc_title, chunk_index, content, embedding)
			VALUES ($1, $2, $3, $4)
		`, chunk.DocumentTitle, chunk.Index, chunk.Content, pgvector.NewVector(chunk.Embedding)); err != nil {
			return 0, fmt.Errorf("%w: inserting chunk %d: %v", domain.ErrStorage, chunk.Index, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: committing transaction: %v", domain.ErrStorage, err)
	}
	return len(chunks), nil
}

// Search returns the k nearest chunks by cosine similarity. The <=>
// operator is true cosine distance, so 1-distance is cosine similarity in
// [-1, 1].
func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	if len(vector) != s.dimensions {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, store expects %d",
			domain.ErrConfiguration, len(vector), s.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, doc_title, chunk_index, content, 1 - (embedding <=> $1) AS similarity
		FROM rag_chunks
		ORDER BY embedding <=> $1
		LIMIT $2
	`, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("%w: searching chunks: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var results []domain.ScoredChunk
	for rows.Next() {
		var hit domain.ScoredChunk
		if err := rows.Scan(&hit.Chunk.ID, &hit.Chunk.DocumentTitle, &hit.Chunk.Index,
			&hit.Chunk.Content, &hit.Similarity); err != nil {
			return nil, fmt.Errorf("%w: scanning chunk row: %v", domain.ErrStorage, err)
		}
		results = append(results, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading chunk rows: %v", domain.ErrStorage, err)
	}
	return results, nil
}

// Clear truncates the chunk table and restarts the identity sequence.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "TRUNCATE rag_chunks RESTART IDENTITY"); err != nil {
		return fmt.Errorf("%w: truncating rag_chunks: %v", domain.ErrStorage, err)
	}
	return nil
}

// Ping verifies database reachability.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return nil
}

// Dimensions returns the configured vector size.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
