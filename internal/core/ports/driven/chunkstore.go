package driven

import (
	"context"

	"github.com/parchlab/ragpipe/internal/core/domain"
)

// ChunkStore persists chunk rows and answers nearest-neighbour queries.
//
// Implementations:
//   - PostgreSQL with the pgvector extension (cosine distance in SQL)
//   - Embedded SQLite (float32 blobs, similarity computed in process)
type ChunkStore interface {
	// InsertBatch writes every chunk of one document as a single atomic
	// unit and returns the number inserted. On any row failure no row from
	// the batch is visible afterwards. Chunk indices are expected to be
	// exactly 0..n-1 in chunk order.
	InsertBatch(ctx context.Context, chunks []domain.Chunk) (int, error)

	// Search returns up to k chunks ordered by descending cosine
	// similarity to the query vector. Fewer results are returned when the
	// store holds fewer rows.
	Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error)

	// Clear removes every chunk and resets identity counters, so that a
	// fresh ingestion behaves as if the store were new.
	Clear(ctx context.Context) error

	// Ping verifies datastore reachability.
	Ping(ctx context.Context) error

	// Dimensions returns the vector size the store was configured with.
	// It must agree with the embedding provider; a mismatch is a startup
	// configuration error, not a per-call one.
	Dimensions() int

	// Close releases the underlying connections.
	Close() error
}
