package driving

import (
	"context"

	"github.com/parchlab/ragpipe/internal/core/domain"
)

// PipelineService exposes the ingestion and retrieval pipeline to callers.
// All per-request failures are returned as errors with a human-readable
// message; none crash the process.
type PipelineService interface {
	// Ingest chunks the text, embeds every chunk in one provider call and
	// stores the result atomically under the given title. A chunkSize of
	// zero selects the default window size.
	Ingest(ctx context.Context, title, text string, chunkSize int) (domain.IngestResult, error)

	// IngestPDF extracts text from the PDF at the given path, then ingests
	// it like Ingest. The result carries a preview of the extracted text.
	IngestPDF(ctx context.Context, title, pdfPath string, chunkSize int) (domain.IngestResult, error)

	// Query embeds the question, retrieves the topK most similar chunks
	// and delegates answer generation. topK is clamped to the configured
	// maximum; zero selects the default.
	Query(ctx context.Context, question string, topK int) (domain.Answer, error)

	// Clear removes every stored chunk.
	Clear(ctx context.Context) error

	// Warmup forces embedding-provider initialisation ahead of the first
	// real request.
	Warmup(ctx context.Context) error

	// Health verifies the datastore is reachable.
	Health(ctx context.Context) error
}
