// Package services implements the core ingestion and retrieval pipeline.
package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/parchlab/ragpipe/internal/chunker"
	"github.com/parchlab/ragpipe/internal/core/domain"
	"github.com/parchlab/ragpipe/internal/core/ports/driven"
	"github.com/parchlab/ragpipe/internal/core/ports/driving"
	"github.com/parchlab/ragpipe/internal/logger"
)

// Ensure PipelineService implements the interface.
var _ driving.PipelineService = (*PipelineService)(nil)

// Default query parameters.
const (
	// DefaultTopK is used when a query requests no result count.
	DefaultTopK = 4

	// DefaultMaxTopK caps the number of retrieved chunks per query.
	DefaultMaxTopK = 10

	// previewLength is how much extracted text is echoed back after a PDF
	// ingestion.
	previewLength = 8000
)

// systemPrompt is the instruction given to the generation model.
const systemPrompt = "You are a helpful RAG assistant. Use the provided context. " +
	"If the answer is not in the context, say you don't know."

// PipelineService orchestrates chunking, embedding, storage and retrieval.
type PipelineService struct {
	store     driven.ChunkStore
	embedder  driven.EmbeddingService
	llm       driven.LLMService
	extractor driven.Extractor
	chunking  *chunker.Policy
	maxTopK   int
}

// Option configures the pipeline service.
type Option func(*PipelineService)

// WithChunkingPolicy overrides the default chunking policy.
func WithChunkingPolicy(p *chunker.Policy) Option {
	return func(s *PipelineService) {
		if p != nil {
			s.chunking = p
		}
	}
}

// WithMaxTopK overrides the retrieval result cap.
func WithMaxTopK(k int) Option {
	return func(s *PipelineService) {
		if k > 0 {
			s.maxTopK = k
		}
	}
}

// NewPipelineService creates the pipeline service. The llm and extractor
// parameters are optional (can be nil); operations needing them fail with a
// configuration error instead.
func NewPipelineService(
	store driven.ChunkStore,
	embedder driven.EmbeddingService,
	llm driven.LLMService,
	extractor driven.Extractor,
	opts ...Option,
) *PipelineService {
	s := &PipelineService{
		store:     store,
		embedder:  embedder,
		llm:       llm,
		extractor: extractor,
		chunking:  chunker.NewPolicy(),
		maxTopK:   DefaultMaxTopK,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest chunks the text, embeds all chunks in one provider call and writes
// them as one atomic batch. Any failure at embedding or storage aborts the
// whole operation with no partial state retained.
func (s *PipelineService) Ingest(ctx context.Context, title, text string, chunkSize int) (domain.IngestResult, error) {
	logger.Section("Ingest")
	title = domain.NormalizeTitle(title)

	text = strings.TrimSpace(text)
	if text == "" {
		return domain.IngestResult{}, fmt.Errorf("%w: text is required", domain.ErrValidation)
	}

	chunks := s.chunking.Split(text, chunkSize)
	if len(chunks) == 0 {
		return domain.IngestResult{}, fmt.Errorf("%w: nothing to ingest", domain.ErrValidation)
	}
	logger.Debug("Chunked %q into %d windows", title, len(chunks))

	vectors, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return domain.IngestResult{}, fmt.Errorf("embedding chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return domain.IngestResult{}, fmt.Errorf("embedding chunks: got %d vectors for %d texts", len(vectors), len(chunks))
	}

	rows := make([]domain.Chunk, len(chunks))
	for i, content := range chunks {
		rows[i] = domain.Chunk{
			DocumentTitle: title,
			Index:         i,
			Content:       content,
			Embedding:     vectors[i],
		}
	}

	inserted, err := s.store.InsertBatch(ctx, rows)
	if err != nil {
		return domain.IngestResult{}, fmt.Errorf("storing chunks: %w", err)
	}
	logger.Info("Ingested %q: %d chunks", title, inserted)

	return domain.IngestResult{Title: title, Chunks: inserted}, nil
}

// IngestPDF extracts text from a PDF and ingests it. The document title
// defaults to the file name when none is given.
func (s *PipelineService) IngestPDF(ctx context.Context, title, pdfPath string, chunkSize int) (domain.IngestResult, error) {
	if s.extractor == nil {
		return domain.IngestResult{}, fmt.Errorf("%w: PDF extractor not configured", domain.ErrConfiguration)
	}
	if strings.TrimSpace(title) == "" {
		title = filepath.Base(pdfPath)
	}

	logger.Section("PDF Extraction")
	text, err := s.extractor.Extract(ctx, pdfPath)
	if err != nil {
		return domain.IngestResult{}, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return domain.IngestResult{}, fmt.Errorf("%w: no text extracted from PDF", domain.ErrValidation)
	}
	logger.Debug("Extracted %d characters from %s", len(text), pdfPath)

	result, err := s.Ingest(ctx, title, text, chunkSize)
	if err != nil {
		return domain.IngestResult{}, err
	}
	result.TextPreview = preview(text)
	return result, nil
}

// Query embeds the question, retrieves the most similar chunks and
// delegates answer generation. An empty store still produces an answer: the
// generation step is called with an empty context block.
func (s *PipelineService) Query(ctx context.Context, question string, topK int) (domain.Answer, error) {
	logger.Section("Query Execution")

	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Answer{}, fmt.Errorf("%w: query is required", domain.ErrValidation)
	}
	if s.llm == nil {
		return domain.Answer{}, fmt.Errorf("%w: generation model not configured", domain.ErrConfiguration)
	}

	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > s.maxTopK {
		topK = s.maxTopK
	}
	logger.Debug("Question: %q, topK: %d", question, topK)

	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := s.store.Search(ctx, vector, topK)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("searching chunks: %w", err)
	}
	logger.Debug("Retrieved %d chunks", len(hits))

	prompt := buildPrompt(question, contextBlock(hits))
	answer, err := s.llm.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("generating answer: %w", err)
	}

	sources := make([]domain.Source, len(hits))
	for i, hit := range hits {
		sources[i] = domain.Source{
			ID:         hit.Chunk.ID,
			Title:      hit.Chunk.DocumentTitle,
			ChunkIndex: hit.Chunk.Index,
			Similarity: hit.Similarity,
			Content:    hit.Chunk.Content,
		}
	}

	return domain.Answer{Text: answer, Sources: sources}, nil
}

// Clear removes every stored chunk.
func (s *PipelineService) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing store: %w", err)
	}
	logger.Info("Cleared all chunks")
	return nil
}

// Warmup forces embedding-provider initialisation.
func (s *PipelineService) Warmup(ctx context.Context) error {
	if err := s.embedder.Warmup(ctx); err != nil {
		return fmt.Errorf("warming up embedding provider: %w", err)
	}
	return nil
}

// Health verifies the datastore is reachable.
func (s *PipelineService) Health(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("datastore unreachable: %w", err)
	}
	return nil
}

// contextBlock labels each retrieved chunk with a 1-based source number,
// its document title and chunk index.
func contextBlock(hits []domain.ScoredChunk) string {
	parts := make([]string, len(hits))
	for i, hit := range hits {
		parts[i] = fmt.Sprintf("Source %d (doc: %s, chunk: %d):\n%s",
			i+1, hit.Chunk.DocumentTitle, hit.Chunk.Index, hit.Chunk.Content)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func buildPrompt(question, context string) string {
	return fmt.Sprintf("Question:\n%s\n\nContext:\n%s\n\nAnswer with references to Source 1, Source 2, etc.",
		question, context)
}

func preview(text string) string {
	if len(text) <= previewLength {
		return text
	}
	return text[:previewLength]
}
