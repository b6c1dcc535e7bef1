// Package local provides an in-process embedding service that needs no
// network access. Each token is mapped to a deterministic pseudo-random
// vector derived from its hash; a text embedding is the mean of its token
// vectors, normalised to unit length. The quality is far below a real
// language model, but the shape contract is identical, which makes the
// backend useful for offline runs and tests.
package local

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/parchlab/ragpipe/internal/core/domain"
	"github.com/parchlab/ragpipe/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	// DefaultDimensions matches small sentence-transformer models.
	DefaultDimensions = 384

	// ModelName identifies this embedder.
	ModelName = "hash-embed-v1"
)

// Config holds configuration for the local embedding service.
type Config struct {
	// Dimensions is the embedding vector size (default: 384).
	Dimensions int
}

// EmbeddingService generates embeddings with an in-process model.
// The model is initialised lazily on first use; concurrent first calls
// share one initialisation rather than each triggering their own.
type EmbeddingService struct {
	dimensions int

	initOnce sync.Once
	initErr  error
	model    *model
}

// model holds the shared state of the in-process embedder. Once built it
// is read-only in effect: token vectors are computed on demand and cached.
type model struct {
	dimensions int
	tokens     sync.Map // token string -> []float32
}

// NewEmbeddingService creates a new local embedding service. The model is
// not loaded until the first call or an explicit Warmup.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed generates a vector embedding for a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	m, err := s.ensureModel()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.embed(text), nil
}

// EmbedBatch processes texts one at a time, preserving input order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the model identifier.
func (s *EmbeddingService) ModelName() string {
	return ModelName
}

// Warmup forces model initialisation ahead of the first real request.
func (s *EmbeddingService) Warmup(_ context.Context) error {
	_, err := s.ensureModel()
	return err
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

// ensureModel performs the one-time model load. The sync.Once memoises both
// the model and any initialisation error, so every concurrent caller awaits
// the same load and sees the same outcome.
func (s *EmbeddingService) ensureModel() (*model, error) {
	s.initOnce.Do(func() {
		s.model, s.initErr = loadModel(s.dimensions)
	})
	if s.initErr != nil {
		return nil, s.initErr
	}
	return s.model, nil
}

func loadModel(dimensions int) (*model, error) {
	if dimensions <= 0 {
		return nil, &domain.ProviderError{Provider: "local", Message: "embedding dimensions must be positive"}
	}
	return &model{dimensions: dimensions}, nil
}

// embed mean-pools the token vectors of the text and normalises the result
// to unit length. A text with no tokens yields the zero vector.
func (m *model) embed(text string) []float32 {
	sum := make([]float64, m.dimensions)
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return make([]float32, m.dimensions)
	}

	for _, token := range tokens {
		vec := m.tokenVector(token)
		for i, v := range vec {
			sum[i] += float64(v)
		}
	}

	count := float64(len(tokens))
	var norm float64
	for i := range sum {
		sum[i] /= count
		norm += sum[i] * sum[i]
	}
	norm = math.Sqrt(norm)

	out := make([]float32, m.dimensions)
	if norm == 0 {
		return out
	}
	for i, v := range sum {
		out[i] = float32(v / norm)
	}
	return out
}

// tokenVector returns the cached vector for a token, generating it on first
// sight from a hash-seeded pseudo-random stream.
func (m *model) tokenVector(token string) []float32 {
	if cached, ok := m.tokens.Load(token); ok {
		return cached.([]float32)
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(token))
	state := h.Sum64()

	vec := make([]float32, m.dimensions)
	for i := range vec {
		state = splitmix64(state)
		// Map the top 53 bits to [-1, 1).
		vec[i] = float32(float64(state>>11)/float64(1<<52) - 1)
	}

	actual, _ := m.tokens.LoadOrStore(token, vec)
	return actual.([]float32)
}

// splitmix64 advances a 64-bit pseudo-random state.
func splitmix64(state uint64) uint64 {
	state += 0x9e3779b97f4a7c15
	z := state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// tokenize lowercases the text and splits it on anything that is not a
// letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
