package domain

import (
	"strings"
	"unicode/utf8"
)

// MaxTitleLength is the longest document title kept on ingestion.
// Longer titles are truncated, not rejected.
const MaxTitleLength = 200

// DefaultTitle is used when an ingestion supplies no title.
const DefaultTitle = "Untitled"

// Chunk is the unit of retrieval: one windowed slice of a source document
// together with its embedding vector.
type Chunk struct {
	// ID is assigned by the chunk store on insert.
	ID int64

	// DocumentTitle groups the chunks produced by one ingestion.
	DocumentTitle string

	// Index is the zero-based position within the document's chunk
	// sequence. Unique per title, not globally.
	Index int

	// Content is the trimmed text window. Never empty.
	Content string

	// Embedding is the vector representation. Its length is fixed for the
	// lifetime of the store and must match the embedding provider.
	Embedding []float32
}

// ScoredChunk pairs a stored chunk with its cosine similarity to a query
// vector. Similarity is in [-1, 1], 1 meaning identical direction.
type ScoredChunk struct {
	Chunk      Chunk
	Similarity float64
}

// Source describes one retrieved chunk cited by an answer.
type Source struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	ChunkIndex int     `json:"chunk"`
	Similarity float64 `json:"similarity"`
	Content    string  `json:"content"`
}

// Answer is the result of a retrieval query. Sources are ordered best
// match first, matching the numbering used in the generated text.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// IngestResult reports a completed ingestion.
type IngestResult struct {
	Title  string `json:"title"`
	Chunks int    `json:"chunks"`

	// TextPreview holds the leading portion of the extracted text for PDF
	// ingestions. Empty for plain-text ingestions.
	TextPreview string `json:"extractedTextPreview,omitempty"`
}

// NormalizeTitle trims a document title, substitutes the default for an
// empty one and truncates to MaxTitleLength.
func NormalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return DefaultTitle
	}
	if len(title) > MaxTitleLength {
		cut := MaxTitleLength
		// Back up to a rune boundary so the cut cannot produce invalid UTF-8.
		for cut > 0 && !utf8.RuneStart(title[cut]) {
			cut--
		}
		title = title[:cut]
	}
	return title
}
