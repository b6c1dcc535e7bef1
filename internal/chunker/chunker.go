// Package chunker splits document text into fixed-size overlapping windows.
// Chunking is deterministic and pure: the same text and parameters always
// produce the same sequence of windows.
package chunker

import "strings"

// Default windowing parameters.
const (
	// DefaultWindowSize is used when no size is requested.
	DefaultWindowSize = 1000

	// MinWindowSize and MaxWindowSize bound requested window sizes.
	MinWindowSize = 200
	MaxWindowSize = 4000

	// overlapDivisor derives the overlap as a fraction of the window size
	// (window/5 = 20%).
	overlapDivisor = 5

	// DefaultMaxOverlap caps the derived overlap in characters.
	DefaultMaxOverlap = 800
)

// Policy clamps requested window sizes and derives overlaps.
type Policy struct {
	defaultSize int
	minSize     int
	maxSize     int
	maxOverlap  int
}

// Option configures a chunking policy.
type Option func(*Policy)

// WithDefaultSize sets the window size used when none is requested.
func WithDefaultSize(size int) Option {
	return func(p *Policy) {
		if size > 0 {
			p.defaultSize = size
		}
	}
}

// WithSizeRange sets the clamping bounds for requested window sizes.
func WithSizeRange(minSize, maxSize int) Option {
	return func(p *Policy) {
		if minSize > 0 && maxSize >= minSize {
			p.minSize = minSize
			p.maxSize = maxSize
		}
	}
}

// WithMaxOverlap caps the derived overlap in characters.
func WithMaxOverlap(overlap int) Option {
	return func(p *Policy) {
		if overlap >= 0 {
			p.maxOverlap = overlap
		}
	}
}

// NewPolicy creates a chunking policy with the given options.
func NewPolicy(opts ...Option) *Policy {
	p := &Policy{
		defaultSize: DefaultWindowSize,
		minSize:     MinWindowSize,
		maxSize:     MaxWindowSize,
		maxOverlap:  DefaultMaxOverlap,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WindowSize clamps a requested size to the policy range. A non-positive
// request falls back to the default.
func (p *Policy) WindowSize(requested int) int {
	if requested <= 0 {
		requested = p.defaultSize
	}
	if requested < p.minSize {
		return p.minSize
	}
	if requested > p.maxSize {
		return p.maxSize
	}
	return requested
}

// Overlap derives the overlap for a window size: a fifth of the window,
// capped at the policy maximum. Always smaller than the window so the scan
// advances.
func (p *Policy) Overlap(window int) int {
	overlap := window / overlapDivisor
	if overlap > p.maxOverlap {
		overlap = p.maxOverlap
	}
	if overlap >= window {
		overlap = window - 1
	}
	return overlap
}

// Split chunks text using the clamped window size and derived overlap.
func (p *Policy) Split(text string, requestedSize int) []string {
	size := p.WindowSize(requestedSize)
	return Chunk(text, size, p.Overlap(size))
}

// Chunk advances a cursor through the text by windowSize-overlap and takes
// a trimmed window at each position. Empty windows after trimming are
// dropped without stopping the scan. Text shorter than a window yields one
// chunk, or none when it is empty or whitespace-only.
func Chunk(text string, windowSize, overlap int) []string {
	if windowSize < 1 {
		windowSize = 1
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= windowSize {
		overlap = windowSize - 1
	}
	step := windowSize - overlap
	if step < 1 {
		step = 1
	}

	var chunks []string
	for start := 0; start < len(text); start += step {
		end := start + windowSize
		if end > len(text) {
			end = len(text)
		}
		window := strings.TrimSpace(text[start:end])
		if window != "" {
			chunks = append(chunks, window)
		}
	}
	return chunks
}
