package driven

import "context"

// Extractor converts a PDF file into text. Implementations run an external
// tool and must hard-kill it once the configured timeout elapses, releasing
// temp files and process handles regardless of outcome.
type Extractor interface {
	// Extract returns the extracted text (markdown or plain text) for the
	// PDF at the given path, or an extraction error when no textual output
	// is produced.
	Extract(ctx context.Context, pdfPath string) (string, error)
}
