package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline error taxonomy. Per-request failures are
// reported to the caller; configuration errors abort startup.
var (
	// ErrValidation indicates missing or empty required input.
	// User-correctable, the HTTP-equivalent of a 4xx.
	ErrValidation = errors.New("invalid input")

	// ErrStorage indicates a datastore read or write failure, including a
	// rolled-back batch. Request-fatal; never leaves a partial document.
	ErrStorage = errors.New("storage failure")

	// ErrConfiguration indicates a startup-time misconfiguration such as an
	// embedding dimension mismatch. Fatal to process startup, never
	// produced per request.
	ErrConfiguration = errors.New("invalid configuration")
)

// ProviderError reports a non-success response from an embedding or
// generation API. It carries the upstream status and message so the caller
// can see what the provider said. Never retried automatically.
type ProviderError struct {
	// Provider names the failing service, e.g. "openai" or "local".
	Provider string

	// StatusCode is the upstream HTTP status, zero when not applicable.
	StatusCode int

	// Message is the upstream error message.
	Message string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// ExtractionError reports a PDF extraction that failed, timed out or
// produced no usable text. Output holds whatever the extractor wrote to its
// error stream, when available.
type ExtractionError struct {
	Output string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("extraction failed: %v", e.Err)
	}
	return fmt.Sprintf("extraction failed: %v: %s", e.Err, e.Output)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
