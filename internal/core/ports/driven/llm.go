package driven

import "context"

// LLMService produces the final answer text from an assembled prompt.
// The pipeline treats it as an opaque collaborator: prompt in, text out.
// This is an optional service - when nil, queries fail with a
// configuration error rather than at dial time.
type LLMService interface {
	// Generate produces a completion for the prompt under the given system
	// instruction. The returned text is passed to the caller verbatim.
	Generate(ctx context.Context, system, prompt string) (string, error)

	// ModelName returns the name of the generation model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
